// Package module implements ModuleManager and ModuleBase: the orchestrator
// that loads supermodules, tracks every instantiation in a ModuleTree, and
// the abstract base every module implementation embeds for identity,
// option access, output, caching, and child instantiation.
//
// © 2026 pulsar authors. MIT License.
package module

import (
	"sync/atomic"

	"github.com/pulsarchem/pulsar/pkg/modulecache"
	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
	"github.com/pulsarchem/pulsar/pkg/moduletree"
	"github.com/pulsarchem/pulsar/pkg/options"
	"github.com/pulsarchem/pulsar/pkg/script"
)

// injectable is satisfied by Base via a promoted unexported method, so any
// type embedding Base (regardless of which package defines it) can be
// injected by Manager without Manager needing to know the concrete type.
type injectable interface {
	inject(id uint64, key string, info moduleinfo.Info, mgr *Manager, node *moduletree.Node, cache *modulecache.Data)
}

// Base is embedded by every native module implementation. It carries
// identity, the effective OptionMap (living in the tree node, not copied),
// the output sink, debug toggling, and access back to the owning Manager
// and this module-class's cache.
type Base struct {
	id       uint64
	key      string
	info     moduleinfo.Info
	mgr      *Manager
	node     *moduletree.Node
	cache    *modulecache.Data
	debug    atomic.Bool
	out      *OutputSink
	scripted *script.Instance
}

func (b *Base) inject(id uint64, key string, info moduleinfo.Info, mgr *Manager, node *moduletree.Node, cache *modulecache.Data) {
	b.id = id
	b.key = key
	b.info = info
	b.mgr = mgr
	b.node = node
	b.cache = cache
	b.out = newOutputSink(node, mgr.processOutput)
}

// ID returns this instance's process-unique id.
func (b *Base) ID() uint64 { return b.id }

// Key returns the user-visible key that resolved to this instantiation.
func (b *Base) Key() string { return b.key }

// Name returns the module-class name.
func (b *Base) Name() string { return b.info.Name }

// Version returns the module-class version.
func (b *Base) Version() string { return b.info.Version }

// ModuleType returns the abstract interface name this module-class claims
// to satisfy.
func (b *Base) ModuleType() string { return b.info.Type }

// Options returns the effective OptionMap for this instance. It is the same
// OptionMap stored in the owning tree node, so mutating it through one
// handle is visible to anyone else holding this node.
func (b *Base) Options() *options.OptionMap { return b.node.Info.Options }

// Output returns the write-only sink that tees to the process output and to
// this instance's tree node.
func (b *Base) Output() *OutputSink { return b.out }

// EnableDebug toggles debug-level messages for this instance.
func (b *Base) EnableDebug(on bool) { b.debug.Store(on) }

// DebugEnabled reports the current debug toggle.
func (b *Base) DebugEnabled() bool { return b.debug.Load() }

// Cache returns this module-class's CacheData, shared across every instance
// of the same module-class and version.
func (b *Base) Cache() *modulecache.Data { return b.cache }

// Manager returns the owning Manager.
func (b *Base) Manager() *Manager { return b.mgr }

// Trampoline returns the scripted instance backing this Base, or nil for a
// natively-implemented module. It satisfies ScriptedInstance, which
// Dispatch/DispatchValue use to decide whether tag should be resolved as a
// native Go call or a same-named call on the scripted object.
func (b *Base) Trampoline() *script.Instance { return b.scripted }

// CreateChild instantiates userkey as a child of b, the package-level
// counterpart of ModuleBase.create_child<T> — Go forbids generic methods,
// so this takes b explicitly instead of being a method on Base.
func CreateChild[T any](b *Base, userkey string) (*ModuleHandle[T], error) {
	return GetModule[T](b.mgr, userkey, b.id)
}

// CreateChildFromOption is CreateChild, except the user-key is read from a
// string option on b rather than passed directly.
func CreateChildFromOption[T any](b *Base, optionKey string) (*ModuleHandle[T], error) {
	userkey, err := options.Get[string](b.Options(), optionKey)
	if err != nil {
		return nil, err
	}
	return CreateChild[T](b, userkey)
}

// ScriptedInstance is satisfied by any value Dispatch/DispatchValue can
// route to a scripted method call: every Base, native or scripted-backed,
// implements it via Trampoline. A scripted module has no Go struct of its
// own to embed a Base into — its factory produces a bare *script.Instance —
// so Holder is the concrete type that carries a scripted Base for it.
type ScriptedInstance interface {
	Trampoline() *script.Instance
}
