package module

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pulsarchem/pulsar/internal/telemetry"
	"github.com/pulsarchem/pulsar/pkg/modulecache"
	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
	"github.com/pulsarchem/pulsar/pkg/moduletree"
	"github.com/pulsarchem/pulsar/pkg/options"
	"github.com/pulsarchem/pulsar/pkg/script"
	"github.com/pulsarchem/pulsar/pkg/supermodule"
)

type storeEntry struct {
	defaults moduleinfo.Info
	factory  supermodule.Factory
}

// Manager is the orchestrator: it loads supermodules, resolves user-visible
// keys to module-classes, instantiates modules while recording every
// instantiation in a Tree, and owns one CacheData per module-class+version.
type Manager struct {
	log  *zap.Logger
	host *supermodule.Host

	mu     sync.Mutex
	store  map[string]storeEntry
	keymap map[string]string
	tree   *moduletree.Tree
	caches map[string]*modulecache.Data

	nextID atomic.Uint64

	processOutput io.Writer
	metrics       telemetry.Sink
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger overrides the Manager's structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithProcessOutput sets the shared writer every module's output sink tees
// into, in addition to its tree node. Defaults to io.Discard.
func WithProcessOutput(w io.Writer) Option {
	return func(m *Manager) { m.processOutput = w }
}

// WithMetrics attaches a telemetry.Sink that observes module instantiation
// counts, labeled by module-class name. The Manager reports to
// telemetry.Noop by default.
func WithMetrics(sink telemetry.Sink) Option {
	return func(m *Manager) { m.metrics = sink }
}

// NewManager constructs a Manager backed by the given supermodule loaders.
func NewManager(loaders []supermodule.Loader, opts ...Option) *Manager {
	m := &Manager{
		store:         make(map[string]storeEntry),
		keymap:        make(map[string]string),
		tree:          moduletree.New(),
		caches:        make(map[string]*modulecache.Data),
		processOutput: io.Discard,
		metrics:       telemetry.Noop{},
	}
	m.nextID.Store(1)
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.host = supermodule.NewHost(m.log, loaders...)
	return m
}

// LoadSupermodule opens path, and for every module-class its creators table
// exposes, records (name -> default Info, factory). Fails with
// ErrDuplicateModule if a name is already registered from a prior load.
func (m *Manager) LoadSupermodule(path string) error {
	creators, err := m.host.LoadSupermodule(path)
	if err != nil {
		return err
	}
	m.metrics.IncCounter("supermodule_loads_total", path)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range creators.Names() {
		if _, exists := m.store[name]; exists {
			return fmt.Errorf("module: load %q: %w: %s", path, ErrDuplicateModule, name)
		}
	}
	for _, name := range creators.Names() {
		info, factory, err := creators.Get(name)
		if err != nil {
			return err
		}
		m.store[name] = storeEntry{defaults: info, factory: factory}
	}
	return nil
}

// EnableKey adds userkey -> moduleName. Fails ErrDuplicateKey if userkey is
// already bound.
func (m *Manager) EnableKey(userkey, moduleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keymap[userkey]; exists {
		return fmt.Errorf("module: enable_key %q: %w", userkey, ErrDuplicateKey)
	}
	if _, ok := m.store[moduleName]; !ok {
		return fmt.Errorf("module: enable_key %q: %w: %s", userkey, ErrUnknownModuleName, moduleName)
	}
	m.keymap[userkey] = moduleName
	return nil
}

// ReplaceKey adds or overwrites userkey -> moduleName.
func (m *Manager) ReplaceKey(userkey, moduleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[moduleName]; !ok {
		return fmt.Errorf("module: replace_key %q: %w: %s", userkey, ErrUnknownModuleName, moduleName)
	}
	m.keymap[userkey] = moduleName
	return nil
}

// DuplicateKey aliases newkey to resolve to the same module-class as
// existingkey. Per this implementation's resolution of the key-aliasing
// open question, the alias shares the module-class's single stored default
// OptionMap: mutating an option through change_option under either key
// affects instantiations made under both, since both keys resolve to the
// same store entry and change_option mutates that entry's defaults in
// place.
func (m *Manager) DuplicateKey(existingKey, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.keymap[existingKey]
	if !ok {
		return fmt.Errorf("module: duplicate_key %q: %w", existingKey, ErrUnknownKey)
	}
	m.keymap[newKey] = name
	return nil
}

// ChangeOption mutates the stored default OptionMap for moduleName (via
// userkey) so that subsequent instantiations under userkey pick it up.
// Already-instantiated modules are unaffected, since their effective
// OptionMap lives in their own tree node.
func (m *Manager) ChangeOption(userkey, optionKey string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.keymap[userkey]
	if !ok {
		return fmt.Errorf("module: change_option %q: %w", userkey, ErrUnknownKey)
	}
	entry, ok := m.store[name]
	if !ok {
		return fmt.Errorf("module: change_option %q: %w: %s", userkey, ErrUnknownModuleName, name)
	}
	if err := entry.defaults.Options.Set(optionKey, value); err != nil {
		return fmt.Errorf("module: change_option %q.%q: %w", userkey, optionKey, err)
	}
	return nil
}

func cacheKey(moduleName, version string) string {
	return moduleName + "@" + version
}

func (m *Manager) cacheFor(moduleName, version string) *modulecache.Data {
	key := cacheKey(moduleName, version)
	if c, ok := m.caches[key]; ok {
		return c
	}
	c := modulecache.New(modulecache.WithMetrics(m.metrics, key))
	m.caches[key] = c
	return c
}

// GetModule resolves userkey, instantiates its module-class under parentID,
// verifies the result satisfies T, records it in the tree, and returns a
// smart handle. GetModule is a package-level function, not a method, since
// Go disallows type parameters on methods.
//
// A factory producing a *script.Instance (a scripted module-class) has no
// Go struct of its own to check against T or inject into, so GetModule
// wraps it in a Holder first: T is then checked against the Holder itself
// (e.g. T == *Holder, or any interface a Holder structurally satisfies),
// and callers use IsType/Invoke on the returned Holder to reach the
// scripted object's methods by name.
func GetModule[T any](m *Manager, userkey string, parentID uint64) (*ModuleHandle[T], error) {
	m.mu.Lock()
	name, ok := m.keymap[userkey]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("module: get_module %q: %w", userkey, ErrUnknownKey)
	}
	entry, ok := m.store[name]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("module: get_module %q: %w: %w: %s", userkey, ErrUnknownModuleName, supermodule.ErrModuleLoad, name)
	}
	id := m.nextID.Add(1) - 1
	m.mu.Unlock()

	instance, err := entry.factory(id)
	if err != nil {
		return nil, fmt.Errorf("module: get_module %q: instantiate: %w", userkey, err)
	}

	var typed T
	var target injectable
	if scriptedInst, isScripted := instance.(*script.Instance); isScripted {
		holder := &Holder{}
		holder.scripted = scriptedInst
		v, ok := any(holder).(T)
		if !ok {
			return nil, fmt.Errorf("module: get_module %q: %w", userkey, ErrModuleTypeMismatch)
		}
		typed = v
		target = holder
	} else {
		v, ok := instance.(T)
		if !ok {
			return nil, fmt.Errorf("module: get_module %q: %w", userkey, ErrModuleTypeMismatch)
		}
		typed = v
		if inj, ok := instance.(injectable); ok {
			target = inj
		}
	}

	effective := entry.defaults.Options
	if effective == nil {
		effective = options.NewOptionMap()
	}
	effective = effective.Clone()
	snapshotInfo := entry.defaults.WithOptions(effective)

	m.mu.Lock()
	node, err := m.tree.Add(id, userkey, snapshotInfo, parentID)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("module: get_module %q: %w: %w", userkey, ErrUnknownNode, err)
	}
	cache := m.cacheFor(name, entry.defaults.Version)
	m.mu.Unlock()

	if target != nil {
		target.inject(id, userkey, snapshotInfo, m, node, cache)
	}

	m.metrics.IncCounter("module_instantiations_total", name)

	return &ModuleHandle[T]{id: id, value: typed, mgr: m}, nil
}

// TestAll performs the resolve/lookup/instantiate steps of GetModule for
// every registered user-key, immediately dropping the result. It is used as
// a startup smoke test and does not check against any specific interface,
// since no caller-supplied T exists at this call site.
func (m *Manager) TestAll() error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.keymap))
	for k := range m.keymap {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	for _, userkey := range keys {
		handle, err := GetModule[any](m, userkey, 0)
		if err != nil {
			return fmt.Errorf("module: test_all %q: %w", userkey, err)
		}
		_ = handle.Close()
	}
	return nil
}

// DotGraph delegates to the tree.
func (m *Manager) DotGraph() string {
	return m.tree.Dot()
}

// Snapshot is a debug-oriented view of manager state: the number of
// registered module-classes, enabled keys, and tree nodes recorded so far.
type Snapshot struct {
	ModuleClasses int
	Keys          int
	TreeNodes     int
}

// Snapshot returns a point-in-time view of manager state, used by debug and
// inspection tooling.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ModuleClasses: len(m.store),
		Keys:          len(m.keymap),
		TreeNodes:     m.tree.Size(),
	}
}

// Close tears down every loaded supermodule. Callers must ensure every
// outstanding ModuleHandle has already been dropped: the manager is the
// sole owner of supermodule handles and modules hold only non-owning
// references back to it.
func (m *Manager) Close() {
	m.host.Close()
}
