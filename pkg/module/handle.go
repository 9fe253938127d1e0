package module

import "sync/atomic"

// ModuleHandle is the smart handle returned by GetModule: on Close (or, for
// callers that forget, the handle's value going unreferenced does not
// auto-close — Go has no destructors, so callers must defer Close) the
// owning tree node's in_use flips to false. The tree node itself, including
// its accumulated output, is never removed.
type ModuleHandle[T any] struct {
	id     uint64
	value  T
	mgr    *Manager
	closed atomic.Bool
}

// ID returns the instantiation id backing this handle.
func (h *ModuleHandle[T]) ID() uint64 { return h.id }

// Value returns the typed module instance.
func (h *ModuleHandle[T]) Value() T { return h.value }

// Close marks the backing tree node free. It is idempotent: calling it more
// than once has no additional effect.
func (h *ModuleHandle[T]) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.mgr.tree.MarkFree(h.id)
	}
	return nil
}
