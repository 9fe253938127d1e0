package supermodule

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Record is the bookkeeping a Host keeps per loaded supermodule.
type Record struct {
	Path     string
	Creators *Creators
	loader   Loader
}

// Host owns every loader variant and de-duplicates concurrent LoadSupermodule
// calls for the same canonical path via singleflight, collapsing concurrent
// loads of one path onto a single in-flight load.
type Host struct {
	log     *zap.Logger
	loaders []Loader

	mu      sync.Mutex
	records map[string]*Record
	order   []string // insertion order, for reverse-order teardown
	group   singleflight.Group
}

// NewHost constructs a Host with the given loader variants, tried in order
// for each path by Loader.Accepts.
func NewHost(log *zap.Logger, loaders ...Loader) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		log:     log,
		loaders: loaders,
		records: make(map[string]*Record),
	}
}

// LoadSupermodule selects the loader whose Accepts(path) is true, invokes
// it, and records the result. Concurrent calls for the same canonical path
// collapse onto a single underlying Load; every caller observes the same
// Creators table.
func (h *Host) LoadSupermodule(path string) (*Creators, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("supermodule: canonicalize %q: %w: %v", path, ErrSupermoduleLoad, err)
	}

	h.mu.Lock()
	if rec, ok := h.records[canonical]; ok {
		h.mu.Unlock()
		return rec.Creators, nil
	}
	h.mu.Unlock()

	result, err, _ := h.group.Do(canonical, func() (any, error) {
		loader, err := h.selectLoader(canonical)
		if err != nil {
			return nil, err
		}
		creators, err := loader.Load(canonical)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		if _, exists := h.records[canonical]; !exists {
			h.records[canonical] = &Record{Path: canonical, Creators: creators, loader: loader}
			h.order = append(h.order, canonical)
		}
		h.mu.Unlock()
		return creators, nil
	})
	if err != nil {
		h.log.Warn("supermodule load failed", zap.String("path", canonical), zap.Error(err))
		return nil, err
	}
	return result.(*Creators), nil
}

func (h *Host) selectLoader(path string) (Loader, error) {
	for _, l := range h.loaders {
		if l.Accepts(path) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("supermodule: no loader accepts %q: %w", path, ErrSupermoduleLoad)
}

// Record returns the bookkeeping for an already-loaded canonical path.
func (h *Host) Record(path string) (*Record, bool) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[canonical]
	return rec, ok
}

// Close tears down every loaded supermodule in reverse insertion order,
// clearing each Creators table before releasing its handle. Close failures
// are logged and suppressed so teardown always completes.
func (h *Host) Close() {
	h.mu.Lock()
	order := append([]string(nil), h.order...)
	h.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		path := order[i]
		h.mu.Lock()
		rec, ok := h.records[path]
		delete(h.records, path)
		h.mu.Unlock()
		if !ok {
			continue
		}
		if err := rec.loader.Close(path); err != nil {
			h.log.Warn("supermodule close failed", zap.String("path", path), zap.Error(err))
		}
	}
}
