// Package modulecache implements CacheData: a per-module-class cache keyed
// by a logical key, a snapshot of the producing module's options, and a
// caller-supplied auxiliary fingerprint. Each lookup compares the snapshot
// only on the option keys that lookup's caller passes as significant.
//
// The default Data type is a coarse-locked map, grounded in the
// straightforward single-shard case of a sharded cache. NewBounded layers a
// CLOCK-Pro-driven bounded-eviction mode on top, adapted from the same
// eviction machinery, for module classes whose cache otherwise grows without
// bound for the life of a ModuleManager.
//
// © 2026 pulsar authors. MIT License.
package modulecache

import (
	"fmt"
	"sync"
	"time"

	"github.com/pulsarchem/pulsar/internal/clockpro"
	"github.com/pulsarchem/pulsar/internal/telemetry"
	"github.com/pulsarchem/pulsar/pkg/datastore"
	"github.com/pulsarchem/pulsar/pkg/fingerprint"
	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
	"github.com/pulsarchem/pulsar/pkg/options"
)

// Sentinel errors.
var (
	ErrNotFound     = fmt.Errorf("modulecache: not found")
	ErrTypeMismatch = fmt.Errorf("modulecache: type mismatch")
)

// Entry is one cached value plus the context it was produced under.
type Entry struct {
	OptionSnapshot *options.OptionMap
	AuxHash        fingerprint.Hash
	Value          datastore.Entry
	ProducerInfo   moduleinfo.Info

	logicalKey   string
	compositeKey string
	insertedAt   time.Time
}

// Data is a per-module-class cache. The zero value is not usable; construct
// with New for the unbounded mode or NewBounded for CLOCK-Pro-driven
// capacity eviction plus TTL expiry.
type Data struct {
	mu    sync.RWMutex
	byKey map[string][]*Entry

	onEvict func(key string, e *Entry)
	metrics telemetry.Sink
	label   string

	// Bounded-mode-only fields; nil/zero in the unbounded mode New builds.
	clock             *clockpro.Clock[string, *Entry]
	ttl               time.Duration
	weightFnOverride  WeightFn
}

// Option configures a Data at construction time. Options recognized only
// by a bounded Data (WithWeightFn) are harmless no-ops on an unbounded one.
type Option func(*Data)

// WithEjectCallback registers a callback invoked for every entry that leaves
// the cache: by capacity eviction or TTL expiry on a bounded Data, and by
// explicit Erase on either mode.
func WithEjectCallback(cb func(key string, e *Entry)) Option {
	return func(d *Data) { d.onEvict = cb }
}

// New constructs an unbounded Data: entries live for the lifetime of the
// cache, i.e. the lifetime of the owning ModuleManager.
func New(opts ...Option) *Data {
	d := &Data{byKey: make(map[string][]*Entry), metrics: telemetry.Noop{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// pruneExpired drops every TTL-expired entry stored under key, invoking the
// eject callback and eviction metric for each, and removing it from the
// bounded clock too if this Data is bounded.
func (d *Data) pruneExpired(key string) {
	if d.ttl <= 0 {
		return
	}
	entries := d.byKey[key]
	live := entries[:0]
	for _, e := range entries {
		if d.expired(e) {
			if d.clock != nil {
				d.clock.Remove(e.compositeKey)
			}
			if d.onEvict != nil {
				d.onEvict(key, e)
			}
			d.metrics.IncCounter("cache_evictions_total", d.label)
			continue
		}
		live = append(live, e)
	}
	if len(live) == 0 {
		delete(d.byKey, key)
	} else {
		d.byKey[key] = live
	}
}

// Count returns the number of non-expired entries stored under key,
// regardless of options or aux hash.
func (d *Data) Count(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneExpired(key)
	return len(d.byKey[key])
}

func matches(e *Entry, current *options.OptionMap, significantKeys []string, aux fingerprint.Hash) bool {
	if !e.AuxHash.Equal(aux) {
		return false
	}
	return e.OptionSnapshot.CompareSelected(current, significantKeys)
}

// HasData reports whether an entry exists under key whose option snapshot
// matches current restricted to significantKeys, and whose aux hash matches
// aux bit-for-bit.
func (d *Data) HasData(key string, current *options.OptionMap, significantKeys []string, aux fingerprint.Hash) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneExpired(key)
	for _, e := range d.byKey[key] {
		if matches(e, current, significantKeys, aux) {
			d.metrics.IncCounter("cache_hits_total", d.label)
			return true
		}
	}
	d.metrics.IncCounter("cache_misses_total", d.label)
	return false
}

// Get returns a copy of the first matching entry's value, type-asserted to
// T. It fails with ErrNotFound if no entry matches, or ErrTypeMismatch if a
// matching entry's stored type differs from T.
func Get[T any](d *Data, key string, current *options.OptionMap, significantKeys []string, aux fingerprint.Hash) (T, error) {
	var zero T
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneExpired(key)
	for _, e := range d.byKey[key] {
		if !matches(e, current, significantKeys, aux) {
			continue
		}
		if d.clock != nil {
			d.clock.Get(e.compositeKey) // refresh CLOCK-Pro's reference bit on hit
		}
		v, ok := e.Value.Clone().Value.(T)
		if !ok {
			d.metrics.IncCounter("cache_misses_total", d.label)
			return zero, ErrTypeMismatch
		}
		d.metrics.IncCounter("cache_hits_total", d.label)
		return v, nil
	}
	d.metrics.IncCounter("cache_misses_total", d.label)
	return zero, ErrNotFound
}

// Set inserts an entry for key, storing a snapshot of the full current
// OptionMap and aux. If an entry already exists whose snapshot matches
// current restricted to significantKeys and whose aux hash equals aux, it is
// overwritten (last-writer-wins); otherwise the new
// entry coexists alongside any others stored under the same key. On a
// bounded Data, inserting may trigger CLOCK-Pro eviction of unrelated
// entries to stay within capacity.
func Set[T any](d *Data, key string, value T, current *options.OptionMap, significantKeys []string, aux fingerprint.Hash, producer moduleinfo.Info) error {
	entry, ok := datastore.NewEntry(value)
	if !ok {
		return fmt.Errorf("modulecache: set %q: %w", key, ErrTypeMismatch)
	}

	snapshot := current.Clone()
	snapshotHash, _ := snapshot.Hash()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneExpired(key)

	newEntry := &Entry{
		OptionSnapshot: snapshot,
		AuxHash:        aux,
		Value:          entry,
		ProducerInfo:   producer.Clone(),
		logicalKey:     key,
		compositeKey:   compositeKey(key, snapshotHash.String(), aux.String()),
		insertedAt:     time.Now(),
	}

	entries := d.byKey[key]
	for i, e := range entries {
		if matches(e, snapshot, significantKeys, aux) {
			entries[i] = newEntry
			if d.clock != nil {
				d.clock.Insert(newEntry.compositeKey, newEntry)
			}
			d.metrics.IncCounter("cache_writes_total", d.label)
			return nil
		}
	}
	d.byKey[key] = append(entries, newEntry)
	if d.clock != nil {
		d.clock.Insert(newEntry.compositeKey, newEntry)
	}
	d.metrics.IncCounter("cache_writes_total", d.label)
	return nil
}

// Erase removes every entry stored under key and returns the count removed.
// If an eject callback was registered, it is invoked for each removed entry.
func (d *Data) Erase(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, ok := d.byKey[key]
	if !ok {
		return 0
	}
	delete(d.byKey, key)
	for _, e := range entries {
		if d.clock != nil {
			d.clock.Remove(e.compositeKey)
		}
		if d.onEvict != nil {
			d.onEvict(key, e)
		}
	}
	return len(entries)
}
