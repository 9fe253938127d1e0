package modulecache

import (
	"time"

	"github.com/pulsarchem/pulsar/internal/clockpro"
	"github.com/pulsarchem/pulsar/internal/telemetry"
)

// WeightFn computes an abstract cost for an Entry, used by a bounded Data
// to decide how much of its capacity budget the entry consumes. The
// teacher's arena-cache sizes entries by unsafe.Sizeof(V); CacheData's
// entries box an arbitrary datastore.Entry plus a whole OptionMap snapshot,
// so there is no single cheap structural size — the default simply charges
// 1 per entry (a capacity bound on entry *count*) and callers with a real
// memory budget in mind should supply their own.
type WeightFn func(*Entry) int64

func defaultWeightFn(*Entry) int64 { return 1 }

// NewBounded constructs a Data whose size is held at or below capacity
// (in WeightFn units, default: one per entry) by CLOCK-Pro eviction,
// adapted from internal/clockpro. Entries additionally expire ttl after
// insertion: the teacher's genring gave it O(1) bulk expiry by rotating
// whole arenas of entries at once; CacheData does not arena-allocate its
// entries (see DESIGN.md), so expiry here is the simpler lazy form —
// checked, and evicted one entry at a time, on the next Get/HasData/Count
// that observes a stale entry. Both forms bound a long-running
// ModuleManager's memory; the bounded form pays a per-entry capacity/TTL
// check the unbounded form does not.
func NewBounded(capacity int64, ttl time.Duration, opts ...Option) *Data {
	d := &Data{
		byKey:   make(map[string][]*Entry),
		ttl:     ttl,
		metrics: telemetry.Noop{},
	}
	weightFn := defaultWeightFn
	for _, opt := range opts {
		opt(d)
	}
	if d.weightFnOverride != nil {
		weightFn = d.weightFnOverride
	}

	d.clock = clockpro.New[string, *Entry](capacity, func(e *Entry) int64 { return weightFn(e) },
		func(compositeKey string, e *Entry, _ int64, reason clockpro.EvictionReason) {
			if e == nil {
				return
			}
			d.removeFromIndex(e.logicalKey, compositeKey)
			if d.onEvict != nil {
				d.onEvict(e.logicalKey, e)
			}
			d.metrics.IncCounter("cache_evictions_total", d.label)
			_ = reason
		})
	return d
}

// WithWeightFn overrides the per-entry weight charged against a bounded
// Data's capacity. Has no effect on an unbounded Data.
func WithWeightFn(fn WeightFn) Option {
	return func(d *Data) { d.weightFnOverride = fn }
}

// WithMetrics attaches a telemetry.Sink that observes hits, misses,
// writes, and evictions, labeled by the given cache label (typically
// "<module-class>@<version>"). The default Data reports to telemetry.Noop.
func WithMetrics(sink telemetry.Sink, label string) Option {
	return func(d *Data) {
		d.metrics = sink
		d.label = label
	}
}

func compositeKey(key string, snapshotHex, auxHex string) string {
	return key + "\x00" + snapshotHex + "\x00" + auxHex
}

func (d *Data) removeFromIndex(key, composite string) {
	entries := d.byKey[key]
	for i, e := range entries {
		if e.compositeKey == composite {
			d.byKey[key] = append(entries[:i], entries[i+1:]...)
			if len(d.byKey[key]) == 0 {
				delete(d.byKey, key)
			}
			return
		}
	}
}

// expired reports whether e has outlived d's TTL. d.ttl == 0 means
// unbounded: entries never expire by age (only an explicit bounded
// capacity or Erase removes them).
func (d *Data) expired(e *Entry) bool {
	return d.ttl > 0 && time.Since(e.insertedAt) > d.ttl
}
