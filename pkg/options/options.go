// Package options implements OptionMap: a typed, validated, named-parameter
// bundle attached to every module configuration. It is layered on
// pkg/datastore, adding per-key metadata (default, required, help,
// validator) that PropertyBag itself does not know about.
//
// © 2026 pulsar authors. MIT License.
package options

import (
	"fmt"
	"sort"

	"github.com/pulsarchem/pulsar/internal/valuetag"
	"github.com/pulsarchem/pulsar/pkg/datastore"
	"github.com/pulsarchem/pulsar/pkg/fingerprint"
)

// Sentinel errors for OptionMap operations.
var (
	ErrUnknownKey      = fmt.Errorf("options: unknown key")
	ErrDuplicateKey    = fmt.Errorf("options: duplicate key")
	ErrTypeMismatch    = fmt.Errorf("options: type mismatch")
	ErrRequiredMissing = fmt.Errorf("options: required option has no value")
)

// KeyError annotates one of the sentinels above with the offending key.
type KeyError struct {
	Op  string
	Key string
	Err error
}

func (e *KeyError) Error() string { return fmt.Sprintf("options: %s %q: %v", e.Op, e.Key, e.Err) }
func (e *KeyError) Unwrap() error { return e.Err }

// ValidationFailure is one (key, message) pair reported by a failing
// Validator.
type ValidationFailure struct {
	Key     string
	Message string
}

// ValidationReport collects every failure observed by Validate(). A report
// with no failures means every bound validator accepted the map.
type ValidationReport struct {
	Failures []ValidationFailure
}

// OK reports whether the map passed validation.
func (r ValidationReport) OK() bool { return len(r.Failures) == 0 }

func (r ValidationReport) Error() string {
	if r.OK() {
		return "options: validation passed"
	}
	msg := "options: validation failed"
	for _, f := range r.Failures {
		msg += fmt.Sprintf("\n  %s: %s", f.Key, f.Message)
	}
	return msg
}

// Validator inspects a fully-populated OptionMap and reports failures. It
// must not mutate the map.
type Validator func(*OptionMap) []ValidationFailure

type optionMeta struct {
	defaultEntry datastore.Entry
	required     bool
	help         string
	validator    Validator
	validated    bool
}

// OptionMap is a PropertyBag of effective values plus declaration metadata.
type OptionMap struct {
	values *datastore.Bag
	meta   map[string]*optionMeta
	order  []string
}

// NewOptionMap constructs an empty map with no declared keys.
func NewOptionMap() *OptionMap {
	return &OptionMap{
		values: datastore.NewBag(),
		meta:   make(map[string]*optionMeta),
	}
}

// Declare registers an allowed option. It fails with ErrDuplicateKey if key
// is already declared.
func (m *OptionMap) Declare(key string, defaultValue any, required bool, help string, validator Validator) error {
	if _, ok := m.meta[key]; ok {
		return &KeyError{Op: "declare", Key: key, Err: ErrDuplicateKey}
	}
	entry, ok := datastore.NewEntry(defaultValue)
	if !ok {
		return &KeyError{Op: "declare", Key: key, Err: ErrTypeMismatch}
	}
	m.meta[key] = &optionMeta{
		defaultEntry: entry,
		required:     required,
		help:         help,
		validator:    validator,
		validated:    false,
	}
	m.order = append(m.order, key)
	return nil
}

// Set mutates the effective value for key. It fails with ErrUnknownKey if
// key was never declared, or ErrTypeMismatch if value's shape differs from
// the declared default's. Mutating the value resets validated to false.
func (m *OptionMap) Set(key string, value any) error {
	meta, ok := m.meta[key]
	if !ok {
		return &KeyError{Op: "set", Key: key, Err: ErrUnknownKey}
	}
	entry, ok := datastore.NewEntry(value)
	if !ok || entry.Tag != meta.defaultEntry.Tag {
		return &KeyError{Op: "set", Key: key, Err: ErrTypeMismatch}
	}
	if m.values.Has(key) {
		if err := m.values.Replace(key, value); err != nil {
			return &KeyError{Op: "set", Key: key, Err: err}
		}
	} else if err := m.values.Insert(key, value); err != nil {
		return &KeyError{Op: "set", Key: key, Err: err}
	}
	meta.validated = false
	return nil
}

// Get returns the effective value for key: the set value if any, else the
// declared default. It fails if key was never declared or T does not match
// the declared shape.
func Get[T any](m *OptionMap, key string) (T, error) {
	var zero T
	meta, ok := m.meta[key]
	if !ok {
		return zero, &KeyError{Op: "get", Key: key, Err: ErrUnknownKey}
	}
	if m.values.Has(key) {
		return datastore.GetAs[T](m.values, key)
	}
	v, ok := meta.defaultEntry.Clone().Value.(T)
	if !ok {
		return zero, &KeyError{Op: "get", Key: key, Err: ErrTypeMismatch}
	}
	return v, nil
}

// Validated reports whether key's current value has passed validation since
// its last mutation.
func (m *OptionMap) Validated(key string) bool {
	meta, ok := m.meta[key]
	return ok && meta.validated
}

// Required reports whether key is declared required.
func (m *OptionMap) Required(key string) bool {
	meta, ok := m.meta[key]
	return ok && meta.required
}

// Help returns the declared help text for key.
func (m *OptionMap) Help(key string) (string, error) {
	meta, ok := m.meta[key]
	if !ok {
		return "", &KeyError{Op: "help", Key: key, Err: ErrUnknownKey}
	}
	return meta.help, nil
}

// Validate runs every bound validator over the map and also enforces the
// invariant that a required option with no value is invalid. It never
// changes an option's value; its only effect on the map is marking each
// passing key as validated.
func (m *OptionMap) Validate() ValidationReport {
	var report ValidationReport
	for _, key := range m.order {
		meta := m.meta[key]
		if meta.required && !m.values.Has(key) {
			report.Failures = append(report.Failures, ValidationFailure{
				Key:     key,
				Message: "required option has no value",
			})
			continue
		}
		if meta.validator != nil {
			if fails := meta.validator(m); len(fails) > 0 {
				report.Failures = append(report.Failures, fails...)
				continue
			}
			meta.validated = true
		} else {
			meta.validated = true
		}
	}
	return report
}

// Keys returns the declared keys in declaration order.
func (m *OptionMap) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Size returns the number of declared keys.
func (m *OptionMap) Size() int { return len(m.order) }

// Clone returns a deep copy; mutating the clone never affects m.
func (m *OptionMap) Clone() *OptionMap {
	out := NewOptionMap()
	out.values = m.values.Clone()
	out.order = append([]string(nil), m.order...)
	out.meta = make(map[string]*optionMeta, len(m.meta))
	for k, v := range m.meta {
		cp := *v
		cp.defaultEntry = v.defaultEntry.Clone()
		out.meta[k] = &cp
	}
	return out
}

func (m *OptionMap) effectiveEntry(key string) (datastore.Entry, bool) {
	if e, ok := m.values.EntryAt(key); ok {
		return e, true
	}
	meta, ok := m.meta[key]
	if !ok {
		return datastore.Entry{}, false
	}
	return meta.defaultEntry, true
}

// Compare reports equality: both maps must declare identical key sets, and
// for each key, the effective values must match.
func (m *OptionMap) Compare(other *OptionMap) bool {
	if len(m.meta) != len(other.meta) {
		return false
	}
	for key := range m.meta {
		if _, ok := other.meta[key]; !ok {
			return false
		}
		a, _ := m.effectiveEntry(key)
		b, _ := other.effectiveEntry(key)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

// CompareSelected reports equality restricted to the given key subset. Keys
// not declared in either map are simply skipped — significance is the
// caller's contract to honor, not this method's to enforce.
func (m *OptionMap) CompareSelected(other *OptionMap, keys []string) bool {
	for _, key := range keys {
		a, aok := m.effectiveEntry(key)
		b, bok := other.effectiveEntry(key)
		if aok != bok {
			return false
		}
		if aok && !a.Equal(b) {
			return false
		}
	}
	return true
}

// Hash returns a 128-bit fingerprint covering the declared keys and their
// effective values in key-sorted order, so two OptionMaps declared in a
// different order still hash identically when CompareEqual.
func (m *OptionMap) Hash() (fingerprint.Hash, error) {
	keys := append([]string(nil), m.order...)
	sort.Strings(keys)

	arch := fingerprint.NewArchive()
	for _, key := range keys {
		entry, _ := m.effectiveEntry(key)
		if err := arch.FeedNamed(key, func() error { return entry.FeedHash(arch) }); err != nil {
			return fingerprint.Hash{}, err
		}
	}
	return arch.Sum()
}

// Tag returns the declared shape of key, for callers that must check an
// option's shape before use.
func (m *OptionMap) Tag(key string) (valuetag.Tag, error) {
	meta, ok := m.meta[key]
	if !ok {
		return valuetag.Invalid, &KeyError{Op: "tag", Key: key, Err: ErrUnknownKey}
	}
	return meta.defaultEntry.Tag, nil
}
