package modulecache

import (
	"errors"
	"testing"

	"github.com/pulsarchem/pulsar/pkg/fingerprint"
	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
	"github.com/pulsarchem/pulsar/pkg/options"
)

func optMap(tol float64) *options.OptionMap {
	m := options.NewOptionMap()
	_ = m.Declare("tol", tol, false, "", nil)
	return m
}

func TestSetThenGetHit(t *testing.T) {
	d := New()
	opts := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())

	if err := Set(d, "energy", 42.0, opts, []string{"tol"}, aux, moduleinfo.Info{Name: "hf"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := Get[float64](d, "energy", opts, []string{"tol"}, aux)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != 42.0 {
		t.Fatalf("got %v", v)
	}
}

func TestGetMissReturnsNotFound(t *testing.T) {
	d := New()
	opts := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())
	_, err := Get[float64](d, "energy", opts, []string{"tol"}, aux)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDifferentSignificantOptionMisses(t *testing.T) {
	d := New()
	producer := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())
	_ = Set(d, "energy", 42.0, producer, []string{"tol"}, aux, moduleinfo.Info{})

	caller := optMap(1e-8)
	if d.HasData("energy", caller, []string{"tol"}, aux) {
		t.Fatalf("expected miss when significant option differs")
	}
}

func TestIrrelevantOptionDoesNotAffectMatch(t *testing.T) {
	d := New()
	producer := options.NewOptionMap()
	_ = producer.Declare("tol", 1e-6, false, "", nil)
	_ = producer.Declare("verbose", false, false, "", nil)

	aux := fingerprint.MustSum(fingerprint.NewArchive())
	_ = Set(d, "energy", 42.0, producer, []string{"tol"}, aux, moduleinfo.Info{})

	caller := producer.Clone()
	_ = caller.Set("verbose", true)
	if !d.HasData("energy", caller, []string{"tol"}, aux) {
		t.Fatalf("expected hit: verbose is not a significant key")
	}
}

func TestDifferentAuxHashCoexist(t *testing.T) {
	d := New()
	opts := optMap(1e-6)

	a1 := fingerprint.NewArchive()
	_ = a1.FeedInt64(1)
	aux1 := fingerprint.MustSum(a1)

	a2 := fingerprint.NewArchive()
	_ = a2.FeedInt64(2)
	aux2 := fingerprint.MustSum(a2)

	_ = Set(d, "energy", 1.0, opts, nil, aux1, moduleinfo.Info{})
	_ = Set(d, "energy", 2.0, opts, nil, aux2, moduleinfo.Info{})

	if d.Count("energy") != 2 {
		t.Fatalf("expected 2 coexisting entries, got %d", d.Count("energy"))
	}
	v1, err := Get[float64](d, "energy", opts, nil, aux1)
	if err != nil || v1 != 1.0 {
		t.Fatalf("got %v, %v", v1, err)
	}
	v2, err := Get[float64](d, "energy", opts, nil, aux2)
	if err != nil || v2 != 2.0 {
		t.Fatalf("got %v, %v", v2, err)
	}
}

func TestDuplicateInsertionOverwrites(t *testing.T) {
	d := New()
	opts := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())

	_ = Set(d, "energy", 1.0, opts, []string{"tol"}, aux, moduleinfo.Info{})
	_ = Set(d, "energy", 2.0, opts, []string{"tol"}, aux, moduleinfo.Info{})

	if d.Count("energy") != 1 {
		t.Fatalf("expected overwrite to keep count at 1, got %d", d.Count("energy"))
	}
	v, _ := Get[float64](d, "energy", opts, []string{"tol"}, aux)
	if v != 2.0 {
		t.Fatalf("expected last-writer-wins value 2.0, got %v", v)
	}
}

func TestGetTypeMismatch(t *testing.T) {
	d := New()
	opts := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())
	_ = Set(d, "energy", 42.0, opts, []string{"tol"}, aux, moduleinfo.Info{})

	if _, err := Get[string](d, "energy", opts, []string{"tol"}, aux); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestEraseReturnsCountAndInvokesCallback(t *testing.T) {
	var evicted []string
	d := New(WithEjectCallback(func(key string, e *Entry) {
		evicted = append(evicted, key)
	}))
	opts := optMap(1e-6)
	aux := fingerprint.MustSum(fingerprint.NewArchive())
	_ = Set(d, "energy", 1.0, opts, nil, aux, moduleinfo.Info{})

	n := d.Erase("energy")
	if n != 1 {
		t.Fatalf("expected 1 erased, got %d", n)
	}
	if len(evicted) != 1 || evicted[0] != "energy" {
		t.Fatalf("expected eject callback invoked once for energy, got %v", evicted)
	}
	if d.Count("energy") != 0 {
		t.Fatalf("expected count 0 after erase")
	}
}
