package fingerprint

import "testing"

func sumStr(t *testing.T, s string) Hash {
	t.Helper()
	a := NewArchive()
	if err := a.FeedString(s); err != nil {
		t.Fatalf("FeedString: %v", err)
	}
	h, err := a.Sum()
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	return h
}

func TestArchiveDeterministic(t *testing.T) {
	h1 := sumStr(t, "hello")
	h2 := sumStr(t, "hello")
	if !h1.Equal(h2) {
		t.Fatalf("two archives fed the same value produced different hashes: %s vs %s", h1, h2)
	}
}

func TestArchiveDistinguishesValues(t *testing.T) {
	h1 := sumStr(t, "hello")
	h2 := sumStr(t, "world")
	if h1.Equal(h2) {
		t.Fatalf("distinct strings hashed identically: %s", h1)
	}
}

func TestArchiveNameDiscarded(t *testing.T) {
	a1 := NewArchive()
	_ = a1.FeedNamed("tol", func() error { return a1.FeedFloat64(1e-6) })
	h1, _ := a1.Sum()

	a2 := NewArchive()
	_ = a2.FeedNamed("completely-different-name", func() error { return a2.FeedFloat64(1e-6) })
	h2, _ := a2.Sum()

	if !h1.Equal(h2) {
		t.Fatalf("FeedNamed name leaked into hash: %s vs %s", h1, h2)
	}
}

func TestArchiveSequenceLengthMatters(t *testing.T) {
	a1 := NewArchive()
	_ = a1.FeedInt64Seq([]int64{1, 2})
	h1, _ := a1.Sum()

	a2 := NewArchive()
	_ = a2.FeedInt64Seq([]int64{1, 2, 0})
	h2, _ := a2.Sum()

	if h1.Equal(h2) {
		t.Fatalf("sequences of different length hashed identically")
	}
}

func TestSumFinalizesArchive(t *testing.T) {
	a := NewArchive()
	_ = a.FeedBool(true)
	if _, err := a.Sum(); err != nil {
		t.Fatalf("first Sum: %v", err)
	}
	if _, err := a.Sum(); err == nil {
		t.Fatalf("expected SerializationError on second Sum")
	}
	if err := a.FeedBool(false); err == nil {
		t.Fatalf("expected SerializationError feeding a finalized archive")
	}
}

func TestHashStringRoundTripLength(t *testing.T) {
	h := sumStr(t, "x")
	if len(h.String()) != 32 {
		t.Fatalf("expected 32 hex chars, got %d: %q", len(h.String()), h.String())
	}
}

func TestHashCompareOrdering(t *testing.T) {
	a := Hash{0: 1}
	b := Hash{0: 2}
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if b.Compare(a) <= 0 {
		t.Fatalf("expected b > a")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected a == a")
	}
}

// TestNoCollisionsAcrossCorpus exercises the zero-collision property over a
// small fixed corpus of representative option-map-shaped values; the
// exhaustive corpus used for the full property lives in
// tools/dataset_gen.
func TestNoCollisionsAcrossCorpus(t *testing.T) {
	corpus := []string{
		"tol=1e-6", "tol=1e-8", "screening=true", "screening=false",
		"basis=cc-pvdz", "basis=cc-pvtz", "method=hf", "method=mp2",
		"am=-1", "am=-2", "am=0", "am=1",
	}
	seen := make(map[Hash]string, len(corpus))
	for _, s := range corpus {
		h := sumStr(t, s)
		if prior, ok := seen[h]; ok && prior != s {
			t.Fatalf("collision between %q and %q at %s", prior, s, h)
		}
		seen[h] = s
	}
}
