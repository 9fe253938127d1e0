// Package fingerprint implements HashableArchive: a serialization archive
// whose only output is a 128-bit content fingerprint. It is used as the
// aux_hash in modulecache.Data and to derive OptionMap.Hash().
//
// Two xxhash.Digest states are fed the identical byte sequence for every
// primitive; each is salted with a distinct byte so their Sum64 values
// decorrelate. This
// keeps feeding fully incremental — nothing is buffered — while producing
// 128 bits from a 64-bit non-cryptographic hash family.
//
// © 2026 pulsar authors. MIT License.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/pulsarchem/pulsar/internal/unsafehelpers"
)

// Hash is a 128-bit fixed-width fingerprint with a total ordering and a
// lowercase hex string form. Only an Archive constructs one.
type Hash [16]byte

// String renders the hash as 32 lowercase hex characters.
func (h Hash) String() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, b := range h {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0f]
	}
	return unsafehelpers.BytesToString(buf)
}

// Compare returns -1, 0, or 1 following the byte-wise total ordering of h
// and other.
func (h Hash) Compare(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports bit-for-bit equality.
func (h Hash) Equal(other Hash) bool { return h == other }

// IsZero reports whether h is the zero value (never produced by Sum, useful
// as a caller-side sentinel for "no aux hash supplied").
func (h Hash) IsZero() bool { return h == Hash{} }

// SerializationError is raised when a value cannot be fed into an Archive.
// Within this package the only way to trigger it is programmer error:
// reusing an Archive after Sum has finalized it. datastore.Entry.FeedHash
// also returns one for an entry with no tag.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("fingerprint: serialization error: %s", e.Reason)
}

var errArchiveFinalized = &SerializationError{Reason: "archive already finalized by Sum"}

// Archive accumulates a 128-bit fingerprint incrementally. The zero value is
// not usable; construct with NewArchive.
type Archive struct {
	lo       xxhash.Digest
	hi       xxhash.Digest
	scratch  [8]byte
	final    bool
}

// NewArchive constructs a ready-to-use archive.
func NewArchive() *Archive {
	a := &Archive{}
	a.lo.Reset()
	a.hi.Reset()
	// Decorrelate the two digests with distinct one-byte salts so that the
	// low and high halves of the resulting Hash are not simply equal.
	a.lo.Write([]byte{0x00})
	a.hi.Write([]byte{0xff})
	return a
}

func (a *Archive) write(p []byte) {
	a.lo.Write(p)
	a.hi.Write(p)
}

// FeedBool feeds a boolean's raw bit pattern (1 byte).
func (a *Archive) FeedBool(v bool) error {
	if a.final {
		return errArchiveFinalized
	}
	if v {
		a.write([]byte{1})
	} else {
		a.write([]byte{0})
	}
	return nil
}

// FeedInt64 feeds a signed 64-bit integer's raw bit pattern.
func (a *Archive) FeedInt64(v int64) error {
	if a.final {
		return errArchiveFinalized
	}
	binary.LittleEndian.PutUint64(a.scratch[:], uint64(v))
	a.write(a.scratch[:])
	return nil
}

// FeedFloat64 feeds a double's raw bit pattern.
func (a *Archive) FeedFloat64(v float64) error {
	if a.final {
		return errArchiveFinalized
	}
	binary.LittleEndian.PutUint64(a.scratch[:], math.Float64bits(v))
	a.write(a.scratch[:])
	return nil
}

// FeedString feeds a length prefix followed by the string's bytes.
func (a *Archive) FeedString(v string) error {
	if a.final {
		return errArchiveFinalized
	}
	a.feedLen(len(v))
	a.write(unsafehelpers.StringToBytes(v))
	return nil
}

func (a *Archive) feedLen(n int) {
	binary.LittleEndian.PutUint64(a.scratch[:], uint64(n))
	a.write(a.scratch[:])
}

// FeedBoolSeq feeds a length prefix then each element in order.
func (a *Archive) FeedBoolSeq(v []bool) error {
	if a.final {
		return errArchiveFinalized
	}
	a.feedLen(len(v))
	for _, b := range v {
		if err := a.FeedBool(b); err != nil {
			return err
		}
	}
	return nil
}

// FeedInt64Seq feeds a length prefix then each element in order.
func (a *Archive) FeedInt64Seq(v []int64) error {
	if a.final {
		return errArchiveFinalized
	}
	a.feedLen(len(v))
	for _, x := range v {
		if err := a.FeedInt64(x); err != nil {
			return err
		}
	}
	return nil
}

// FeedFloat64Seq feeds a length prefix then each element in order.
func (a *Archive) FeedFloat64Seq(v []float64) error {
	if a.final {
		return errArchiveFinalized
	}
	a.feedLen(len(v))
	for _, x := range v {
		if err := a.FeedFloat64(x); err != nil {
			return err
		}
	}
	return nil
}

// FeedStringSeq feeds a length prefix then each element in order.
func (a *Archive) FeedStringSeq(v []string) error {
	if a.final {
		return errArchiveFinalized
	}
	a.feedLen(len(v))
	for _, s := range v {
		if err := a.FeedString(s); err != nil {
			return err
		}
	}
	return nil
}

// FeedNamed feeds a named-value pair by discarding the name entirely and
// invoking feed, which should call back into one of the Feed* methods above.
// The name is a serialization convenience, not a semantic component: two
// archives that feed the same value under different names must hash equal.
func (a *Archive) FeedNamed(name string, feed func() error) error {
	_ = name
	if a.final {
		return errArchiveFinalized
	}
	return feed()
}

// Sum finalizes the archive and returns the 128-bit fingerprint. Calling Sum
// or any Feed* method again returns SerializationError.
func (a *Archive) Sum() (Hash, error) {
	if a.final {
		return Hash{}, errArchiveFinalized
	}
	a.final = true
	var h Hash
	binary.BigEndian.PutUint64(h[0:8], a.hi.Sum64())
	binary.BigEndian.PutUint64(h[8:16], a.lo.Sum64())
	return h, nil
}

// MustSum is a convenience for call sites that construct, feed, and finalize
// an Archive in one expression and know feeding cannot fail (no reused
// archive, no programmer error).
func MustSum(a *Archive) Hash {
	h, err := a.Sum()
	if err != nil {
		panic(err)
	}
	return h
}
