// Package stats implements Statistics, a sparse per-array stat map that is
// never silently wrong: an absent entry means "unknown", never "zero".
//
// The min/max bookkeeping mirrors the comparison-method idiom of
// grailbio/bio/biopb.Coord; bit_width_freq/trailing_zero_freq accumulation
// mirrors the per-block histogram approach codec/bitpacked uses to choose a
// packed width.
package stats

import (
	farm "github.com/dgryski/go-farm"

	"github.com/colpress/colpress/scalar"
)

// Stat names a statistic kind.
type Stat uint8

const (
	Min Stat = iota
	Max
	IsSorted
	IsStrictSorted
	IsConstant
	RunCount
	NullCount
	TrueCount
	BitWidthFreq
	TrailingZeroFreq
)

var names = map[Stat]string{
	Min: "min", Max: "max", IsSorted: "is_sorted", IsStrictSorted: "is_strict_sorted",
	IsConstant: "is_constant", RunCount: "run_count", NullCount: "null_count",
	TrueCount: "true_count", BitWidthFreq: "bit_width_freq", TrailingZeroFreq: "trailing_zero_freq",
}

func (s Stat) String() string { return names[s] }

// Value is the value of one statistic: either a Scalar (Min/Max), a bool
// (IsSorted/IsStrictSorted/IsConstant), a count (RunCount/NullCount/
// TrueCount), or a frequency histogram (BitWidthFreq/TrailingZeroFreq,
// indexed by bit position 0..63).
type Value struct {
	scalarVal scalar.Scalar
	boolVal   bool
	countVal  int64
	freqVal   []int64
	kind      valueKind
}

type valueKind uint8

const (
	vScalar valueKind = iota
	vBool
	vCount
	vFreq
)

func ScalarValue(s scalar.Scalar) Value { return Value{scalarVal: s, kind: vScalar} }
func BoolValue(b bool) Value            { return Value{boolVal: b, kind: vBool} }
func CountValue(n int64) Value          { return Value{countVal: n, kind: vCount} }
func FreqValue(f []int64) Value         { return Value{freqVal: f, kind: vFreq} }

func (v Value) Scalar() scalar.Scalar { return v.scalarVal }
func (v Value) Bool() bool            { return v.boolVal }
func (v Value) Count() int64          { return v.countVal }
func (v Value) Freq() []int64         { return v.freqVal }

// Statistics is a sparse, interior-mutable Stat -> Value map. Per spec.md
// §5, reads of already-computed stats are lock-free; an absent stat is
// always a legal ("unknown") state, never inferred.
type Statistics struct {
	values map[Stat]Value
}

// New returns an empty Statistics set.
func New() *Statistics { return &Statistics{values: make(map[Stat]Value)} }

// Get returns the value for k and whether it is present.
func (s *Statistics) Get(k Stat) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[k]
	return v, ok
}

// Set records a computed statistic in the cache (spec.md §3), replacing any
// value previously set for k.
func (s *Statistics) Set(k Stat, v Value) {
	if s.values == nil {
		s.values = make(map[Stat]Value)
	}
	s.values[k] = v
}

// Clone returns a deep-enough copy (Values are immutable once set, so a
// shallow map copy suffices).
func (s *Statistics) Clone() *Statistics {
	out := New()
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

// Merge combines statistics from two adjacent, non-overlapping sequences
// (e.g. two chunks being concatenated), producing a conservative combined
// set: only stats both derive in a order-independent, associative way are
// kept (Min/Max/NullCount/TrueCount); IsSorted and friends are dropped
// since they are not compositional without a boundary comparison.
func Merge(a, b *Statistics) *Statistics {
	out := New()
	if mn, ok := a.Get(Min); ok {
		if mn2, ok2 := b.Get(Min); ok2 {
			out.Set(Min, ScalarValue(mn.Scalar().Min(mn2.Scalar())))
		}
	}
	if mx, ok := a.Get(Max); ok {
		if mx2, ok2 := b.Get(Max); ok2 {
			out.Set(Max, ScalarValue(mx.Scalar().Max(mx2.Scalar())))
		}
	}
	if nc, ok := a.Get(NullCount); ok {
		if nc2, ok2 := b.Get(NullCount); ok2 {
			out.Set(NullCount, CountValue(nc.Count()+nc2.Count()))
		}
	}
	if tc, ok := a.Get(TrueCount); ok {
		if tc2, ok2 := b.Get(TrueCount); ok2 {
			out.Set(TrueCount, CountValue(tc.Count()+tc2.Count()))
		}
	}
	return out
}

// CanPruneLT reports whether a chunk whose stats are s can be skipped when
// evaluating `column < literal`, i.e. min(s) >= literal. predicate.PruneChunk
// performs its own min/max comparison and does not call it.
func CanPruneLT(s *Statistics, literal scalar.Scalar) bool {
	mn, ok := s.Get(Min)
	if !ok {
		return false
	}
	return mn.Scalar().GE(literal)
}

// CanPruneGT reports whether a chunk can be skipped for `column > literal`,
// i.e. max(s) <= literal.
func CanPruneGT(s *Statistics, literal scalar.Scalar) bool {
	mx, ok := s.Get(Max)
	if !ok {
		return false
	}
	return mx.Scalar().LE(literal)
}

// DistinctHash returns a FarmHash fingerprint of a value's bytes, the same
// farm.Hash64 fingerprint codec/dict computes directly to probe its
// build-time "have we seen this value" table.
func DistinctHash(b []byte) uint64 {
	return farm.Hash64(b)
}
