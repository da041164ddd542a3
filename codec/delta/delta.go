// Package delta implements the Delta codec: 1024-element blocks of
// successive differences, stored in natural element order (not
// transposed), with a per-block base value, plus a scalar tail
// for the len%1024 remainder (spec.md §4.3 "Delta"). Fill-forward of
// validity is required before encoding so a null never corrupts a
// difference chain; the original validity mask is preserved into the
// result verbatim.
//
// Grounded on fieldio.PutVarintDeltaField's running-delta idiom,
// generalized from a single scalar running delta to a
// fixed-block scheme (blocking is this package's own addition, following
// codec/bitpacked's 1024-element block convention for consistency).
package delta

import (
	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 3

// BlockSize matches codec/bitpacked's 1024-element FastLanes block.
const BlockSize = 1024

type codec struct{}

func init() {
	array.Register(EncodingID, "delta", codec{})
}

// Encode builds a Delta-coded Array. The input's validity is fill-forwarded
// first (spec.md §4.3's explicit requirement); the returned array carries
// the *original* validity mask, not the fill-forwarded one.
func Encode(src array.Array) (array.Array, error) {
	p := src.DType().Ptype()
	if !p.IsInt() {
		return array.Array{}, errs.New(errs.MismatchedTypes, "delta: Encode requires an integer Primitive array")
	}
	originalValid := array.ArrayValidity(src)
	filled, err := compute.FillForward(src)
	if err != nil {
		return array.Array{}, err
	}
	n := src.Len()
	vals := make([]int64, n)
	for i := 0; i < n; i++ {
		s, err := compute.ScalarAt(filled, i)
		if err != nil {
			return array.Array{}, err
		}
		if s.IsNull() {
			vals[i] = 0
			continue
		}
		vals[i] = signedInt64(p, s)
	}

	numBlocks := (n + BlockSize - 1) / BlockSize
	bases := make([]int64, numBlocks)
	w := p.ByteWidth()
	deltas := make([]byte, n*w)
	for b := 0; b < numBlocks; b++ {
		lo := b * BlockSize
		hi := lo + BlockSize
		if hi > n {
			hi = n
		}
		base := vals[lo]
		bases[b] = base
		prev := base
		for i := lo; i < hi; i++ {
			d := vals[i] - prev
			writeSigned(p, deltas[i*w:(i+1)*w], d)
			prev = vals[i]
		}
	}
	basesBytes := make([]byte, numBlocks*8)
	for i, b := range bases {
		for k := 0; k < 8; k++ {
			basesBytes[i*8+k] = byte(uint64(b) >> (8 * uint(k)))
		}
	}
	basesArr := array.NewPrimitive(dtype.Primitive(dtype.I64, false), numBlocks, buf.New(basesBytes), validity.NewNonNullable(numBlocks))
	deltasArr := array.NewPrimitive(dtype.Primitive(p, false), n, buf.New(deltas), validity.NewNonNullable(n))
	meta := []byte{byte(p)}
	return array.New(EncodingID, src.DType(), n, meta, nil, []array.Array{basesArr, deltasArr, materializeValidity(originalValid)}), nil
}

// materializeValidity stores the preserved original validity mask as a
// bool canonical array child so it round-trips through the Array tree
// without a separate metadata channel.
func materializeValidity(v validity.Validity) array.Array {
	return array.NewBoolFromBools(true, v.ToBools(), validity.NewNonNullable(v.Len()))
}

func restoreValidity(a array.Array) validity.Validity {
	bools := make([]bool, a.Len())
	for i := range bools {
		r, _ := boolScalarAt(a, i)
		bools[i] = r
	}
	return validity.NewFromBools(bools)
}

func boolScalarAt(a array.Array, i int) (bool, error) {
	s, err := compute.ScalarAt(a, i)
	if err != nil {
		return false, err
	}
	return s.AsBool(), nil
}

func signedInt64(p dtype.Ptype, s scalar.Scalar) int64 {
	if p.IsSigned() {
		return s.AsInt()
	}
	return int64(s.AsUint())
}

func writeSigned(p dtype.Ptype, dst []byte, v int64) {
	u := uint64(v)
	for i := 0; i < len(dst); i++ {
		dst[i] = byte(u >> (8 * uint(i)))
	}
	_ = p
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	p := dtype.Ptype(a.Metadata()[0])
	bases := a.Child(0)
	deltas := a.Child(1)
	validityChild := a.Child(2)
	n := a.Len()
	vals := make([]int64, n)
	numBlocks := bases.Len()
	for b := 0; b < numBlocks; b++ {
		lo := b * BlockSize
		hi := lo + BlockSize
		if hi > n {
			hi = n
		}
		baseS, err := compute.ScalarAt(bases, b)
		if err != nil {
			return array.Array{}, err
		}
		prev := baseS.AsInt()
		for i := lo; i < hi; i++ {
			dS, err := compute.ScalarAt(deltas, i)
			if err != nil {
				return array.Array{}, err
			}
			d := signedInt64(p, dS)
			prev = prev + d
			vals[i] = prev
		}
	}
	valid := restoreValidity(validityChild)
	w := p.ByteWidth()
	out := make([]byte, n*w)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		writeSigned(p, out[i*w:(i+1)*w], vals[i])
	}
	return array.NewPrimitive(a.DType(), n, buf.New(out), valid), nil
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	validityChild := a.Child(2)
	ok, err := boolScalarAt(validityChild, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	if !ok {
		return array.ScalarResult{Null: true}, nil
	}
	p := dtype.Ptype(a.Metadata()[0])
	bases := a.Child(0)
	deltas := a.Child(1)
	block := index / BlockSize
	lo := block * BlockSize
	baseS, err := compute.ScalarAt(bases, block)
	if err != nil {
		return array.ScalarResult{}, err
	}
	prev := baseS.AsInt()
	for i := lo + 1; i <= index; i++ {
		dS, err := compute.ScalarAt(deltas, i)
		if err != nil {
			return array.ScalarResult{}, err
		}
		prev += signedInt64(p, dS)
	}
	if p.IsSigned() {
		return array.ScalarResult{Int: prev}, nil
	}
	return array.ScalarResult{Uint: uint64(prev)}, nil
}
