// Package roaringbool implements whole-array Roaring bitmap compression for
// Bool arrays: the set bit positions are serialized as a single Roaring
// bitmap buffer (spec.md §4.3 "Roaring (bool, int)").
//
// Grounded on original_source's vortex roaring/boolean encoding (same
// set-of-true-positions idea) using github.com/RoaringBitmap/roaring, which
// the pack's blib-picoclaw manifest already depends on.
package roaringbool

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 10

type codec struct{}

func init() {
	array.Register(EncodingID, "roaringbool", codec{})
}

// Encode builds a Roaring-coded Array from a non-nullable Bool src: nulls
// aren't representable in this codec's single bitmap, so nullable inputs
// should stay in canonical Bool or use codec/runend instead.
func Encode(src array.Array) (array.Array, error) {
	if src.DType().Kind() != dtype.KindBool {
		return array.Array{}, errs.New(errs.MismatchedTypes, "roaringbool: Encode requires a Bool array")
	}
	valid := array.ArrayValidity(src)
	n := src.Len()
	bm := roaring.New()
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			return array.Array{}, errs.New(errs.InvalidArgument, "roaringbool: Encode requires a non-nullable array (null at %d)", i)
		}
		b, err := boolAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		if b {
			bm.Add(uint32(i))
		}
	}
	bm.RunOptimize()
	data, err := bm.ToBytes()
	if err != nil {
		return array.Array{}, errs.Wrap(errs.ComputeError, err, "roaringbool: serialize bitmap")
	}
	return array.New(EncodingID, src.DType(), n, nil, []buf.Buffer{buf.New(data)}, nil), nil
}

func boolAt(a array.Array, i int) (bool, error) {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(a)
		if err != nil {
			return false, err
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, err := sae.ScalarAt(a, i)
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func loadBitmap(a array.Array) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if err := bm.UnmarshalBinary(a.Buffer(0).Bytes()); err != nil {
		return nil, errs.Wrap(errs.InvalidSerde, err, "roaringbool: deserialize bitmap")
	}
	return bm, nil
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	bm, err := loadBitmap(a)
	if err != nil {
		return array.Array{}, err
	}
	n := a.Len()
	out := make([]bool, n)
	it := bm.Iterator()
	for it.HasNext() {
		out[it.Next()] = true
	}
	return array.NewBoolFromBools(a.DType().Nullable(), out, validity.NewNonNullable(n)), nil
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	bm, err := loadBitmap(a)
	if err != nil {
		return array.ScalarResult{}, err
	}
	return array.ScalarResult{Bool: bm.Contains(uint32(index))}, nil
}
