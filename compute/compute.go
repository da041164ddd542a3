// Package compute dispatches the universal array operations (slice, take,
// filter, scalar_at, search_sorted, compare, fill_forward, cast,
// subtract_scalar) against whichever Encoding an array.Array actually
// carries, preferring a specialized implementation when the registered
// array.Encoding offers one and otherwise canonicalizing first (spec.md
// §4's "compute dispatcher" contract).
//
// This package is also the only place array.ScalarResult and scalar.Scalar
// convert into one another, keeping package array and package scalar free
// of a mutual import.
package compute

import (
	"fmt"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
)

// ToScalar adapts an array.ScalarResult, typed according to dt, into a
// scalar.Scalar.
func ToScalar(dt dtype.DType, r array.ScalarResult) scalar.Scalar {
	if r.Null {
		return scalar.Null(dt)
	}
	switch dt.Kind() {
	case dtype.KindBool:
		return scalar.Bool(r.Bool, dt.Nullable())
	case dtype.KindPrimitive:
		p := dt.Ptype()
		switch {
		case p.IsFloat():
			return scalar.Float(p, r.Float, dt.Nullable())
		case p.IsSigned():
			return scalar.Int(p, r.Int, dt.Nullable())
		default:
			return scalar.Uint(p, r.Uint, dt.Nullable())
		}
	case dtype.KindUtf8:
		return scalar.Utf8(string(r.Bytes), dt.Nullable())
	case dtype.KindBinary:
		return scalar.Binary(r.Bytes, dt.Nullable())
	default:
		panic(fmt.Sprintf("compute: ToScalar unsupported for dtype kind %v", dt.Kind()))
	}
}

// FromScalar adapts a scalar.Scalar back into the array.ScalarResult shape
// encodings' Compare/SearchSorted/SubtractScalar implementations expect.
func FromScalar(s scalar.Scalar) array.ScalarResult {
	if s.IsNull() {
		return array.ScalarResult{Null: true}
	}
	dt := s.DType()
	switch dt.Kind() {
	case dtype.KindBool:
		return array.ScalarResult{Bool: s.AsBool()}
	case dtype.KindPrimitive:
		p := dt.Ptype()
		switch {
		case p.IsFloat():
			return array.ScalarResult{Float: s.AsFloat()}
		case p.IsSigned():
			return array.ScalarResult{Int: s.AsInt()}
		default:
			return array.ScalarResult{Uint: s.AsUint()}
		}
	case dtype.KindUtf8, dtype.KindBinary:
		return array.ScalarResult{Bytes: s.AsBytes()}
	default:
		panic(fmt.Sprintf("compute: FromScalar unsupported for dtype kind %v", dt.Kind()))
	}
}

func lookup(a array.Array) (array.Encoding, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return nil, errs.New(errs.InvalidSerde, "compute: unknown encoding id %d (%s)", a.Encoding(), array.Name(a.Encoding()))
	}
	return impl, nil
}

func canonicalImpl(a array.Array) (array.Array, array.Encoding, error) {
	canon, err := array.Canonicalize(a)
	if err != nil {
		return array.Array{}, nil, err
	}
	impl, err := lookup(canon)
	if err != nil {
		return array.Array{}, nil, err
	}
	return canon, impl, nil
}

// Slice returns a[start:stop], using the encoding's own Slice when offered.
func Slice(a array.Array, start, stop int) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	if se, ok := impl.(array.SliceEncoding); ok {
		return se.Slice(a, start, stop)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	se, ok := cimpl.(array.SliceEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks Slice", array.Name(canon.Encoding()))
	}
	return se.Slice(canon, start, stop)
}

// Take gathers a[indices[0]], a[indices[1]], ....
func Take(a array.Array, indices []int64) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	if te, ok := impl.(array.TakeEncoding); ok {
		return te.Take(a, indices)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	te, ok := cimpl.(array.TakeEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks Take", array.Name(canon.Encoding()))
	}
	return te.Take(canon, indices)
}

// Filter compacts a to the positions where mask is true.
func Filter(a array.Array, mask []bool) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	if fe, ok := impl.(array.FilterEncoding); ok {
		return fe.Filter(a, mask)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	fe, ok := cimpl.(array.FilterEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks Filter", array.Name(canon.Encoding()))
	}
	return fe.Filter(canon, mask)
}

// ScalarAt returns a[index] as a scalar.Scalar.
func ScalarAt(a array.Array, index int) (scalar.Scalar, error) {
	impl, err := lookup(a)
	if err != nil {
		return scalar.Scalar{}, err
	}
	if sae, ok := impl.(array.ScalarAtEncoding); ok {
		r, err := sae.ScalarAt(a, index)
		if err != nil {
			return scalar.Scalar{}, err
		}
		return ToScalar(a.DType(), r), nil
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return scalar.Scalar{}, err
	}
	sae, ok := cimpl.(array.ScalarAtEncoding)
	if !ok {
		return scalar.Scalar{}, errs.New(errs.Other, "compute: canonical encoding %q lacks ScalarAt", array.Name(canon.Encoding()))
	}
	r, err := sae.ScalarAt(canon, index)
	if err != nil {
		return scalar.Scalar{}, err
	}
	return ToScalar(a.DType(), r), nil
}

// SearchSorted returns the insertion point for needle in a, which must
// already be logically sorted (the caller's responsibility, per spec.md
// §4: search_sorted never verifies sortedness).
func SearchSorted(a array.Array, needle scalar.Scalar, side array.SearchSortedSide) (int, bool, error) {
	impl, err := lookup(a)
	if err != nil {
		return 0, false, err
	}
	r := FromScalar(needle)
	if sse, ok := impl.(array.SearchSortedEncoding); ok {
		return sse.SearchSorted(a, r, side)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return 0, false, err
	}
	sse, ok := cimpl.(array.SearchSortedEncoding)
	if !ok {
		return 0, false, errs.New(errs.Other, "compute: canonical encoding %q lacks SearchSorted", array.Name(canon.Encoding()))
	}
	return sse.SearchSorted(canon, r, side)
}

// Compare evaluates `a <op> rhs` element-wise, producing a nullable Bool
// array the same length as a.
func Compare(a array.Array, rhs scalar.Scalar, op array.CompareOp) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	r := FromScalar(rhs)
	if ce, ok := impl.(array.CompareEncoding); ok {
		return ce.Compare(a, r, op)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	ce, ok := cimpl.(array.CompareEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks Compare", array.Name(canon.Encoding()))
	}
	return ce.Compare(canon, r, op)
}

// FillForward replaces each null with the most recent preceding non-null
// value, per spec.md §4.2 (a leading run of nulls stays null; an entirely
// null primitive or bool array becomes the type default, all valid).
func FillForward(a array.Array) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	if ffe, ok := impl.(array.FillForwardEncoding); ok {
		return ffe.FillForward(a)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	ffe, ok := cimpl.(array.FillForwardEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks FillForward", array.Name(canon.Encoding()))
	}
	return ffe.FillForward(canon)
}

// Cast converts a to a new Primitive dtype.
func Cast(a array.Array, to dtype.DType) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	if ce, ok := impl.(array.CastEncoding); ok {
		return ce.Cast(a, to)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	ce, ok := cimpl.(array.CastEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks Cast", array.Name(canon.Encoding()))
	}
	return ce.Cast(canon, to)
}

// SubtractScalar computes `a - rhs` element-wise (the same subtraction
// frame-of-reference encoding applies against its reference value).
func SubtractScalar(a array.Array, rhs scalar.Scalar) (array.Array, error) {
	impl, err := lookup(a)
	if err != nil {
		return array.Array{}, err
	}
	r := FromScalar(rhs)
	if sse, ok := impl.(array.SubtractScalarEncoding); ok {
		return sse.SubtractScalar(a, r)
	}
	canon, cimpl, err := canonicalImpl(a)
	if err != nil {
		return array.Array{}, err
	}
	sse, ok := cimpl.(array.SubtractScalarEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "compute: canonical encoding %q lacks SubtractScalar", array.Name(canon.Encoding()))
	}
	return sse.SubtractScalar(canon, r)
}
