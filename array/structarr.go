package array

import (
	"fmt"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// structEncoding implements the canonical "struct" encoding: named field
// children, all sharing the struct's logical length, plus the struct's own
// top-level validity (a struct value itself can be null even when every
// field is independently non-null). Grounded on sam.Record's multi-field
// record shape (Name/Ref/Pos/MapQ/Cigar/... held as named struct fields),
// generalized from a closed BAM record to an arbitrary named field list.
type structEncoding struct{}

func init() {
	Register(EncodingStruct, "struct", structEncoding{})
}

// NewStruct builds a canonical struct Array. Every child must have the same
// length as length, per spec.md §3 ("invariant: all children same length").
func NewStruct(dt dtype.DType, length int, children []Array, valid validity.Validity) Array {
	if dt.Kind() != dtype.KindStruct {
		panic("array: NewStruct requires a Struct dtype")
	}
	if len(children) != len(dt.FieldNames()) {
		panic("array: NewStruct children count must match dtype field count")
	}
	for i, c := range children {
		if c.Len() != length {
			panic(fmt.Sprintf("array: NewStruct field %q has length %d, want %d", dt.FieldNames()[i], c.Len(), length))
		}
	}
	tag, bitmap := packValidity(valid)
	var buffers []buf.Buffer
	if bitmap != nil {
		buffers = append(buffers, *bitmap)
	}
	return New(EncodingStruct, dt, length, []byte{tag}, buffers, children)
}

func (structEncoding) Canonicalize(a Array) (Array, error) {
	return a, nil
}

// Field returns the named child by field name.
func Field(a Array, name string) (Array, bool) {
	idx := a.dt.FieldIndex(name)
	if idx < 0 {
		return Array{}, false
	}
	return a.Child(idx), true
}

func (structEncoding) Slice(a Array, start, stop int) (Array, error) {
	newChildren := make([]Array, len(a.children))
	for i, c := range a.children {
		sliced, err := sliceChild(c, start, stop)
		if err != nil {
			return Array{}, err
		}
		newChildren[i] = sliced
	}
	v := ArrayValidity(a).Slice(start, stop)
	return NewStruct(a.dt, stop-start, newChildren, v), nil
}

func (structEncoding) Take(a Array, indices []int64) (Array, error) {
	newChildren := make([]Array, len(a.children))
	for i, c := range a.children {
		taken, err := takeChild(c, indices)
		if err != nil {
			return Array{}, err
		}
		newChildren[i] = taken
	}
	v := ArrayValidity(a).Take(int64sToInts(indices))
	return NewStruct(a.dt, len(indices), newChildren, v), nil
}

func int64sToInts(xs []int64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(x)
	}
	return out
}

// sliceChild and takeChild dispatch through the registry rather than
// assuming every child supports SliceEncoding/TakeEncoding directly,
// falling back to canonicalization exactly like package compute does.
func sliceChild(a Array, start, stop int) (Array, error) {
	impl, ok := Lookup(a.encoding)
	if !ok {
		return Array{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.encoding)
	}
	if se, ok := impl.(SliceEncoding); ok {
		return se.Slice(a, start, stop)
	}
	canon, err := impl.Canonicalize(a)
	if err != nil {
		return Array{}, err
	}
	cimpl, _ := Lookup(canon.encoding)
	se, ok := cimpl.(SliceEncoding)
	if !ok {
		return Array{}, errs.New(errs.Other, "array: canonical encoding %q lacks Slice", Name(canon.encoding))
	}
	return se.Slice(canon, start, stop)
}

func takeChild(a Array, indices []int64) (Array, error) {
	impl, ok := Lookup(a.encoding)
	if !ok {
		return Array{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.encoding)
	}
	if te, ok := impl.(TakeEncoding); ok {
		return te.Take(a, indices)
	}
	canon, err := impl.Canonicalize(a)
	if err != nil {
		return Array{}, err
	}
	cimpl, _ := Lookup(canon.encoding)
	te, ok := cimpl.(TakeEncoding)
	if !ok {
		return Array{}, errs.New(errs.Other, "array: canonical encoding %q lacks Take", Name(canon.encoding))
	}
	return te.Take(canon, indices)
}
