package array_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/validity"
)

func TestPrimitiveScalarAtRoundTrip(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I32, []int64{10, -5, 0, 42})
	assert.Equal(t, 4, a.Len())
	for i, want := range []int64{10, -5, 0, 42} {
		impl, ok := array.Lookup(a.Encoding())
		assert.True(t, ok)
		sae, ok := impl.(array.ScalarAtEncoding)
		assert.True(t, ok)
		r, err := sae.ScalarAt(a, i)
		assert.NoError(t, err)
		assert.False(t, r.Null)
		assert.Equal(t, want, r.Int)
	}
}

func TestBoolFromBoolsRoundTrip(t *testing.T) {
	vals := []bool{true, false, false, true, true}
	a := array.NewBoolFromBools(false, vals, validity.NewAllValid(len(vals)))
	impl, ok := array.Lookup(a.Encoding())
	assert.True(t, ok)
	sae := impl.(array.ScalarAtEncoding)
	for i, want := range vals {
		r, err := sae.ScalarAt(a, i)
		assert.NoError(t, err)
		assert.Equal(t, want, r.Bool)
	}
}

func TestUtf8FromStringsRoundTrip(t *testing.T) {
	vals := []string{"foo", "", "bazinga", "b"}
	a := array.NewUtf8FromStrings(vals)
	impl, ok := array.Lookup(a.Encoding())
	assert.True(t, ok)
	sae := impl.(array.ScalarAtEncoding)
	for i, want := range vals {
		r, err := sae.ScalarAt(a, i)
		assert.NoError(t, err)
		assert.Equal(t, want, string(r.Bytes))
	}
}

func TestNBytesIsSumOfBuffersAndChildren(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I64, []int64{1, 2, 3})
	var want int64
	for _, b := range a.Buffers() {
		want += b.NBytes()
	}
	assert.Equal(t, want, a.NBytes())

	names := []string{"x", "y"}
	types := []dtype.DType{dtype.Primitive(dtype.I64, false), dtype.Primitive(dtype.I64, false)}
	st := array.NewStruct(dtype.Struct(names, types, false), 3, []array.Array{a, a}, validity.NewAllValid(3))
	assert.Equal(t, a.NBytes()*2, st.NBytes())
}

