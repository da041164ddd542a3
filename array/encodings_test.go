package array_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
)

func scalarAt(t *testing.T, a array.Array, i int) array.ScalarResult {
	t.Helper()
	impl, ok := array.Lookup(a.Encoding())
	assert.True(t, ok)
	se, ok := impl.(array.ScalarAtEncoding)
	assert.True(t, ok)
	v, err := se.ScalarAt(a, i)
	assert.NoError(t, err)
	return v
}

func TestConstantScalarAtAndCanonicalize(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	c := array.NewConstant(dt, 5, array.ScalarResult{Int: 7})
	assert.Equal(t, 5, c.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(7), scalarAt(t, c, i).Int)
	}

	canon, err := array.Canonicalize(c)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingPrimitive, canon.Encoding())
	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(7), scalarAt(t, canon, i).Int)
	}
}

func TestConstantCompareFoldsToConstantBool(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	c := array.NewConstant(dt, 4, array.ScalarResult{Int: 10})
	impl, ok := array.Lookup(array.EncodingConstant)
	assert.True(t, ok)
	ce, ok := impl.(array.CompareEncoding)
	assert.True(t, ok)
	out, err := ce.Compare(c, array.ScalarResult{Int: 5}, array.Gt)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingConstant, out.Encoding())
	assert.Equal(t, 4, out.Len())
	assert.True(t, scalarAt(t, out, 0).Bool)
}

func TestSparseOverridesAndFill(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	values := array.NewPrimitiveFromInt64(dtype.I32, []int64{100, 200})
	indices := buf.FromSlice([]int64{1, 3})
	s := array.NewSparse(dt, 5, indices, values, array.ScalarResult{Int: 0})

	want := []int64{0, 100, 0, 200, 0}
	for i, w := range want {
		assert.Equal(t, w, scalarAt(t, s, i).Int)
	}

	canon, err := array.Canonicalize(s)
	assert.NoError(t, err)
	for i, w := range want {
		assert.Equal(t, w, scalarAt(t, canon, i).Int)
	}
}

func TestSparseTakeMixesOverridesAndFill(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	values := array.NewPrimitiveFromInt64(dtype.I32, []int64{100, 200})
	indices := buf.FromSlice([]int64{1, 3})
	s := array.NewSparse(dt, 5, indices, values, array.ScalarResult{Int: -1})

	impl, ok := array.Lookup(array.EncodingSparse)
	assert.True(t, ok)
	te, ok := impl.(array.TakeEncoding)
	assert.True(t, ok)
	out, err := te.Take(s, []int64{3, 0, 1, 4})
	assert.NoError(t, err)
	want := []int64{200, -1, 100, -1}
	for i, w := range want {
		assert.Equal(t, w, scalarAt(t, out, i).Int)
	}
}

func TestChunkedScalarAtCrossesBoundaries(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	c0 := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2, 3})
	c1 := array.NewPrimitiveFromInt64(dtype.I32, []int64{4, 5})
	ch := array.NewChunked(dt, []array.Array{c0, c1})
	assert.Equal(t, 5, ch.Len())

	want := []int64{1, 2, 3, 4, 5}
	for i, w := range want {
		assert.Equal(t, w, scalarAt(t, ch, i).Int)
	}
}

func TestChunkedSliceSpansOneAndTwoChunks(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	c0 := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2, 3})
	c1 := array.NewPrimitiveFromInt64(dtype.I32, []int64{4, 5})
	ch := array.NewChunked(dt, []array.Array{c0, c1})

	impl, ok := array.Lookup(array.EncodingChunked)
	assert.True(t, ok)
	se, ok := impl.(array.SliceEncoding)
	assert.True(t, ok)

	within, err := se.Slice(ch, 0, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), scalarAt(t, within, 0).Int)
	assert.Equal(t, int64(2), scalarAt(t, within, 1).Int)

	across, err := se.Slice(ch, 2, 4)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), scalarAt(t, across, 0).Int)
	assert.Equal(t, int64(4), scalarAt(t, across, 1).Int)
}

func TestChunkedCanonicalizeConcatenates(t *testing.T) {
	dt := dtype.Primitive(dtype.I32, false)
	c0 := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2})
	c1 := array.NewPrimitiveFromInt64(dtype.I32, []int64{3, 4, 5})
	ch := array.NewChunked(dt, []array.Array{c0, c1})

	canon, err := array.Canonicalize(ch)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingPrimitive, canon.Encoding())
	assert.Equal(t, 5, canon.Len())
	for i, w := range []int64{1, 2, 3, 4, 5} {
		assert.Equal(t, w, scalarAt(t, canon, i).Int)
	}
}

func TestExtensionDelegatesToStorage(t *testing.T) {
	storageDT := dtype.Primitive(dtype.I64, false)
	storage := array.NewPrimitiveFromInt64(dtype.I64, []int64{10, 20, 30})
	ext := dtype.Extension("colpress.test", []byte("v1"), storageDT, false)
	a := array.NewExtension(ext, storage)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, int64(20), scalarAt(t, a, 1).Int)
	assert.True(t, array.Storage(a).DType().Equal(storageDT))

	canon, err := array.Canonicalize(a)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingExtension, canon.Encoding())
}
