package compute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/scalar"
)

func TestSliceComposition(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I32, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	once, err := compute.Slice(a, 2, 8)
	assert.NoError(t, err)
	assert.Equal(t, 6, once.Len())

	twice, err := compute.Slice(once, 1, 4)
	assert.NoError(t, err)
	direct, err := compute.Slice(a, 3, 6)
	assert.NoError(t, err)
	assert.Equal(t, direct.Len(), twice.Len())
	for i := 0; i < direct.Len(); i++ {
		dv, err := compute.ScalarAt(direct, i)
		assert.NoError(t, err)
		tv, err := compute.ScalarAt(twice, i)
		assert.NoError(t, err)
		assert.Equal(t, dv.AsInt(), tv.AsInt())
	}
}

func TestTakeByIdentity(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I64, []int64{10, 20, 30, 40})
	idx := make([]int64, a.Len())
	for i := range idx {
		idx[i] = int64(i)
	}
	out, err := compute.Take(a, idx)
	assert.NoError(t, err)
	assert.Equal(t, a.Len(), out.Len())
	for i := 0; i < a.Len(); i++ {
		ov, err := compute.ScalarAt(out, i)
		assert.NoError(t, err)
		av, err := compute.ScalarAt(a, i)
		assert.NoError(t, err)
		assert.Equal(t, av.AsInt(), ov.AsInt())
	}
}

func TestFilterAllTrueAllFalse(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2, 3, 4})
	allTrue := []bool{true, true, true, true}
	out, err := compute.Filter(a, allTrue)
	assert.NoError(t, err)
	assert.Equal(t, a.Len(), out.Len())

	allFalse := []bool{false, false, false, false}
	out, err = compute.Filter(a, allFalse)
	assert.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestSearchSorted(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 3, 3, 5, 9})
	idx, found, err := compute.SearchSorted(a, scalar.Int(dtype.I32, 3, false), array.Left)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	idx, found, err = compute.SearchSorted(a, scalar.Int(dtype.I32, 4, false), array.Left)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 3, idx)
}

func TestCompareProducesBoolMask(t *testing.T) {
	a := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 5, 10, 15})
	mask, err := compute.Compare(a, scalar.Int(dtype.I32, 9, false), array.Gt)
	assert.NoError(t, err)
	assert.Equal(t, a.Len(), mask.Len())
	impl, ok := array.Lookup(mask.Encoding())
	assert.True(t, ok)
	sae := impl.(array.ScalarAtEncoding)
	want := []bool{false, false, true, true}
	for i, w := range want {
		r, err := sae.ScalarAt(mask, i)
		assert.NoError(t, err)
		assert.Equal(t, w, r.Bool)
	}
}
