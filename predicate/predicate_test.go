package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/predicate"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/stats"
	"github.com/colpress/colpress/validity"
)

func rowsOf(t *testing.T, scores []int64) array.Array {
	t.Helper()
	col := array.NewPrimitiveFromInt64(dtype.I32, scores)
	dt := dtype.Struct([]string{"score"}, []dtype.DType{col.DType()}, false)
	return array.NewStruct(dt, col.Len(), []array.Array{col}, validity.NewNonNullable(col.Len()))
}

func TestCompareEval(t *testing.T) {
	root := rowsOf(t, []int64{1, 5, 10, 15, 20})
	pred := predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 9, false)}
	mask, err := pred.Eval(root)
	assert.NoError(t, err)
	impl, _ := array.Lookup(mask.Encoding())
	sae := impl.(array.ScalarAtEncoding)
	want := []bool{false, false, false, true, true}
	for i, w := range want {
		r, err := sae.ScalarAt(mask, i)
		assert.NoError(t, err)
		assert.Equal(t, w, r.Bool)
	}
}

func statsWithRange(lo, hi int64) map[string]*stats.Statistics {
	st := stats.New()
	st.Set(stats.Min, stats.ScalarValue(scalar.Int(dtype.I32, lo, false)))
	st.Set(stats.Max, stats.ScalarValue(scalar.Int(dtype.I32, hi, false)))
	return map[string]*stats.Statistics{"score": st}
}

func TestComparePruneChunk(t *testing.T) {
	pred := predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 100, false)}

	skip, ok := pred.PruneChunk(statsWithRange(0, 50))
	assert.True(t, ok)
	assert.True(t, skip, "chunk max below threshold should be prunable")

	skip, ok = pred.PruneChunk(statsWithRange(0, 200))
	assert.True(t, ok)
	assert.False(t, skip, "chunk whose range straddles the threshold must not be pruned")

	_, ok = pred.PruneChunk(map[string]*stats.Statistics{})
	assert.False(t, ok, "missing stats must not claim a decision")
}

func TestAndShortCircuitsOnAllFalse(t *testing.T) {
	root := rowsOf(t, []int64{1, 2, 3})
	and := predicate.And{
		Left:  predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 1000, false)},
		Right: predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 0, false)},
	}
	mask, err := and.Eval(root)
	assert.NoError(t, err)
	impl, _ := array.Lookup(mask.Encoding())
	sae := impl.(array.ScalarAtEncoding)
	for i := 0; i < mask.Len(); i++ {
		r, err := sae.ScalarAt(mask, i)
		assert.NoError(t, err)
		assert.False(t, r.Bool)
	}
}

func TestAndPruneChunkIfEitherSidePrunes(t *testing.T) {
	and := predicate.And{
		Left:  predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 1000, false)},
		Right: predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 0, false)},
	}
	skip, ok := and.PruneChunk(statsWithRange(0, 10))
	assert.True(t, ok)
	assert.True(t, skip)
}

func TestOrPruneChunkRequiresBothSidesToPrune(t *testing.T) {
	or := predicate.Or{
		Left:  predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 1000, false)},
		Right: predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 2000, false)},
	}
	skip, ok := or.PruneChunk(statsWithRange(0, 10))
	assert.True(t, ok)
	assert.True(t, skip)

	or2 := predicate.Or{
		Left:  predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 1000, false)},
		Right: predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 5, false)},
	}
	skip, ok = or2.PruneChunk(statsWithRange(0, 10))
	assert.True(t, ok)
	assert.False(t, skip)
}

func TestNotNegatesEval(t *testing.T) {
	root := rowsOf(t, []int64{1, 2, 3})
	inner := predicate.Compare{Col: predicate.Column{Path: "score"}, Op: array.Gt, Rhs: scalar.Int(dtype.I32, 1, false)}
	not := predicate.Not{Inner: inner}

	innerMask, err := inner.Eval(root)
	assert.NoError(t, err)
	notMask, err := not.Eval(root)
	assert.NoError(t, err)

	impl, _ := array.Lookup(innerMask.Encoding())
	sae := impl.(array.ScalarAtEncoding)
	implN, _ := array.Lookup(notMask.Encoding())
	saeN := implN.(array.ScalarAtEncoding)
	for i := 0; i < innerMask.Len(); i++ {
		a, _ := sae.ScalarAt(innerMask, i)
		b, _ := saeN.ScalarAt(notMask, i)
		assert.Equal(t, a.Bool, !b.Bool)
	}
}
