package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/stats"
)

func TestAbsentStatIsUnknownNotZero(t *testing.T) {
	st := stats.New()
	_, ok := st.Get(stats.NullCount)
	assert.False(t, ok, "an unset stat must report ok=false, never a fabricated zero")
}

func TestSetThenGetRoundTrips(t *testing.T) {
	st := stats.New()
	st.Set(stats.NullCount, stats.CountValue(7))
	st.Set(stats.IsSorted, stats.BoolValue(true))
	st.Set(stats.Min, stats.ScalarValue(scalar.Int(dtype.I32, -3, false)))

	v, ok := st.Get(stats.NullCount)
	assert.True(t, ok)
	assert.Equal(t, int64(7), v.Count())

	v, ok = st.Get(stats.IsSorted)
	assert.True(t, ok)
	assert.True(t, v.Bool())

	v, ok = st.Get(stats.Min)
	assert.True(t, ok)
	assert.Equal(t, int64(-3), v.Scalar().AsInt())
}

func TestCloneIsIndependent(t *testing.T) {
	a := stats.New()
	a.Set(stats.NullCount, stats.CountValue(1))
	b := a.Clone()
	b.Set(stats.NullCount, stats.CountValue(99))

	v, _ := a.Get(stats.NullCount)
	assert.Equal(t, int64(1), v.Count())
	v, _ = b.Get(stats.NullCount)
	assert.Equal(t, int64(99), v.Count())
}

func TestMergeCombinesMinMaxAndNullCount(t *testing.T) {
	a := stats.New()
	a.Set(stats.Min, stats.ScalarValue(scalar.Int(dtype.I32, 5, false)))
	a.Set(stats.Max, stats.ScalarValue(scalar.Int(dtype.I32, 10, false)))
	a.Set(stats.NullCount, stats.CountValue(2))

	b := stats.New()
	b.Set(stats.Min, stats.ScalarValue(scalar.Int(dtype.I32, -1, false)))
	b.Set(stats.Max, stats.ScalarValue(scalar.Int(dtype.I32, 100, false)))
	b.Set(stats.NullCount, stats.CountValue(3))

	m := stats.Merge(a, b)
	mn, ok := m.Get(stats.Min)
	assert.True(t, ok)
	assert.Equal(t, int64(-1), mn.Scalar().AsInt())

	mx, ok := m.Get(stats.Max)
	assert.True(t, ok)
	assert.Equal(t, int64(100), mx.Scalar().AsInt())

	nc, ok := m.Get(stats.NullCount)
	assert.True(t, ok)
	assert.Equal(t, int64(5), nc.Count())
}

func TestMergeDropsStatOnlyOneSideHas(t *testing.T) {
	a := stats.New()
	b := stats.New()
	a.Set(stats.Min, stats.ScalarValue(scalar.Int(dtype.I32, 1, false)))
	// b has no Min, so the merged set must not fabricate one.
	m := stats.Merge(a, b)
	_, ok := m.Get(stats.Min)
	assert.False(t, ok)
}
