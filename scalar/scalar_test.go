package scalar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/scalar"
)

func TestCompareOrdersNumerics(t *testing.T) {
	a := scalar.Int(dtype.I32, 5, false)
	b := scalar.Int(dtype.I32, 10, false)
	assert.True(t, a.LT(b))
	assert.True(t, b.GT(a))
	assert.True(t, a.EQ(scalar.Int(dtype.I32, 5, false)))
}

func TestCompareNullsSortLast(t *testing.T) {
	n := scalar.Null(dtype.Primitive(dtype.I32, true))
	v := scalar.Int(dtype.I32, 0, true)
	assert.True(t, v.LT(n))
	assert.True(t, n.GT(v))
	assert.True(t, n.EQ(scalar.Null(dtype.Primitive(dtype.I32, true))))
}

func TestMinMax(t *testing.T) {
	a := scalar.Int(dtype.I32, 3, false)
	b := scalar.Int(dtype.I32, 7, false)
	assert.Equal(t, int64(3), a.Min(b).AsInt())
	assert.Equal(t, int64(7), a.Max(b).AsInt())
}

func TestUtf8Compare(t *testing.T) {
	a := scalar.Utf8("apple", false)
	b := scalar.Utf8("banana", false)
	assert.True(t, a.LT(b))
	assert.False(t, b.LT(a))
}

func TestFloatRoundTrip(t *testing.T) {
	s := scalar.Float(dtype.F64, 3.14159, false)
	assert.InDelta(t, 3.14159, s.AsFloat(), 1e-9)
}

func TestBoolRoundTrip(t *testing.T) {
	s := scalar.Bool(true, false)
	assert.True(t, s.AsBool())
	assert.False(t, s.IsNull())
}
