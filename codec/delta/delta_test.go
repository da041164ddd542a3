package delta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/codec/delta"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/validity"
)

func TestDeltaRoundTrip(t *testing.T) {
	vals := []int64{100, 101, 103, 103, 110, 90}
	src := array.NewPrimitiveFromInt64(dtype.I64, vals)
	enc, err := delta.Encode(src)
	assert.NoError(t, err)

	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.False(t, s.IsNull())
		assert.Equal(t, w, s.AsInt())
	}
}

func TestDeltaRoundTripPreservesNulls(t *testing.T) {
	raw := []int32{100, 101, 0, 103, 110, 90}
	valid := []bool{true, true, false, true, true, true}
	src := array.NewPrimitive(dtype.Primitive(dtype.I32, true), len(raw), buf.FromSlice(raw), validity.NewFromBools(valid))
	enc, err := delta.Encode(src)
	assert.NoError(t, err)

	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(raw), canon.Len())
	for i, want := range raw {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		if !valid[i] {
			assert.True(t, s.IsNull())
			continue
		}
		assert.False(t, s.IsNull())
		assert.Equal(t, int64(want), s.AsInt())
	}
}
