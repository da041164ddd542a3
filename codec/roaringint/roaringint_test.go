package roaringint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/roaringint"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestRoaringintRoundTrip(t *testing.T) {
	vals := []int64{1, 2, 1, 3, 2, 1, 1}
	src := array.NewPrimitiveFromInt64(dtype.U8, vals)
	enc, err := roaringint.Encode(src)
	assert.NoError(t, err)

	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.False(t, s.IsNull())
		assert.Equal(t, uint64(w), s.AsUint())
	}
}
