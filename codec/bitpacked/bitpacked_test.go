package bitpacked_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/bitpacked"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestBitpackedRoundTrip(t *testing.T) {
	src := array.NewPrimitiveFromInt64(dtype.U16, []int64{0, 1, 2, 3, 7, 7, 4})
	enc, err := bitpacked.Encode(src, 3)
	assert.NoError(t, err)

	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, 7, canon.Len())
	for i, w := range []int64{0, 1, 2, 3, 7, 7, 4} {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.False(t, s.IsNull())
		assert.Equal(t, uint64(w), s.AsUint())
	}
}
