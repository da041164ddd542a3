package forenc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/forenc"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestForencRoundTrip(t *testing.T) {
	vals := []int64{1000, 1002, 1001, 1050, 999}
	src := array.NewPrimitiveFromInt64(dtype.I64, vals)
	enc, err := forenc.Encode(src, 999, 0, dtype.U16)
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
