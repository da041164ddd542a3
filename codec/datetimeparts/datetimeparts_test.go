package datetimeparts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/datetimeparts"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestDatetimepartsRoundTrip(t *testing.T) {
	vals := []int64{0, 1000, 86400000, 86400000 + 3661000, 1234567890}
	src := array.NewPrimitiveFromInt64(dtype.I64, vals)
	enc, err := datetimeparts.Encode(src, datetimeparts.Millisecond)
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
