package runend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/runend"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestRunendRoundTrip(t *testing.T) {
	vals := []int64{5, 5, 5, 7, 7, 9, 9, 9, 9}
	src := array.NewPrimitiveFromInt64(dtype.I32, vals)
	enc, err := runend.Encode(src)
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
