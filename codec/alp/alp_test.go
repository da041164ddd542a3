package alp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/alp"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestALPRoundTripApprox(t *testing.T) {
	vals := []float64{1.5, 2.25, -3.75, 0.0, 100.125}
	src := array.NewPrimitiveFromFloat64(dtype.F64, vals)
	enc, err := alp.Encode(src)
	assert.NoError(t, err)
	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.InDelta(t, w, s.AsFloat(), 1e-9)
	}
}
