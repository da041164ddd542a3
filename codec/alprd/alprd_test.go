package alprd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/alprd"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
)

func TestALPRDRoundTripApprox(t *testing.T) {
	vals := []float64{1.1, 2.2, 3.3, -4.4, 0.0}
	src := array.NewPrimitiveFromFloat64(dtype.F64, vals)
	enc, err := alprd.Encode(src)
	assert.NoError(t, err)
	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.InDelta(t, w, s.AsFloat(), 1e-6)
	}
}
