package bytebool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/bytebool"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/validity"
)

func TestByteboolRoundTrip(t *testing.T) {
	vals := []bool{true, false, true, true}
	src := array.NewBoolFromBools(false, vals, validity.NewAllValid(len(vals)))
	enc, err := bytebool.Encode(src)
	assert.NoError(t, err)

	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.False(t, s.IsNull())
		assert.Equal(t, w, s.AsBool())
	}
}
