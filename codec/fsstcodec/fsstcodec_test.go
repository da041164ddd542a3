package fsstcodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/fsstcodec"
	"github.com/colpress/colpress/compute"
)

func TestFsstRoundTrip(t *testing.T) {
	vals := []string{"the quick brown fox", "the quick brown dog", "a totally different sentence"}
	src := array.NewUtf8FromStrings(vals)
	enc, err := fsstcodec.Encode(src)
	assert.NoError(t, err)
	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.Equal(t, w, string(s.AsBytes()))
	}
}
