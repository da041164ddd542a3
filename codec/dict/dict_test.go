package dict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/dict"
	"github.com/colpress/colpress/compute"
)

func TestDictRoundTrip(t *testing.T) {
	vals := []string{"apple", "banana", "apple", "apple", "cherry", "banana"}
	src := array.NewUtf8FromStrings(vals)
	enc, err := dict.Encode(src)
	assert.NoError(t, err)
	canon, err := array.Canonicalize(enc)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.Equal(t, w, string(s.AsBytes()))
	}
}
