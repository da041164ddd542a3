package buf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/buf"
)

func TestSliceSharesStorage(t *testing.T) {
	b := buf.New([]byte{1, 2, 3, 4, 5, 6})
	s := b.Slice(2, 5)
	assert.Equal(t, []byte{3, 4, 5}, s.Bytes())
	assert.Equal(t, 3, s.Len())
	s.Release()
}

func TestReinterpretRoundTrip(t *testing.T) {
	vals := []int32{10, -20, 30, 40}
	b := buf.FromSlice(vals)
	got := buf.Reinterpret[int32](b, 4)
	assert.Equal(t, vals, got)
}

func TestRetainReleaseInvokesCallbackOnce(t *testing.T) {
	released := 0
	b := buf.NewView([]byte{1, 2, 3}, func() { released++ })
	r := b.Retain()
	b.Release()
	assert.Equal(t, 0, released, "release callback must wait for every handle")
	r.Release()
	assert.Equal(t, 1, released)
}

func TestIsZero(t *testing.T) {
	var zero buf.Buffer
	assert.True(t, zero.IsZero())
	assert.False(t, buf.New(nil).IsZero())
}

func TestNBytes(t *testing.T) {
	b := buf.New(make([]byte, 17))
	assert.Equal(t, int64(17), b.NBytes())
}
