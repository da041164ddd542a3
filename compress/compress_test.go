package compress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compress"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/dtype"
)

// A long constant run of small integers should compress to something with
// a registered codec encoding id, not stay a bare primitive (spec.md §8
// property "compression never increases logical content, cost should not
// increase either" — here exercised as "an obviously compressible array
// picks *some* codec").
func TestCompressPicksACodecForCompressibleInts(t *testing.T) {
	vals := make([]int64, 2000)
	for i := range vals {
		vals[i] = 7
	}
	src := array.NewPrimitiveFromInt64(dtype.U8, vals)

	opts := config.Default()
	opts.MaxCost = 2
	out, err := compress.Compress(src, opts)
	assert.NoError(t, err)
	assert.NotEqual(t, array.EncodingPrimitive, out.Encoding())

	canon, err := array.Canonicalize(out)
	assert.NoError(t, err)
	assert.Equal(t, len(vals), canon.Len())
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.Equal(t, uint64(w), s.AsUint())
	}
}

// Random noise with no exploitable structure should fall back to the
// uncompressed primitive encoding rather than pay a codec's overhead for
// nothing (spec.md §4.4 step 3: a candidate only wins if it beats the
// starting value).
func TestCompressLeavesIncompressibleDataAlone(t *testing.T) {
	vals := []int64{-923847, 128401, 9, -77, 1 << 40, -(1 << 50), 3, 919191919}
	src := array.NewPrimitiveFromInt64(dtype.I64, vals)

	opts := config.Default()
	opts.SampleSize = 4
	opts.SampleCount = 2
	out, err := compress.Compress(src, opts)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingPrimitive, out.Encoding())

	canon, err := array.Canonicalize(out)
	assert.NoError(t, err)
	for i, w := range vals {
		s, err := compute.ScalarAt(canon, i)
		assert.NoError(t, err)
		assert.Equal(t, w, s.AsInt())
	}
}

// Determinism: the same input and config (in particular the same
// RNGSeed) must produce a byte-identical encoding tree (spec.md §8
// property "determinism").
func TestCompressIsDeterministic(t *testing.T) {
	vals := make([]int64, 500)
	for i := range vals {
		vals[i] = int64(i % 5)
	}
	src := array.NewPrimitiveFromInt64(dtype.U8, vals)
	opts := config.Default()
	opts.RNGSeed = 42

	out1, err := compress.Compress(src, opts)
	assert.NoError(t, err)
	out2, err := compress.Compress(src, opts)
	assert.NoError(t, err)
	assert.Equal(t, out1.Encoding(), out2.Encoding())
	assert.Equal(t, out1.NBytes(), out2.NBytes())
}

// MaxCost bounds recursion: depth 0 must never replace the array at all.
func TestCompressRespectsMaxCostZero(t *testing.T) {
	vals := make([]int64, 100)
	src := array.NewPrimitiveFromInt64(dtype.U8, vals)
	opts := config.Default()
	opts.MaxCost = 0
	out, err := compress.Compress(src, opts)
	assert.NoError(t, err)
	assert.Equal(t, array.EncodingPrimitive, out.Encoding())
}
