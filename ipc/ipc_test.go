package ipc_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/ipc"
	"github.com/colpress/colpress/predicate"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/validity"
)

func sampleRows(t *testing.T) array.Array {
	t.Helper()
	scores := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2, 3, 4, 40, 50, 60, 7})
	names := array.NewUtf8FromStrings([]string{"a", "b", "c", "d", "e", "f", "g", "h"})
	dt := dtype.Struct([]string{"score", "name"}, []dtype.DType{scores.DType(), names.DType()}, false)
	return array.NewStruct(dt, scores.Len(), []array.Array{scores, names}, validity.NewNonNullable(scores.Len()))
}

func TestWriterReaderRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rows.clp")
	root := sampleRows(t)

	opts := config.Default()
	opts.TargetBlockSize = 4
	w, err := ipc.NewWriter(ctx, path, opts)
	assert.NoError(t, err)
	assert.NoError(t, w.WriteArray(root))
	assert.NoError(t, w.Close(ctx))

	r, err := ipc.Open(ctx, path, config.Default())
	assert.NoError(t, err)
	defer r.Close(ctx)

	assert.True(t, r.DType().Equal(root.DType()))
	assert.Equal(t, 2, r.NumChunks())
	assert.Equal(t, int64(4), r.ChunkRows(0))
	assert.Equal(t, int64(4), r.ChunkRows(1))

	rootScores, ok := array.Field(root, "score")
	assert.True(t, ok)

	var total int
	for i := 0; i < r.NumChunks(); i++ {
		chunk, err := r.ReadChunk(i)
		assert.NoError(t, err)
		total += chunk.Len()
		scoreField, ok := array.Field(chunk, "score")
		assert.True(t, ok)
		for j := 0; j < scoreField.Len(); j++ {
			s, err := compute.ScalarAt(scoreField, j)
			assert.NoError(t, err)
			want, err := compute.ScalarAt(rootScores, i*4+j)
			assert.NoError(t, err)
			assert.Equal(t, want.AsInt(), s.AsInt())
		}
	}
	assert.Equal(t, root.Len(), total)
}

func TestScanPrunesChunksByStatistics(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rows.clp")
	root := sampleRows(t)

	opts := config.Default()
	opts.TargetBlockSize = 4
	w, err := ipc.NewWriter(ctx, path, opts)
	assert.NoError(t, err)
	assert.NoError(t, w.WriteArray(root))
	assert.NoError(t, w.Close(ctx))

	r, err := ipc.Open(ctx, path, config.Default())
	assert.NoError(t, err)
	defer r.Close(ctx)

	pred := predicate.Compare{
		Col: predicate.Column{Path: "score"},
		Op:  array.Gt,
		Rhs: scalar.Int(dtype.I32, 30, false),
	}

	var matched, scannedChunks int
	err = r.Scan(ipc.AllFields(), pred, func(chunk array.Array) error {
		scannedChunks++
		mask, err := pred.Eval(chunk)
		if err != nil {
			return err
		}
		for i := 0; i < mask.Len(); i++ {
			s, err := compute.ScalarAt(mask, i)
			if err != nil {
				return err
			}
			if !s.IsNull() && s.AsBool() {
				matched++
			}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, matched)
	assert.Equal(t, 1, scannedChunks)
}

// TestScanBatchSizeSplitsIndependentlyOfChunking reproduces spec.md §8's
// literal scenario S5: an 8-row file with one on-disk chunk, projected to
// just "name", scanned with batch_size=5, yields two batches of 5 and 3
// rows — the read-side batch size is independent of target_block_size.
func TestScanBatchSizeSplitsIndependentlyOfChunking(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rows.clp")
	root := sampleRows(t)

	w, err := ipc.NewWriter(ctx, path, config.Default())
	assert.NoError(t, err)
	assert.NoError(t, w.WriteArray(root))
	assert.NoError(t, w.Close(ctx))

	opts := config.Default()
	opts.BatchSize = 5
	r, err := ipc.Open(ctx, path, opts)
	assert.NoError(t, err)
	defer r.Close(ctx)
	assert.Equal(t, 1, r.NumChunks())

	var batchLens []int
	names, ok := array.Field(root, "name")
	assert.True(t, ok)
	var seen int
	err = r.Scan(ipc.Fields("name"), nil, func(batch array.Array) error {
		batchLens = append(batchLens, batch.Len())
		_, hasScore := array.Field(batch, "score")
		assert.False(t, hasScore)
		nameField, ok := array.Field(batch, "name")
		assert.True(t, ok)
		for i := 0; i < nameField.Len(); i++ {
			got, err := compute.ScalarAt(nameField, i)
			assert.NoError(t, err)
			want, err := compute.ScalarAt(names, seen)
			assert.NoError(t, err)
			assert.Equal(t, string(want.AsBytes()), string(got.AsBytes()))
			seen++
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{5, 3}, batchLens)
	assert.Equal(t, 8, seen)
}
