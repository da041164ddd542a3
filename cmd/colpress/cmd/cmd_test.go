package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/ipc"
	"github.com/colpress/colpress/validity"
)

func writeTestFile(t *testing.T) string {
	t.Helper()
	scores := array.NewPrimitiveFromInt64(dtype.I32, []int64{1, 2, 3, 4})
	names := array.NewUtf8FromStrings([]string{"a", "b", "c", "d"})
	dt := dtype.Struct([]string{"score", "name"}, []dtype.DType{scores.DType(), names.DType()}, false)
	root := array.NewStruct(dt, scores.Len(), []array.Array{scores, names}, validity.NewNonNullable(scores.Len()))

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cmd.clp")
	w, err := ipc.NewWriter(ctx, path, config.Default())
	assert.NoError(t, err)
	assert.NoError(t, w.WriteArray(root))
	assert.NoError(t, w.Close(ctx))
	return path
}

func TestParsePredicateClauses(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"score > 10", false},
		{"score >= 10", false},
		{"score != 3", false},
		{"name = foo", false},
		{"not a valid clause", true},
	}
	for _, test := range tests {
		pred, err := parsePredicate(test.expr)
		if test.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.NotNil(t, pred)
	}
}

func TestParseLiteralChoosesNarrowestType(t *testing.T) {
	i := parseLiteral("42")
	assert.Equal(t, dtype.I64, i.DType().Ptype())
	assert.Equal(t, int64(42), i.AsInt())

	f := parseLiteral("3.5")
	assert.Equal(t, dtype.F64, f.DType().Ptype())
	assert.InDelta(t, 3.5, f.AsFloat(), 1e-9)

	s := parseLiteral("hello")
	assert.Equal(t, dtype.KindUtf8, s.DType().Kind())
	assert.Equal(t, "hello", string(s.AsBytes()))
}

func TestChecksumFileIsDeterministicAndCoversAllLeaves(t *testing.T) {
	path := writeTestFile(t)

	fc1, err := checksumFile(path)
	assert.NoError(t, err)
	fc2, err := checksumFile(path)
	assert.NoError(t, err)

	assert.Equal(t, fc1, fc2)
	assert.Equal(t, int64(4), fc1.Rows)
	assert.Contains(t, fc1.Fields, "score")
	assert.Contains(t, fc1.Fields, "name")
	assert.NotEqual(t, fc1.Fields["score"], fc1.Fields["name"])
}

func TestViewAndStatRunWithoutError(t *testing.T) {
	path := writeTestFile(t)
	assert.NoError(t, view(path))
	assert.NoError(t, stat(path))
	assert.NoError(t, scan(path, "score > 1"))
	assert.NoError(t, checksum(path))
}
