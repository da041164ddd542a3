// Package ipc implements colpress's on-disk file layer (spec.md §4.5):
// a stream of zstd-compressed chunk pages, a schema blob, a layout blob
// (chunk index + per-field statistics), and a fixed-size postscript at
// EOF so a reader can find the footer with two backward seeks.
//
// Grounded on encoding/pam/pamwriter.go + pamreader.go + pamutil/index.go's
// overall shape: per-shard index written once at Close, magic/version
// checked on Open, block offsets recorded so a reader can seek straight to
// the blocks it needs.
package ipc

import (
	"encoding/binary"

	"github.com/colpress/colpress/errs"
)

// Magic identifies a colpress IPC file. It is the last 4 bytes of every
// file, the same role biopb.PAMShardIndex.Magic plays for PAM shards.
var Magic = [4]byte{'C', 'L', 'P', '1'}

const postscriptSize = 8 + 8 + 4

// postscript is the fixed 20-byte trailer: schema_offset, layout_offset,
// magic (spec.md §4.5).
type postscript struct {
	SchemaOffset uint64
	LayoutOffset uint64
}

func (p postscript) encode() []byte {
	out := make([]byte, postscriptSize)
	binary.LittleEndian.PutUint64(out[0:8], p.SchemaOffset)
	binary.LittleEndian.PutUint64(out[8:16], p.LayoutOffset)
	copy(out[16:20], Magic[:])
	return out
}

func decodePostscript(b []byte) (postscript, error) {
	if len(b) != postscriptSize {
		return postscript{}, errs.New(errs.InvalidSerde, "ipc: postscript has %d bytes, want %d", len(b), postscriptSize)
	}
	var magic [4]byte
	copy(magic[:], b[16:20])
	if magic != Magic {
		return postscript{}, errs.New(errs.InvalidSerde, "ipc: bad magic %q, want %q", magic, Magic)
	}
	return postscript{
		SchemaOffset: binary.LittleEndian.Uint64(b[0:8]),
		LayoutOffset: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

// FieldStats mirrors stats.Statistics in a gob-encodable form, keyed per
// leaf field path within one chunk (spec.md §4.4's chunk-level statistics
// used for predicate pushdown / chunk pruning).
type FieldStats struct {
	HasMin     bool
	Min        []byte // gob-encoded scalar.Scalar payload, see statscodec.go
	HasMax     bool
	Max        []byte
	IsSorted   bool
	IsConstant bool
	NullCount  int64
}

// ChunkMeta describes one written chunk: its byte range in the page
// stream and its per-field statistics, keyed by dotted field path.
type ChunkMeta struct {
	Offset int64
	Length int64
	Rows   int64
	Fields map[string]FieldStats
}

// Layout is the gob-encoded blob at postscript.LayoutOffset.
type Layout struct {
	Chunks []ChunkMeta
}

// Footer bundles the decoded schema and layout a reader needs, purely for
// documentation: the actual file only stores the two blobs plus the
// postscript pointing at them.
type Footer struct {
	Schema SchemaNode
	Layout Layout
}
