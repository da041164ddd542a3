package ipc

import (
	"bytes"
	"context"
	"encoding/gob"
	"io"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/errs"
)

// Writer appends row-chunked, zstd-compressed pages to a colpress IPC
// file and writes the schema/layout/postscript at Close, mirroring
// encoding/pam/pamwriter.go's "accumulate a block index, flush a trailer
// at Close" shape.
type Writer struct {
	opts   config.Options
	schema SchemaNode

	out    file.File
	w      io.Writer
	offset int64

	enc     *zstd.Encoder
	chunks  []ChunkMeta
	err     error
	rootSet bool
}

// NewWriter creates a colpress IPC file at path. The file's struct dtype is
// taken from the first array passed to WriteArray.
func NewWriter(ctx context.Context, path string, opts config.Options) (*Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "ipc: create %s", path)
	}
	w := &Writer{opts: opts, out: out, w: out.Writer(ctx)}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "ipc: zstd writer")
	}
	w.enc = enc
	return w, nil
}

// WriteArray appends root (a single Struct-typed Array covering some
// number of rows) as one or more chunks of at most opts.TargetBlockSize
// rows. Chunk byte size is not bounded: opts.TargetBlockByteSize is not
// consulted.
func (w *Writer) WriteArray(root array.Array) error {
	if w.err != nil {
		return w.err
	}
	if !w.rootSet {
		w.schema = FromDType(root.DType())
		w.rootSet = true
	}
	targetRows := int(w.opts.TargetBlockSize)
	if targetRows <= 0 {
		targetRows = root.Len()
	}
	for start := 0; start < root.Len(); start += targetRows {
		stop := start + targetRows
		if stop > root.Len() {
			stop = root.Len()
		}
		chunk, err := compute.Slice(root, start, stop)
		if err != nil {
			w.err = err
			return err
		}
		if err := w.writeChunk(chunk); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

func (w *Writer) writeChunk(chunk array.Array) error {
	var raw bytes.Buffer
	if err := writeArrayTree(&raw, chunk); err != nil {
		return err
	}
	compressed := w.enc.EncodeAll(raw.Bytes(), nil)
	if err := writeBytes(w.w, compressed); err != nil {
		return err
	}
	fieldStats, err := collectLeafStats(chunk, "")
	if err != nil {
		return err
	}
	newOffset := w.offset + int64(uvarintLen(uint64(len(compressed)))+len(compressed))
	w.chunks = append(w.chunks, ChunkMeta{
		Offset: w.offset,
		Length: newOffset - w.offset,
		Rows:   int64(chunk.Len()),
		Fields: fieldStats,
	})
	w.offset = newOffset
	return nil
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Close writes the schema, layout, and postscript, then closes the
// underlying file.
func (w *Writer) Close(ctx context.Context) error {
	if w.err != nil {
		return w.err
	}
	if err := w.enc.Close(); err != nil {
		return errors.Wrap(err, "ipc: close zstd encoder")
	}
	schemaOffset := w.offset
	var schemaBuf bytes.Buffer
	if err := gob.NewEncoder(&schemaBuf).Encode(w.schema); err != nil {
		return errors.Wrap(err, "ipc: encode schema")
	}
	if _, err := w.w.Write(schemaBuf.Bytes()); err != nil {
		return err
	}
	w.offset += int64(schemaBuf.Len())

	layoutOffset := w.offset
	var layoutBuf bytes.Buffer
	if err := gob.NewEncoder(&layoutBuf).Encode(Layout{Chunks: w.chunks}); err != nil {
		return errors.Wrap(err, "ipc: encode layout")
	}
	if _, err := w.w.Write(layoutBuf.Bytes()); err != nil {
		return err
	}

	ps := postscript{SchemaOffset: uint64(schemaOffset), LayoutOffset: uint64(layoutOffset)}
	if _, err := w.w.Write(ps.encode()); err != nil {
		return err
	}
	if err := w.out.Close(ctx); err != nil {
		return errors.Wrap(err, "ipc: close file")
	}
	return nil
}

// Err returns the first error encountered by WriteArray, if any.
func (w *Writer) Err() error {
	if w.err != nil {
		return errs.Wrap(errs.KindOf(w.err), w.err, "ipc")
	}
	return nil
}
