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
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/predicate"
	"github.com/colpress/colpress/stats"
)

// Reader opens a colpress IPC file for chunked, projected, predicate-
// pushdown scanning, mirroring encoding/pam/pamreader.go's magic check +
// index load + Seek-driven block skip.
type Reader struct {
	opts   config.Options
	in     file.File
	r      io.ReadSeeker
	schema SchemaNode
	dt     dtype.DType
	layout Layout
	dec    *zstd.Decoder
}

// Open reads the footer (postscript, schema, layout) and returns a Reader
// positioned to scan chunks on demand. opts.BatchSize governs Scan's
// output batch size and opts.InitialReadSize the footer-phase read size
// (spec.md §6 Configuration); the zero value of config.Options behaves as
// config.Default() for both.
func Open(ctx context.Context, path string, opts config.Options) (*Reader, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.InitialReadSize == 0 {
		opts.InitialReadSize = config.DefaultInitialReadSize
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "ipc: open %s", path)
	}
	rs, ok := in.Reader(ctx).(io.ReadSeeker)
	if !ok {
		return nil, errs.New(errs.IoError, "ipc: %s does not support seeking", path)
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size < postscriptSize {
		return nil, errs.New(errs.InvalidSerde, "ipc: %s too small to contain a postscript", path)
	}
	// The footer-phase read (postscript + schema + layout) is read in one
	// shot, up to opts.InitialReadSize bytes from EOF, so a reader touches
	// the file twice instead of three times when the footer fits; larger
	// footers fall back to the precise per-section seeks below.
	footerBuf := make([]byte, 0)
	initial := opts.InitialReadSize
	if initial < uint64(postscriptSize) {
		initial = uint64(postscriptSize)
	}
	if initial > uint64(size) {
		initial = uint64(size)
	}
	if initial > 0 {
		footerBuf = make([]byte, initial)
		if _, err := rs.Seek(size-int64(initial), io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rs, footerBuf); err != nil {
			return nil, err
		}
	}
	footerStart := size - int64(len(footerBuf))

	psBuf := footerBuf[len(footerBuf)-postscriptSize:]
	ps, err := decodePostscript(psBuf)
	if err != nil {
		return nil, err
	}

	schemaBuf, err := readFooterSection(rs, footerBuf, footerStart, int64(ps.SchemaOffset), int64(ps.LayoutOffset))
	if err != nil {
		return nil, err
	}
	var schema SchemaNode
	if err := gob.NewDecoder(bytes.NewReader(schemaBuf)).Decode(&schema); err != nil {
		return nil, errors.Wrap(err, "ipc: decode schema")
	}

	layoutBuf, err := readFooterSection(rs, footerBuf, footerStart, int64(ps.LayoutOffset), size-postscriptSize)
	if err != nil {
		return nil, err
	}
	var layout Layout
	if err := gob.NewDecoder(bytes.NewReader(layoutBuf)).Decode(&layout); err != nil {
		return nil, errors.Wrap(err, "ipc: decode layout")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "ipc: zstd reader")
	}
	return &Reader{opts: opts, in: in, r: rs, schema: schema, dt: schema.ToDType(), layout: layout, dec: dec}, nil
}

// readFooterSection returns file bytes [start,stop), serving them from the
// already-read footerBuf (which covers [footerStart,size)) when possible,
// falling back to an explicit seek+read for sections InitialReadSize
// didn't reach.
func readFooterSection(rs io.ReadSeeker, footerBuf []byte, footerStart, start, stop int64) ([]byte, error) {
	if start >= footerStart {
		lo := start - footerStart
		hi := stop - footerStart
		return footerBuf[lo:hi], nil
	}
	buf := make([]byte, stop-start)
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rs, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// DType returns the row dtype stored in this file.
func (r *Reader) DType() dtype.DType { return r.dt }

// NumChunks returns the number of chunks in the file.
func (r *Reader) NumChunks() int { return len(r.layout.Chunks) }

// ChunkRows returns the row count of chunk i without decoding it.
func (r *Reader) ChunkRows(i int) int64 { return r.layout.Chunks[i].Rows }

// ChunkStatistics rebuilds the per-field stats.Statistics map for chunk i,
// for use with predicate.Expr.PruneChunk.
func (r *Reader) ChunkStatistics(i int) (map[string]*stats.Statistics, error) {
	out := make(map[string]*stats.Statistics)
	for path, fs := range r.layout.Chunks[i].Fields {
		dt, err := leafDType(r.dt, path)
		if err != nil {
			return nil, err
		}
		out[path] = fs.toStatistics(dt)
	}
	return out, nil
}

// ReadChunk decodes and returns chunk i in full.
func (r *Reader) ReadChunk(i int) (array.Array, error) {
	cm := r.layout.Chunks[i]
	if _, err := r.r.Seek(cm.Offset, io.SeekStart); err != nil {
		return array.Array{}, err
	}
	framed := make([]byte, cm.Length)
	if _, err := io.ReadFull(r.r, framed); err != nil {
		return array.Array{}, errors.Wrapf(err, "ipc: read chunk %d", i)
	}
	compressed, err := readBytes(bytes.NewReader(framed))
	if err != nil {
		return array.Array{}, err
	}
	raw, err := r.dec.DecodeAll(compressed, nil)
	if err != nil {
		return array.Array{}, errors.Wrap(err, "ipc: zstd decompress chunk")
	}
	return readArrayTree(bytes.NewReader(raw), r.dt)
}

// Scan iterates every on-disk chunk pred cannot prune via statistics,
// applies proj to each, and calls fn once per opts.BatchSize-row batch
// (spec.md §6 "scan(projection, predicate) -> BatchStream" / §8 S5: a
// read-side batch size independent of the on-disk chunk size). The final
// batch may be shorter than BatchSize. fn returning an error stops the
// scan.
func (r *Reader) Scan(proj Projection, pred predicate.Expr, fn func(batch array.Array) error) error {
	batchSize := int(r.opts.BatchSize)
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	var pending []array.Array
	pendingRows := 0

	flush := func(n int) error {
		batch, rest, err := takeRows(pending, n)
		if err != nil {
			return err
		}
		pending = rest
		pendingRows -= n
		return fn(batch)
	}

	for i := range r.layout.Chunks {
		if pred != nil {
			st, err := r.ChunkStatistics(i)
			if err != nil {
				return err
			}
			if skip, ok := pred.PruneChunk(st); ok && skip {
				continue
			}
		}
		chunk, err := r.ReadChunk(i)
		if err != nil {
			return err
		}
		projected, err := proj.project(chunk)
		if err != nil {
			return err
		}
		pending = append(pending, projected)
		pendingRows += projected.Len()
		for pendingRows >= batchSize {
			if err := flush(batchSize); err != nil {
				return err
			}
		}
	}
	if pendingRows > 0 {
		if err := flush(pendingRows); err != nil {
			return err
		}
	}
	return nil
}

// takeRows removes the first n rows from the concatenation of pending
// (each already a struct array), returning the batch and the remaining
// tail arrays.
func takeRows(pending []array.Array, n int) (array.Array, []array.Array, error) {
	var parts []array.Array
	rows := 0
	rest := pending
	for rows < n && len(rest) > 0 {
		head := rest[0]
		need := n - rows
		if head.Len() <= need {
			parts = append(parts, head)
			rows += head.Len()
			rest = rest[1:]
			continue
		}
		left, err := compute.Slice(head, 0, need)
		if err != nil {
			return array.Array{}, nil, err
		}
		right, err := compute.Slice(head, need, head.Len())
		if err != nil {
			return array.Array{}, nil, err
		}
		parts = append(parts, left)
		rows += left.Len()
		rest = append([]array.Array{right}, rest[1:]...)
	}
	if len(parts) == 1 {
		return parts[0], rest, nil
	}
	batch, err := array.Canonicalize(array.NewChunked(parts[0].DType(), parts))
	if err != nil {
		return array.Array{}, nil, err
	}
	return batch, rest, nil
}

// Close releases the underlying file.
func (r *Reader) Close(ctx context.Context) error {
	r.dec.Close()
	return r.in.Close(ctx)
}

