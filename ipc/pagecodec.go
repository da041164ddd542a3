package ipc

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// writeArrayTree serializes a's full encoding tree (encoding id, length,
// metadata, buffers, children, recursively) to w. The dtype is not
// repeated per node: it is recovered from the schema on decode, the same
// split PAM uses between "address/shape" (schema, fixed at shard
// creation) and "payload" (block bytes) — see fieldio/writer.go's
// PAMBlockHeader vs. block data split.
func writeArrayTree(w io.Writer, a array.Array) error {
	if err := writeUvarint(w, uint64(a.Encoding())); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(a.Len())); err != nil {
		return err
	}
	if err := writeBytes(w, a.Metadata()); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(a.NumBuffers())); err != nil {
		return err
	}
	for i := 0; i < a.NumBuffers(); i++ {
		if err := writeBytes(w, a.Buffer(i).Bytes()); err != nil {
			return err
		}
	}
	if err := writeUvarint(w, uint64(a.NumChildren())); err != nil {
		return err
	}
	for i := 0; i < a.NumChildren(); i++ {
		if err := writeArrayTree(w, a.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

// readArrayTree is writeArrayTree's inverse. dt is the node's logical
// dtype, taken from the schema tree in lockstep with the physical tree
// (every encoding, including the canonical ones, carries exactly one
// dtype per node).
func readArrayTree(r *bytes.Reader, dt dtype.DType) (array.Array, error) {
	enc, err := readUvarint(r)
	if err != nil {
		return array.Array{}, err
	}
	length, err := readUvarint(r)
	if err != nil {
		return array.Array{}, err
	}
	metadata, err := readBytes(r)
	if err != nil {
		return array.Array{}, err
	}
	nbuf, err := readUvarint(r)
	if err != nil {
		return array.Array{}, err
	}
	buffers := make([]buf.Buffer, nbuf)
	for i := range buffers {
		b, err := readBytes(r)
		if err != nil {
			return array.Array{}, err
		}
		buffers[i] = buf.New(b)
	}
	nchild, err := readUvarint(r)
	if err != nil {
		return array.Array{}, err
	}
	childTypes, err := childDTypes(dt, int(nchild))
	if err != nil {
		return array.Array{}, err
	}
	children := make([]array.Array, nchild)
	for i := range children {
		children[i], err = readArrayTree(r, childTypes[i])
		if err != nil {
			return array.Array{}, err
		}
	}
	return array.New(array.EncodingID(enc), dt, int(length), metadata, buffers, children), nil
}

// childDTypes reports the logical dtype each of a node's n physical
// children should carry. For canonical encodings (struct fields, list
// values+offsets, ...) this is dtype-structural; for codec-compressed
// encodings the helper degrades to "same dtype as parent" for the
// remaining children, since cascading codecs (bitpacked-over-delta, ...)
// can recurse arbitrarily and their exact child shapes are an encoding
// concern already fully described by each child's own encoding id.
func childDTypes(dt dtype.DType, n int) ([]dtype.DType, error) {
	out := make([]dtype.DType, n)
	switch dt.Kind() {
	case dtype.KindStruct:
		types := dt.FieldTypes()
		if len(types) != n {
			return nil, errs.New(errs.MismatchedTypes, "ipc: struct dtype has %d fields, array has %d children", len(types), n)
		}
		copy(out, types)
	case dtype.KindList:
		for i := range out {
			out[i] = dt.Elem()
		}
	default:
		for i := range out {
			out[i] = dt
		}
	}
	return out, nil
}

func writeUvarint(w io.Writer, v uint64) error {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	_, err := w.Write(tmp[:n])
	return err
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUvarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
