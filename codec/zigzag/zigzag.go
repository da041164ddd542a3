// Package zigzag implements the ZigZag codec: a reversible signed<->unsigned
// mapping used to front-load small-magnitude signed values so the
// bit-packed codec can pick a narrower bit width. Pure data transform, no
// metadata beyond the dtype switch (spec.md §4.3 "ZigZag").
//
// No teacher file performs this transform explicitly, but it is exactly
// what Go's stdlib binary.PutVarint does internally to a signed value
// before varint-encoding it — the same idea is made into its own standalone
// codec here, per spec.md, rather than hidden inside a varint writer the
// way fieldio's delta fields do it.
package zigzag

import (
	"fmt"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 0

type codec struct{}

func init() {
	array.Register(EncodingID, "zigzag", codec{})
}

func zig8(v int8) uint8   { return uint8((v << 1) ^ (v >> 7)) }
func unzig8(v uint8) int8 { return int8((v >> 1) ^ -(v & 1)) }

func zig16(v int16) uint16   { return uint16((v << 1) ^ (v >> 15)) }
func unzig16(v uint16) int16 { return int16((v >> 1) ^ -(v & 1)) }

func zig32(v int32) uint32   { return uint32((v << 1) ^ (v >> 31)) }
func unzig32(v uint32) int32 { return int32((v >> 1) ^ -(v & 1)) }

func zig64(v int64) uint64   { return uint64((v << 1) ^ (v >> 63)) }
func unzig64(v uint64) int64 { return int64((v >> 1) ^ -(v & 1)) }

func signedToUnsigned(p dtype.Ptype) dtype.Ptype {
	switch p {
	case dtype.I8:
		return dtype.U8
	case dtype.I16:
		return dtype.U16
	case dtype.I32:
		return dtype.U32
	case dtype.I64:
		return dtype.U64
	default:
		panic(fmt.Sprintf("zigzag: not a signed ptype %v", p))
	}
}

// Encode builds a zigzag-coded Array from a signed primitive input,
// preserving validity verbatim.
func Encode(src array.Array) (array.Array, error) {
	p := src.DType().Ptype()
	if !p.IsSigned() {
		return array.Array{}, errs.New(errs.MismatchedTypes, "zigzag: Encode requires a signed Primitive array")
	}
	encoded := encodeValues(src, p)
	return array.New(EncodingID, src.DType(), src.Len(), nil, nil, []array.Array{encoded}), nil
}

func encodeValues(src array.Array, p dtype.Ptype) array.Array {
	n := src.Len()
	to := signedToUnsigned(p)
	w := to.ByteWidth()
	out := make([]byte, n*w)
	valid := array.ArrayValidity(src)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		r, _ := codecScalarAt(src, i)
		putZigzag(p, out[i*w:(i+1)*w], r)
	}
	return array.NewPrimitive(dtype.Primitive(to, src.DType().Nullable()), n, buf.New(out), valid)
}

func codecScalarAt(a array.Array, i int) (array.ScalarResult, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return array.ScalarResult{}, errs.New(errs.InvalidSerde, "zigzag: unknown encoding %d", a.Encoding())
	}
	if sae, ok := impl.(array.ScalarAtEncoding); ok {
		return sae.ScalarAt(a, i)
	}
	canon, err := impl.Canonicalize(a)
	if err != nil {
		return array.ScalarResult{}, err
	}
	cimpl, _ := array.Lookup(canon.Encoding())
	return cimpl.(array.ScalarAtEncoding).ScalarAt(canon, i)
}

func putZigzag(p dtype.Ptype, dst []byte, r array.ScalarResult) {
	switch p {
	case dtype.I8:
		dst[0] = zig8(int8(r.Int))
	case dtype.I16:
		v := zig16(int16(r.Int))
		dst[0], dst[1] = byte(v), byte(v>>8)
	case dtype.I32:
		v := zig32(int32(r.Int))
		for i := 0; i < 4; i++ {
			dst[i] = byte(v >> (8 * uint(i)))
		}
	case dtype.I64:
		v := zig64(r.Int)
		for i := 0; i < 8; i++ {
			dst[i] = byte(v >> (8 * uint(i)))
		}
	}
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	child := a.Child(0)
	p := a.DType().Ptype()
	n := a.Len()
	w := p.ByteWidth()
	out := make([]byte, n*w)
	valid := array.ArrayValidity(child)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		r, err := codecScalarAt(child, i)
		if err != nil {
			return array.Array{}, err
		}
		writeSignedElem(p, out[i*w:(i+1)*w], unzigValue(p, r))
	}
	return array.NewPrimitive(a.DType(), n, buf.New(out), valid), nil
}

func unzigValue(p dtype.Ptype, r array.ScalarResult) int64 {
	switch p {
	case dtype.I8:
		return int64(unzig8(uint8(r.Uint)))
	case dtype.I16:
		return int64(unzig16(uint16(r.Uint)))
	case dtype.I32:
		return int64(unzig32(uint32(r.Uint)))
	default:
		return unzig64(r.Uint)
	}
}

func writeSignedElem(p dtype.Ptype, dst []byte, v int64) {
	switch p {
	case dtype.I8:
		dst[0] = byte(v)
	case dtype.I16:
		dst[0], dst[1] = byte(v), byte(v>>8)
	case dtype.I32:
		for i := 0; i < 4; i++ {
			dst[i] = byte(v >> (8 * uint(i)))
		}
	case dtype.I64:
		for i := 0; i < 8; i++ {
			dst[i] = byte(v >> (8 * uint(i)))
		}
	}
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	child := a.Child(0)
	r, err := codecScalarAt(child, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	if r.Null {
		return r, nil
	}
	return array.ScalarResult{Int: unzigValue(a.DType().Ptype(), r)}, nil
}
