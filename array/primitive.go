package array

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

func f32frombits(b uint32) float32 { return math.Float32frombits(b) }
func f64frombits(b uint64) float64 { return math.Float64frombits(b) }

// primitiveEncoding implements the canonical "primitive" encoding: a flat
// `values[ptype * len]` buffer plus an optional validity bitmap buffer, per
// the table in spec.md §3. Grounded on fieldio's fixed-width
// PutUint16Field/PutFloat64Field/PutUint8Field Put-then-read-back shape,
// generalized to any Ptype.
type primitiveEncoding struct{}

func init() {
	Register(EncodingPrimitive, "primitive", primitiveEncoding{})
}

// NewPrimitive builds a canonical primitive Array. values must already be
// packed as dt.Ptype().ByteWidth()*length bytes.
func NewPrimitive(dt dtype.DType, length int, values buf.Buffer, valid validity.Validity) Array {
	if dt.Kind() != dtype.KindPrimitive {
		panic("array: NewPrimitive requires a Primitive dtype")
	}
	want := int64(length) * int64(dt.Ptype().ByteWidth())
	if values.NBytes() != want {
		panic(fmt.Sprintf("array: primitive buffer has %d bytes, want %d", values.NBytes(), want))
	}
	tag, bitmap := packValidity(valid)
	buffers := []buf.Buffer{values}
	if bitmap != nil {
		buffers = append(buffers, *bitmap)
	}
	return New(EncodingPrimitive, dt, length, []byte{tag}, buffers, nil)
}

// NewPrimitiveFromInt64 is a convenience constructor for tests and small
// literals: it packs vals into p's native width, all non-null.
func NewPrimitiveFromInt64(p dtype.Ptype, vals []int64) Array {
	w := p.ByteWidth()
	b := make([]byte, len(vals)*w)
	for i, v := range vals {
		off := i * w
		switch {
		case p.IsFloat():
			switch w {
			case 4:
				binary.LittleEndian.PutUint32(b[off:], math.Float32bits(float32(v)))
			case 8:
				binary.LittleEndian.PutUint64(b[off:], math.Float64bits(float64(v)))
			}
		default:
			switch w {
			case 1:
				b[off] = byte(v)
			case 2:
				binary.LittleEndian.PutUint16(b[off:], uint16(v))
			case 4:
				binary.LittleEndian.PutUint32(b[off:], uint32(v))
			case 8:
				binary.LittleEndian.PutUint64(b[off:], uint64(v))
			}
		}
	}
	return NewPrimitive(dtype.Primitive(p, false), len(vals), buf.New(b), validity.NewNonNullable(len(vals)))
}

// NewPrimitiveFromFloat64 is the float analogue of NewPrimitiveFromInt64.
func NewPrimitiveFromFloat64(p dtype.Ptype, vals []float64) Array {
	w := p.ByteWidth()
	b := make([]byte, len(vals)*w)
	for i, v := range vals {
		off := i * w
		switch w {
		case 4:
			binary.LittleEndian.PutUint32(b[off:], math.Float32bits(float32(v)))
		case 8:
			binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
		}
	}
	return NewPrimitive(dtype.Primitive(p, false), len(vals), buf.New(b), validity.NewNonNullable(len(vals)))
}

// ArrayValidity reconstructs the validity.Validity of any canonical array
// whose metadata begins with a validity tag byte (primitive, bool, varbin,
// varbin-view). Encodings with their own validity representation (sparse's
// fill_value, ...) implement their own accessor instead.
func ArrayValidity(a Array) validity.Validity {
	if len(a.metadata) == 0 {
		if !a.dt.Nullable() {
			return validity.NewNonNullable(a.length)
		}
		return validity.NewAllValid(a.length)
	}
	tag := a.metadata[0]
	if tag == validityTagArray {
		return unpackValidity(tag, a.length, a.buffers[len(a.buffers)-1])
	}
	return unpackValidity(tag, a.length, buf.Buffer{})
}

func (primitiveEncoding) Canonicalize(a Array) (Array, error) {
	return a, nil
}

func (primitiveEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	v := ArrayValidity(a)
	if !v.IsValid(index) {
		return ScalarResult{Null: true}, nil
	}
	return readPrimitiveElem(a.dt.Ptype(), a.buffers[0], index), nil
}

func readPrimitiveElem(p dtype.Ptype, b buf.Buffer, index int) ScalarResult {
	w := p.ByteWidth()
	off := index * w
	data := b.Bytes()[off : off+w]
	switch p {
	case dtype.U8:
		return ScalarResult{Uint: uint64(data[0])}
	case dtype.U16:
		return ScalarResult{Uint: uint64(leU16(data))}
	case dtype.U32:
		return ScalarResult{Uint: uint64(leU32(data))}
	case dtype.U64:
		return ScalarResult{Uint: leU64(data)}
	case dtype.I8:
		return ScalarResult{Int: int64(int8(data[0]))}
	case dtype.I16:
		return ScalarResult{Int: int64(int16(leU16(data)))}
	case dtype.I32:
		return ScalarResult{Int: int64(int32(leU32(data)))}
	case dtype.I64:
		return ScalarResult{Int: int64(leU64(data))}
	case dtype.F32:
		return ScalarResult{Float: float64(f32frombits(leU32(data)))}
	case dtype.F64:
		return ScalarResult{Float: f64frombits(leU64(data))}
	default:
		panic(fmt.Sprintf("array: unsupported ptype %v", p))
	}
}

func leU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

func putLeU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLeU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putLeU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func (primitiveEncoding) Slice(a Array, start, stop int) (Array, error) {
	w := a.dt.Ptype().ByteWidth()
	values := a.buffers[0].Slice(start*w, stop*w)
	v := ArrayValidity(a).Slice(start, stop)
	return NewPrimitive(a.dt, stop-start, values, v), nil
}

func (primitiveEncoding) Take(a Array, indices []int64) (Array, error) {
	p := a.dt.Ptype()
	w := p.ByteWidth()
	out := make([]byte, len(indices)*w)
	v := ArrayValidity(a)
	validBits := make([]bool, len(indices))
	src := a.buffers[0].Bytes()
	for i, idx := range indices {
		if idx < 0 || int(idx) >= a.length {
			return Array{}, errs.New(errs.OutOfBounds, "array: Take index %d out of bounds [0,%d)", idx, a.length)
		}
		copy(out[i*w:(i+1)*w], src[int(idx)*w:int(idx)*w+w])
		validBits[i] = v.IsValid(int(idx))
	}
	return NewPrimitive(a.dt, len(indices), buf.New(out), validity.NewFromBools(validBits)), nil
}

// writePrimitiveElem encodes v into dst (a p.ByteWidth()-length slice) using
// the field matching p's kind. Used by codecs and the constant encoding's
// canonicalization to materialize a repeated scalar into a primitive buffer.
func writePrimitiveElem(p dtype.Ptype, dst []byte, v ScalarResult) {
	switch p {
	case dtype.U8:
		dst[0] = byte(v.Uint)
	case dtype.U16:
		putLeU16(dst, uint16(v.Uint))
	case dtype.U32:
		putLeU32(dst, uint32(v.Uint))
	case dtype.U64:
		putLeU64(dst, v.Uint)
	case dtype.I8:
		dst[0] = byte(v.Int)
	case dtype.I16:
		putLeU16(dst, uint16(int16(v.Int)))
	case dtype.I32:
		putLeU32(dst, uint32(int32(v.Int)))
	case dtype.I64:
		putLeU64(dst, uint64(v.Int))
	case dtype.F32:
		putLeU32(dst, math.Float32bits(float32(v.Float)))
	case dtype.F64:
		putLeU64(dst, math.Float64bits(v.Float))
	default:
		panic(fmt.Sprintf("array: unsupported ptype %v", p))
	}
}

func (primitiveEncoding) Filter(a Array, mask []bool) (Array, error) {
	p := a.dt.Ptype()
	w := p.ByteWidth()
	v := ArrayValidity(a)
	src := a.buffers[0].Bytes()
	out := make([]byte, 0, len(src))
	var validBits []bool
	for i, keep := range mask {
		if !keep {
			continue
		}
		out = append(out, src[i*w:i*w+w]...)
		validBits = append(validBits, v.IsValid(i))
	}
	n := len(out) / w
	return NewPrimitive(a.dt, n, buf.New(out), validity.NewFromBools(validBits)), nil
}

func (primitiveEncoding) Compare(a Array, rhs ScalarResult, op CompareOp) (Array, error) {
	p := a.dt.Ptype()
	v := ArrayValidity(a)
	out := make([]bool, a.length)
	validBits := make([]bool, a.length)
	for i := 0; i < a.length; i++ {
		if !v.IsValid(i) {
			continue
		}
		lhs := readPrimitiveElem(p, a.buffers[0], i)
		c := primitiveCompare(p, lhs, rhs)
		validBits[i] = true
		switch op {
		case Eq:
			out[i] = c == 0
		case NotEq:
			out[i] = c != 0
		case Lt:
			out[i] = c < 0
		case Lte:
			out[i] = c <= 0
		case Gt:
			out[i] = c > 0
		case Gte:
			out[i] = c >= 0
		}
	}
	return NewBoolFromBools(true, out, validity.NewFromBools(validBits)), nil
}

// SearchSorted implements binary search over an ascending primitive array,
// grounded on interval/endpoint_index.go's sort.Search-based SearchPosTypes.
func (primitiveEncoding) SearchSorted(a Array, needle ScalarResult, side SearchSortedSide) (int, bool, error) {
	p := a.dt.Ptype()
	idx := sortSearch(a.length, func(i int) bool {
		v := readPrimitiveElem(p, a.buffers[0], i)
		c := primitiveCompare(p, v, needle)
		if side == Left {
			return c >= 0
		}
		return c > 0
	})
	found := idx < a.length && primitiveCompare(p, readPrimitiveElem(p, a.buffers[0], idx), needle) == 0
	return idx, found, nil
}

func sortSearch(n int, f func(int) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if !f(mid) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// FillForward propagates the most recent non-null value into subsequent
// nulls (spec.md §4.2); a leading run of nulls stays null, and an entirely
// null array becomes all zeros (the type default), all valid.
func (primitiveEncoding) FillForward(a Array) (Array, error) {
	v := ArrayValidity(a)
	if v.Kind() == validity.NonNullable || v.Kind() == validity.AllValid {
		return a, nil
	}
	if v.Kind() == validity.AllInvalid {
		return NewPrimitive(a.dt, a.length, buf.New(make([]byte, len(a.buffers[0].Bytes()))), validity.NewAllValid(a.length)), nil
	}
	p := a.dt.Ptype()
	w := p.ByteWidth()
	src := a.buffers[0].Bytes()
	out := make([]byte, len(src))
	copy(out, src)
	validBits := make([]bool, a.length)
	haveLast := false
	var last []byte
	for i := 0; i < a.length; i++ {
		if v.IsValid(i) {
			last = src[i*w : (i+1)*w]
			haveLast = true
			validBits[i] = true
			continue
		}
		if haveLast {
			copy(out[i*w:(i+1)*w], last)
			validBits[i] = true
		}
	}
	return NewPrimitive(a.dt, a.length, buf.New(out), validity.NewFromBools(validBits)), nil
}

// Cast converts a to another Primitive ptype, widening/narrowing/
// float-converting as needed. Null positions are preserved verbatim.
func (primitiveEncoding) Cast(a Array, to dtype.DType) (Array, error) {
	if to.Kind() != dtype.KindPrimitive {
		return Array{}, errs.New(errs.MismatchedTypes, "array: primitive Cast requires a Primitive target dtype")
	}
	v := ArrayValidity(a)
	w := to.Ptype().ByteWidth()
	out := make([]byte, a.length*w)
	for i := 0; i < a.length; i++ {
		if !v.IsValid(i) {
			continue
		}
		elem := readPrimitiveElem(a.dt.Ptype(), a.buffers[0], i)
		writePrimitiveElem(to.Ptype(), out[i*w:(i+1)*w], castElem(a.dt.Ptype(), to.Ptype(), elem))
	}
	return NewPrimitive(to, a.length, buf.New(out), v), nil
}

func castElem(from, to dtype.Ptype, v ScalarResult) ScalarResult {
	if to.IsFloat() {
		switch {
		case from.IsFloat():
			return ScalarResult{Float: v.Float}
		case from.IsSigned():
			return ScalarResult{Float: float64(v.Int)}
		default:
			return ScalarResult{Float: float64(v.Uint)}
		}
	}
	if to.IsSigned() {
		switch {
		case from.IsFloat():
			return ScalarResult{Int: int64(v.Float)}
		case from.IsSigned():
			return ScalarResult{Int: v.Int}
		default:
			return ScalarResult{Int: int64(v.Uint)}
		}
	}
	switch {
	case from.IsFloat():
		return ScalarResult{Uint: uint64(v.Float)}
	case from.IsSigned():
		return ScalarResult{Uint: uint64(v.Int)}
	default:
		return ScalarResult{Uint: v.Uint}
	}
}

// SubtractScalar computes `a - rhs` element-wise, preserving validity. It is
// the same subtraction codec/forenc's encoder applies against its reference
// value (forenc performs it inline), kept general rather than special-cased
// to unsigned deltas.
func (primitiveEncoding) SubtractScalar(a Array, rhs ScalarResult) (Array, error) {
	p := a.dt.Ptype()
	v := ArrayValidity(a)
	w := p.ByteWidth()
	out := make([]byte, a.length*w)
	for i := 0; i < a.length; i++ {
		if !v.IsValid(i) {
			continue
		}
		lhs := readPrimitiveElem(p, a.buffers[0], i)
		writePrimitiveElem(p, out[i*w:(i+1)*w], subtractElem(p, lhs, rhs))
	}
	return NewPrimitive(a.dt, a.length, buf.New(out), v), nil
}

func subtractElem(p dtype.Ptype, a, b ScalarResult) ScalarResult {
	switch {
	case p.IsFloat():
		return ScalarResult{Float: a.Float - b.Float}
	case p.IsSigned():
		return ScalarResult{Int: a.Int - b.Int}
	default:
		return ScalarResult{Uint: a.Uint - b.Uint}
	}
}
