// Package forenc implements the Frame-of-Reference codec: each value is
// stored as `(value - reference) >> shift`, narrowing to an unsigned
// primitive of smaller width (spec.md §4.3 "Frame-of-Reference (FoR)").
//
// Grounded on fieldio.PutVarintDeltaField/PutCoordField's "delta against a
// running reference" idiom, specialized here to a single fixed reference
// for the whole array rather than a running one (that scheme is
// codec/delta's job).
package forenc

import (
	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 2

type codec struct{}

func init() {
	array.Register(EncodingID, "forenc", codec{})
}

type meta struct {
	reference int64
	shift     uint8
}

func encodeMeta(m meta) []byte {
	r := uint64(m.reference)
	b := make([]byte, 9)
	for i := 0; i < 8; i++ {
		b[i] = byte(r >> (8 * uint(i)))
	}
	b[8] = m.shift
	return b
}

func decodeMeta(b []byte) meta {
	var r uint64
	for i := 0; i < 8; i++ {
		r |= uint64(b[i]) << (8 * uint(i))
	}
	return meta{reference: int64(r), shift: b[8]}
}

// Encode builds a FoR-coded Array. reference is subtracted from every
// value before right-shifting by shift; narrowTo picks the encoded child's
// storage width.
func Encode(src array.Array, reference int64, shift uint8, narrowTo dtype.Ptype) (array.Array, error) {
	p := src.DType().Ptype()
	if !p.IsInt() {
		return array.Array{}, errs.New(errs.MismatchedTypes, "forenc: Encode requires an integer Primitive array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	w := narrowTo.ByteWidth()
	out := make([]byte, n*w)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		r, err := scalarAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		v := toInt64(p, r)
		narrowed := uint64(v-reference) >> shift
		writeUnsigned(narrowTo, out[i*w:(i+1)*w], narrowed)
	}
	encoded := array.NewPrimitive(dtype.Primitive(narrowTo, false), n, buf.New(out), validity.NewNonNullable(n))
	m := meta{reference: reference, shift: shift}
	return array.New(EncodingID, src.DType(), n, encodeMeta(m), nil, []array.Array{encoded}), nil
}

func toInt64(p dtype.Ptype, r array.ScalarResult) int64 {
	if p.IsSigned() {
		return r.Int
	}
	return int64(r.Uint)
}

func writeUnsigned(p dtype.Ptype, dst []byte, v uint64) {
	for i := 0; i < len(dst); i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
	_ = p
}

func scalarAt(a array.Array, i int) (array.ScalarResult, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return array.ScalarResult{}, errs.New(errs.InvalidSerde, "forenc: unknown encoding %d", a.Encoding())
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

func decodeValue(p dtype.Ptype, m meta, narrowed uint64) array.ScalarResult {
	wrapped := int64(narrowed<<m.shift) + m.reference
	if p.IsSigned() {
		return array.ScalarResult{Int: wrapped}
	}
	return array.ScalarResult{Uint: uint64(wrapped)}
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	m := decodeMeta(a.Metadata())
	child := a.Child(0)
	p := a.DType().Ptype()
	n := a.Len()
	w := p.ByteWidth()
	out := make([]byte, n*w)
	validBits := make([]bool, n)
	childValid := array.ArrayValidity(child)
	for i := 0; i < n; i++ {
		if !childValid.IsValid(i) {
			continue
		}
		r, err := scalarAt(child, i)
		if err != nil {
			return array.Array{}, err
		}
		dec := decodeValue(p, m, r.Uint)
		writeSignedOrUnsigned(p, out[i*w:(i+1)*w], dec)
		validBits[i] = true
	}
	return array.NewPrimitive(a.DType(), n, buf.New(out), validity.NewFromBools(validBits)), nil
}

func writeSignedOrUnsigned(p dtype.Ptype, dst []byte, v array.ScalarResult) {
	var u uint64
	if p.IsSigned() {
		u = uint64(v.Int)
	} else {
		u = v.Uint
	}
	for i := 0; i < len(dst); i++ {
		dst[i] = byte(u >> (8 * uint(i)))
	}
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	m := decodeMeta(a.Metadata())
	child := a.Child(0)
	r, err := scalarAt(child, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	if r.Null {
		return r, nil
	}
	return decodeValue(a.DType().Ptype(), m, r.Uint), nil
}

// SubtractScalar is FoR's own decode step generalized: subtracting a
// further scalar from an already-decoded view reuses Canonicalize then
// the canonical primitive's SubtractScalar.
func (codec) SubtractScalar(a array.Array, rhs array.ScalarResult) (array.Array, error) {
	canon, err := codec{}.Canonicalize(a)
	if err != nil {
		return array.Array{}, err
	}
	impl, _ := array.Lookup(canon.Encoding())
	sse, ok := impl.(array.SubtractScalarEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "forenc: canonical encoding lacks SubtractScalar")
	}
	return sse.SubtractScalar(canon, rhs)
}
