// Package alprd implements ALP-RD (real doubles): a complementary scheme
// to codec/alp for floats whose values don't compress well under the
// decimal-scaling approach (spec.md §4.3 "ALP-RD: a complementary scheme
// for floats that don't ALP-compress well; same external interface").
//
// ALP-RD splits each float's raw bit pattern into a narrow "left parts"
// prefix and a wide "right parts" suffix. The left parts, which take only
// a handful of distinct values in real-world float columns, are
// dictionary-coded against a small trained dictionary; left patterns that
// fall outside the dictionary go to a sparse patches child exactly like
// codec/alp's inexact values, keeping exceptions rare by construction.
//
// Grounded on codec/dict's values+codes dictionary shape (reused verbatim
// for the left-parts split) and codec/bitpacked's sparse-patches-for-
// outliers idiom for the dictionary-miss exceptions.
package alprd

import (
	"math"
	"sort"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 8

type codec struct{}

func init() {
	array.Register(EncodingID, "alprd", codec{})
}

// leftBitWidth is the width of the dictionary-coded prefix. 16 bits gives
// a dictionary domain small enough to train cheaply while still capturing
// the handful of distinct exponent/sign patterns typical float columns
// exhibit.
const leftBitWidth = 16

type meta struct {
	ptype   dtype.Ptype
	dictLen uint16
}

func encodeMeta(m meta) []byte {
	return []byte{byte(m.ptype), byte(m.dictLen), byte(m.dictLen >> 8)}
}

func decodeMeta(b []byte) meta {
	return meta{ptype: dtype.Ptype(b[0]), dictLen: uint16(b[1]) | uint16(b[2])<<8}
}

func bitsOf(ptype dtype.Ptype, v float64) uint64 {
	if ptype == dtype.F32 {
		return uint64(math.Float32bits(float32(v)))
	}
	return math.Float64bits(v)
}

func floatFromBits(ptype dtype.Ptype, bits uint64) float64 {
	if ptype == dtype.F32 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

func totalBits(ptype dtype.Ptype) uint {
	if ptype == dtype.F32 {
		return 32
	}
	return 64
}

func split(ptype dtype.Ptype, bits uint64) (left uint16, right uint64) {
	rightWidth := totalBits(ptype) - leftBitWidth
	right = bits & (uint64(1)<<rightWidth - 1)
	left = uint16(bits >> rightWidth)
	return
}

func join(ptype dtype.Ptype, left uint16, right uint64) uint64 {
	rightWidth := totalBits(ptype) - leftBitWidth
	return uint64(left)<<rightWidth | right
}

// Encode builds an ALP-RD-coded Array from src, a Primitive f32/f64 array.
func Encode(src array.Array) (array.Array, error) {
	ptype := src.DType().Ptype()
	if ptype != dtype.F32 && ptype != dtype.F64 {
		return array.Array{}, errs.New(errs.MismatchedTypes, "alprd: Encode requires a f32 or f64 array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	lefts := make([]uint16, n)
	rights := make([]uint64, n)
	freq := make(map[uint16]int)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		v, err := floatAt(src, ptype, i)
		if err != nil {
			return array.Array{}, err
		}
		l, r := split(ptype, bitsOf(ptype, v))
		lefts[i] = l
		rights[i] = r
		freq[l]++
	}

	type kv struct {
		left  uint16
		count int
	}
	var distinct []kv
	for l, c := range freq {
		distinct = append(distinct, kv{l, c})
	}
	sort.Slice(distinct, func(i, j int) bool {
		if distinct[i].count != distinct[j].count {
			return distinct[i].count > distinct[j].count
		}
		return distinct[i].left < distinct[j].left
	})
	const maxDict = 256
	if len(distinct) > maxDict {
		distinct = distinct[:maxDict]
	}
	dictIndex := make(map[uint16]int, len(distinct))
	dict := make([]uint16, len(distinct))
	for i, e := range distinct {
		dict[i] = e.left
		dictIndex[e.left] = i
	}

	codes := make([]uint16, n)
	rightBytes := make([]byte, n*8)
	var patchIdx []int64
	var patchVals []float64
	validBits := make([]bool, n)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		validBits[i] = true
		for k := 0; k < 8; k++ {
			rightBytes[i*8+k] = byte(rights[i] >> (8 * uint(k)))
		}
		if idx, ok := dictIndex[lefts[i]]; ok {
			codes[i] = uint16(idx)
		} else {
			patchIdx = append(patchIdx, int64(i))
			patchVals = append(patchVals, floatFromBits(ptype, join(ptype, lefts[i], rights[i])))
		}
	}

	dictBytes := make([]byte, len(dict)*2)
	for i, l := range dict {
		dictBytes[i*2] = byte(l)
		dictBytes[i*2+1] = byte(l >> 8)
	}
	dictArr := array.NewPrimitive(dtype.Primitive(dtype.U16, false), len(dict), buf.New(dictBytes), validity.NewNonNullable(len(dict)))
	codesBytes := make([]byte, n*2)
	for i, c := range codes {
		codesBytes[i*2] = byte(c)
		codesBytes[i*2+1] = byte(c >> 8)
	}
	codesArr := array.NewPrimitive(dtype.Primitive(dtype.U16, true), n, buf.New(codesBytes), validity.NewFromBools(validBits))
	rightArr := array.NewPrimitive(dtype.Primitive(dtype.U64, true), n, buf.New(rightBytes), validity.NewFromBools(validBits))

	children := []array.Array{dictArr, codesArr, rightArr}
	if len(patchIdx) > 0 {
		children = append(children, buildPatches(src.DType(), n, ptype, patchIdx, patchVals))
	}
	m := meta{ptype: ptype, dictLen: uint16(len(dict))}
	return array.New(EncodingID, src.DType(), n, encodeMeta(m), nil, children), nil
}

func floatAt(a array.Array, ptype dtype.Ptype, i int) (float64, error) {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(a)
		if err != nil {
			return 0, err
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, err := sae.ScalarAt(a, i)
	if err != nil {
		return 0, err
	}
	return r.Float, nil
}

func writeFloat(ptype dtype.Ptype, dst []byte, v float64) {
	if ptype == dtype.F32 {
		u := math.Float32bits(float32(v))
		for i := 0; i < 4; i++ {
			dst[i] = byte(u >> (8 * uint(i)))
		}
		return
	}
	u := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(u >> (8 * uint(i)))
	}
}

func buildPatches(dt dtype.DType, length int, ptype dtype.Ptype, idx []int64, vals []float64) array.Array {
	w := ptype.ByteWidth()
	out := make([]byte, len(vals)*w)
	for i, v := range vals {
		writeFloat(ptype, out[i*w:(i+1)*w], v)
	}
	valuesArr := array.NewPrimitive(dt, len(vals), buf.New(out), validity.NewAllValid(len(vals)))
	idxBytes := make([]byte, len(idx)*8)
	for i, v := range idx {
		for k := 0; k < 8; k++ {
			idxBytes[i*8+k] = byte(v >> (8 * uint(k)))
		}
	}
	return array.NewSparse(dt, length, buf.New(idxBytes), valuesArr, array.ScalarResult{Null: true})
}

func u16At(a array.Array, i int) (uint16, bool, error) {
	r, err := scalarAtOf(a, i)
	if err != nil {
		return 0, false, err
	}
	return uint16(r.Uint), !r.Null, nil
}

func u64At(a array.Array, i int) (uint64, error) {
	r, err := scalarAtOf(a, i)
	if err != nil {
		return 0, err
	}
	return r.Uint, nil
}

func scalarAtOf(a array.Array, i int) (array.ScalarResult, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return array.ScalarResult{}, errs.New(errs.InvalidSerde, "alprd: unknown encoding %d", a.Encoding())
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

func (c codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	m := decodeMeta(a.Metadata())
	if a.NumChildren() > 3 {
		patches := a.Child(3)
		if r, err := scalarAtOf(patches, index); err == nil && !r.Null {
			return r, nil
		}
	}
	codesArr := a.Child(1)
	code, ok, err := u16At(codesArr, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	if !ok {
		return array.ScalarResult{Null: true}, nil
	}
	dict := a.Child(0)
	left, err := u64At(dict, int(code))
	if err != nil {
		return array.ScalarResult{}, err
	}
	rightArr := a.Child(2)
	right, err := u64At(rightArr, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	return array.ScalarResult{Float: floatFromBits(m.ptype, join(m.ptype, uint16(left), right))}, nil
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	m := decodeMeta(a.Metadata())
	n := a.Len()
	w := m.ptype.ByteWidth()
	out := make([]byte, n*w)
	validBits := make([]bool, n)
	for i := 0; i < n; i++ {
		r, err := codec{}.ScalarAt(a, i)
		if err != nil {
			return array.Array{}, err
		}
		if r.Null {
			continue
		}
		writeFloat(m.ptype, out[i*w:(i+1)*w], r.Float)
		validBits[i] = true
	}
	return array.NewPrimitive(a.DType(), n, buf.New(out), validity.NewFromBools(validBits)), nil
}
