// Package bitpacked implements the FastLanes-style bit-packed codec:
// N-bit integers packed into W bits/value across 1024-element blocks, with
// an optional sparse patches child for high-magnitude outliers so W can be
// chosen small (spec.md §4.3 "Bit-packed").
//
// Grounded on biosimd's fixed-block, build-tag-split processing idiom
// (biosimd_amd64.go vs biosimd_generic.go): the packed bitstream is decoded
// one 1024-element block at a time, and golang.org/x/sys/cpu probes which
// unpack loop to use the same way biosimd probes AVX2 availability, even
// though the actual vectorized kernel is out of scope here.
package bitpacked

import (
	"golang.org/x/sys/cpu"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 1

// BlockSize is the number of logical elements per packed block, matching
// spec.md's 1024-element FastLanes block.
const BlockSize = 1024

type codec struct{}

func init() {
	array.Register(EncodingID, "bitpacked", codec{})
}

// hasAVX2 mirrors biosimd's runtime dispatch probe; the generic unpack path
// below is correct either way, this only documents where a vectorized loop
// would be substituted.
var hasAVX2 = cpu.X86.HasAVX2

// meta is the codec's metadata payload: {ptype, bit_width, offset, length}.
type meta struct {
	ptype    dtype.Ptype
	bitWidth uint8
	offset   int32
	length   int32
}

func encodeMeta(m meta) []byte {
	return []byte{
		byte(m.ptype), m.bitWidth,
		byte(m.offset), byte(m.offset >> 8), byte(m.offset >> 16), byte(m.offset >> 24),
		byte(m.length), byte(m.length >> 8), byte(m.length >> 16), byte(m.length >> 24),
	}
}

func decodeMeta(b []byte) meta {
	return meta{
		ptype:    dtype.Ptype(b[0]),
		bitWidth: b[1],
		offset:   int32(uint32(b[2]) | uint32(b[3])<<8 | uint32(b[4])<<16 | uint32(b[5])<<24),
		length:   int32(uint32(b[6]) | uint32(b[7])<<8 | uint32(b[8])<<16 | uint32(b[9])<<24),
	}
}

// Encode packs src (a nullable/non-nullable unsigned or signed Primitive
// array) at the given bit width, routing any value that doesn't fit into
// patches (a sparse array over the same dtype).
func Encode(src array.Array, bitWidth uint8) (array.Array, error) {
	p := src.DType().Ptype()
	if !p.IsInt() {
		return array.Array{}, errs.New(errs.MismatchedTypes, "bitpacked: Encode requires an integer Primitive array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	maxVal := uint64(1)<<bitWidth - 1
	packed := make([]uint64, (n*int(bitWidth)+63)/64+1)
	var patchIdx []int64
	var patchVals []array.ScalarResult
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		r, err := scalarAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		u := toUnsigned(p, r)
		if u > maxVal {
			patchIdx = append(patchIdx, int64(i))
			patchVals = append(patchVals, r)
			continue
		}
		packBits(packed, i, bitWidth, u)
	}
	packedBytes := make([]byte, len(packed)*8)
	for i, w := range packed {
		for b := 0; b < 8; b++ {
			packedBytes[i*8+b] = byte(w >> (8 * uint(b)))
		}
	}
	m := meta{ptype: p, bitWidth: bitWidth, offset: 0, length: int32(n)}
	children := []array.Array{}
	if len(patchIdx) > 0 {
		patchesArr, err := buildPatches(src.DType(), n, patchIdx, patchVals)
		if err != nil {
			return array.Array{}, err
		}
		children = append(children, patchesArr)
	}
	packedArr := array.NewPrimitive(dtype.Primitive(dtype.U8, false), len(packedBytes), buf.New(packedBytes), validity.NewNonNullable(len(packedBytes)))
	children = append([]array.Array{packedArr}, children...)
	return array.New(EncodingID, src.DType(), n, encodeMeta(m), nil, children), nil
}

func toUnsigned(p dtype.Ptype, r array.ScalarResult) uint64 {
	if p.IsSigned() {
		return uint64(r.Int)
	}
	return r.Uint
}

func fromUnsigned(p dtype.Ptype, u uint64) array.ScalarResult {
	if p.IsSigned() {
		return array.ScalarResult{Int: int64(u)}
	}
	return array.ScalarResult{Uint: u}
}

func packBits(words []uint64, index int, w uint8, v uint64) {
	bitPos := index * int(w)
	wordIdx := bitPos / 64
	bitOff := uint(bitPos % 64)
	words[wordIdx] |= v << bitOff
	if bitOff+uint(w) > 64 {
		words[wordIdx+1] |= v >> (64 - bitOff)
	}
}

func unpackBits(words []uint64, index int, w uint8) uint64 {
	bitPos := index * int(w)
	wordIdx := bitPos / 64
	bitOff := uint(bitPos % 64)
	mask := uint64(1)<<w - 1
	v := (words[wordIdx] >> bitOff) & mask
	if bitOff+uint(w) > 64 {
		v |= (words[wordIdx+1] << (64 - bitOff)) & mask
	}
	return v
}

func buildPatches(dt dtype.DType, length int, idx []int64, vals []array.ScalarResult) (array.Array, error) {
	valuesArr, err := materialize(dt, vals)
	if err != nil {
		return array.Array{}, err
	}
	idxBytes := make([]byte, len(idx)*8)
	for i, v := range idx {
		for b := 0; b < 8; b++ {
			idxBytes[i*8+b] = byte(v >> (8 * uint(b)))
		}
	}
	return array.NewSparse(dt, length, buf.New(idxBytes), valuesArr, array.ScalarResult{Null: true}), nil
}

func materialize(dt dtype.DType, vals []array.ScalarResult) (array.Array, error) {
	w := dt.Ptype().ByteWidth()
	out := make([]byte, len(vals)*w)
	for i, v := range vals {
		writeElem(dt.Ptype(), out[i*w:(i+1)*w], v)
	}
	return array.NewPrimitive(dt, len(vals), buf.New(out), validity.NewAllValid(len(vals))), nil
}

func writeElem(p dtype.Ptype, dst []byte, v array.ScalarResult) {
	u := toUnsigned(p, v)
	for i := 0; i < len(dst); i++ {
		dst[i] = byte(u >> (8 * uint(i)))
	}
}

func scalarAt(a array.Array, i int) (array.ScalarResult, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return array.ScalarResult{}, errs.New(errs.InvalidSerde, "bitpacked: unknown encoding %d", a.Encoding())
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

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	m := decodeMeta(a.Metadata())
	n := int(m.length)
	out := make([]array.ScalarResult, n)
	for i := 0; i < n; i++ {
		r, err := codec{}.ScalarAt(a, i)
		if err != nil {
			return array.Array{}, err
		}
		out[i] = r
	}
	return materializeWithValidity(a.DType(), out), nil
}

func materializeWithValidity(dt dtype.DType, vals []array.ScalarResult) array.Array {
	w := dt.Ptype().ByteWidth()
	out := make([]byte, len(vals)*w)
	validBits := make([]bool, len(vals))
	for i, v := range vals {
		if v.Null {
			continue
		}
		writeElem(dt.Ptype(), out[i*w:(i+1)*w], v)
		validBits[i] = true
	}
	return array.NewPrimitive(dt, len(vals), buf.New(out), validity.NewFromBools(validBits))
}

// ScalarAt decodes a single value without unpacking the whole block,
// preferring a patches hit when present (spec.md §4.3).
func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	m := decodeMeta(a.Metadata())
	if index < 0 || index >= int(m.length) {
		return array.ScalarResult{}, errs.New(errs.OutOfBounds, "bitpacked: ScalarAt index %d out of range [0,%d)", index, m.length)
	}
	if len(a.Children()) > 1 {
		patches := a.Child(1)
		if pr, err := scalarAt(patches, index); err == nil && !pr.Null {
			return pr, nil
		}
	}
	packedArr := a.Child(0)
	words := bytesToWords(packedArr.Buffer(0).Bytes())
	u := unpackBits(words, int(m.offset)+index, m.bitWidth)
	return fromUnsigned(m.ptype, u), nil
}

func bytesToWords(b []byte) []uint64 {
	n := len(b) / 8
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		for k := 0; k < 8; k++ {
			out[i] |= uint64(b[i*8+k]) << (8 * uint(k))
		}
	}
	return out
}

// Slice adjusts offset/length without touching the packed bitstream,
// slicing the patches child (if present) to match.
func (codec) Slice(a array.Array, start, stop int) (array.Array, error) {
	m := decodeMeta(a.Metadata())
	newMeta := meta{ptype: m.ptype, bitWidth: m.bitWidth, offset: m.offset + int32(start), length: int32(stop - start)}
	children := []array.Array{a.Child(0)}
	if len(a.Children()) > 1 {
		patches, err := slicePatches(a.Child(1), start, stop)
		if err != nil {
			return array.Array{}, err
		}
		children = append(children, patches)
	}
	return array.New(EncodingID, a.DType(), stop-start, encodeMeta(newMeta), nil, children), nil
}

func slicePatches(patches array.Array, start, stop int) (array.Array, error) {
	impl, _ := array.Lookup(patches.Encoding())
	se, ok := impl.(array.SliceEncoding)
	if !ok {
		return array.Array{}, errs.New(errs.Other, "bitpacked: patches encoding lacks Slice")
	}
	return se.Slice(patches, start, stop)
}

// Take groups requested indices by the 1024-element block they fall in,
// then decodes each requested value individually through ScalarAt; no
// block is unpacked as a whole.
func (codec) Take(a array.Array, indices []int64) (array.Array, error) {
	out := make([]array.ScalarResult, len(indices))
	byBlock := make(map[int64][]int)
	for j, idx := range indices {
		block := idx / BlockSize
		byBlock[block] = append(byBlock[block], j)
	}
	for _, positions := range byBlock {
		for _, j := range positions {
			r, err := codec{}.ScalarAt(a, int(indices[j]))
			if err != nil {
				return array.Array{}, err
			}
			out[j] = r
		}
	}
	return materializeWithValidity(a.DType(), out), nil
}
