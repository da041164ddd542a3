package array

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/grailbio/base/bitset"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// boolEncoding implements the canonical "bool" encoding: a packed bitmap
// buffer (1 bit/value, little-endian within each byte) plus a validity
// metadata tag/bitmap identical in shape to primitiveEncoding's. Grounded on
// circular.Bitmap's packed-word bitmap representation, narrowed from 2-D
// circular storage to a flat one-shot buffer.
type boolEncoding struct{}

func init() {
	Register(EncodingBool, "bool", boolEncoding{})
}

// NewBool builds a canonical bool Array from a packed bitmap (1 = true).
func NewBool(nullable bool, length int, bits buf.Buffer, valid validity.Validity) Array {
	want := int64((length + 7) / 8)
	if bits.NBytes() != want {
		panic(fmt.Sprintf("array: bool bitmap has %d bytes, want %d", bits.NBytes(), want))
	}
	tag, bitmap := packValidity(valid)
	buffers := []buf.Buffer{bits}
	if bitmap != nil {
		buffers = append(buffers, *bitmap)
	}
	return New(EncodingBool, dtype.Bool(nullable), length, []byte{tag}, buffers, nil)
}

// NewBoolFromBools is a convenience constructor for tests and small literals.
func NewBoolFromBools(nullable bool, vals []bool, valid validity.Validity) Array {
	bits := make([]byte, (len(vals)+7)/8)
	for i, v := range vals {
		if v {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	return NewBool(nullable, len(vals), buf.New(bits), valid)
}

func boolBit(b []byte, i int) bool {
	return b[i/8]&(1<<uint(i%8)) != 0
}

func (boolEncoding) Canonicalize(a Array) (Array, error) {
	return a, nil
}

func (boolEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	if !ArrayValidity(a).IsValid(index) {
		return ScalarResult{Null: true}, nil
	}
	return ScalarResult{Bool: boolBit(a.buffers[0].Bytes(), index)}, nil
}

func (boolEncoding) Slice(a Array, start, stop int) (Array, error) {
	n := stop - start
	src := a.buffers[0].Bytes()
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if boolBit(src, start+i) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	v := ArrayValidity(a).Slice(start, stop)
	return NewBool(a.dt.Nullable(), n, buf.New(out), v), nil
}

func (boolEncoding) Take(a Array, indices []int64) (Array, error) {
	src := a.buffers[0].Bytes()
	v := ArrayValidity(a)
	out := make([]byte, (len(indices)+7)/8)
	validBits := make([]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || int(idx) >= a.length {
			return Array{}, errs.New(errs.OutOfBounds, "array: Take index %d out of bounds [0,%d)", idx, a.length)
		}
		if boolBit(src, int(idx)) {
			out[i/8] |= 1 << uint(i%8)
		}
		validBits[i] = v.IsValid(int(idx))
	}
	return NewBool(a.dt.Nullable(), len(indices), buf.New(out), validity.NewFromBools(validBits)), nil
}

func (boolEncoding) Filter(a Array, mask []bool) (Array, error) {
	src := a.buffers[0].Bytes()
	v := ArrayValidity(a)
	n := 0
	for _, keep := range mask {
		if keep {
			n++
		}
	}
	out := make([]byte, (n+7)/8)
	validBits := make([]bool, 0, n)
	j := 0
	for i, keep := range mask {
		if !keep {
			continue
		}
		if boolBit(src, i) {
			out[j/8] |= 1 << uint(j%8)
		}
		validBits = append(validBits, v.IsValid(i))
		j++
	}
	return NewBool(a.dt.Nullable(), n, buf.New(out), validity.NewFromBools(validBits)), nil
}

// TrueIndices returns the positions of set bits in the array's bitmap
// (ignoring validity), turning a bool-array result into an index list. It is
// exported; no package in this module calls it.
//
// Grounded on circular.Bitmap.NewRowScanner: a bitset.NonzeroWordScanner
// walks only the nonzero machine words of the bitmap, yielding each set
// bit's column index via repeated Next() calls until -1. Bitmap maintains
// its nonzero-word population incrementally as bits flip; a one-shot bool
// array instead computes it with a single pass over the words up front.
func TrueIndices(a Array) []int {
	wordSize := int(unsafe.Sizeof(uintptr(0)))
	raw := a.buffers[0].Bytes()
	padded := raw
	if len(raw)%wordSize != 0 {
		padded = make([]byte, ((len(raw)/wordSize)+1)*wordSize)
		copy(padded, raw)
	}
	words := buf.Reinterpret[uintptr](buf.New(padded), wordSize)
	nzwPop := 0
	for _, w := range words {
		if w != 0 {
			nzwPop++
		}
	}
	scanner := bitset.NewNonzeroWordScanner(words, nzwPop)
	var out []int
	for col := scanner.Next(); col != -1; col = scanner.Next() {
		if col < a.length {
			out = append(out, col)
		}
	}
	return out
}

// countSetBits is a plain popcount over bitmap words, giving a count rather
// than positions without the scanner's per-bit iteration cost. Nothing in
// the package calls it.
func countSetBits(words []uintptr) int {
	n := 0
	for _, w := range words {
		n += bits.OnesCount64(uint64(w))
	}
	return n
}

// FillForward implements the canonical null-propagation exposed as a
// compute op (spec.md §4.2): each null index takes the most recent non-null
// value preceding it; a leading run of nulls stays null, and an entirely
// null array becomes all false (the type default), all valid.
func (boolEncoding) FillForward(a Array) (Array, error) {
	v := ArrayValidity(a)
	if v.Kind() == validity.NonNullable || v.Kind() == validity.AllValid {
		return a, nil
	}
	if v.Kind() == validity.AllInvalid {
		return NewBool(a.dt.Nullable(), a.length, buf.New(make([]byte, len(a.buffers[0].Bytes()))), validity.NewAllValid(a.length)), nil
	}
	src := a.buffers[0].Bytes()
	out := make([]byte, len(src))
	copy(out, src)
	validBits := make([]bool, a.length)
	haveLast := false
	var last bool
	for i := 0; i < a.length; i++ {
		if v.IsValid(i) {
			last = boolBit(src, i)
			haveLast = true
			validBits[i] = true
			continue
		}
		if haveLast {
			if last {
				out[i/8] |= 1 << uint(i%8)
			} else {
				out[i/8] &^= 1 << uint(i%8)
			}
			validBits[i] = true
		}
	}
	return NewBool(a.dt.Nullable(), a.length, buf.New(out), validity.NewFromBools(validBits)), nil
}
