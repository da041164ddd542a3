// Package bytebool implements ByteBool: a canonical-adjacent alternative to
// packed Bool that stores one byte per value instead of one bit, trading
// size for the fast unaligned-load friendly layout some compute kernels
// prefer over bit twiddling (spec.md §4.3 codec list: "byte-bool").
//
// Grounded on array/boolarr.go's packed-bitmap canonical Bool, generalized
// from 1 bit/value to 1 byte/value the way codec/zigzag is a pure
// data-layout transform with no metadata beyond the dtype switch.
package bytebool

import (
	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 12

type codec struct{}

func init() {
	array.Register(EncodingID, "bytebool", codec{})
}

// Encode widens src's packed bitmap into one byte per value (0x01/0x00).
func Encode(src array.Array) (array.Array, error) {
	if src.DType().Kind() != dtype.KindBool {
		return array.Array{}, errs.New(errs.MismatchedTypes, "bytebool: Encode requires a Bool array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	out := make([]byte, n)
	validBits := make([]bool, n)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		b, err := boolAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		if b {
			out[i] = 1
		}
		validBits[i] = true
	}
	return array.New(EncodingID, src.DType(), n, nil, []buf.Buffer{buf.New(out), packValidity(validBits)}, nil), nil
}

func boolAt(a array.Array, i int) (bool, error) {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(a)
		if err != nil {
			return false, err
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, err := sae.ScalarAt(a, i)
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func packValidity(bits []bool) buf.Buffer {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return buf.New(out)
}

func unpackValidity(buffer buf.Buffer, n int) validity.Validity {
	bits := make([]bool, n)
	data := buffer.Bytes()
	for i := 0; i < n; i++ {
		bits[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return validity.NewFromBools(bits)
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	n := a.Len()
	data := a.Buffer(0).Bytes()
	valid := unpackValidity(a.Buffer(1), n)
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = data[i] != 0
	}
	return array.NewBoolFromBools(a.DType().Nullable(), out, valid), nil
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	n := a.Len()
	valid := unpackValidity(a.Buffer(1), n)
	if !valid.IsValid(index) {
		return array.ScalarResult{Null: true}, nil
	}
	return array.ScalarResult{Bool: a.Buffer(0).Bytes()[index] != 0}, nil
}

func (codec) Slice(a array.Array, start, stop int) (array.Array, error) {
	n := stop - start
	data := a.Buffer(0).Slice(start, stop)
	valid := unpackValidity(a.Buffer(1), a.Len())
	validBits := make([]bool, n)
	for i := 0; i < n; i++ {
		validBits[i] = valid.IsValid(start + i)
	}
	return array.New(EncodingID, a.DType(), n, nil, []buf.Buffer{data, packValidity(validBits)}, nil), nil
}
