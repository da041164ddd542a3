package array

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// varBinEncoding implements the canonical "varbin" encoding shared by Utf8
// and Binary dtypes: an `offsets[len+1]` i32 buffer of non-decreasing byte
// offsets into a single `data` buffer, plus the usual validity tag/bitmap.
// Grounded on PAM's variable-length field layout (an offset table paired
// with a flat byte blob) generalized from BAM record fields to any
// variable-length column.
type varBinEncoding struct{}

func init() {
	Register(EncodingVarBin, "varbin", varBinEncoding{})
}

// NewVarBin builds a canonical varbin Array. offsets must have length+1
// entries, non-decreasing, with offsets[0]==0 and offsets[length]==len(data).
func NewVarBin(dt dtype.DType, length int, offsets buf.Buffer, data buf.Buffer, valid validity.Validity) Array {
	if dt.Kind() != dtype.KindUtf8 && dt.Kind() != dtype.KindBinary {
		panic("array: NewVarBin requires a Utf8 or Binary dtype")
	}
	offs := buf.Reinterpret[int32](offsets, 4)
	if len(offs) != length+1 {
		panic(fmt.Sprintf("array: varbin offsets has %d entries, want %d", len(offs), length+1))
	}
	for i := 1; i < len(offs); i++ {
		if offs[i] < offs[i-1] {
			panic("array: varbin offsets must be non-decreasing")
		}
	}
	tag, bitmap := packValidity(valid)
	buffers := []buf.Buffer{offsets, data}
	if bitmap != nil {
		buffers = append(buffers, *bitmap)
	}
	return New(EncodingVarBin, dt, length, []byte{tag}, buffers, nil)
}

// NewUtf8FromStrings is a convenience constructor for tests and small
// literals, all non-null.
func NewUtf8FromStrings(vals []string) Array {
	offs := make([]int32, len(vals)+1)
	var data bytes.Buffer
	for i, v := range vals {
		data.WriteString(v)
		offs[i+1] = int32(data.Len())
	}
	offBytes := make([]byte, 4*len(offs))
	for i, o := range offs {
		binary.LittleEndian.PutUint32(offBytes[4*i:], uint32(o))
	}
	return NewVarBin(dtype.Utf8(false), len(vals), buf.New(offBytes), buf.New(data.Bytes()), validity.NewNonNullable(len(vals)))
}

func varBinSlice(a Array, i int) []byte {
	offs := buf.Reinterpret[int32](a.buffers[0], 4)
	data := a.buffers[1].Bytes()
	return data[offs[i]:offs[i+1]]
}

func (varBinEncoding) Canonicalize(a Array) (Array, error) {
	return a, nil
}

func (varBinEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	if !ArrayValidity(a).IsValid(index) {
		return ScalarResult{Null: true}, nil
	}
	return ScalarResult{Bytes: varBinSlice(a, index)}, nil
}

func (varBinEncoding) Slice(a Array, start, stop int) (Array, error) {
	offs := buf.Reinterpret[int32](a.buffers[0], 4)
	base := offs[start]
	n := stop - start
	newOffs := make([]int32, n+1)
	for i := 0; i <= n; i++ {
		newOffs[i] = offs[start+i] - base
	}
	data := a.buffers[1].Slice(int(base), int(offs[stop]))
	v := ArrayValidity(a).Slice(start, stop)
	return NewVarBin(a.dt, n, buf.FromSlice(newOffs), data, v), nil
}

func (varBinEncoding) Take(a Array, indices []int64) (Array, error) {
	v := ArrayValidity(a)
	newOffs := make([]int32, len(indices)+1)
	var out bytes.Buffer
	validBits := make([]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || int(idx) >= a.length {
			return Array{}, errs.New(errs.OutOfBounds, "array: Take index %d out of bounds [0,%d)", idx, a.length)
		}
		out.Write(varBinSlice(a, int(idx)))
		newOffs[i+1] = int32(out.Len())
		validBits[i] = v.IsValid(int(idx))
	}
	return NewVarBin(a.dt, len(indices), buf.FromSlice(newOffs), buf.New(out.Bytes()), validity.NewFromBools(validBits)), nil
}

func (varBinEncoding) Filter(a Array, mask []bool) (Array, error) {
	v := ArrayValidity(a)
	newOffs := []int32{0}
	var out bytes.Buffer
	var validBits []bool
	for i, keep := range mask {
		if !keep {
			continue
		}
		out.Write(varBinSlice(a, i))
		newOffs = append(newOffs, int32(out.Len()))
		validBits = append(validBits, v.IsValid(i))
	}
	return NewVarBin(a.dt, len(newOffs)-1, buf.FromSlice(newOffs), buf.New(out.Bytes()), validity.NewFromBools(validBits)), nil
}

// Compare implements lexicographic byte comparison against a scalar needle,
// producing a canonical bool result (spec.md §4's universal Compare op).
func (varBinEncoding) Compare(a Array, rhs ScalarResult, op CompareOp) (Array, error) {
	v := ArrayValidity(a)
	out := make([]bool, a.length)
	validBits := make([]bool, a.length)
	for i := 0; i < a.length; i++ {
		if !v.IsValid(i) {
			continue
		}
		c := bytes.Compare(varBinSlice(a, i), rhs.Bytes)
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
