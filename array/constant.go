package array

import (
	"bytes"
	"fmt"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// constantEncoding implements the canonical "constant" encoding: a single
// Scalar repeated length times, stored entirely in metadata (no buffers).
// Grounded on PAM's run-length-encoded field values (a field whose value is
// identical across an entire shard is written once with a repeat count),
// generalized to an explicit standalone encoding rather than a storage
// optimization buried in the field codec.
type constantEncoding struct{}

func init() {
	Register(EncodingConstant, "constant", constantEncoding{})
}

// NewConstant builds a canonical constant Array. A null value is represented
// by value.Null == true, matching scalar.Scalar's own null representation.
func NewConstant(dt dtype.DType, length int, value ScalarResult) Array {
	meta := encodeScalarResult(dt, value)
	return New(EncodingConstant, dt, length, meta, nil, nil)
}

// constantValue decodes the repeated scalar back out of a constant Array's
// metadata.
func constantValue(a Array) ScalarResult {
	return decodeScalarResult(a.dt, a.metadata)
}

func encodeScalarResult(dt dtype.DType, v ScalarResult) []byte {
	if v.Null {
		return []byte{1}
	}
	switch dt.Kind() {
	case dtype.KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return []byte{0, b}
	case dtype.KindPrimitive:
		w := dt.Ptype().ByteWidth()
		out := make([]byte, 1+w)
		writePrimitiveElem(dt.Ptype(), out[1:], v)
		return out
	case dtype.KindUtf8, dtype.KindBinary:
		out := make([]byte, 1+len(v.Bytes))
		copy(out[1:], v.Bytes)
		return out
	default:
		panic(fmt.Sprintf("array: constant encoding unsupported for dtype kind %v", dt.Kind()))
	}
}

func decodeScalarResult(dt dtype.DType, meta []byte) ScalarResult {
	if len(meta) == 0 || meta[0] == 1 {
		return ScalarResult{Null: true}
	}
	switch dt.Kind() {
	case dtype.KindBool:
		return ScalarResult{Bool: meta[1] != 0}
	case dtype.KindPrimitive:
		return readPrimitiveElemBytes(dt.Ptype(), meta[1:])
	case dtype.KindUtf8, dtype.KindBinary:
		return ScalarResult{Bytes: meta[1:]}
	default:
		panic(fmt.Sprintf("array: constant encoding unsupported for dtype kind %v", dt.Kind()))
	}
}

func readPrimitiveElemBytes(p dtype.Ptype, data []byte) ScalarResult {
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

// Canonicalize materializes a constant array into the canonical encoding of
// its dtype: a primitive/bool/varbin buffer with every element equal.
func (constantEncoding) Canonicalize(a Array) (Array, error) {
	v := constantValue(a)
	switch a.dt.Kind() {
	case dtype.KindPrimitive:
		w := a.dt.Ptype().ByteWidth()
		out := make([]byte, a.length*w)
		if !v.Null {
			for i := 0; i < a.length; i++ {
				writePrimitiveElem(a.dt.Ptype(), out[i*w:(i+1)*w], v)
			}
		}
		valid := constantValidity(a.dt, a.length, v.Null)
		return NewPrimitive(a.dt, a.length, buf.New(out), valid), nil
	case dtype.KindBool:
		vals := make([]bool, a.length)
		for i := range vals {
			vals[i] = v.Bool
		}
		valid := constantValidity(a.dt, a.length, v.Null)
		return NewBoolFromBools(a.dt.Nullable(), vals, valid), nil
	case dtype.KindUtf8, dtype.KindBinary:
		offs := make([]int32, a.length+1)
		var data []byte
		if !v.Null {
			for i := 0; i < a.length; i++ {
				data = append(data, v.Bytes...)
				offs[i+1] = int32(len(data))
			}
		}
		valid := constantValidity(a.dt, a.length, v.Null)
		return NewVarBin(a.dt, a.length, buf.FromSlice(offs), buf.New(data), valid), nil
	default:
		return Array{}, errs.New(errs.MismatchedTypes, "array: constant canonicalization unsupported for dtype kind %v", a.dt.Kind())
	}
}

func (constantEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	return constantValue(a), nil
}

func (constantEncoding) Slice(a Array, start, stop int) (Array, error) {
	return NewConstant(a.dt, stop-start, constantValue(a)), nil
}

func (constantEncoding) Take(a Array, indices []int64) (Array, error) {
	for _, idx := range indices {
		if idx < 0 || int(idx) >= a.length {
			return Array{}, errs.New(errs.OutOfBounds, "array: Take index %d out of bounds [0,%d)", idx, a.length)
		}
	}
	return NewConstant(a.dt, len(indices), constantValue(a)), nil
}

func (constantEncoding) Compare(a Array, rhs ScalarResult, op CompareOp) (Array, error) {
	v := constantValue(a)
	result := compareScalarResults(a.dt, v, rhs, op)
	return NewConstant(dtype.Bool(true), a.length, result), nil
}

func constantValidity(dt dtype.DType, length int, isNull bool) validity.Validity {
	if !dt.Nullable() {
		return validity.NewNonNullable(length)
	}
	if isNull {
		return validity.NewAllInvalid(length)
	}
	return validity.NewAllValid(length)
}

// compareScalarResults evaluates a single comparison op between two scalar
// values of the same dtype, used by the constant encoding's Compare fast
// path (constant-folds without ever materializing an array).
func compareScalarResults(dt dtype.DType, lhs, rhs ScalarResult, op CompareOp) ScalarResult {
	if lhs.Null || rhs.Null {
		return ScalarResult{Null: true}
	}
	var c int
	switch dt.Kind() {
	case dtype.KindBool:
		c = boolCompare(lhs.Bool, rhs.Bool)
	case dtype.KindPrimitive:
		c = primitiveCompare(dt.Ptype(), lhs, rhs)
	case dtype.KindUtf8, dtype.KindBinary:
		c = bytes.Compare(lhs.Bytes, rhs.Bytes)
	default:
		panic(fmt.Sprintf("array: compare unsupported for dtype kind %v", dt.Kind()))
	}
	var result bool
	switch op {
	case Eq:
		result = c == 0
	case NotEq:
		result = c != 0
	case Lt:
		result = c < 0
	case Lte:
		result = c <= 0
	case Gt:
		result = c > 0
	case Gte:
		result = c >= 0
	}
	return ScalarResult{Bool: result}
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func primitiveCompare(p dtype.Ptype, a, b ScalarResult) int {
	if p.IsFloat() {
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	}
	if p.IsSigned() {
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.Uint < b.Uint:
		return -1
	case a.Uint > b.Uint:
		return 1
	default:
		return 0
	}
}
