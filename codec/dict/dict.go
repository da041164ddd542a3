// Package dict implements the Dictionary codec: a `values` child of k
// distinct values paired with a `codes` child of unsigned codes indexing
// into it. For nullable Utf8/Binary dictionaries, code 0 is a reserved
// NULL sentinel (spec.md §4.3 "Dictionary", resolving Open Question (c) in
// spec.md's ambiguity list: the sentinel applies only to nullable
// Utf8/Binary dicts, never to non-nullable data or non-string dtypes).
//
// Grounded on fieldio.PutStringDeltaField's values/codes split idea,
// generalized to a full dictionary; go-farm (also used by package stats
// for distinct-value hashing) powers the build-side hash lookup of
// already-seen values so encoding is linear rather than quadratic.
package dict

import (
	farm "github.com/dgryski/go-farm"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 4

type codec struct{}

func init() {
	array.Register(EncodingID, "dict", codec{})
}

// nullSentinelCode is the reserved code meaning NULL in a nullable
// Utf8/Binary dictionary.
const nullSentinelCode = 0

func isSentineled(dt dtype.DType) bool {
	return dt.Nullable() && (dt.Kind() == dtype.KindUtf8 || dt.Kind() == dtype.KindBinary)
}

// Encode builds a Dictionary-coded Array from src, whose dtype must be
// Utf8 or Binary (the canonical corpus this codec targets per spec.md's
// candidate set — compressors gate on can_compress before selecting it).
func Encode(src array.Array) (array.Array, error) {
	dt := src.DType()
	if dt.Kind() != dtype.KindUtf8 && dt.Kind() != dtype.KindBinary {
		return array.Array{}, errs.New(errs.MismatchedTypes, "dict: Encode requires a Utf8 or Binary array")
	}
	n := src.Len()
	sentineled := isSentineled(dt)
	seen := make(map[uint64][]seenEntry)
	var distinctValues [][]byte
	if sentineled {
		distinctValues = append(distinctValues, nil) // code 0 reserved
	}
	codes := make([]uint64, n)
	for i := 0; i < n; i++ {
		s, err := compute.ScalarAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		if s.IsNull() {
			if !sentineled {
				return array.Array{}, errs.New(errs.InvalidArgument, "dict: null value at %d in non-nullable/non-string dictionary", i)
			}
			codes[i] = nullSentinelCode
			continue
		}
		b := s.AsBytes()
		h := farm.Hash64(b)
		code, ok := lookupSeen(seen, distinctValues, h, b)
		if !ok {
			code = uint64(len(distinctValues))
			distinctValues = append(distinctValues, b)
			seen[h] = append(seen[h], seenEntry{code: code})
		}
		codes[i] = code
	}
	valuesArr := buildVarBin(dt.WithNullable(false), distinctValues)
	codesArr := buildCodes(codes)
	meta := []byte{0}
	if sentineled {
		meta[0] = 1
	}
	return array.New(EncodingID, dt, n, meta, nil, []array.Array{valuesArr, codesArr}), nil
}

type seenEntry struct {
	code uint64
}

func lookupSeen(seen map[uint64][]seenEntry, distinct [][]byte, h uint64, b []byte) (uint64, bool) {
	for _, e := range seen[h] {
		if bytesEqual(distinct[e.code], b) {
			return e.code, true
		}
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func buildVarBin(dt dtype.DType, values [][]byte) array.Array {
	offs := make([]int32, len(values)+1)
	var data []byte
	for i, v := range values {
		data = append(data, v...)
		offs[i+1] = int32(len(data))
	}
	return array.NewVarBin(dt, len(values), buf.FromSlice(offs), buf.New(data), validity.NewNonNullable(len(values)))
}

func buildCodes(codes []uint64) array.Array {
	out := make([]byte, len(codes)*8)
	for i, c := range codes {
		for k := 0; k < 8; k++ {
			out[i*8+k] = byte(c >> (8 * uint(k)))
		}
	}
	return array.NewPrimitive(dtype.Primitive(dtype.U64, false), len(codes), buf.New(out), validity.NewNonNullable(len(codes)))
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	values := a.Child(0)
	codesArr := a.Child(1)
	sentineled := a.Metadata()[0] == 1
	n := a.Len()
	out := make([]scalar.Scalar, n)
	for i := 0; i < n; i++ {
		codeS, err := compute.ScalarAt(codesArr, i)
		if err != nil {
			return array.Array{}, err
		}
		code := codeS.AsUint()
		if sentineled && code == nullSentinelCode {
			out[i] = scalar.Null(a.DType())
			continue
		}
		v, err := compute.ScalarAt(values, int(code))
		if err != nil {
			return array.Array{}, err
		}
		out[i] = v
	}
	return materializeVarBin(a.DType(), out), nil
}

func materializeVarBin(dt dtype.DType, vals []scalar.Scalar) array.Array {
	offs := make([]int32, len(vals)+1)
	var data []byte
	validBits := make([]bool, len(vals))
	for i, v := range vals {
		if !v.IsNull() {
			data = append(data, v.AsBytes()...)
			validBits[i] = true
		}
		offs[i+1] = int32(len(data))
	}
	return array.NewVarBin(dt, len(vals), buf.FromSlice(offs), buf.New(data), validity.NewFromBools(validBits))
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	values := a.Child(0)
	codesArr := a.Child(1)
	sentineled := a.Metadata()[0] == 1
	codeS, err := compute.ScalarAt(codesArr, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	code := codeS.AsUint()
	if sentineled && code == nullSentinelCode {
		return array.ScalarResult{Null: true}, nil
	}
	impl, _ := array.Lookup(values.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		return array.ScalarResult{}, errs.New(errs.Other, "dict: values child lacks ScalarAt")
	}
	return sae.ScalarAt(values, int(code))
}
