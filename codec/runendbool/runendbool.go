// Package runendbool implements Run-End-Bool: a specialization of
// codec/runend for the Bool dtype where, since consecutive runs always
// alternate, only the starting bool plus the `ends` child needs storing
// (spec.md §4.3: "RunEndBool stores only a starting bool (the rest
// alternates) and run ends").
//
// Grounded the same way as codec/runend, on interval/endpoint_index.go's
// endpoint-array-plus-search idiom; this package differs only in dropping
// the per-run values child in favor of a single starting bit.
package runendbool

import (
	"sort"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 6

type codec struct{}

func init() {
	array.Register(EncodingID, "runendbool", codec{})
}

// Encode builds a Run-End-Bool-coded Array. src must be a non-nullable
// Bool array; nullable bool runs are not representable without a values
// child, so callers needing nulls should use codec/runend instead.
func Encode(src array.Array) (array.Array, error) {
	if src.DType().Kind() != dtype.KindBool {
		return array.Array{}, errs.New(errs.MismatchedTypes, "runendbool: Encode requires a Bool array")
	}
	n := src.Len()
	if n == 0 {
		return array.Array{}, errs.New(errs.InvalidArgument, "runendbool: Encode requires a non-empty array")
	}
	var ends []int64
	start, err := boolAt(src, 0)
	if err != nil {
		return array.Array{}, err
	}
	prev := start
	for i := 1; i < n; i++ {
		cur, err := boolAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		if cur != prev {
			ends = append(ends, int64(i))
			prev = cur
		}
	}
	ends = append(ends, int64(n))

	endsBytes := make([]byte, len(ends)*8)
	for i, e := range ends {
		for k := 0; k < 8; k++ {
			endsBytes[i*8+k] = byte(uint64(e) >> (8 * uint(k)))
		}
	}
	endsArr := array.NewPrimitive(dtype.Primitive(dtype.I64, false), len(ends), buf.New(endsBytes), validity.NewNonNullable(len(ends)))
	meta := []byte{0}
	if start {
		meta[0] = 1
	}
	return array.New(EncodingID, src.DType(), n, meta, nil, []array.Array{endsArr}), nil
}

func boolAt(a array.Array, i int) (bool, error) {
	s, err := compute.ScalarAt(a, i)
	if err != nil {
		return false, err
	}
	return s.AsBool(), nil
}

func runValue(startBool bool, run int) bool {
	if run%2 == 0 {
		return startBool
	}
	return !startBool
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	n := a.Len()
	startBool := a.Metadata()[0] == 1
	endsArr := a.Child(0)
	numRuns := endsArr.Len()
	out := make([]bool, n)
	start := 0
	for run := 0; run < numRuns; run++ {
		endS, err := compute.ScalarAt(endsArr, run)
		if err != nil {
			return array.Array{}, err
		}
		end := int(endS.AsInt())
		v := runValue(startBool, run)
		for i := start; i < end; i++ {
			out[i] = v
		}
		start = end
	}
	return array.NewBoolFromBools(a.DType().Nullable(), out, validity.NewNonNullable(n)), nil
}

// ScalarAt finds the run containing index via search_sorted(ends, i, Left)
// and derives the value by run parity, per spec.md §4.3.
func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	startBool := a.Metadata()[0] == 1
	endsArr := a.Child(0)
	numRuns := endsArr.Len()
	run := sort.Search(numRuns, func(r int) bool {
		endS, _ := compute.ScalarAt(endsArr, r)
		return endS.AsInt() > int64(index)
	})
	return array.ScalarResult{Bool: runValue(startBool, run)}, nil
}
