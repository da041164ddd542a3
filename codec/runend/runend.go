// Package runend implements the Run-End codec: `ends` (strictly increasing
// i64 offsets, ends[last]==len) paired with `values` (one value per
// run). scalar_at(i) = values[search_sorted(ends, i, Left)] (spec.md §4.3
// "Run-End / Run-End-Bool").
//
// Grounded directly on interval/endpoint_index.go: its endpoint array plus
// SearchPosTypes *is* a run-ends array over a boolean interval-membership
// value, generalized here to an arbitrary per-run value of any dtype.
package runend

import (
	"fmt"
	"sort"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 5

type codec struct{}

func init() {
	array.Register(EncodingID, "runend", codec{})
}

// Encode builds a Run-End-coded Array by collapsing consecutive equal
// (value, validity) pairs in src into runs.
func Encode(src array.Array) (array.Array, error) {
	n := src.Len()
	if n == 0 {
		return array.Array{}, errs.New(errs.InvalidArgument, "runend: Encode requires a non-empty array")
	}
	var ends []int64
	var values []scalar.Scalar
	prev, err := compute.ScalarAt(src, 0)
	if err != nil {
		return array.Array{}, err
	}
	for i := 1; i < n; i++ {
		cur, err := compute.ScalarAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		if !scalarsEqual(prev, cur) {
			ends = append(ends, int64(i))
			values = append(values, prev)
			prev = cur
		}
	}
	ends = append(ends, int64(n))
	values = append(values, prev)

	endsArr := buildEnds(ends)
	valuesArr, err := materializeValues(src.DType(), values)
	if err != nil {
		return array.Array{}, err
	}
	return array.New(EncodingID, src.DType(), n, nil, nil, []array.Array{endsArr, valuesArr}), nil
}

func scalarsEqual(a, b scalar.Scalar) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}
	return a.Compare(b) == 0
}

func buildEnds(ends []int64) array.Array {
	out := make([]byte, len(ends)*8)
	for i, e := range ends {
		for k := 0; k < 8; k++ {
			out[i*8+k] = byte(uint64(e) >> (8 * uint(k)))
		}
	}
	return array.NewPrimitive(dtype.Primitive(dtype.I64, false), len(ends), buf.New(out), validity.NewNonNullable(len(ends)))
}

func materializeValues(dt dtype.DType, values []scalar.Scalar) (array.Array, error) {
	results := make([]array.ScalarResult, len(values))
	for i, v := range values {
		results[i] = compute.FromScalar(v)
	}
	return materializeScalarResults(dt, results), nil
}

func materializeScalarResults(dt dtype.DType, vals []array.ScalarResult) array.Array {
	switch dt.Kind() {
	case dtype.KindPrimitive:
		w := dt.Ptype().ByteWidth()
		out := make([]byte, len(vals)*w)
		validBits := make([]bool, len(vals))
		for i, v := range vals {
			if v.Null {
				continue
			}
			writePrimitiveElem(dt.Ptype(), out[i*w:(i+1)*w], v)
			validBits[i] = true
		}
		return array.NewPrimitive(dt, len(vals), buf.New(out), validity.NewFromBools(validBits))
	case dtype.KindBool:
		bools := make([]bool, len(vals))
		validBits := make([]bool, len(vals))
		for i, v := range vals {
			bools[i] = v.Bool
			validBits[i] = !v.Null
		}
		return array.NewBoolFromBools(dt.Nullable(), bools, validity.NewFromBools(validBits))
	case dtype.KindUtf8, dtype.KindBinary:
		offs := make([]int32, len(vals)+1)
		var data []byte
		validBits := make([]bool, len(vals))
		for i, v := range vals {
			if !v.Null {
				data = append(data, v.Bytes...)
				validBits[i] = true
			}
			offs[i+1] = int32(len(data))
		}
		return array.NewVarBin(dt, len(vals), buf.FromSlice(offs), buf.New(data), validity.NewFromBools(validBits))
	default:
		panic(fmt.Sprintf("runend: materialization unsupported for dtype kind %v", dt.Kind()))
	}
}

func writePrimitiveElem(p dtype.Ptype, dst []byte, v array.ScalarResult) {
	var u uint64
	switch {
	case p.IsFloat():
		panic("runend: float via writePrimitiveElem not supported; route through codec/alp")
	case p.IsSigned():
		u = uint64(v.Int)
	default:
		u = v.Uint
	}
	for i := range dst {
		dst[i] = byte(u >> (8 * uint(i)))
	}
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	n := a.Len()
	out := make([]array.ScalarResult, n)
	endsArr := a.Child(0)
	valuesArr := a.Child(1)
	numRuns := endsArr.Len()
	start := 0
	for run := 0; run < numRuns; run++ {
		endS, err := compute.ScalarAt(endsArr, run)
		if err != nil {
			return array.Array{}, err
		}
		end := int(endS.AsInt())
		v, err := scalarAt(valuesArr, run)
		if err != nil {
			return array.Array{}, err
		}
		for i := start; i < end; i++ {
			out[i] = v
		}
		start = end
	}
	return materializeScalarResults(a.DType(), out), nil
}

func scalarAt(a array.Array, i int) (array.ScalarResult, error) {
	impl, ok := array.Lookup(a.Encoding())
	if !ok {
		return array.ScalarResult{}, errs.New(errs.InvalidSerde, "runend: unknown encoding %d", a.Encoding())
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

// ScalarAt finds the run containing index via search_sorted(ends, i,
// Left), exactly as spec.md §4.3 prescribes.
func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	endsArr := a.Child(0)
	numRuns := endsArr.Len()
	run := sort.Search(numRuns, func(r int) bool {
		endS, _ := compute.ScalarAt(endsArr, r)
		return endS.AsInt() > int64(index)
	})
	return scalarAt(a.Child(1), run)
}
