package array

import (
	"fmt"
	"sort"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// sparseTakeThreshold is the crossover point above which Take against a
// sparse array's index list switches from binary search to a map lookup,
// mirroring circular.Bitmap's own binary-search-vs-bitmap-scan crossover
// reasoning but tuned for the much smaller index lists sparse arrays carry.
const sparseTakeThreshold = 128

// sparseEncoding implements the canonical "sparse" encoding: a fill_value
// repeated everywhere except at the positions named by a sorted `indices`
// child, where `values` (parallel to indices) applies instead. Grounded on
// circular.Bitmap's sparse-row model (most rows empty; presence tracked by
// a compact index rather than a dense per-row bitmap), generalized from a
// presence bit to an arbitrary overridden value.
type sparseEncoding struct{}

func init() {
	Register(EncodingSparse, "sparse", sparseEncoding{})
}

// NewSparse builds a canonical sparse Array. indices must be strictly
// increasing i64 offsets into [0, length); values must be the same length
// as indices and hold the override at each corresponding position.
func NewSparse(dt dtype.DType, length int, indices buf.Buffer, values Array, fillValue ScalarResult) Array {
	idxs := buf.Reinterpret[int64](indices, 8)
	if len(idxs) != values.Len() {
		panic("array: NewSparse requires len(indices) == len(values)")
	}
	for i := 1; i < len(idxs); i++ {
		if idxs[i] <= idxs[i-1] {
			panic("array: NewSparse indices must be strictly increasing")
		}
	}
	meta := encodeScalarResult(dt, fillValue)
	return New(EncodingSparse, dt, length, meta, []buf.Buffer{indices}, []Array{values})
}

func sparseIndices(a Array) []int64 {
	return buf.Reinterpret[int64](a.buffers[0], 8)
}

func sparseFillValue(a Array) ScalarResult {
	return decodeScalarResult(a.dt, a.metadata)
}

// sparseLookup returns the position within values holding the override for
// logical index idx, or -1 if idx is not overridden (fill_value applies).
func sparseLookup(a Array, idx int64) int {
	idxs := sparseIndices(a)
	i := sort.Search(len(idxs), func(i int) bool { return idxs[i] >= idx })
	if i < len(idxs) && idxs[i] == idx {
		return i
	}
	return -1
}

func (sparseEncoding) Canonicalize(a Array) (Array, error) {
	idxs := sparseIndices(a)
	result := make([]ScalarResult, a.length)
	fill := sparseFillValue(a)
	for i := range result {
		result[i] = fill
	}
	for pos, idx := range idxs {
		v, err := scalarAtDispatch(a.children[0], pos)
		if err != nil {
			return Array{}, err
		}
		result[idx] = v
	}
	return materializeScalarResults(a.dt, result), nil
}

// materializeScalarResults builds a canonical array from a flat slice of
// per-index scalar results, used by sparse's Canonicalize fallback.
func materializeScalarResults(dt dtype.DType, vals []ScalarResult) Array {
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
		return NewPrimitive(dt, len(vals), buf.New(out), validity.NewFromBools(validBits))
	case dtype.KindBool:
		bools := make([]bool, len(vals))
		validBits := make([]bool, len(vals))
		for i, v := range vals {
			bools[i] = v.Bool
			validBits[i] = !v.Null
		}
		return NewBoolFromBools(dt.Nullable(), bools, validity.NewFromBools(validBits))
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
		return NewVarBin(dt, len(vals), buf.FromSlice(offs), buf.New(data), validity.NewFromBools(validBits))
	default:
		panic(fmt.Sprintf("array: sparse materialization unsupported for dtype kind %v", dt.Kind()))
	}
}

func (sparseEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	if pos := sparseLookup(a, int64(index)); pos >= 0 {
		return scalarAtDispatch(a.children[0], pos)
	}
	return sparseFillValue(a), nil
}

// Take gathers indices from a sparse array without canonicalizing, switching
// between a binary search per requested index (small index lists) and a map
// built once up front (large index lists) at sparseTakeThreshold.
func (sparseEncoding) Take(a Array, indices []int64) (Array, error) {
	idxs := sparseIndices(a)
	var byIndex map[int64]int
	if len(idxs) > sparseTakeThreshold {
		byIndex = make(map[int64]int, len(idxs))
		for pos, idx := range idxs {
			byIndex[idx] = pos
		}
	}
	fill := sparseFillValue(a)
	out := make([]ScalarResult, len(indices))
	for i, idx := range indices {
		if idx < 0 || int(idx) >= a.length {
			return Array{}, errs.New(errs.OutOfBounds, "array: Take index %d out of bounds [0,%d)", idx, a.length)
		}
		var pos int
		var ok bool
		if byIndex != nil {
			pos, ok = byIndex[idx]
		} else {
			p := sparseLookup(a, idx)
			pos, ok = p, p >= 0
		}
		if ok {
			v, err := scalarAtDispatch(a.children[0], pos)
			if err != nil {
				return Array{}, err
			}
			out[i] = v
		} else {
			out[i] = fill
		}
	}
	return materializeScalarResults(a.dt, out), nil
}
