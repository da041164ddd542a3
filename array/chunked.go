package array

import (
	"sort"

	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// chunkedEncoding implements the canonical "chunked" encoding: a sequence of
// same-dtype children concatenated logically, each possibly using a
// different physical encoding. Grounded on PAM's multi-shard-file model
// (encoding/pam/pamutil: a dataset is split across many shard files, each
// independently encoded, joined by Reader.Scan's sequential shard walk),
// collapsed here into one in-memory node whose children are addressed by a
// prefix-sum offset table instead of by filename.
type chunkedEncoding struct{}

func init() {
	Register(EncodingChunked, "chunked", chunkedEncoding{})
}

// NewChunked builds a canonical chunked Array over children, all sharing dt.
func NewChunked(dt dtype.DType, children []Array) Array {
	length := 0
	for _, c := range children {
		if !c.DType().Equal(dt) {
			panic("array: NewChunked requires all children to share dt")
		}
		length += c.Len()
	}
	a := New(EncodingChunked, dt, length, nil, nil, children)
	return a
}

// chunkOffsets returns the prefix-sum start offset of each child, plus the
// total length as a trailing sentinel (len(offsets)==len(children)+1).
func chunkOffsets(a Array) []int {
	offs := make([]int, len(a.children)+1)
	for i, c := range a.children {
		offs[i+1] = offs[i] + c.Len()
	}
	return offs
}

// findChunkIdx returns the child index containing logical index idx, via
// binary search over the prefix-sum offsets — grounded on
// interval/endpoint_index.go's sort.Search-based SearchPosTypes.
func findChunkIdx(offs []int, idx int) int {
	// offs[i] <= idx < offs[i+1]; find largest i with offs[i] <= idx.
	i := sort.Search(len(offs), func(i int) bool { return offs[i] > idx }) - 1
	return i
}

func (chunkedEncoding) Canonicalize(a Array) (Array, error) {
	if len(a.children) == 0 {
		return a, nil
	}
	impl, ok := Lookup(a.children[0].encoding)
	if !ok {
		return Array{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.children[0].encoding)
	}
	canon0, err := impl.Canonicalize(a.children[0])
	if err != nil {
		return Array{}, err
	}
	result := canon0
	for i := 1; i < len(a.children); i++ {
		impl, ok := Lookup(a.children[i].encoding)
		if !ok {
			return Array{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.children[i].encoding)
		}
		canon, err := impl.Canonicalize(a.children[i])
		if err != nil {
			return Array{}, err
		}
		result, err = concatCanonical(result, canon)
		if err != nil {
			return Array{}, err
		}
	}
	return result, nil
}

// concatCanonical concatenates two canonical arrays of the same dtype by
// reading every value through ScalarAt and materializing one canonical
// array. Only primitive, bool, utf8 and binary dtypes are supported;
// materializeScalarResults panics on any other dtype kind.
func concatCanonical(a, b Array) (Array, error) {
	vals := make([]ScalarResult, 0, a.Len()+b.Len())
	for _, part := range []Array{a, b} {
		for i := 0; i < part.Len(); i++ {
			v, err := scalarAtDispatch(part, i)
			if err != nil {
				return Array{}, err
			}
			vals = append(vals, v)
		}
	}
	return materializeScalarResults(a.dt, vals), nil
}

func (chunkedEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	offs := chunkOffsets(a)
	i := findChunkIdx(offs, index)
	if i < 0 || i >= len(a.children) {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	return scalarAtDispatch(a.children[i], index-offs[i])
}

func scalarAtDispatch(a Array, index int) (ScalarResult, error) {
	impl, ok := Lookup(a.encoding)
	if !ok {
		return ScalarResult{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.encoding)
	}
	if se, ok := impl.(ScalarAtEncoding); ok {
		return se.ScalarAt(a, index)
	}
	canon, err := impl.Canonicalize(a)
	if err != nil {
		return ScalarResult{}, err
	}
	cimpl, _ := Lookup(canon.encoding)
	se, ok := cimpl.(ScalarAtEncoding)
	if !ok {
		return ScalarResult{}, errs.New(errs.Other, "array: canonical encoding %q lacks ScalarAt", Name(canon.encoding))
	}
	return se.ScalarAt(canon, index)
}

func (chunkedEncoding) Slice(a Array, start, stop int) (Array, error) {
	offs := chunkOffsets(a)
	startChunk := findChunkIdx(offs, start)
	endChunk := findChunkIdx(offs, stop-1)
	var newChildren []Array
	for i := startChunk; i <= endChunk; i++ {
		lo, hi := 0, a.children[i].Len()
		if i == startChunk {
			lo = start - offs[i]
		}
		if i == endChunk {
			hi = stop - offs[i]
		}
		child, err := sliceChild(a.children[i], lo, hi)
		if err != nil {
			return Array{}, err
		}
		newChildren = append(newChildren, child)
	}
	return NewChunked(a.dt, newChildren), nil
}

// Take canonicalizes the whole chunked array (flattening its children into
// one physical encoding) and gathers against that. A chunk-local fast path
// isn't worth the bookkeeping here: Take's indices are generally scattered
// across chunks in caller-chosen order, so there is no sequential-access
// property left to exploit once the first chunk boundary is crossed.
func (chunkedEncoding) Take(a Array, indices []int64) (Array, error) {
	canon, err := chunkedEncoding{}.Canonicalize(a)
	if err != nil {
		return Array{}, err
	}
	return takeChild(canon, indices)
}
