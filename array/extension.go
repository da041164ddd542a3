package array

import (
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// extensionEncoding implements the canonical "extension" encoding: a single
// storage child plus the extension identity (already carried by the
// Extension dtype itself). Grounded on biopb.Coord's interpretation of a
// flat (RefId, Pos) pair as a domain-specific genomic coordinate layered
// atop plain integer storage — an extension type is exactly that pattern
// made generic: a domain meaning layered atop an arbitrary storage array.
type extensionEncoding struct{}

func init() {
	Register(EncodingExtension, "extension", extensionEncoding{})
}

// NewExtension builds a canonical extension Array wrapping storage.
func NewExtension(dt dtype.DType, storage Array) Array {
	if dt.Kind() != dtype.KindExtension {
		panic("array: NewExtension requires an Extension dtype")
	}
	if !storage.DType().Equal(dt.StorageType()) {
		panic("array: NewExtension storage dtype mismatch")
	}
	return New(EncodingExtension, dt, storage.Len(), nil, nil, []Array{storage})
}

// Storage returns the underlying physical array an extension value is
// layered on top of.
func Storage(a Array) Array { return a.children[0] }

func (extensionEncoding) Canonicalize(a Array) (Array, error) {
	return a, nil
}

func (extensionEncoding) ScalarAt(a Array, index int) (ScalarResult, error) {
	if index < 0 || index >= a.length {
		return ScalarResult{}, errs.New(errs.OutOfBounds, "array: ScalarAt index %d out of range [0,%d)", index, a.length)
	}
	return scalarAtDispatch(a.children[0], index)
}

func (extensionEncoding) Slice(a Array, start, stop int) (Array, error) {
	storage, err := sliceChild(a.children[0], start, stop)
	if err != nil {
		return Array{}, err
	}
	return NewExtension(a.dt, storage), nil
}

func (extensionEncoding) Take(a Array, indices []int64) (Array, error) {
	storage, err := takeChild(a.children[0], indices)
	if err != nil {
		return Array{}, err
	}
	return NewExtension(a.dt, storage), nil
}
