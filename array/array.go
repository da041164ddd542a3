// Package array implements Array, the encoding-tagged tree node at the
// heart of colpress, and the process-wide encoding registry (Context) that
// canonical and compressed encodings register themselves into.
//
// The registry generalizes grailbio/bio/encoding/bam's FieldType enum (a
// closed, fixed set of BAM record fields each with fixed marshal/unmarshal
// logic) into an open map from EncodingID to an Encoding implementation,
// the same "one slot per kind, looked up by a small integer id" shape
// pam.pamreader.go's `fieldReaders [gbam.NumFields]*fieldio.Reader` uses,
// but dynamic instead of array-indexed since the encoding space is open.
package array

import (
	"fmt"

	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/stats"
)

// EncodingID is a globally registered identifier for a physical encoding.
// Canonical encodings use the low, stable ids in this package; codecs
// register their own ids from their own packages' init().
type EncodingID uint16

const (
	EncodingInvalid EncodingID = iota
	EncodingPrimitive
	EncodingBool
	EncodingVarBin
	EncodingVarBinView
	EncodingStruct
	EncodingChunked
	EncodingConstant
	EncodingSparse
	EncodingExtension
	// Compressed encodings register at 100+ from their own packages.
	EncodingCodecBase EncodingID = 100
)

// Array is a tagged-union node: an encoding id, a logical dtype and
// length, an optional encoding-specific metadata blob, ordered buffers,
// ordered children (each a full Array), and an optional statistics set.
//
// Arrays are immutable after construction (spec.md §3 "Lifecycle"); every
// compute operation returns a new Array. Slicing shares Buffers with its
// parent via buf.Buffer's refcounting, so dropping a sliced Array never
// invalidates a sibling's view onto the same bytes.
type Array struct {
	encoding EncodingID
	dt       dtype.DType
	length   int
	metadata []byte
	buffers  []buf.Buffer
	children []Array
	st       *stats.Statistics
}

// New constructs an Array node. Callers should prefer the per-encoding
// constructors (NewPrimitive, NewBool, ...) which validate their own
// invariants; New is the low-level builder they share.
func New(encoding EncodingID, dt dtype.DType, length int, metadata []byte, buffers []buf.Buffer, children []Array) Array {
	return Array{
		encoding: encoding,
		dt:       dt,
		length:   length,
		metadata: metadata,
		buffers:  buffers,
		children: children,
		st:       stats.New(),
	}
}

// Encoding returns the node's physical encoding id.
func (a Array) Encoding() EncodingID { return a.encoding }

// DType returns the node's logical type.
func (a Array) DType() dtype.DType { return a.dt }

// Len returns the node's logical length, in elements.
func (a Array) Len() int { return a.length }

// Metadata returns the encoding-specific opaque metadata blob.
func (a Array) Metadata() []byte { return a.metadata }

// Buffer returns the i'th buffer.
func (a Array) Buffer(i int) buf.Buffer { return a.buffers[i] }

// Buffers returns all buffers, in encoding-defined order.
func (a Array) Buffers() []buf.Buffer { return a.buffers }

// NumBuffers returns len(Buffers()).
func (a Array) NumBuffers() int { return len(a.buffers) }

// Child returns the i'th child Array.
func (a Array) Child(i int) Array { return a.children[i] }

// Children returns all children, in encoding-defined order.
func (a Array) Children() []Array { return a.children }

// NumChildren returns len(Children()).
func (a Array) NumChildren() int { return len(a.children) }

// Stats returns the (possibly empty) statistics set attached to this node.
// Never nil.
func (a Array) Stats() *stats.Statistics {
	if a.st == nil {
		return stats.New()
	}
	return a.st
}

// WithStats returns a copy of a with its statistics set replaced.
func (a Array) WithStats(st *stats.Statistics) Array {
	a.st = st
	return a
}

// NBytes returns a lower bound on the Array's physical footprint: the sum
// of its own buffers' byte lengths plus its children's NBytes, per spec.md
// §8 property 6 (`nbytes(array) ≥ Σ nbytes(buffers) + Σ nbytes(children)`).
func (a Array) NBytes() int64 {
	var n int64
	for _, b := range a.buffers {
		n += b.NBytes()
	}
	for _, c := range a.children {
		n += c.NBytes()
	}
	return n
}

// Encoding is the vtable every physical representation must implement: the
// ability to expand itself into the canonical encoding of its DType
// (spec.md §4.1). All other compute operations are optional and are
// discovered via the interfaces below by the compute package.
type Encoding interface {
	// Canonicalize returns the canonical-encoding equivalent of a, per the
	// table in spec.md §3 ("Canonical encodings and their invariants").
	Canonicalize(a Array) (Array, error)
}

// ScalarAtEncoding is implemented by encodings offering O(1)-ish random
// access without canonicalizing first.
type ScalarAtEncoding interface {
	ScalarAt(a Array, index int) (ScalarResult, error)
}

// ScalarResult avoids an import cycle with package scalar at the Encoding
// interface boundary; compute.ScalarAt adapts it to scalar.Scalar.
type ScalarResult struct {
	Null bool
	// One of the following is meaningful, selected by the array's DType.
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Bytes []byte
}

// SliceEncoding is implemented by encodings offering a zero-copy (or
// cheap) slice without canonicalizing first.
type SliceEncoding interface {
	Slice(a Array, start, stop int) (Array, error)
}

// TakeEncoding is implemented by encodings offering a specialized gather.
type TakeEncoding interface {
	Take(a Array, indices []int64) (Array, error)
}

// FilterEncoding is implemented by encodings offering a specialized
// boolean-mask compaction.
type FilterEncoding interface {
	Filter(a Array, mask []bool) (Array, error)
}

// SearchSortedSide selects which insertion point search_sorted returns.
type SearchSortedSide uint8

const (
	Left SearchSortedSide = iota
	Right
)

// SearchSortedEncoding is implemented by encodings that can search their
// own sorted representation (e.g. run-end, dictionary-of-sorted-codes).
type SearchSortedEncoding interface {
	SearchSorted(a Array, needle ScalarResult, side SearchSortedSide) (idx int, found bool, err error)
}

// CompareOp names a comparison operator for the Compare op.
type CompareOp uint8

const (
	Eq CompareOp = iota
	NotEq
	Lt
	Lte
	Gt
	Gte
)

// CompareEncoding is implemented by encodings that can produce a compare
// result bool-array without canonicalizing first (e.g. constant folding).
type CompareEncoding interface {
	Compare(a Array, rhs ScalarResult, op CompareOp) (Array, error)
}

// FillForwardEncoding is implemented by encodings that can fill-forward
// nulls without canonicalizing first.
type FillForwardEncoding interface {
	FillForward(a Array) (Array, error)
}

// CastEncoding is implemented by encodings that can cast to another
// Primitive ptype without canonicalizing first.
type CastEncoding interface {
	Cast(a Array, to dtype.DType) (Array, error)
}

// SubtractScalarEncoding is implemented by encodings offering an
// element-wise `x - scalar` without canonicalizing first (e.g. FoR, where
// this is the decode step itself).
type SubtractScalarEncoding interface {
	SubtractScalar(a Array, rhs ScalarResult) (Array, error)
}

// Context is a process-wide registry mapping EncodingID to its Encoding
// implementation. It is populated once, by each encoding package's init(),
// and never mutated afterward (spec.md §9 "Global state").
type Context struct {
	byID   map[EncodingID]Encoding
	byName map[string]EncodingID
	names  map[EncodingID]string
}

var global = &Context{
	byID:   make(map[EncodingID]Encoding),
	byName: make(map[string]EncodingID),
	names:  make(map[EncodingID]string),
}

// Register installs impl as the implementation for id, under the given
// debug name. Panics on a duplicate id, matching the teacher's fail-fast
// registration discipline (pam.go's field-type table is validated once at
// parse time, never patched).
func Register(id EncodingID, name string, impl Encoding) {
	if _, ok := global.byID[id]; ok {
		panic(fmt.Sprintf("array: duplicate encoding id %d (%s)", id, name))
	}
	global.byID[id] = impl
	global.byName[name] = id
	global.names[id] = name
}

// Lookup returns the Encoding implementation for id. Views deserialized
// from untrusted bytes that reference an unknown id must fail fast
// (spec.md §9); Lookup's ok=false lets the caller turn that into an
// InvalidSerde error.
func Lookup(id EncodingID) (Encoding, bool) {
	impl, ok := global.byID[id]
	return impl, ok
}

// Name returns the registered debug name for id, or "unknown".
func Name(id EncodingID) string {
	if n, ok := global.names[id]; ok {
		return n
	}
	return "unknown"
}

// ByName returns the EncodingID registered under name.
func ByName(name string) (EncodingID, bool) {
	id, ok := global.byName[name]
	return id, ok
}

// Canonicalize dispatches to the Array's own registered Encoding.
func Canonicalize(a Array) (Array, error) {
	impl, ok := Lookup(a.encoding)
	if !ok {
		return Array{}, errs.New(errs.InvalidSerde, "array: unknown encoding id %d", a.encoding)
	}
	return impl.Canonicalize(a)
}
