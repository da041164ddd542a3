// Package buf implements Buffer, the immutable refcounted byte region that
// backs every Array. Buffers are cheaply sliceable (slices share the
// underlying storage) and support typed reinterpretation of native
// primitive element slices without copying. Their start address is
// whatever Go's allocator or the caller's slice gives; no alignment is
// enforced or checked.
package buf

import (
	"sync/atomic"
	"unsafe"

	grailunsafe "github.com/grailbio/base/unsafe"
)

// Alignment is the declared buffer alignment in bytes. The constructors and
// Slice do not align data to it or verify it.
const Alignment = 8

// Buffer is an immutable, refcounted byte region.
//
// A Buffer never mutates its own bytes after construction; Slice shares the
// same backing array as its parent. Refcounting exists so that an Array can
// cheaply clone a reference to a Buffer it doesn't own exclusively (e.g. a
// view Array parsed out of a larger mmap'd file) without copying bytes.
type Buffer struct {
	root *root
	data []byte
}

type root struct {
	refs  int32
	bytes []byte
	// release, if non-nil, is called exactly once when refs drops to zero.
	// It is nil for owned, GC-managed buffers, and set for buffers backed by
	// an externally managed region (e.g. an mmap) that must be unmapped.
	release func()
}

// New creates an owned Buffer by taking ownership of data. The caller must
// not mutate data after this call; New does not copy.
func New(data []byte) Buffer {
	return Buffer{
		root: &root{refs: 1, bytes: data},
		data: data,
	}
}

// NewView creates a Buffer over externally-owned bytes (e.g. a memory-mapped
// file region). release is invoked once, when the last reference (including
// references held by slices) is dropped via Release.
func NewView(data []byte, release func()) Buffer {
	return Buffer{
		root: &root{refs: 1, bytes: data, release: release},
		data: data,
	}
}

// Zeroed allocates a new owned, zero-filled Buffer of n bytes, padded so its
// capacity is a multiple of Alignment.
func Zeroed(n int) Buffer {
	padded := ((n + Alignment - 1) / Alignment) * Alignment
	return New(make([]byte, n, padded))
}

// Retain increments the refcount and returns a new handle sharing the same
// storage. Each returned handle must eventually be Released exactly once.
func (b Buffer) Retain() Buffer {
	if b.root != nil {
		atomic.AddInt32(&b.root.refs, 1)
	}
	return b
}

// Release decrements the refcount, invoking the release callback (for
// NewView buffers) when it reaches zero. Releasing a zero-value Buffer is a
// no-op.
func (b Buffer) Release() {
	if b.root == nil {
		return
	}
	if atomic.AddInt32(&b.root.refs, -1) == 0 && b.root.release != nil {
		b.root.release()
	}
}

// Len returns the number of bytes in this (possibly sliced) view.
func (b Buffer) Len() int { return len(b.data) }

// Bytes returns the raw bytes of this view. The returned slice must not be
// mutated; Buffers are immutable by contract.
func (b Buffer) Bytes() []byte { return b.data }

// IsZero reports whether b is the zero Buffer (no backing storage).
func (b Buffer) IsZero() bool { return b.root == nil }

// Slice returns a new Buffer covering b.data[start:stop], sharing storage
// with b. The returned Buffer holds its own reference; the caller must
// Release it independently of b.
func (b Buffer) Slice(start, stop int) Buffer {
	if start < 0 || stop > len(b.data) || start > stop {
		panic("buf: slice out of range")
	}
	return Buffer{root: b.Retain().root, data: b.data[start:stop]}
}

// String returns the buffer's bytes reinterpreted as a string without
// copying. The string must not outlive the Buffer's last Release.
func (b Buffer) String() string {
	return grailunsafe.BytesToString(b.data)
}

// byteWidth is implemented per primitive type in dtype; kept here only to
// avoid an import cycle for the generic reinterpret helper below.

// Reinterpret views b.data as a slice of T without copying. elemSize must
// equal int(unsafe.Sizeof(T(0))); the caller is responsible for choosing T
// to match the buffer's declared ptype. len(b.data) must be a multiple of
// elemSize.
func Reinterpret[T any](b Buffer, elemSize int) []T {
	if elemSize == 0 {
		return nil
	}
	if len(b.data)%elemSize != 0 {
		panic("buf: reinterpret length not a multiple of element size")
	}
	n := len(b.data) / elemSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.data[0])), n)
}

// FromSlice builds an owned Buffer from a typed slice without copying,
// aliasing the slice's backing array.
func FromSlice[T any](s []T) Buffer {
	if len(s) == 0 {
		return New(nil)
	}
	elemSize := int(unsafe.Sizeof(s[0]))
	n := len(s) * elemSize
	data := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n)
	return New(data)
}

// NBytes returns the number of bytes occupied by this buffer, for
// Array.NBytes accounting (spec.md §8 property 6).
func (b Buffer) NBytes() int64 { return int64(len(b.data)) }
