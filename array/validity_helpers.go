package array

import (
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/validity"
)

// Canonical encodings that can be nullable (primitive, varbin, varbin-view)
// record their Validity as a single metadata byte plus, for the general
// Array case, a trailing bitmap buffer. This mirrors the teacher's own
// choice (fieldio writes a length-prefixed scheme only when the value
// isn't one of the fixed trivial cases) of not paying for a full bitmap
// when every value is present or every value is absent.
const (
	validityTagNonNullable byte = iota
	validityTagAllValid
	validityTagAllInvalid
	validityTagArray
)

func validityTag(v validity.Validity) byte {
	switch v.Kind() {
	case validity.NonNullable:
		return validityTagNonNullable
	case validity.AllValid:
		return validityTagAllValid
	case validity.AllInvalid:
		return validityTagAllInvalid
	default:
		return validityTagArray
	}
}

// packValidity returns the metadata byte and, if non-trivial, the bitmap
// buffer to append after the encoding's own data buffers.
func packValidity(v validity.Validity) (tag byte, bitmap *buf.Buffer) {
	tag = validityTag(v)
	if tag == validityTagArray {
		b := buf.New(v.Bitmap())
		return tag, &b
	}
	return tag, nil
}

func unpackValidity(tag byte, length int, bitmap buf.Buffer) validity.Validity {
	switch tag {
	case validityTagNonNullable:
		return validity.NewNonNullable(length)
	case validityTagAllValid:
		return validity.NewAllValid(length)
	case validityTagAllInvalid:
		return validity.NewAllInvalid(length)
	default:
		return validity.NewFromBitmap(bitmap.Bytes(), length)
	}
}
