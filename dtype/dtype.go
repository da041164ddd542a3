// Package dtype defines DType, the logical type sum type shared by Scalar
// and Array. Nullability is part of the type, as in spec.md §3.
//
// The encoding mirrors grailbio/bio/encoding/bam's FieldType enum-with-
// parse/format idiom, generalized from a fixed field set to an open,
// recursive logical type tree.
package dtype

import (
	"fmt"
	"strings"
)

// Kind identifies which branch of the DType sum type is in play.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindPrimitive
	KindUtf8
	KindBinary
	KindList
	KindStruct
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindPrimitive:
		return "primitive"
	case KindUtf8:
		return "utf8"
	case KindBinary:
		return "binary"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	case KindExtension:
		return "extension"
	default:
		return "invalid"
	}
}

// Ptype is the set of native primitive element types a Primitive DType may
// carry.
type Ptype uint8

const (
	PtypeInvalid Ptype = iota
	U8
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F16
	F32
	F64
)

var ptypeNames = map[Ptype]string{
	U8: "u8", U16: "u16", U32: "u32", U64: "u64",
	I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F16: "f16", F32: "f32", F64: "f64",
}

func (p Ptype) String() string {
	if s, ok := ptypeNames[p]; ok {
		return s
	}
	return "invalid"
}

// ByteWidth returns the size, in bytes, of one element of this ptype.
func (p Ptype) ByteWidth() int {
	switch p {
	case U8, I8:
		return 1
	case U16, I16, F16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		panic(fmt.Sprintf("dtype: invalid ptype %v", p))
	}
}

// IsFloat reports whether p is a floating point type.
func (p Ptype) IsFloat() bool { return p == F16 || p == F32 || p == F64 }

// IsSigned reports whether p is a signed integer type.
func (p Ptype) IsSigned() bool {
	switch p {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// IsInt reports whether p is an integer type (signed or unsigned).
func (p Ptype) IsInt() bool { return !p.IsFloat() && p != PtypeInvalid }

// DType is a logical type: a sum over Null, Bool, Primitive, Utf8, Binary,
// List, Struct, Extension. Nullability is carried as part of the value
// (spec.md §3).
type DType struct {
	kind     Kind
	nullable bool

	ptype Ptype // KindPrimitive

	// KindList
	elem *DType

	// KindStruct
	fieldNames []string
	fieldTypes []DType

	// KindExtension
	extID   string
	extMeta []byte
	storage *DType
}

// Kind returns the sum-type tag.
func (d DType) Kind() Kind { return d.kind }

// Nullable reports whether this type admits a null/missing value.
func (d DType) Nullable() bool { return d.nullable }

// Ptype returns the primitive element type; valid only if Kind()==KindPrimitive.
func (d DType) Ptype() Ptype { return d.ptype }

// Elem returns the list element type; valid only if Kind()==KindList.
func (d DType) Elem() DType { return *d.elem }

// FieldNames returns the ordered, unique struct field names; valid only if
// Kind()==KindStruct.
func (d DType) FieldNames() []string { return d.fieldNames }

// FieldTypes returns the struct field dtypes, parallel to FieldNames.
func (d DType) FieldTypes() []DType { return d.fieldTypes }

// FieldIndex returns the index of the named field, or -1.
func (d DType) FieldIndex(name string) int {
	for i, n := range d.fieldNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ExtensionID returns the interned extension type id; valid only if
// Kind()==KindExtension.
func (d DType) ExtensionID() string { return d.extID }

// ExtensionMetadata returns the opaque extension metadata bytes.
func (d DType) ExtensionMetadata() []byte { return d.extMeta }

// StorageType returns the physical storage dtype backing an extension type.
func (d DType) StorageType() DType { return *d.storage }

// Null returns the Null dtype (always logically nullable: every value is null).
func Null() DType { return DType{kind: KindNull, nullable: true} }

// Bool returns a Bool dtype.
func Bool(nullable bool) DType { return DType{kind: KindBool, nullable: nullable} }

// Primitive returns a Primitive dtype over the given ptype.
func Primitive(p Ptype, nullable bool) DType {
	return DType{kind: KindPrimitive, ptype: p, nullable: nullable}
}

// Utf8 returns a Utf8 dtype.
func Utf8(nullable bool) DType { return DType{kind: KindUtf8, nullable: nullable} }

// Binary returns a Binary dtype.
func Binary(nullable bool) DType { return DType{kind: KindBinary, nullable: nullable} }

// List returns a List dtype over elem.
func List(elem DType, nullable bool) DType {
	e := elem
	return DType{kind: KindList, elem: &e, nullable: nullable}
}

// Struct returns a Struct dtype. names must be unique; len(names)==len(types).
func Struct(names []string, types []DType, nullable bool) DType {
	if len(names) != len(types) {
		panic("dtype: Struct requires len(names) == len(types)")
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			panic(fmt.Sprintf("dtype: duplicate struct field %q", n))
		}
		seen[n] = true
	}
	return DType{
		kind:       KindStruct,
		fieldNames: append([]string(nil), names...),
		fieldTypes: append([]DType(nil), types...),
		nullable:   nullable,
	}
}

// Extension returns an Extension dtype identified by id, with opaque
// metadata, backed by the given storage dtype.
func Extension(id string, metadata []byte, storage DType, nullable bool) DType {
	s := storage
	return DType{kind: KindExtension, extID: id, extMeta: metadata, storage: &s, nullable: nullable}
}

// Equal reports deep structural equality, including nullability.
func (d DType) Equal(o DType) bool {
	if d.kind != o.kind || d.nullable != o.nullable {
		return false
	}
	switch d.kind {
	case KindPrimitive:
		return d.ptype == o.ptype
	case KindList:
		return d.elem.Equal(*o.elem)
	case KindStruct:
		if len(d.fieldNames) != len(o.fieldNames) {
			return false
		}
		for i := range d.fieldNames {
			if d.fieldNames[i] != o.fieldNames[i] || !d.fieldTypes[i].Equal(o.fieldTypes[i]) {
				return false
			}
		}
		return true
	case KindExtension:
		return d.extID == o.extID && d.storage.Equal(*o.storage)
	default:
		return true
	}
}

// WithNullable returns a copy of d with the given nullability.
func (d DType) WithNullable(nullable bool) DType {
	d2 := d
	d2.nullable = nullable
	return d2
}

func (d DType) String() string {
	switch d.kind {
	case KindPrimitive:
		return nullSuffix(d.ptype.String(), d.nullable)
	case KindList:
		return nullSuffix(fmt.Sprintf("list(%s)", d.elem), d.nullable)
	case KindStruct:
		parts := make([]string, len(d.fieldNames))
		for i := range d.fieldNames {
			parts[i] = fmt.Sprintf("%s: %s", d.fieldNames[i], d.fieldTypes[i])
		}
		return nullSuffix(fmt.Sprintf("struct(%s)", strings.Join(parts, ", ")), d.nullable)
	case KindExtension:
		return nullSuffix(fmt.Sprintf("ext<%s>(%s)", d.extID, d.storage), d.nullable)
	default:
		return nullSuffix(d.kind.String(), d.nullable)
	}
}

func nullSuffix(s string, nullable bool) string {
	if nullable {
		return s + "?"
	}
	return s
}
