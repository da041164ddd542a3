package ipc

import "github.com/colpress/colpress/dtype"

// SchemaNode is a gob-encodable mirror of dtype.DType, which itself holds
// only unexported fields. This is the same shape of translation the
// teacher uses for biopb.PAMShardIndex's EncodedBamHeader: an opaque
// logical structure is flattened to a serializable form at the file
// boundary and reconstructed with the package's own constructors on read.
type SchemaNode struct {
	Kind     dtype.Kind
	Nullable bool
	Ptype    dtype.Ptype

	Elem *SchemaNode

	FieldNames []string
	FieldTypes []SchemaNode

	ExtID   string
	ExtMeta []byte
	Storage *SchemaNode
}

// FromDType converts a live DType into its gob-encodable mirror.
func FromDType(d dtype.DType) SchemaNode {
	n := SchemaNode{Kind: d.Kind(), Nullable: d.Nullable()}
	switch d.Kind() {
	case dtype.KindPrimitive:
		n.Ptype = d.Ptype()
	case dtype.KindList:
		e := FromDType(d.Elem())
		n.Elem = &e
	case dtype.KindStruct:
		n.FieldNames = d.FieldNames()
		types := d.FieldTypes()
		n.FieldTypes = make([]SchemaNode, len(types))
		for i, t := range types {
			n.FieldTypes[i] = FromDType(t)
		}
	case dtype.KindExtension:
		n.ExtID = d.ExtensionID()
		n.ExtMeta = d.ExtensionMetadata()
		s := FromDType(d.StorageType())
		n.Storage = &s
	}
	return n
}

// ToDType reconstructs a live DType from its gob-decoded mirror.
func (n SchemaNode) ToDType() dtype.DType {
	switch n.Kind {
	case dtype.KindNull:
		return dtype.Null()
	case dtype.KindBool:
		return dtype.Bool(n.Nullable)
	case dtype.KindPrimitive:
		return dtype.Primitive(n.Ptype, n.Nullable)
	case dtype.KindUtf8:
		return dtype.Utf8(n.Nullable)
	case dtype.KindBinary:
		return dtype.Binary(n.Nullable)
	case dtype.KindList:
		return dtype.List(n.Elem.ToDType(), n.Nullable)
	case dtype.KindStruct:
		types := make([]dtype.DType, len(n.FieldTypes))
		for i, t := range n.FieldTypes {
			types[i] = t.ToDType()
		}
		return dtype.Struct(n.FieldNames, types, n.Nullable)
	case dtype.KindExtension:
		return dtype.Extension(n.ExtID, n.ExtMeta, n.Storage.ToDType(), n.Nullable)
	default:
		return dtype.DType{}
	}
}
