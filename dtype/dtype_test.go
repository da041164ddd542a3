package dtype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/dtype"
)

func TestEqualIgnoresNothingButShape(t *testing.T) {
	a := dtype.Primitive(dtype.I32, true)
	b := dtype.Primitive(dtype.I32, true)
	assert.True(t, a.Equal(b))

	c := dtype.Primitive(dtype.I32, false)
	assert.False(t, a.Equal(c), "nullability is part of the type")

	d := dtype.Primitive(dtype.I64, true)
	assert.False(t, a.Equal(d), "ptype is part of the type")
}

func TestStructFieldLookup(t *testing.T) {
	names := []string{"a", "b", "c"}
	types := []dtype.DType{
		dtype.Primitive(dtype.I32, false),
		dtype.Utf8(false),
		dtype.Bool(true),
	}
	st := dtype.Struct(names, types, false)
	assert.Equal(t, 1, st.FieldIndex("b"))
	assert.Equal(t, -1, st.FieldIndex("missing"))
	assert.True(t, st.FieldTypes()[2].Equal(dtype.Bool(true)))
}

func TestListElem(t *testing.T) {
	l := dtype.List(dtype.Primitive(dtype.F64, false), true)
	assert.Equal(t, dtype.KindList, l.Kind())
	assert.True(t, l.Elem().Equal(dtype.Primitive(dtype.F64, false)))
}

func TestWithNullable(t *testing.T) {
	a := dtype.Primitive(dtype.U8, false)
	b := a.WithNullable(true)
	assert.False(t, a.Nullable())
	assert.True(t, b.Nullable())
	assert.Equal(t, a.Ptype(), b.Ptype())
}

func TestExtensionRoundTrip(t *testing.T) {
	storage := dtype.Primitive(dtype.I64, false)
	ext := dtype.Extension("timestamp.ms", []byte("meta"), storage, false)
	assert.Equal(t, dtype.KindExtension, ext.Kind())
	assert.Equal(t, "timestamp.ms", ext.ExtensionID())
	assert.Equal(t, []byte("meta"), ext.ExtensionMetadata())
	assert.True(t, ext.StorageType().Equal(storage))
}
