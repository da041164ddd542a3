package cmd

import (
	"encoding/binary"
	"math"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/scalar"
)

// flattenLeaves walks root's struct dtype tree, returning every non-struct
// leaf array keyed by its dotted field path.
func flattenLeaves(root array.Array, prefix string) (map[string]array.Array, error) {
	out := make(map[string]array.Array)
	if root.DType().Kind() == dtype.KindStruct {
		for i, name := range root.DType().FieldNames() {
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			child, err := flattenLeaves(root.Child(i), path)
			if err != nil {
				return nil, err
			}
			for k, v := range child {
				out[k] = v
			}
		}
		return out, nil
	}
	out[prefix] = root
	return out, nil
}

// encodeForHash flattens a leaf Scalar's value to bytes for hashing.
func encodeForHash(s scalar.Scalar) []byte {
	dt := s.DType()
	switch dt.Kind() {
	case dtype.KindBool:
		if s.AsBool() {
			return []byte{1}
		}
		return []byte{0}
	case dtype.KindPrimitive:
		out := make([]byte, 8)
		p := dt.Ptype()
		switch {
		case p.IsFloat():
			binary.LittleEndian.PutUint64(out, math.Float64bits(s.AsFloat()))
		case p.IsSigned():
			binary.LittleEndian.PutUint64(out, uint64(s.AsInt()))
		default:
			binary.LittleEndian.PutUint64(out, s.AsUint())
		}
		return out
	case dtype.KindUtf8, dtype.KindBinary:
		return s.AsBytes()
	default:
		return nil
	}
}
