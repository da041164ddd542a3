package ipc

import (
	"encoding/binary"
	"math"

	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/stats"
)

// encodeScalar flattens a leaf Scalar to bytes for FieldStats.Min/Max.
// Scalar itself carries no exported encoding (its fields mirror a tagged
// union deliberately kept private, like grailbio/bio/biopb.Coord's raw
// ints), so this only needs to round-trip the primitive/bool/bytes cases
// that ever appear as column statistics.
func encodeScalar(s scalar.Scalar) []byte {
	dt := s.DType()
	switch dt.Kind() {
	case dtype.KindBool:
		if s.AsBool() {
			return []byte{1}
		}
		return []byte{0}
	case dtype.KindPrimitive:
		p := dt.Ptype()
		out := make([]byte, 8)
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
		return append([]byte(nil), s.AsBytes()...)
	default:
		return nil
	}
}

func decodeScalar(dt dtype.DType, b []byte) scalar.Scalar {
	switch dt.Kind() {
	case dtype.KindBool:
		return scalar.Bool(len(b) > 0 && b[0] != 0, dt.Nullable())
	case dtype.KindPrimitive:
		p := dt.Ptype()
		u := binary.LittleEndian.Uint64(b)
		switch {
		case p.IsFloat():
			return scalar.Float(p, math.Float64frombits(u), dt.Nullable())
		case p.IsSigned():
			return scalar.Int(p, int64(u), dt.Nullable())
		default:
			return scalar.Uint(p, u, dt.Nullable())
		}
	case dtype.KindUtf8:
		return scalar.Utf8(string(b), dt.Nullable())
	case dtype.KindBinary:
		return scalar.Binary(b, dt.Nullable())
	default:
		return scalar.Scalar{}
	}
}

// fromStatistics converts a live stats.Statistics to its gob-encodable form.
func fromStatistics(st *stats.Statistics) FieldStats {
	var fs FieldStats
	if v, ok := st.Get(stats.Min); ok {
		fs.HasMin = true
		fs.Min = encodeScalar(v.Scalar())
	}
	if v, ok := st.Get(stats.Max); ok {
		fs.HasMax = true
		fs.Max = encodeScalar(v.Scalar())
	}
	if v, ok := st.Get(stats.IsSorted); ok {
		fs.IsSorted = v.Bool()
	}
	if v, ok := st.Get(stats.IsConstant); ok {
		fs.IsConstant = v.Bool()
	}
	if v, ok := st.Get(stats.NullCount); ok {
		fs.NullCount = int64(v.Count())
	}
	return fs
}

// toStatistics rebuilds a live stats.Statistics for predicate.PruneChunk,
// for the leaf field with the given dtype.
func (fs FieldStats) toStatistics(dt dtype.DType) *stats.Statistics {
	st := &stats.Statistics{}
	if fs.HasMin {
		st.Set(stats.Min, stats.ScalarValue(decodeScalar(dt, fs.Min)))
	}
	if fs.HasMax {
		st.Set(stats.Max, stats.ScalarValue(decodeScalar(dt, fs.Max)))
	}
	st.Set(stats.IsSorted, stats.BoolValue(fs.IsSorted))
	st.Set(stats.IsConstant, stats.BoolValue(fs.IsConstant))
	st.Set(stats.NullCount, stats.CountValue(fs.NullCount))
	return st
}
