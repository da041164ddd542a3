// Package scalar implements Scalar, a DType-tagged single logical value.
//
// The comparison methods below follow the same on-value-struct idiom as
// grailbio/bio/biopb.Coord (Compare/LT/LE/GE/GT/EQ/Min), generalized from a
// 3-field genomic coordinate to the full Scalar union.
package scalar

import (
	"bytes"
	"fmt"
	"math"

	"github.com/colpress/colpress/dtype"
)

// Scalar is a DType paired with an optional value. value==nil (IsNull())
// requires dtype.Nullable().
type Scalar struct {
	dt  dtype.DType
	set bool // true iff a value is present (false means NULL)

	boolVal   bool
	intVal    int64   // I8..I64 stored sign-extended
	uintVal   uint64  // U8..U64
	floatVal  float64 // F16..F64
	bytesVal  []byte  // Binary, BufferString-as-bytes for Utf8
	listVal   []Scalar
	structVal []Scalar
}

// Null returns a null Scalar of the given (nullable) dtype.
func Null(dt dtype.DType) Scalar {
	if !dt.Nullable() {
		panic("scalar: Null requires a nullable dtype")
	}
	return Scalar{dt: dt, set: false}
}

// Bool returns a non-null Bool scalar.
func Bool(v bool, nullable bool) Scalar {
	return Scalar{dt: dtype.Bool(nullable), set: true, boolVal: v}
}

// Int returns a non-null signed-Primitive scalar.
func Int(p dtype.Ptype, v int64, nullable bool) Scalar {
	if !p.IsSigned() {
		panic("scalar: Int requires a signed ptype")
	}
	return Scalar{dt: dtype.Primitive(p, nullable), set: true, intVal: v}
}

// Uint returns a non-null unsigned-Primitive scalar.
func Uint(p dtype.Ptype, v uint64, nullable bool) Scalar {
	if p.IsSigned() || p.IsFloat() {
		panic("scalar: Uint requires an unsigned ptype")
	}
	return Scalar{dt: dtype.Primitive(p, nullable), set: true, uintVal: v}
}

// Float returns a non-null float-Primitive scalar.
func Float(p dtype.Ptype, v float64, nullable bool) Scalar {
	if !p.IsFloat() {
		panic("scalar: Float requires a float ptype")
	}
	return Scalar{dt: dtype.Primitive(p, nullable), set: true, floatVal: v}
}

// Utf8 returns a non-null Utf8 scalar.
func Utf8(v string, nullable bool) Scalar {
	return Scalar{dt: dtype.Utf8(nullable), set: true, bytesVal: []byte(v)}
}

// Binary returns a non-null Binary scalar.
func Binary(v []byte, nullable bool) Scalar {
	return Scalar{dt: dtype.Binary(nullable), set: true, bytesVal: v}
}

// Struct returns a non-null Struct scalar; values must match dt's field order.
func Struct(dt dtype.DType, values []Scalar) Scalar {
	if dt.Kind() != dtype.KindStruct {
		panic("scalar: Struct requires a struct dtype")
	}
	return Scalar{dt: dt, set: true, structVal: values}
}

// List returns a non-null List scalar.
func List(dt dtype.DType, values []Scalar) Scalar {
	if dt.Kind() != dtype.KindList {
		panic("scalar: List requires a list dtype")
	}
	return Scalar{dt: dt, set: true, listVal: values}
}

// DType returns the scalar's logical type.
func (s Scalar) DType() dtype.DType { return s.dt }

// IsNull reports whether the scalar carries no value. Invariant (spec.md
// §3): IsNull() ⇒ DType().Nullable().
func (s Scalar) IsNull() bool { return !s.set }

// AsBool returns the bool value; panics if null or not Bool.
func (s Scalar) AsBool() bool {
	if s.dt.Kind() != dtype.KindBool {
		panic("scalar: not a bool")
	}
	return s.boolVal
}

// AsInt returns the value widened to int64; panics if null or not a signed
// Primitive.
func (s Scalar) AsInt() int64 {
	if s.dt.Kind() != dtype.KindPrimitive || !s.dt.Ptype().IsSigned() {
		panic("scalar: not a signed int")
	}
	return s.intVal
}

// AsUint returns the value widened to uint64; panics if null or not an
// unsigned Primitive.
func (s Scalar) AsUint() uint64 {
	if s.dt.Kind() != dtype.KindPrimitive || s.dt.Ptype().IsSigned() || s.dt.Ptype().IsFloat() {
		panic("scalar: not an unsigned int")
	}
	return s.uintVal
}

// AsFloat returns the value widened to float64; panics if null or not a
// float Primitive.
func (s Scalar) AsFloat() float64 {
	if s.dt.Kind() != dtype.KindPrimitive || !s.dt.Ptype().IsFloat() {
		panic("scalar: not a float")
	}
	return s.floatVal
}

// AsBytes returns the raw bytes of a Utf8 or Binary scalar.
func (s Scalar) AsBytes() []byte {
	if s.dt.Kind() != dtype.KindUtf8 && s.dt.Kind() != dtype.KindBinary {
		panic("scalar: not utf8/binary")
	}
	return s.bytesVal
}

// AsStruct returns the field values of a Struct scalar.
func (s Scalar) AsStruct() []Scalar { return s.structVal }

// AsList returns the element values of a List scalar.
func (s Scalar) AsList() []Scalar { return s.listVal }

// numeric widens any non-null numeric scalar to float64, for cross-width
// comparison (e.g. comparing a U32 column's min against an I64 literal).
func (s Scalar) numeric() (float64, bool) {
	if s.dt.Kind() != dtype.KindPrimitive || s.IsNull() {
		return 0, false
	}
	p := s.dt.Ptype()
	switch {
	case p.IsFloat():
		return s.floatVal, true
	case p.IsSigned():
		return float64(s.intVal), true
	default:
		return float64(s.uintVal), true
	}
}

// Compare returns (negative, 0, positive) for (s<o, s=o, s>o). Nulls sort
// last, matching SQL NULLS LAST semantics; comparing across incompatible
// non-numeric kinds panics.
func (s Scalar) Compare(o Scalar) int {
	if s.IsNull() || o.IsNull() {
		switch {
		case s.IsNull() && o.IsNull():
			return 0
		case s.IsNull():
			return 1
		default:
			return -1
		}
	}
	switch s.dt.Kind() {
	case dtype.KindBool:
		a, b := s.boolVal, o.boolVal
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case dtype.KindPrimitive:
		av, aok := s.numeric()
		bv, bok := o.numeric()
		if !aok || !bok {
			panic("scalar: Compare requires numeric scalars")
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case dtype.KindUtf8, dtype.KindBinary:
		return bytes.Compare(s.bytesVal, o.bytesVal)
	default:
		panic(fmt.Sprintf("scalar: Compare unsupported for kind %v", s.dt.Kind()))
	}
}

// LT returns true iff s < o.
func (s Scalar) LT(o Scalar) bool { return s.Compare(o) < 0 }

// LE returns true iff s <= o.
func (s Scalar) LE(o Scalar) bool { return s.Compare(o) <= 0 }

// GE returns true iff s >= o.
func (s Scalar) GE(o Scalar) bool { return s.Compare(o) >= 0 }

// GT returns true iff s > o.
func (s Scalar) GT(o Scalar) bool { return s.Compare(o) > 0 }

// EQ returns true iff s == o (both-null counts as equal, for stats purposes).
func (s Scalar) EQ(o Scalar) bool {
	if s.IsNull() || o.IsNull() {
		return s.IsNull() && o.IsNull()
	}
	return s.Compare(o) == 0
}

// Min returns the smaller of s and o (nulls never chosen unless both null).
func (s Scalar) Min(o Scalar) Scalar {
	if s.LE(o) {
		return s
	}
	return o
}

// Max returns the larger of s and o.
func (s Scalar) Max(o Scalar) Scalar {
	if s.GE(o) {
		return s
	}
	return o
}

func (s Scalar) String() string {
	if s.IsNull() {
		return "null"
	}
	switch s.dt.Kind() {
	case dtype.KindBool:
		return fmt.Sprintf("%v", s.boolVal)
	case dtype.KindPrimitive:
		p := s.dt.Ptype()
		switch {
		case p.IsFloat():
			return fmt.Sprintf("%v", s.floatVal)
		case p.IsSigned():
			return fmt.Sprintf("%v", s.intVal)
		default:
			return fmt.Sprintf("%v", s.uintVal)
		}
	case dtype.KindUtf8:
		return string(s.bytesVal)
	case dtype.KindBinary:
		return fmt.Sprintf("%x", s.bytesVal)
	default:
		return fmt.Sprintf("%v", s.structVal)
	}
}

// ZeroValue returns the type-default non-null scalar for dt: the same
// default (zero, false) that FillForward writes when a primitive or bool
// array is entirely invalid.
func ZeroValue(dt dtype.DType) Scalar {
	switch dt.Kind() {
	case dtype.KindBool:
		return Bool(false, dt.Nullable())
	case dtype.KindPrimitive:
		p := dt.Ptype()
		switch {
		case p.IsFloat():
			return Float(p, 0, dt.Nullable())
		case p.IsSigned():
			return Int(p, 0, dt.Nullable())
		default:
			return Uint(p, 0, dt.Nullable())
		}
	case dtype.KindUtf8:
		return Utf8("", dt.Nullable())
	case dtype.KindBinary:
		return Binary(nil, dt.Nullable())
	default:
		panic(fmt.Sprintf("scalar: no zero value for kind %v", dt.Kind()))
	}
}

// NaN-aware guard so float comparisons never silently produce bogus min/max.
func isNaN(f float64) bool { return math.IsNaN(f) }
