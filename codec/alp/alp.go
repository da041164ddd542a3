// Package alp implements the ALP (Adaptive Lossless floating-Point) codec:
// each float is scaled by 10^(e-f), rounded to an integer via the SWEET
// magic-constant trick, and re-widened on decode by 10^(f-e). Values that
// don't round-trip exactly fall through to a sparse patches child holding
// the original float, with the encoded slot left carrying the last
// known-good integer so the integer child still favours run-end
// compression (spec.md §4.3 "ALP (floats)").
//
// Grounded on codec/forenc's reference/shift metadata shape (ALP's
// exponent pair plays the same structural role as FoR's reference+shift)
// and on codec/bitpacked's sparse-patches-for-outliers idiom.
package alp

import (
	"math"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 7

type codec struct{}

func init() {
	array.Register(EncodingID, "alp", codec{})
}

const (
	f32MaxExp = 10
	f64MaxExp = 18

	f32Frac = 23
	f64Frac = 52
)

var pow10f64 = [...]float64{
	1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9,
	1e10, 1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18,
}

func maxExp(ptype dtype.Ptype) int {
	if ptype == dtype.F32 {
		return f32MaxExp
	}
	return f64MaxExp
}

// roundViaSweet performs "round to nearest integer" by exploiting float
// addition's round-to-even: adding then subtracting a magic constant whose
// mantissa has no room left for the fractional bits forces rounding.
func roundViaSweet(y float64, s float64) float64 {
	return (y + s) - s
}

type meta struct {
	e, f int8
}

func encodeMeta(m meta) []byte { return []byte{byte(m.e), byte(m.f)} }
func decodeMeta(b []byte) meta { return meta{e: int8(b[0]), f: int8(b[1])} }

func scale(v float64, e, f int) int64 {
	y := v * pow10f64[e] / pow10f64[f]
	return int64(roundViaSweet(y, sweetConstFor(64)))
}

func sweetConstFor(bits int) float64 {
	if bits == 32 {
		return float64(uint64(1)<<f32Frac + uint64(1)<<(f32Frac-1))
	}
	return float64(uint64(1)<<f64Frac + uint64(1)<<(f64Frac-1))
}

func unscale(encoded int64, e, f int) float64 {
	return float64(encoded) * pow10f64[f] / pow10f64[e]
}

// chooseExponents picks (e, f) minimizing the count of inexact values over
// the sample, per spec.md's "sampled cost" instruction. Ties favour the
// smallest (e, f) pair, matching ALP's preference for the narrowest
// multiplier.
func chooseExponents(sample []float64, ptype dtype.Ptype) (int, int) {
	bestE, bestF := 0, 0
	bestInexact := len(sample) + 1
	eMax := maxExp(ptype)
	for e := 0; e <= eMax; e++ {
		for f := 0; f < e; f++ {
			inexact := 0
			for _, v := range sample {
				enc := scale(v, e, f)
				if unscale(enc, e, f) != v {
					inexact++
				}
			}
			if inexact < bestInexact {
				bestInexact = inexact
				bestE, bestF = e, f
				if inexact == 0 {
					return bestE, bestF
				}
			}
		}
	}
	return bestE, bestF
}

// Encode builds an ALP-coded Array from src, a Primitive f32/f64 array.
func Encode(src array.Array) (array.Array, error) {
	ptype := src.DType().Ptype()
	if ptype != dtype.F32 && ptype != dtype.F64 {
		return array.Array{}, errs.New(errs.MismatchedTypes, "alp: Encode requires a f32 or f64 array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	vals := make([]float64, n)
	var sample []float64
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		vals[i] = readFloat(src, ptype, i)
		if len(sample) < 1024 {
			sample = append(sample, vals[i])
		}
	}
	e, f := chooseExponents(sample, ptype)

	encoded := make([]int64, n)
	var patchIdx []int64
	var patchVals []float64
	lastGood := int64(0)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			encoded[i] = lastGood
			continue
		}
		enc := scale(vals[i], e, f)
		if unscale(enc, e, f) == vals[i] {
			encoded[i] = enc
			lastGood = enc
			continue
		}
		patchIdx = append(patchIdx, int64(i))
		patchVals = append(patchVals, vals[i])
		encoded[i] = lastGood
	}

	encodedArr := buildEncodedI64(encoded, valid)
	children := []array.Array{encodedArr}
	if len(patchIdx) > 0 {
		children = append(children, buildPatches(src.DType(), n, ptype, patchIdx, patchVals))
	}
	return array.New(EncodingID, src.DType(), n, encodeMeta(meta{e: int8(e), f: int8(f)}), nil, children), nil
}

func readFloat(a array.Array, ptype dtype.Ptype, i int) float64 {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(a)
		if err != nil {
			panic(err)
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, err := sae.ScalarAt(a, i)
	if err != nil {
		panic(err)
	}
	return r.Float
}

func buildEncodedI64(vals []int64, valid validity.Validity) array.Array {
	n := len(vals)
	out := make([]byte, n*8)
	validBits := make([]bool, n)
	for i, v := range vals {
		for k := 0; k < 8; k++ {
			out[i*8+k] = byte(uint64(v) >> (8 * uint(k)))
		}
		validBits[i] = valid.IsValid(i)
	}
	return array.NewPrimitive(dtype.Primitive(dtype.I64, true), n, buf.New(out), validity.NewFromBools(validBits))
}

func buildPatches(dt dtype.DType, length int, ptype dtype.Ptype, idx []int64, vals []float64) array.Array {
	w := ptype.ByteWidth()
	out := make([]byte, len(vals)*w)
	for i, v := range vals {
		writeFloat(ptype, out[i*w:(i+1)*w], v)
	}
	valuesArr := array.NewPrimitive(dt, len(vals), buf.New(out), validity.NewAllValid(len(vals)))
	idxBytes := make([]byte, len(idx)*8)
	for i, v := range idx {
		for k := 0; k < 8; k++ {
			idxBytes[i*8+k] = byte(v >> (8 * uint(k)))
		}
	}
	return array.NewSparse(dt, length, buf.New(idxBytes), valuesArr, array.ScalarResult{Null: true})
}

func writeFloat(ptype dtype.Ptype, dst []byte, v float64) {
	if ptype == dtype.F32 {
		u := math.Float32bits(float32(v))
		for i := 0; i < 4; i++ {
			dst[i] = byte(u >> (8 * uint(i)))
		}
		return
	}
	u := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[i] = byte(u >> (8 * uint(i)))
	}
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	m := decodeMeta(a.Metadata())
	ptype := a.DType().Ptype()
	n := a.Len()
	w := ptype.ByteWidth()
	out := make([]byte, n*w)
	validBits := make([]bool, n)
	encodedChild := a.Child(0)
	var patches *array.Array
	if a.NumChildren() > 1 {
		p := a.Child(1)
		patches = &p
	}
	for i := 0; i < n; i++ {
		r, err := codec{}.scalarAt(a, encodedChild, patches, m, ptype, i)
		if err != nil {
			return array.Array{}, err
		}
		if r.Null {
			continue
		}
		writeFloat(ptype, out[i*w:(i+1)*w], r.Float)
		validBits[i] = true
	}
	return array.NewPrimitive(a.DType(), n, buf.New(out), validity.NewFromBools(validBits)), nil
}

func (codec) scalarAt(a array.Array, encodedChild array.Array, patches *array.Array, m meta, ptype dtype.Ptype, i int) (array.ScalarResult, error) {
	if patches != nil {
		impl, _ := array.Lookup(patches.Encoding())
		if sae, ok := impl.(array.ScalarAtEncoding); ok {
			if r, err := sae.ScalarAt(*patches, i); err == nil && !r.Null {
				return r, nil
			}
		}
	}
	impl, _ := array.Lookup(encodedChild.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(encodedChild)
		if err != nil {
			return array.ScalarResult{}, err
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		encodedChild = canon
	}
	encS, err := sae.ScalarAt(encodedChild, i)
	if err != nil {
		return array.ScalarResult{}, err
	}
	if encS.Null {
		return array.ScalarResult{Null: true}, nil
	}
	return array.ScalarResult{Float: unscale(encS.Int, int(m.e), int(m.f))}, nil
}

func (c codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	m := decodeMeta(a.Metadata())
	ptype := a.DType().Ptype()
	encodedChild := a.Child(0)
	var patches *array.Array
	if a.NumChildren() > 1 {
		p := a.Child(1)
		patches = &p
	}
	return c.scalarAt(a, encodedChild, patches, m, ptype, index)
}
