// Package compress implements the sampling compressor: for an input
// array, it draws a seeded random sample, scores every enabled candidate
// codec's compressed sample size against an Objective, picks the argmin,
// then re-compresses the full array with that codec and recurses into
// its children up to max_cost (spec.md §4.4).
//
// Grounded on encoding/pam/sharder.go's readSubshard block-sampling idiom
// (sample a handful of blocks to estimate total bytes before committing
// to a read plan), generalized here from "estimate bytes to plan I/O" to
// "estimate bytes to plan an encoding".
package compress

import (
	"math/rand"

	"github.com/biogo/store/llrb"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/codec/alp"
	"github.com/colpress/colpress/codec/alprd"
	"github.com/colpress/colpress/codec/bitpacked"
	"github.com/colpress/colpress/codec/bytebool"
	"github.com/colpress/colpress/codec/delta"
	"github.com/colpress/colpress/codec/dict"
	"github.com/colpress/colpress/codec/forenc"
	"github.com/colpress/colpress/codec/fsstcodec"
	"github.com/colpress/colpress/codec/roaringbool"
	"github.com/colpress/colpress/codec/roaringint"
	"github.com/colpress/colpress/codec/runend"
	"github.com/colpress/colpress/codec/runendbool"
	"github.com/colpress/colpress/codec/zigzag"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// Candidate is one compressor the sampling search considers. Aux carries
// compressor-specific state (e.g. a trained FSST table) from the sample
// compression to the full-array re-compression so training cost is
// amortised (spec.md §4.4 step 4).
type Candidate interface {
	Name() string
	CanCompress(sample array.Array) bool
	Compress(a array.Array, aux any) (array.Array, any, error)
}

// DefaultCandidates is the enabled set, in declaration order (the order
// used to break ties between candidates of identical cost, per spec.md
// §4.4 step 3). datetimeparts is deliberately excluded: splitting a
// Timestamp extension into parts is a structural precondition for the
// int codecs below to apply to its children, not a candidate that
// competes with them on sampled cost.
func DefaultCandidates() []Candidate {
	return []Candidate{
		zigzagCandidate{},
		bitpackedCandidate{},
		forencCandidate{},
		deltaCandidate{},
		runendCandidate{},
		runendboolCandidate{},
		dictCandidate{},
		fsstCandidate{},
		alpCandidate{},
		alprdCandidate{},
		roaringboolCandidate{},
		roaringintCandidate{},
		bytebooleCandidate{},
	}
}

// candidateResult is the llrb.Comparable key used to find the argmin cost
// candidate while keeping declaration-order as the tie-break (spec.md
// §4.4 step 3: "tie-break by stability over iterations then by compressor
// declaration order").
type candidateResult struct {
	cost   float64
	order  int
	name   string
	result array.Array
	aux    any
}

func (r candidateResult) Compare(o llrb.Comparable) int {
	r2 := o.(candidateResult)
	if r.cost < r2.cost {
		return -1
	}
	if r.cost > r2.cost {
		return 1
	}
	if r.order != r2.order {
		return r.order - r2.order
	}
	return 0
}

// Compress chooses and applies an encoding tree for a, recursing into
// children up to opts.MaxCost.
func Compress(a array.Array, opts config.Options) (array.Array, error) {
	seed := opts.RNGSeed
	rng := rand.New(rand.NewSource(int64(seed)))
	return compressDepth(a, opts, FromConfig(opts), DefaultCandidates(), rng, 0)
}

func compressDepth(a array.Array, opts config.Options, obj Objective, candidates []Candidate, rng *rand.Rand, depth int) (array.Array, error) {
	if depth >= int(opts.MaxCost) {
		return a, nil
	}
	sample, err := buildSample(a, opts, rng)
	if err != nil {
		return array.Array{}, err
	}
	uncompressed := a.NBytes()
	start := obj.StartingValue(uncompressed)

	var tree llrb.Tree
	order := 0
	for _, c := range candidates {
		if !c.CanCompress(sample) {
			continue
		}
		compressedSample, aux, err := c.Compress(sample, nil)
		if err != nil {
			continue
		}
		cost := obj.Cost(compressedSample.NBytes()) + float64(opts.OverheadBytesPerArray)*float64(depth)
		if cost >= start {
			order++
			continue
		}
		tree.Insert(candidateResult{cost: cost, order: order, name: c.Name(), aux: aux})
		order++
	}
	if tree.Len() == 0 {
		return a, nil
	}
	best := tree.Min().(candidateResult)

	var chosen Candidate
	for _, c := range candidates {
		if c.Name() == best.name {
			chosen = c
			break
		}
	}
	full, _, err := chosen.Compress(a, best.aux)
	if err != nil {
		return array.Array{}, errs.Wrapf(errs.KindOf(err), err, "compress: re-compressing full array with %s", best.name)
	}
	newChildren := make([]array.Array, full.NumChildren())
	for i := 0; i < full.NumChildren(); i++ {
		child, err := compressDepth(full.Child(i), opts, obj, candidates, rng, depth+1)
		if err != nil {
			return array.Array{}, err
		}
		newChildren[i] = child
	}
	return rebuildWithChildren(full, newChildren), nil
}

// rebuildWithChildren swaps full's children for newChildren, keeping its
// encoding/dtype/length/metadata/buffers otherwise identical.
func rebuildWithChildren(full array.Array, newChildren []array.Array) array.Array {
	var buffers []byte
	_ = buffers
	return array.New(full.Encoding(), full.DType(), full.Len(), full.Metadata(), full.Buffers(), newChildren)
}

// buildSample draws sample_count non-overlapping contiguous blocks of
// sample_size rows at random offsets and concatenates them, preserving a's
// dtype (spec.md §4.4 step 1).
func buildSample(a array.Array, opts config.Options, rng *rand.Rand) (array.Array, error) {
	n := a.Len()
	blockLen := int(opts.SampleSize)
	if blockLen <= 0 || n <= blockLen*int(opts.SampleCount) {
		return a, nil
	}
	var indices []int64
	seg := n / int(opts.SampleCount)
	for b := 0; b < int(opts.SampleCount); b++ {
		start := b*seg + rng.Intn(seg-blockLen+1)
		for i := 0; i < blockLen; i++ {
			indices = append(indices, int64(start+i))
		}
	}
	return compute.Take(a, indices)
}

func isIntPrimitive(dt dtype.DType) bool {
	return dt.Kind() == dtype.KindPrimitive && dt.Ptype().IsInt()
}

func isFloatPrimitive(dt dtype.DType) bool {
	return dt.Kind() == dtype.KindPrimitive && dt.Ptype().IsFloat()
}

func isStringlike(dt dtype.DType) bool {
	return dt.Kind() == dtype.KindUtf8 || dt.Kind() == dtype.KindBinary
}

// --- candidate adapters ---

type zigzagCandidate struct{}

func (zigzagCandidate) Name() string                            { return "zigzag" }
func (zigzagCandidate) CanCompress(sample array.Array) bool      { return isIntPrimitive(sample.DType()) && sample.DType().Ptype().IsSigned() }
func (zigzagCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := zigzag.Encode(a)
	return out, nil, err
}

type bitpackedCandidate struct{}

func (bitpackedCandidate) Name() string { return "bitpacked" }
func (bitpackedCandidate) CanCompress(sample array.Array) bool {
	return isIntPrimitive(sample.DType())
}
func (bitpackedCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	w := bitWidthFor(a)
	out, err := bitpacked.Encode(a, w)
	return out, nil, err
}

func bitWidthFor(a array.Array) uint8 {
	n := a.Len()
	valid := array.ArrayValidity(a)
	var maxU uint64
	p := a.DType().Ptype()
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		s, err := compute.ScalarAt(a, i)
		if err != nil {
			continue
		}
		var u uint64
		if p.IsSigned() {
			u = uint64(s.AsInt())
		} else {
			u = s.AsUint()
		}
		if u > maxU {
			maxU = u
		}
	}
	w := uint8(1)
	for (uint64(1)<<w - 1) < maxU && w < 63 {
		w++
	}
	return w
}

type forencCandidate struct{}

func (forencCandidate) Name() string { return "forenc" }
func (forencCandidate) CanCompress(sample array.Array) bool {
	return isIntPrimitive(sample.DType())
}
func (forencCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	ref, w := forParamsFor(a)
	out, err := forenc.Encode(a, ref, 0, w)
	return out, nil, err
}

func forParamsFor(a array.Array) (int64, dtype.Ptype) {
	n := a.Len()
	valid := array.ArrayValidity(a)
	p := a.DType().Ptype()
	var minV int64
	first := true
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		s, err := compute.ScalarAt(a, i)
		if err != nil {
			continue
		}
		var v int64
		if p.IsSigned() {
			v = s.AsInt()
		} else {
			v = int64(s.AsUint())
		}
		if first || v < minV {
			minV = v
			first = false
		}
	}
	narrow := dtype.U32
	if p.ByteWidth() <= 2 {
		narrow = dtype.U16
	}
	return minV, narrow
}

type deltaCandidate struct{}

func (deltaCandidate) Name() string                       { return "delta" }
func (deltaCandidate) CanCompress(sample array.Array) bool { return isIntPrimitive(sample.DType()) }
func (deltaCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := delta.Encode(a)
	return out, nil, err
}

type runendCandidate struct{}

func (runendCandidate) Name() string                       { return "runend" }
func (runendCandidate) CanCompress(sample array.Array) bool { return sample.Len() > 0 }
func (runendCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := runend.Encode(a)
	return out, nil, err
}

type runendboolCandidate struct{}

func (runendboolCandidate) Name() string { return "runendbool" }
func (runendboolCandidate) CanCompress(sample array.Array) bool {
	return sample.DType().Kind() == dtype.KindBool && sample.Len() > 0
}
func (runendboolCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := runendbool.Encode(a)
	return out, nil, err
}

type dictCandidate struct{}

func (dictCandidate) Name() string                       { return "dict" }
func (dictCandidate) CanCompress(sample array.Array) bool { return isStringlike(sample.DType()) }
func (dictCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := dict.Encode(a)
	return out, nil, err
}

type fsstCandidate struct{}

func (fsstCandidate) Name() string                       { return "fsst" }
func (fsstCandidate) CanCompress(sample array.Array) bool { return isStringlike(sample.DType()) }
func (fsstCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := fsstcodec.Encode(a)
	return out, nil, err
}

type alpCandidate struct{}

func (alpCandidate) Name() string                       { return "alp" }
func (alpCandidate) CanCompress(sample array.Array) bool { return isFloatPrimitive(sample.DType()) }
func (alpCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := alp.Encode(a)
	return out, nil, err
}

type alprdCandidate struct{}

func (alprdCandidate) Name() string                       { return "alprd" }
func (alprdCandidate) CanCompress(sample array.Array) bool { return isFloatPrimitive(sample.DType()) }
func (alprdCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := alprd.Encode(a)
	return out, nil, err
}

type roaringboolCandidate struct{}

func (roaringboolCandidate) Name() string { return "roaringbool" }
func (roaringboolCandidate) CanCompress(sample array.Array) bool {
	if sample.DType().Kind() != dtype.KindBool {
		return false
	}
	return array.ArrayValidity(sample).NullCount() == 0
}
func (roaringboolCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := roaringbool.Encode(a)
	return out, nil, err
}

type roaringintCandidate struct{}

func (roaringintCandidate) Name() string { return "roaringint" }
func (roaringintCandidate) CanCompress(sample array.Array) bool {
	if !isIntPrimitive(sample.DType()) {
		return false
	}
	return array.ArrayValidity(sample).NullCount() == 0 && smallDomain(sample)
}
func (roaringintCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := roaringint.Encode(a)
	return out, nil, err
}

func smallDomain(a array.Array) bool {
	seen := make(map[uint64]bool)
	p := a.DType().Ptype()
	for i := 0; i < a.Len(); i++ {
		s, err := compute.ScalarAt(a, i)
		if err != nil {
			continue
		}
		var u uint64
		if p.IsSigned() {
			u = uint64(s.AsInt())
		} else {
			u = s.AsUint()
		}
		seen[u] = true
		if len(seen) > 256 {
			return false
		}
	}
	return true
}

type bytebooleCandidate struct{}

func (bytebooleCandidate) Name() string                       { return "bytebool" }
func (bytebooleCandidate) CanCompress(sample array.Array) bool { return sample.DType().Kind() == dtype.KindBool }
func (bytebooleCandidate) Compress(a array.Array, _ any) (array.Array, any, error) {
	out, err := bytebool.Encode(a)
	return out, nil, err
}
