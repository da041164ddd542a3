package ipc

import (
	"strings"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
)

// collectLeafStats walks root's struct dtype tree and computes Min/Max/
// NullCount/IsSorted/IsConstant for every non-struct leaf, keyed by its
// dotted field path — the per-chunk statistics predicate.Compare.PruneChunk
// consults (spec.md §4.4's chunk statistics, generalized from PAM's single
// per-block StartAddr/EndAddr coordinate range to an arbitrary field set).
func collectLeafStats(root array.Array, prefix string) (map[string]FieldStats, error) {
	out := make(map[string]FieldStats)
	if root.DType().Kind() == dtype.KindStruct {
		names := root.DType().FieldNames()
		for i, name := range names {
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			child, err := collectLeafStats(root.Child(i), path)
			if err != nil {
				return nil, err
			}
			for k, v := range child {
				out[k] = v
			}
		}
		return out, nil
	}
	fs, err := leafStatsOf(root)
	if err != nil {
		return nil, errs.Wrapf(errs.KindOf(err), err, "ipc: computing stats for %q", prefix)
	}
	out[prefix] = fs
	return out, nil
}

func leafStatsOf(a array.Array) (FieldStats, error) {
	var fs FieldStats
	var min, max scalar.Scalar
	haveMinMax := false
	sorted := true
	constant := true
	var prev scalar.Scalar
	havePrev := false
	n := a.Len()
	for i := 0; i < n; i++ {
		s, err := compute.ScalarAt(a, i)
		if err != nil {
			return FieldStats{}, err
		}
		if s.IsNull() {
			fs.NullCount++
			sorted = false
			continue
		}
		if !haveMinMax {
			min, max = s, s
			haveMinMax = true
		} else {
			if s.Compare(min) < 0 {
				min = s
			}
			if s.Compare(max) > 0 {
				max = s
			}
		}
		if havePrev {
			if s.Compare(prev) < 0 {
				sorted = false
			}
			if s.Compare(prev) != 0 {
				constant = false
			}
		}
		prev, havePrev = s, true
	}
	if haveMinMax {
		fs.HasMin, fs.Min = true, encodeScalar(min)
		fs.HasMax, fs.Max = true, encodeScalar(max)
	}
	fs.IsSorted = sorted
	fs.IsConstant = constant && haveMinMax
	return fs, nil
}

// leafDType resolves a dotted field path against root's dtype, for
// rebuilding a FieldStats back into a stats.Statistics at read time.
func leafDType(root dtype.DType, path string) (dtype.DType, error) {
	cur := root
	for _, name := range strings.Split(path, ".") {
		if cur.Kind() != dtype.KindStruct {
			return dtype.DType{}, errs.New(errs.InvalidArgument, "ipc: path %q descends into non-struct %s", path, cur)
		}
		idx := cur.FieldIndex(name)
		if idx < 0 {
			return dtype.DType{}, errs.New(errs.InvalidArgument, "ipc: unknown field %q in path %q", name, path)
		}
		cur = cur.FieldTypes()[idx]
	}
	return cur, nil
}
