package compress

import (
	"github.com/colpress/colpress/config"
)

// Objective scores a candidate encoding's on-disk byte count (spec.md §4.4).
// StartingValue(uncompressedBytes) is the baseline cost of "don't encode";
// a candidate must beat it to be chosen at all.
type Objective interface {
	Cost(nbytes int64) float64
	StartingValue(uncompressedBytes int64) float64
}

// MinSizeObjective minimises raw encoded byte count. Its starting value is
// exactly the uncompressed byte count (spec.md's "1.0" multiplier).
type MinSizeObjective struct{}

func (MinSizeObjective) Cost(nbytes int64) float64 { return float64(nbytes) }

func (o MinSizeObjective) StartingValue(uncompressedBytes int64) float64 {
	return 1.0 * o.Cost(uncompressedBytes)
}

// ScanPerfObjective minimises projected scan download time, assuming
// params.MiBPerSecond throughput. The starting value assumes the
// uncompressed data would still see the filesystem's typical
// AssumedCompressionRatio if left unencoded, scaled by 1.1 (spec.md's
// safety margin so "no encoding" wins ties and near-ties).
type ScanPerfObjective struct {
	Params config.ScanPerfParams
}

func (o ScanPerfObjective) downloadTimeMs(nbytes int64) float64 {
	mib := float64(nbytes) / (1 << 20)
	return (mib / o.Params.MiBPerSecond) * 1000
}

func (o ScanPerfObjective) Cost(nbytes int64) float64 {
	return o.downloadTimeMs(nbytes)
}

func (o ScanPerfObjective) StartingValue(uncompressedBytes int64) float64 {
	assumed := float64(uncompressedBytes) / o.Params.AssumedCompressionRatio
	return 1.1 * o.downloadTimeMs(int64(assumed))
}

// FromConfig builds the Objective named by opts.Objective.
func FromConfig(opts config.Options) Objective {
	switch opts.Objective {
	case config.MinSize:
		return MinSizeObjective{}
	default:
		return ScanPerfObjective{Params: opts.ScanPerfParams}
	}
}
