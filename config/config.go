// Package config holds the engine-wide options accepted by the sampling
// compressor, the IPC writer, and the IPC reader (spec.md §6 "External
// Interfaces / Configuration").
//
// Grounded on encoding/pam.ReadOpts/WriteOpts's plain-struct-of-options
// shape (no functional-option wrapping in the teacher; fields are set
// directly by the caller, with documented defaults applied by the
// consuming constructor when the zero value is passed).
package config

import "time"

// Objective selects what the sampling compressor minimises.
type Objective uint8

const (
	// ScanPerf minimises projected scan time assuming a download rate and
	// a compression ratio. This is the default per spec.md §6.
	ScanPerf Objective = iota
	// MinSize minimises encoded byte size directly.
	MinSize
)

// Options configures both compression (4.4) and IPC reading/writing (4.5).
// The zero value is not directly usable; call Default() to get the
// documented defaults, then override individual fields.
type Options struct {
	// SampleSize is the number of rows per sample block. Default 64.
	SampleSize uint16
	// SampleCount is the number of sample blocks drawn per candidate
	// evaluation. Default 16.
	SampleCount uint16
	// MaxCost bounds the compressor's recursion depth into child arrays.
	// Default 3.
	MaxCost uint8
	// RNGSeed seeds the sampler so identical input + config produces a
	// byte-identical encoding tree. Default 0.
	RNGSeed uint64

	// Objective selects the cost function; ScanPerfParams is read only
	// when Objective == ScanPerf.
	Objective      Objective
	ScanPerfParams ScanPerfParams

	// OverheadBytesPerArray is the per-node penalty added to a
	// candidate's cost at each recursion depth. Default 64.
	OverheadBytesPerArray uint64

	// TargetBlockByteSize and TargetBlockSize are the writer's chunking
	// targets. Defaults 16 MiB and 64*1024 rows. ipc.Writer splits chunks by
	// TargetBlockSize rows only; TargetBlockByteSize is not read by it.
	TargetBlockByteSize uint64
	TargetBlockSize     uint64

	// BatchSize is the reader-side batch size in rows. Default 65536.
	BatchSize uint64
	// InitialReadSize is the footer-phase read size in bytes. Default 8 MiB.
	InitialReadSize uint64
}

// ScanPerfParams parameterizes the ScanPerf objective.
type ScanPerfParams struct {
	// MiBPerSecond is the assumed download rate. Default 500.
	MiBPerSecond float64
	// AssumedCompressionRatio discounts the downloaded byte count to an
	// assumed decompressed-equivalent cost. Default 10.
	AssumedCompressionRatio float64
}

const (
	DefaultSampleSize            = 64
	DefaultSampleCount           = 16
	DefaultMaxCost               = 3
	DefaultOverheadBytesPerArray = 64
	DefaultTargetBlockByteSize   = 16 << 20
	DefaultTargetBlockSize       = 64 * 1024
	DefaultBatchSize             = 65536
	DefaultInitialReadSize       = 8 << 20
	DefaultScanPerfMiBPerSecond  = 500.0
	DefaultScanPerfCompressRatio = 10.0
)

// Default returns Options populated with spec.md §6's documented defaults.
func Default() Options {
	return Options{
		SampleSize:  DefaultSampleSize,
		SampleCount: DefaultSampleCount,
		MaxCost:     DefaultMaxCost,
		RNGSeed:     0,
		Objective:   ScanPerf,
		ScanPerfParams: ScanPerfParams{
			MiBPerSecond:            DefaultScanPerfMiBPerSecond,
			AssumedCompressionRatio: DefaultScanPerfCompressRatio,
		},
		OverheadBytesPerArray: DefaultOverheadBytesPerArray,
		TargetBlockByteSize:   DefaultTargetBlockByteSize,
		TargetBlockSize:       DefaultTargetBlockSize,
		BatchSize:             DefaultBatchSize,
		InitialReadSize:       DefaultInitialReadSize,
	}
}

// DownloadTime estimates the wall-clock time to fetch nbytes bytes under
// this Options' ScanPerf assumption. compress.ScanPerfObjective computes its
// own download-time estimate and does not call it.
func (o Options) DownloadTime(nbytes int64) time.Duration {
	mib := float64(nbytes) / (1 << 20)
	seconds := mib / o.ScanPerfParams.MiBPerSecond
	return time.Duration(seconds * float64(time.Second))
}
