package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/config"
)

func TestDefaultMatchesDocumentedConstants(t *testing.T) {
	o := config.Default()
	assert.Equal(t, uint16(config.DefaultSampleSize), o.SampleSize)
	assert.Equal(t, uint16(config.DefaultSampleCount), o.SampleCount)
	assert.Equal(t, uint8(config.DefaultMaxCost), o.MaxCost)
	assert.Equal(t, config.ScanPerf, o.Objective)
	assert.Equal(t, float64(config.DefaultScanPerfMiBPerSecond), o.ScanPerfParams.MiBPerSecond)
}

func TestDownloadTimeScalesWithBytesAndRate(t *testing.T) {
	o := config.Default()
	o.ScanPerfParams.MiBPerSecond = 1
	oneMiB := int64(1 << 20)
	d := o.DownloadTime(oneMiB)
	assert.InDelta(t, float64(1), d.Seconds(), 1e-6)

	d2 := o.DownloadTime(2 * oneMiB)
	assert.InDelta(t, float64(2), d2.Seconds(), 1e-6)
}
