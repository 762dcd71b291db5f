package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/config"
)

func TestParseHzSuffixes(t *testing.T) {
	cases := map[string]rf.Hz{
		"900M":  900e6,
		"1.2G":  1.2e9,
		"10k":   10e3,
		"2GHz":  2e9,
		"500":   500,
		"1.5MHz": 1.5e6,
	}
	for in, want := range cases {
		got, err := config.ParseHz(in, 0, rf.Hz(6e9))
		require.NoError(t, err, in)
		assert.InDelta(t, float64(want), float64(got), 1e-6, in)
	}
}

func TestParseHzOutOfRange(t *testing.T) {
	_, err := config.ParseHz("10G", 0, rf.Hz(6e9))
	assert.ErrorIs(t, err, config.ErrOutOfRange)
}

func TestParseHzMalformed(t *testing.T) {
	_, err := config.ParseHz("banana", 0, rf.Hz(6e9))
	assert.ErrorIs(t, err, config.ErrBadSuffix)
}

func TestParseDurationSuffixes(t *testing.T) {
	cases := map[string]time.Duration{
		"500ms": 500 * time.Millisecond,
		"2s":    2 * time.Second,
		"1m":    time.Minute,
		"1h":    time.Hour,
		"1d":    24 * time.Hour,
	}
	for in, want := range cases {
		got, err := config.ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestFormatHzUsesSISuffix(t *testing.T) {
	assert.Contains(t, config.FormatHz(900e6), "M")
	assert.Contains(t, config.FormatHz(10e3), "k")
	assert.Contains(t, config.FormatHz(1.2e9), "G")
}

func TestParseRejectsBadRange(t *testing.T) {
	_, err := config.Parse([]string{"900M:800M:10k"})
	assert.ErrorIs(t, err, config.ErrUsage)
}

func TestParseHappyPath(t *testing.T) {
	cfg, err := config.Parse([]string{
		"-b", "20M",
		"900M:1.2G:10k",
	})
	require.NoError(t, err)

	assert.Equal(t, rf.Hz(900e6), cfg.StartFreq)
	assert.Equal(t, rf.Hz(1.2e9), cfg.EndFreq)
	assert.Equal(t, rf.Hz(10e3), cfg.RequestedBinWidth)
	assert.Equal(t, rf.Hz(20e6), cfg.SampleRate)
	assert.Greater(t, cfg.FFTLen, 0)
	assert.Greater(t, float64(cfg.BinWidth), 0.0)
	assert.LessOrEqual(t, float64(cfg.BinWidth), float64(cfg.RequestedBinWidth))
	assert.Equal(t, 1, cfg.NumIntegrations)
	assert.Equal(t, config.DefaultNumThreads, cfg.NumThreads)
}

func TestParseDefaultsBandwidthToRadioMax(t *testing.T) {
	cfg, err := config.Parse([]string{"900M:1.2G:10k"})
	require.NoError(t, err)
	assert.Equal(t, rf.Hz(61.44e6), cfg.SampleRate, "omitting --bandwidth should default to the radio's max bandwidth, not a bin-width-derived guess")
}

func TestParseRejectsBadThreadCount(t *testing.T) {
	_, err := config.Parse([]string{"-T", "0", "900M:1.2G:10k"})
	assert.ErrorIs(t, err, config.ErrUsage)

	_, err = config.Parse([]string{"-T", "200", "900M:1.2G:10k"})
	assert.ErrorIs(t, err, config.ErrUsage)
}
