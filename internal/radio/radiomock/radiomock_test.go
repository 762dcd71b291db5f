package radiomock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/radio"
	"github.com/staticfloat/bladeRF-power/internal/radio/radiomock"
)

func TestToneRoundTrip(t *testing.T) {
	const sampleRate = rf.Hz(1_000_000)
	const center = rf.Hz(100_000_000)
	const n = 256

	r := radiomock.New(radiomock.Config{
		Tones: []radiomock.Tone{
			{Freq: center + 50_000, Amplitude: 0.5},
		},
	})

	require.NoError(t, r.SetSampleRate(sampleRate))
	require.NoError(t, r.Tune(center))
	require.NoError(t, r.ConfigureStream(radio.StreamParams{}))
	require.NoError(t, r.EnableRx(true))

	buf := make([][2]int16, n)
	_, err := r.SyncRx(context.Background(), buf, n, 0)
	require.NoError(t, err)

	// DFT by hand at the tone's bin to confirm the synthesized signal
	// carries the expected carrier instead of silence or noise.
	binHz := float64(sampleRate) / float64(n)
	bin := int(math.Round(50_000 / binHz))

	var re, im float64
	for i, s := range buf {
		theta := -2 * math.Pi * float64(bin) * float64(i) / float64(n)
		fi := float64(s[0]) / 2048.0
		fq := float64(s[1]) / 2048.0
		re += fi*math.Cos(theta) - fq*math.Sin(theta)
		im += fi*math.Sin(theta) + fq*math.Cos(theta)
	}
	mag := math.Hypot(re, im) / n
	assert.Greater(t, mag, 0.3)
}

func TestTimestampInPastInjection(t *testing.T) {
	r := radiomock.New(radiomock.Config{FailTimestampInPastAfter: 2})
	require.NoError(t, r.SetSampleRate(1_000_000))

	buf := make([][2]int16, 8)
	_, err := r.SyncRx(context.Background(), buf, 8, 0)
	require.NoError(t, err)

	// The clock jump injected on this (2nd) call puts it comfortably ahead
	// of any ts the caller could have computed, so this genuinely compares
	// the requested ts against the (now-jumped) clock rather than faking
	// the error outright.
	_, err = r.SyncRx(context.Background(), buf, 8, 8)
	assert.True(t, radio.IsTimestampInPast(err))
}

func TestDeviceLostInjection(t *testing.T) {
	r := radiomock.New(radiomock.Config{FailDeviceLostAfter: 1})
	require.NoError(t, r.SetSampleRate(1_000_000))

	buf := make([][2]int16, 8)
	_, err := r.SyncRx(context.Background(), buf, 8, 0)
	assert.True(t, radio.IsDeviceLost(err))
}

func TestGainStagesDefaultAndSet(t *testing.T) {
	r := radiomock.New(radiomock.Config{})

	stages, err := r.GainStages()
	require.NoError(t, err)
	require.Len(t, stages, 3)

	lna := stages.First(radio.GainStageTypeFE)
	require.NotNil(t, lna)
	require.NoError(t, r.SetGain(lna, 20))
}

func TestClockAdvancesBySamplesRead(t *testing.T) {
	r := radiomock.New(radiomock.Config{})
	require.NoError(t, r.SetSampleRate(1_000_000))

	buf := make([][2]int16, 100)
	ts0, err := r.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ts0)

	_, err = r.SyncRx(context.Background(), buf, 100, 0)
	require.NoError(t, err)

	ts1, err := r.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), ts1)
}
