package freqplan_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hz.tools/rf"
	"pgregory.net/rapid"

	"github.com/staticfloat/bladeRF-power/internal/freqplan"
)

func baseParams() freqplan.Params {
	return freqplan.Params{
		Start:             rf.MHz * 100,
		End:               rf.MHz * 200,
		SampleRate:        rf.MHz * 20,
		RequestedBinWidth: rf.KHz * 10,
		FilterMargin:      0.55,
		RadioMin:          rf.MHz * 1,
		RadioMax:          rf.GHz * 6,
	}
}

func TestBadRange(t *testing.T) {
	p := baseParams()
	p.End = p.Start
	_, err := freqplan.New(p)
	assert.ErrorIs(t, err, freqplan.ErrBadRange)

	p.End = p.Start - rf.MHz
	_, err = freqplan.New(p)
	assert.ErrorIs(t, err, freqplan.ErrBadRange)
}

func TestBadMargin(t *testing.T) {
	p := baseParams()
	p.FilterMargin = 0.01
	_, err := freqplan.New(p)
	assert.ErrorIs(t, err, freqplan.ErrBadMargin)

	p.FilterMargin = 1.5
	_, err = freqplan.New(p)
	assert.ErrorIs(t, err, freqplan.ErrBadMargin)
}

func TestPlanBasics(t *testing.T) {
	plan, err := freqplan.New(baseParams())
	require.NoError(t, err)

	assert.Greater(t, plan.FFTLen, 0)
	assert.Greater(t, float64(plan.BinWidth), 0.0)
	assert.Greater(t, float64(plan.FMBW2), 0.0)
	assert.NotEmpty(t, plan.Freqs)
}

// TestFirstFreqNearRadioMin exercises the lower-sideband special case: when
// the requested start frequency sits close enough to the radio's floor that
// tuning below it is impossible, freqs[0] must sit above start and the
// lower-sideband flag must be set.
func TestFirstFreqNearRadioMin(t *testing.T) {
	p := baseParams()
	p.Start = p.RadioMin
	p.End = p.RadioMin + rf.MHz*50

	plan, err := freqplan.New(p)
	require.NoError(t, err)

	assert.True(t, plan.FirstFreqLowerSideband)
	assert.Equal(t, p.Start+plan.FMBW2, plan.Freqs[0])
}

func TestFirstFreqBelowStartWhenRoomAllows(t *testing.T) {
	plan, err := freqplan.New(baseParams())
	require.NoError(t, err)

	assert.False(t, plan.FirstFreqLowerSideband)
	assert.Equal(t, baseParams().Start-plan.BinWidth, plan.Freqs[0])
}

// TestPlanInvariants checks the properties spec out the plan's shape:
// F = ceil((end-start)/fmbw2), every freq lies within the radio's tunable
// range, and adjacent views are spaced by exactly fmbw2 (i.e. overlap by
// exactly one bin width, since each view's useful half-bandwidth is fmbw2).
func TestPlanInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rf.Hz(rapid.Float64Range(10e6, 2e9).Draw(t, "start"))
		span := rf.Hz(rapid.Float64Range(1e6, 500e6).Draw(t, "span"))
		sampleRate := rf.Hz(rapid.Float64Range(1e6, 40e6).Draw(t, "samplerate"))
		binWidthReq := rf.Hz(rapid.Float64Range(1e3, 1e6).Draw(t, "binwidth"))
		margin := rapid.Float64Range(0.1, 1.0).Draw(t, "margin")

		p := freqplan.Params{
			Start:             start,
			End:               start + span,
			SampleRate:        sampleRate,
			RequestedBinWidth: binWidthReq,
			FilterMargin:      margin,
			RadioMin:          0,
			RadioMax:          rf.Hz(6e9),
		}

		plan, err := freqplan.New(p)
		if err != nil {
			// BadBinWidth can legitimately occur at extreme parameter
			// corners (e.g. requested bin width wider than samplerate);
			// anything else is a bug.
			require.ErrorIs(t, err, freqplan.ErrBadBinWidth)
			return
		}

		wantF := int(math.Ceil(float64(p.End-p.Start) / float64(plan.FMBW2)))
		if wantF < 1 {
			wantF = 1
		}
		assert.Equal(t, wantF, len(plan.Freqs))

		for _, f := range plan.Freqs {
			assert.GreaterOrEqual(t, float64(f), float64(p.RadioMin))
			assert.LessOrEqual(t, float64(f), float64(p.RadioMax))
		}

		for i := 1; i < len(plan.Freqs); i++ {
			delta := plan.Freqs[i] - plan.Freqs[i-1]
			assert.InDelta(t, float64(plan.FMBW2), float64(delta), 1e-6)
		}
	})
}

func TestZeroBinWidthRejected(t *testing.T) {
	p := baseParams()
	p.SampleRate = 0

	_, err := freqplan.New(p)
	assert.ErrorIs(t, err, freqplan.ErrBadBinWidth)
}
