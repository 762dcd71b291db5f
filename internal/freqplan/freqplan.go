// {{{ Copyright (c) bladeRF-power contributors, 2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package freqplan lays out the ordered list of center frequencies a sweep
// visits, given a requested range, a radio sample rate and bin width, and a
// filter margin controlling how much of each capture's bandwidth is
// trusted.
package freqplan

import (
	"fmt"
	"math"

	"hz.tools/rf"
)

// Errors returned by New.
var (
	// ErrBadRange is returned when end <= start.
	ErrBadRange = fmt.Errorf("freqplan: end frequency must be greater than start frequency")

	// ErrBadMargin is returned when filter_margin is outside [0.1, 1.0].
	ErrBadMargin = fmt.Errorf("freqplan: filter margin must be in [0.1, 1.0]")

	// ErrBadBinWidth is returned when the computed bin width is zero.
	ErrBadBinWidth = fmt.Errorf("freqplan: computed bin width is zero")
)

// Params are the inputs to a frequency plan.
type Params struct {
	// Start and End bound the sweep range, Start < End.
	Start, End rf.Hz

	// SampleRate is the radio's IQ sample rate.
	SampleRate rf.Hz

	// RequestedBinWidth is the narrowest bin the caller asked for; the
	// plan may produce a narrower (never wider) effective bin width.
	RequestedBinWidth rf.Hz

	// FilterMargin is the fraction of each view's bandwidth trusted,
	// rejecting anti-alias filter skirts. Must be in [0.1, 1.0].
	FilterMargin float64

	// RadioMin and RadioMax bound what the radio can physically tune to;
	// used to decide whether the first view reads the lower or upper
	// sideband of its FFT output.
	RadioMin, RadioMax rf.Hz
}

// Plan is a computed, ordered sweep across the requested range.
type Plan struct {
	// FFTLen is the forward-FFT length that satisfies RequestedBinWidth.
	FFTLen int

	// BinWidth is the actual, possibly-narrower-than-requested, bin
	// width: SampleRate / FFTLen.
	BinWidth rf.Hz

	// FMBW2 is the one-sided useful bandwidth of each view, rounded up to
	// a multiple of 1/FFTLen Hz (see computeFMBW2).
	FMBW2 rf.Hz

	// Freqs is the ordered list of center frequencies, Freqs[0..F).
	Freqs []rf.Hz

	// FirstFreqLowerSideband is true when Freqs[0] must be read from the
	// lower sideband of its FFT output, because tuning below Start would
	// have required going under RadioMin.
	FirstFreqLowerSideband bool
}

// New computes a Plan from params, per these rules: fft_len is the minimum
// FFT length whose bin width is no wider than RequestedBinWidth; fmbw2 is
// the filter-margin-scaled half-bandwidth of each view (see computeFMBW2); freqs[0] sits just below Start unless that
// would tune under RadioMin, in which case freqs[0] sits above Start and is
// read from its lower sideband; every subsequent freqs[i] is spaced fmbw2
// apart, overlapping the previous view by exactly one bin width.
func New(p Params) (Plan, error) {
	if p.End <= p.Start {
		return Plan{}, ErrBadRange
	}
	if p.FilterMargin < 0.1 || p.FilterMargin > 1.0 {
		return Plan{}, ErrBadMargin
	}

	fftLen := int(math.Ceil(float64(p.SampleRate) / float64(p.RequestedBinWidth)))
	if fftLen < 1 {
		fftLen = 1
	}

	binWidth := p.SampleRate / rf.Hz(fftLen)
	if binWidth <= 0 {
		return Plan{}, ErrBadBinWidth
	}

	fmbw2 := computeFMBW2(p.FilterMargin, p.SampleRate, fftLen)
	if fmbw2 <= 0 {
		return Plan{}, ErrBadBinWidth
	}

	numFreqs := int(math.Ceil(float64(p.End-p.Start) / float64(fmbw2)))
	if numFreqs < 1 {
		numFreqs = 1
	}

	freqs := make([]rf.Hz, numFreqs)

	firstLowerSideband := false
	if p.Start-binWidth >= p.RadioMin {
		freqs[0] = p.Start - binWidth
	} else {
		freqs[0] = p.Start + fmbw2
		firstLowerSideband = true
	}

	for i := 1; i < numFreqs; i++ {
		freqs[i] = p.Start - binWidth + rf.Hz(i)*fmbw2
	}

	return Plan{
		FFTLen:                 fftLen,
		BinWidth:               binWidth,
		FMBW2:                  fmbw2,
		Freqs:                  freqs,
		FirstFreqLowerSideband: firstLowerSideband,
	}, nil
}

// computeFMBW2 rounds filter_margin*samplerate/2 up to a multiple of
// 1/fftLen Hz, matching the original CALC_FMBW2 macro:
// ceil(fm*bw*len/2)/len. The result is not in general a whole number of
// bins (bin width is samplerate/fftLen).
func computeFMBW2(filterMargin float64, sampleRate rf.Hz, fftLen int) rf.Hz {
	bins := math.Ceil(filterMargin * float64(sampleRate) * float64(fftLen) / 2)
	return rf.Hz(bins / float64(fftLen))
}

// vim: foldmethod=marker
