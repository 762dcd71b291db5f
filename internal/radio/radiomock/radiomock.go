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

// Package radiomock is an in-memory radio.Radio, synthesizing IQ from a list
// of carrier tones instead of talking to hardware. It exists so the capture
// loop and worker pool can be exercised in tests without a bladeRF attached.
package radiomock

import (
	"context"
	"fmt"
	"math"
	"sync"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/iq"
	"github.com/staticfloat/bladeRF-power/internal/radio"
)

// timestampJump is how far FailTimestampInPastAfter advances the clock,
// comfortably larger than any ts a real caller would compute.
const timestampJump = 1 << 30

// Tone is one carrier the mock radio synthesizes, relative to whatever
// frequency it's currently tuned to.
type Tone struct {
	// Freq is the tone's absolute frequency.
	Freq rf.Hz

	// Amplitude scales the tone, 0..1.
	Amplitude float64
}

// Config parameterizes a mock Radio.
type Config struct {
	// Tones are the carriers synthesized into every SyncRx call.
	Tones []Tone

	// FailTimestampInPastAfter, if > 0, simulates the radio's sample
	// clock jumping forward unexpectedly (e.g. a dropped-sample glitch)
	// on the Nth SyncRx call (1-indexed). SyncRx still derives its
	// TimestampInPast error the genuine way - by comparing the caller's
	// requested ts against the clock - this just perturbs the clock so
	// that comparison actually fails on the chosen call, exercising the
	// capture loop's recovery path.
	FailTimestampInPastAfter int

	// FailDeviceLostAfter, if > 0, makes every SyncRx call from the Nth
	// onward return a KindDeviceLost error, simulating an unplugged
	// radio.
	FailDeviceLostAfter int

	// GainStages are the gain stages this mock reports; if nil, three
	// generic FE/IF/BB stages are used.
	GainStages radio.GainStages
}

type gainStage struct {
	name string
	typ  radio.GainStageType
}

func (g gainStage) Range() [2]float32      { return [2]float32{0, 60} }
func (g gainStage) Type() radio.GainStageType { return g.typ }
func (g gainStage) String() string         { return g.name }

func defaultGainStages() radio.GainStages {
	return radio.GainStages{
		gainStage{name: "LNA", typ: radio.GainStageTypeFE},
		gainStage{name: "VGA1", typ: radio.GainStageTypeIF},
		gainStage{name: "VGA2", typ: radio.GainStageTypeBB},
	}
}

// Radio is an in-memory radio.Radio.
type Radio struct {
	cfg Config

	mu          sync.Mutex
	centerFreq  rf.Hz
	sampleRate  rf.Hz
	bandwidth   rf.Hz
	gains       map[string]float32
	clock       uint64
	enabled     bool
	closed      bool
	syncRxCalls int
}

// New returns a mock radio.Radio driven by cfg.
func New(cfg Config) *Radio {
	if cfg.GainStages == nil {
		cfg.GainStages = defaultGainStages()
	}
	return &Radio{
		cfg:   cfg,
		gains: map[string]float32{},
	}
}

// Close implements radio.Radio.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Tune implements radio.Radio.
func (r *Radio) Tune(f rf.Hz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centerFreq = f
	return nil
}

// SetSampleRate implements radio.Radio.
func (r *Radio) SetSampleRate(rate rf.Hz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sampleRate = rate
	return nil
}

// SetBandwidth implements radio.Radio.
func (r *Radio) SetBandwidth(bw rf.Hz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bandwidth = bw
	return nil
}

// GainStages implements radio.Radio.
func (r *Radio) GainStages() (radio.GainStages, error) {
	return r.cfg.GainStages, nil
}

// SetGain implements radio.Radio.
func (r *Radio) SetGain(stage radio.GainStage, db float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gains[stage.String()] = db
	return nil
}

// ConfigureStream implements radio.Radio.
func (r *Radio) ConfigureStream(radio.StreamParams) error {
	return nil
}

// EnableRx implements radio.Radio.
func (r *Radio) EnableRx(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
	return nil
}

// Timestamp implements radio.Radio.
func (r *Radio) Timestamp() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock, nil
}

// ScheduleRetune implements radio.Radio.
func (r *Radio) ScheduleRetune(at uint64, freq rf.Hz, quicktune *radio.QuickTune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centerFreq = freq
	return nil
}

// QuickTuneGet implements radio.Radio.
func (r *Radio) QuickTuneGet() (radio.QuickTune, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return radio.QuickTune{
		Freq: r.centerFreq,
		Data: []byte(fmt.Sprintf("qt:%v", r.centerFreq)),
	}, nil
}

// SyncRx implements radio.Radio, synthesizing IQ samples for every
// configured Tone relative to the radio's current tuning, at SC16Q11 fixed
// point. The read is scheduled at ts: if ts is behind the mock's clock,
// SyncRx reports KindTimestampInPast instead of reading, mirroring a real
// radio's BLADERF_ERR_TIME_PAST.
func (r *Radio) SyncRx(ctx context.Context, dst [][2]int16, numSamples int, ts uint64) (uint64, error) {
	r.mu.Lock()
	r.syncRxCalls++
	call := r.syncRxCalls
	if r.cfg.FailTimestampInPastAfter > 0 && call == r.cfg.FailTimestampInPastAfter {
		r.clock += timestampJump
	}
	center := r.centerFreq
	rate := r.sampleRate
	clock := r.clock
	r.mu.Unlock()

	if ts < clock {
		return 0, &radio.Error{Kind: radio.KindTimestampInPast, Err: fmt.Errorf("mock: requested ts %d is behind the radio clock %d", ts, clock)}
	}
	if r.cfg.FailDeviceLostAfter > 0 && call >= r.cfg.FailDeviceLostAfter {
		return 0, &radio.Error{Kind: radio.KindDeviceLost, Err: fmt.Errorf("mock: simulated device loss on call %d", call)}
	}
	if err := ctx.Err(); err != nil {
		return 0, &radio.Error{Kind: radio.KindTimeout, Err: err}
	}

	if rate <= 0 {
		rate = 1
	}

	for i := 0; i < numSamples && i < len(dst); i++ {
		var re, im float64
		now := float64(i) / float64(rate)
		for _, tone := range r.cfg.Tones {
			offset := float64(tone.Freq - center)
			theta := 2 * math.Pi * offset * now
			re += tone.Amplitude * math.Cos(theta)
			im += tone.Amplitude * math.Sin(theta)
		}
		dst[i] = [2]int16{
			scaleToQ11(re),
			scaleToQ11(im),
		}
	}

	r.mu.Lock()
	r.clock = ts + uint64(numSamples)
	r.mu.Unlock()

	return ts, nil
}

func scaleToQ11(v float64) int16 {
	scaled := v * iq.Q11One
	if scaled > 32767 {
		scaled = 32767
	}
	if scaled < -32768 {
		scaled = -32768
	}
	return int16(scaled)
}

// vim: foldmethod=marker
