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

// Package worker runs the pool of goroutines that turn Captures into
// completed, dB-scaled spectra and CSV output lines: one FFT per
// FFT-length slice, folded into a per-frequency integration buffer, and
// flushed once enough spectra have accumulated.
package worker

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/capture"
	"github.com/staticfloat/bladeRF-power/internal/fft"
	"github.com/staticfloat/bladeRF-power/internal/iq"
	"github.com/staticfloat/bladeRF-power/internal/window"
)

// View describes the frequency window one worker pass is scoring, enough
// to compute bin range and annotate the CSV line.
type View struct {
	Center        rf.Hz
	Start, End    rf.Hz
	BinWidth      rf.Hz
	FMBW2         rf.Hz
	FFTLen        int
	LowerSideband bool
}

// BinRange computes [binStart, binEnd) per the lower/upper sideband rule:
// negative frequencies live in the upper half of the DFT output, so the
// first (lower-sideband) view indexes backwards from fft_len.
func (v View) BinRange() (binStart, binEnd int, viewStart, viewEnd rf.Hz) {
	if v.LowerSideband {
		viewStart = maxHz(v.Center-v.FMBW2, v.Start)
		viewEnd = minHz(v.Center-v.BinWidth, v.End)
		binStart = v.FFTLen - round((v.Center-viewStart)/v.BinWidth) + 1
		binEnd = v.FFTLen - round((v.Center-viewEnd)/v.BinWidth) + 2
		return
	}

	viewStart = maxHz(v.Center+v.BinWidth, v.Start)
	viewEnd = minHz(v.Center+v.FMBW2, v.End)
	binStart = round((viewStart-v.Center)/v.BinWidth) + 1
	binEnd = round((viewEnd-v.Center)/v.BinWidth) + 2
	return
}

func maxHz(a, b rf.Hz) rf.Hz {
	if a > b {
		return a
	}
	return b
}

func minHz(a, b rf.Hz) rf.Hz {
	if a < b {
		return a
	}
	return b
}

func round(h rf.Hz) int {
	return int(math.Round(float64(h)))
}

// integrationBuffer accumulates magnitude spectra for one freq_idx until
// enough have been folded in to flush.
type integrationBuffer struct {
	freqIdx         int
	view            View
	binStart        int
	accum           []float64
	integrationsDone int
}

// Registry tracks in-progress integration buffers, one per freq_idx, under
// a single mutex held only while inserting, finding, accumulating or
// removing - never across the flush path.
type Registry struct {
	mu      sync.Mutex
	buffers map[int]*integrationBuffer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buffers: map[int]*integrationBuffer{}}
}

// Pool runs NumWorkers goroutines pulling Captures off q, FFTing and
// integrating them, and writing completed CSV lines to Sink.
type Pool struct {
	NumWorkers      int
	NumIntegrations int
	Planner         fft.Planner
	Windows         *window.Cache
	Queue           *capture.Queue
	Buffers         *capture.BufferPool
	Sink            io.Writer
	SinkMu          *sync.Mutex
	Logger          *slog.Logger

	// ViewFor computes the View for a given freq_idx; supplied by the
	// caller since it's derived from the frequency plan, which this
	// package doesn't otherwise need to know about.
	ViewFor func(freqIdx int) View

	registry *Registry
}

// Run launches NumWorkers goroutines and blocks until ctx is done and the
// queue has drained, or every goroutine has returned.
func (p *Pool) Run(ctx context.Context) {
	if p.registry == nil {
		p.registry = NewRegistry()
	}

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runOne(ctx)
		}()
	}
	wg.Wait()
}

// runOne is the per-goroutine loop: pop a Capture or sleep 1us and retry.
// On shutdown (ctx done), the worker keeps draining the queue until it's
// empty before returning, so no enqueued Capture is ever abandoned.
func (p *Pool) runOne(ctx context.Context) {
	scratch := make([]complex128, 0)

	for {
		c, ok := p.Queue.TryPop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			default:
			}
			time.Sleep(time.Microsecond)
			continue
		}

		if err := p.process(c, &scratch); err != nil && p.Logger != nil {
			p.Logger.Error("worker: failed to process capture", "error", err, "freq_idx", c.FreqIdx)
		}
	}
}

func (p *Pool) process(c *capture.Capture, scratch *[]complex128) error {
	if p.Buffers != nil {
		defer p.Buffers.Put(c.Data)
	}

	view := p.ViewFor(c.FreqIdx)
	binStart, binEnd, viewStart, viewEnd := view.BinRange()
	numBins := binEnd - binStart

	win, err := p.Windows.Get(view.FFTLen)
	if err != nil {
		return err
	}

	if cap(*scratch) < view.FFTLen {
		*scratch = make([]complex128, view.FFTLen)
	}
	freqDomain := make([]complex128, view.FFTLen)

	mags := make([]float64, numBins)

	for slice := 0; slice < c.Count; slice++ {
		offset := slice * view.FFTLen
		timeDomain := (*scratch)[:view.FFTLen]
		for i := 0; i < view.FFTLen; i++ {
			s := c.Data[offset+i]
			re := (float64(s[0]) / iq.Q11One) * win[i]
			im := (float64(s[1]) / iq.Q11One) * win[i]
			timeDomain[i] = complex(re, im)
		}

		if err := fft.TransformOnce(p.Planner, timeDomain, freqDomain); err != nil {
			return err
		}

		for i := 0; i < numBins; i++ {
			bin := (binStart + i) % view.FFTLen
			if bin < 0 {
				bin += view.FFTLen
			}
			mag := cmplxAbs(freqDomain[bin])
			if slice == 0 {
				mags[i] = mag
			} else {
				mags[i] += mag
			}
		}
	}

	flush, line := p.accumulate(c.FreqIdx, view, binStart, viewStart, viewEnd, mags, c.Count, c.ScanTime)
	if !flush {
		return nil
	}

	return p.write(line)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// accumulate folds mags into this freq_idx's integration buffer, creating
// one if absent or already full, and returns the formatted CSV line once
// the buffer reaches NumIntegrations.
func (p *Pool) accumulate(freqIdx int, view View, binStart int, viewStart, viewEnd rf.Hz, mags []float64, n int, scanTime time.Time) (bool, string) {
	p.registry.mu.Lock()

	buf, ok := p.registry.buffers[freqIdx]
	if !ok || buf.integrationsDone >= p.NumIntegrations {
		buf = &integrationBuffer{
			freqIdx:  freqIdx,
			view:     view,
			binStart: binStart,
			accum:    make([]float64, len(mags)),
		}
		p.registry.buffers[freqIdx] = buf
	}

	for i, v := range mags {
		buf.accum[i] += v
	}
	buf.integrationsDone += n

	if buf.integrationsDone < p.NumIntegrations {
		p.registry.mu.Unlock()
		return false, ""
	}

	delete(p.registry.buffers, freqIdx)
	p.registry.mu.Unlock()

	return true, formatCSVLine(viewStart, viewEnd, view.BinWidth, view.FFTLen, buf.accum, p.NumIntegrations, scanTime)
}

func (p *Pool) write(line string) error {
	p.SinkMu.Lock()
	defer p.SinkMu.Unlock()
	_, err := io.WriteString(p.Sink, line)
	return err
}

// vim: foldmethod=marker
