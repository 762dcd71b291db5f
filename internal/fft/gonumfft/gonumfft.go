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

// Package gonumfft provides a concrete fft.Planner backed by
// gonum.org/v1/gonum/dsp/fourier, so the capture/worker pipeline can run
// end-to-end without a cgo dependency on a native FFT library.
package gonumfft

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/staticfloat/bladeRF-power/internal/fft"
)

// planCreation serializes fourier.NewCmplxFFT calls. gonum's FFT type itself is
// not documented as safe for concurrent plan *construction*, mirroring the
// hz.tools/sdr worker convention of a single planner-creation lock (see
// spec.md §4.6/§9); Transform (below) takes no lock, since gonum's
// Coefficients call only touches the *plan's* own scratch state.
var planCreation sync.Mutex

type plan struct {
	fft *fourier.CmplxFFT
	iq  []complex128
	dst []complex128
}

// Planner returns an fft.Planner backed by gonum's FFT implementation.
func Planner() fft.Planner {
	return func(iqBuf []complex128, dst []complex128) (fft.Plan, error) {
		if len(dst) < len(iqBuf) {
			return nil, fft.ErrDstTooSmall
		}

		planCreation.Lock()
		f := fourier.NewCmplxFFT(len(iqBuf))
		planCreation.Unlock()

		return &plan{fft: f, iq: iqBuf, dst: dst}, nil
	}
}

// Transform implements fft.Plan.
func (p *plan) Transform() error {
	p.fft.Coefficients(p.dst[:len(p.iq)], p.iq)
	return nil
}

// Close implements fft.Plan.
func (p *plan) Close() error {
	return nil
}

// vim: foldmethod=marker
