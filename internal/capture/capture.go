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

// Package capture runs the single-threaded scan loop: it walks the
// frequency plan, pulls IQ from the radio, and hands off fixed-size
// Capture descriptors to a Queue for the worker pool to consume.
package capture

import (
	"time"

	"github.com/staticfloat/bladeRF-power/internal/iq"
)

// Capture is one unit of work handed from the capture loop to a worker: N
// contiguous FFT-length windows of IQ pulled at one (freqIdx, integrationIdx)
// position in the sweep.
type Capture struct {
	// Data is 2*Count*fftLen SC16Q11 samples, owned exclusively by
	// whichever stage currently holds this Capture.
	Data iq.Samples

	// FreqIdx indexes the frequency plan this capture belongs to.
	FreqIdx int

	// IntegrationIdx is this capture's position within its frequency's
	// integration count.
	IntegrationIdx int

	// Count is the number of FFT-length windows packed into Data.
	Count int

	// ScanTime is the wall-clock capture-start of the sweep pass this
	// capture belongs to.
	ScanTime time.Time
}

// vim: foldmethod=marker
