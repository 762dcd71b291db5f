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

// Package fft contains a common interface for forward complex-to-complex
// DFTs. The concrete transform is never named here: a Planner is handed in
// by the caller, so the worker pool in internal/worker never depends on a
// specific FFT library.
package fft

import (
	"fmt"
)

// ErrDstTooSmall is returned when the destination frequency-domain buffer
// is smaller than the input time-series buffer.
var ErrDstTooSmall = fmt.Errorf("fft: destination buffer is too small")

// Planner builds a Plan that transforms the time-series iq buffer into the
// frequency-domain dst buffer. Implementations may reuse internal scratch
// state across calls, but must be safe to call concurrently with other
// Plan.Transform calls returned by *other* Planner invocations (plan
// *creation* is commonly not thread-safe in DFT libraries; execution is).
type Planner func(iq []complex128, dst []complex128) (Plan, error)

// Plan executes a single forward DFT, writing the transform of iq into dst.
type Plan interface {
	// Transform performs the forward FFT.
	Transform() error

	// Close releases any resources held by this plan.
	Close() error
}

// TransformOnce runs a single forward FFT using the provided Planner. If
// more than one transform of the same length is needed, construct one Plan
// via Planner and call Transform() repeatedly instead - this avoids
// reconstructing plan state on every call.
func TransformOnce(planner Planner, iq []complex128, dst []complex128) error {
	plan, err := planner(iq, dst)
	if err != nil {
		return err
	}
	defer plan.Close()
	return plan.Transform()
}

// vim: foldmethod=marker
