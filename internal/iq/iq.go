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

// Package iq holds the radio's wire sample format: interleaved signed
// 16-bit I/Q in the SC16Q11 fixed-point convention, where 1.0 is
// represented as 2048.
package iq

import "unsafe"

// Q11One is the SC16Q11 fixed-point representation of 1.0. Consumers scale
// raw samples by 1/Q11One to get a value in [-1, 1).
const Q11One = 2048.0

// Samples is a vector of interleaved I/Q samples, one [2]int16{I, Q} pair
// per sample, in the radio's native SC16Q11 format.
//
// This is a slice type, not a wrapped struct, so that Capture descriptors
// can slice it into per-FFT-length windows without copying.
type Samples [][2]int16

// Make allocates a Samples buffer big enough to hold n samples.
func Make(n int) Samples {
	return make(Samples, n)
}

// Size returns the size of this buffer in bytes.
func (s Samples) Size() int {
	return int(unsafe.Sizeof([2]int16{})) * len(s)
}

// Length returns the number of I/Q sample pairs in this buffer.
func (s Samples) Length() int {
	return len(s)
}

// Slice returns the sub-buffer from start to end. Like a native Go slice
// operation, the returned Samples aliases the same backing array.
func (s Samples) Slice(start, end int) Samples {
	return s[start:end]
}

// I returns the in-phase component of sample i, scaled to a float64 in
// roughly [-1, 1).
func (s Samples) I(i int) float64 {
	return float64(s[i][0]) / Q11One
}

// Q returns the quadrature component of sample i, scaled to a float64 in
// roughly [-1, 1).
func (s Samples) Q(i int) float64 {
	return float64(s[i][1]) / Q11One
}

// vim: foldmethod=marker
