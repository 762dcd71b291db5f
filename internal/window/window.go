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

// Package window generates the coefficient tables applied to each capture's
// time-series samples before the forward FFT, to control spectral leakage.
package window

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Tau is 2*Pi, spelled out once rather than repeated at every call site.
const Tau = 2 * math.Pi

// Name identifies a window function by its CLI-facing name.
type Name string

// The window functions this program knows how to generate. These names
// match the CLI flag's accepted values.
const (
	Hann       Name = "hann"
	Hamming    Name = "hamming"
	Rectangular Name = "rect"
)

// ErrUnknownWindow is returned when a Name doesn't match any known window
// function.
var ErrUnknownWindow = fmt.Errorf("window: unknown window function")

// ParseName maps a CLI string onto a Name, accepting the aliases the
// original tool accepted ("boxcar"/"rectangular" for Rectangular) and
// case-insensitive matching.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(s) {
	case "hann":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "rect", "boxcar", "rectangular":
		return Rectangular, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWindow, s)
	}
}

// Generate fills a len-sample coefficient table for the named window.
func Generate(name Name, len int) ([]float64, error) {
	switch name {
	case Hann:
		return hann(len), nil
	case Hamming:
		return hamming(len), nil
	case Rectangular:
		return rect(len), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, name)
	}
}

func hann(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = 0.5 * (1 - math.Cos(Tau*float64(i)/float64(n-1)))
	}
	return buf
}

func hamming(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = 0.53836 - 0.46164*math.Cos(Tau*float64(i)/float64(n-1))
	}
	return buf
}

func rect(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = 1.0
	}
	return buf
}

// Cache memoizes Generate by (name, length), so the worker pool doesn't
// regenerate the same coefficient table on every integration buffer - the
// same idiom as hz.tools/sdr's windowWriter.getCachedWindow, generalized to
// more than one window function and made safe for concurrent workers.
type Cache struct {
	name Name

	mu    sync.Mutex
	cache map[int][]float64
}

// NewCache returns a Cache that generates windows of the given name.
func NewCache(name Name) *Cache {
	return &Cache{
		name:  name,
		cache: map[int][]float64{},
	}
}

// Get returns the coefficient table of the given length, generating and
// memoizing it on first use.
func (c *Cache) Get(length int) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buf, ok := c.cache[length]; ok {
		return buf, nil
	}

	buf, err := Generate(c.name, length)
	if err != nil {
		return nil, err
	}
	c.cache[length] = buf
	return buf, nil
}

// Apply multiplies iq (interpreted as alternating I, Q float64 pairs -
// already-scaled samples, not raw SC16Q11 values) in place by this cache's
// window, scaling both I and Q of each sample by the same coefficient.
func (c *Cache) Apply(iq []complex128) error {
	win, err := c.Get(len(iq))
	if err != nil {
		return err
	}

	for i := range iq {
		iq[i] = complex(real(iq[i])*win[i], imag(iq[i])*win[i])
	}
	return nil
}

// vim: foldmethod=marker
