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

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"hz.tools/rf"
)

// suffix pairs a unit string with the multiplier it scales a bare number
// by. Entries are shared between frequency and duration parsing by
// swapping the table.
type suffix struct {
	unit       string
	multiplier float64
}

// freqSuffixes mirrors bladeRF-cli's numeric_suffix table: longer aliases
// ("GHz") for the same multiplier as a shorter one ("G") are listed so
// either spelling parses, with the shortest form preferred when
// formatting.
var freqSuffixes = []suffix{
	{"GHz", 1e9},
	{"G", 1e9},
	{"MHz", 1e6},
	{"M", 1e6},
	{"kHz", 1e3},
	{"k", 1e3},
}

var timeSuffixes = []suffix{
	{"ms", 1},
	{"s", 1000},
	{"m", 1000 * 60},
	{"h", 1000 * 60 * 60},
	{"d", 1000 * 60 * 60 * 24},
}

// ErrBadSuffix is returned when a numeric-with-suffix string cannot be
// parsed.
var ErrBadSuffix = fmt.Errorf("config: malformed suffixed number")

// ErrOutOfRange is returned when a parsed value falls outside its
// caller-supplied bounds.
var ErrOutOfRange = fmt.Errorf("config: value out of range")

func parseSuffixed(s string, table []suffix) (float64, error) {
	s = strings.TrimSpace(s)

	// Try longest suffix first so "ms" is matched before "s" and "MHz"
	// before "M".
	sorted := append([]suffix(nil), table...)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].unit) > len(sorted[j].unit)
	})

	for _, suf := range sorted {
		if strings.HasSuffix(s, suf.unit) {
			numPart := strings.TrimSuffix(s, suf.unit)
			val, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
			if err != nil {
				continue
			}
			return val * suf.multiplier, nil
		}
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSuffix, s)
	}
	return val, nil
}

// ParseHz parses an SI-suffixed frequency, e.g. "900M", "1.2GHz", "10k".
func ParseHz(s string, min, max rf.Hz) (rf.Hz, error) {
	v, err := parseSuffixed(s, freqSuffixes)
	if err != nil {
		return 0, err
	}
	hz := rf.Hz(v)
	if hz < min || hz > max {
		return 0, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, hz, min, max)
	}
	return hz, nil
}

// ParseDuration parses an SI-suffixed duration, e.g. "500ms", "2s", "1h".
// An empty suffix defaults to milliseconds, matching the original tool's
// time_suffixes table.
func ParseDuration(s string) (time.Duration, error) {
	v, err := parseSuffixed(s, timeSuffixes)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Millisecond, nil
}

// FormatHz renders a frequency with the shortest-fitting SI suffix and
// three significant digits, the same presentation the status line and CSV
// headers use.
func FormatHz(hz rf.Hz) string {
	v := float64(hz)
	abs := v
	if abs < 0 {
		abs = -abs
	}

	best := suffix{unit: "", multiplier: 1}
	bestRatio := 0.0
	for _, suf := range freqSuffixes {
		ratio := abs / suf.multiplier
		if ratio >= 1 && (bestRatio == 0 || ratio < bestRatio) {
			best = suf
			bestRatio = ratio
		}
	}

	scaled := v / best.multiplier
	return fixedDigits(scaled, 3) + shortestUnit(best)
}

// shortestUnit prefers the shorter alias ("G" over "GHz") for the same
// multiplier when formatting.
func shortestUnit(s suffix) string {
	if s.unit == "" {
		return ""
	}
	best := s.unit
	for _, other := range freqSuffixes {
		if other.multiplier == s.multiplier && len(other.unit) < len(best) {
			best = other.unit
		}
	}
	return best
}

// fixedDigits formats val to approximately numDigits significant figures,
// the same rule as the original tool's fixed_digits helper.
func fixedDigits(val float64, numDigits int) string {
	abs := val
	if abs < 0 {
		abs = -abs
	}
	fractional := numDigits
	if abs >= 1 {
		fractional = numDigits - int(orderOfMagnitude(abs)) - 1
	}
	if fractional < 0 {
		fractional = 0
	}
	return strconv.FormatFloat(val, 'f', fractional, 64)
}

func orderOfMagnitude(v float64) int {
	n := 0
	for v >= 10 {
		v /= 10
		n++
	}
	return n
}

// vim: foldmethod=marker
