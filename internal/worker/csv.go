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

package worker

import (
	"math"
	"strconv"
	"strings"
	"time"

	"hz.tools/rf"
)

// formatCSVLine normalizes accum by numIntegrations, converts each bin to
// dB, and formats one output record: epoch seconds with millisecond
// fraction (matching the original tool's scan_time.tv_usec/1000), an empty
// quoted label field (reserved, matching the original tool's output
// shape), the view's frequency bounds, bin width, fft_len, and one
// three-decimal dB value per bin.
func formatCSVLine(viewStart, viewEnd, binWidth rf.Hz, fftLen int, accum []float64, numIntegrations int, scanTime time.Time) string {
	var b strings.Builder

	ms := scanTime.Nanosecond() / int(time.Millisecond)
	b.WriteString(strconv.FormatInt(scanTime.Unix(), 10))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(ms))
	b.WriteString(", '', ")
	b.WriteString(strconv.FormatFloat(float64(viewStart), 'f', 0, 64))
	b.WriteString(", ")
	b.WriteString(strconv.FormatFloat(float64(viewEnd), 'f', 0, 64))
	b.WriteString(", ")
	b.WriteString(strconv.FormatFloat(float64(binWidth), 'f', 0, 64))
	b.WriteString(", ")
	b.WriteString(strconv.Itoa(fftLen))

	for _, mag := range accum {
		normalized := mag / float64(numIntegrations)
		db := 20 * math.Log10(normalized)
		b.WriteString(", ")
		b.WriteString(strconv.FormatFloat(db, 'f', 3, 64))
	}
	b.WriteString("\n")

	return b.String()
}

// vim: foldmethod=marker
