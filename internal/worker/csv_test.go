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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCSVLineIncludesMillisecondFraction(t *testing.T) {
	scanTime := time.Unix(1000, 250*int64(time.Millisecond))
	line := formatCSVLine(100e6, 110e6, 1e3, 1024, []float64{1, 1}, 1, scanTime)

	assert.True(t, strings.HasPrefix(line, "1000.250, "), "got %q", line)
}

func TestFormatCSVLineZeroNanosecondsStillHasMillisecondField(t *testing.T) {
	line := formatCSVLine(100e6, 110e6, 1e3, 1024, []float64{1}, 1, time.Unix(1000, 0))
	assert.True(t, strings.HasPrefix(line, "1000.0, "), "got %q", line)
}
