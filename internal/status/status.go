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

// Package status renders the single-line ASCII progress bar printed by the
// capture loop: a spectrum ruler, the current center frequency, queue
// depth, and elapsed time against the exit timer (if any).
package status

import (
	"fmt"
	"strings"
	"time"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/config"
)

// Columns is the width of the spectrum ruler.
const Columns = 64

// Info is a snapshot of everything the status line needs to render.
type Info struct {
	// RangeStart, RangeEnd bound the whole sweep, for laying out the
	// ruler.
	RangeStart, RangeEnd rf.Hz

	// CenterFreq is the frequency currently being captured.
	CenterFreq rf.Hz

	// FMBW2 is the one-sided bandwidth of the current view, used to size
	// the filled span around the center tick.
	FMBW2 rf.Hz

	// LowerSideband is true when the current view is read from the
	// lower sideband of its FFT output, which fills the ruler to the
	// left of center instead of the right.
	LowerSideband bool

	// FirstFreq is true when this is the sweep's first view (freq_idx
	// 0). Combined with !LowerSideband, it pins the center tick to
	// column 0 instead of letting it compute negative and vanish: the
	// first view's nominal center can sit below RangeStart.
	FirstFreq bool

	// QueueDepth is the number of Captures currently queued.
	QueueDepth int

	// Elapsed is the time since the capture loop started.
	Elapsed time.Duration

	// ExitAfter is the configured exit timer; zero means unbounded.
	ExitAfter time.Duration
}

// Render formats info into one fixed-width status line, without a trailing
// newline - callers writing to a terminal append "\r" to overwrite the
// previous line in place.
func Render(info Info) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(ruler(info))
	b.WriteByte(']')
	b.WriteByte(' ')
	b.WriteString(config.FormatHz(info.CenterFreq))
	b.WriteString("Hz")
	fmt.Fprintf(&b, " Q:%4d", info.QueueDepth)
	b.WriteByte(' ')
	b.WriteString(formatElapsed(info))
	return b.String()
}

func ruler(info Info) string {
	cols := make([]byte, Columns)
	for i := range cols {
		cols[i] = ' '
	}

	span := info.RangeEnd - info.RangeStart
	if span <= 0 {
		return string(cols)
	}
	colWidth := span / Columns

	centerIdx := int(float64(info.CenterFreq-info.RangeStart)/float64(colWidth) + 0.5)
	if info.FirstFreq && !info.LowerSideband {
		centerIdx = 0
	}
	bandwidthCols := 0
	if colWidth > 0 {
		bandwidthCols = int(float64(info.FMBW2) / float64(colWidth))
	}

	for i := 0; i < Columns; i++ {
		if info.LowerSideband {
			if i >= centerIdx-bandwidthCols && i < centerIdx {
				cols[i] = '.'
			}
		} else {
			if i > centerIdx && i <= centerIdx+bandwidthCols {
				cols[i] = '.'
			}
		}
	}

	if centerIdx >= 0 && centerIdx < Columns {
		cols[centerIdx] = '|'
	}

	return string(cols)
}

func formatElapsed(info Info) string {
	secs := info.Elapsed.Seconds()
	if info.ExitAfter <= 0 {
		return fmt.Sprintf("%.0fs / ∞", secs)
	}
	pct := 100 * secs / info.ExitAfter.Seconds()
	return fmt.Sprintf("%.0fs / %.0f%%", secs, pct)
}

// vim: foldmethod=marker
