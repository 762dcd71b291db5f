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

package radio

import (
	"fmt"

	"hz.tools/rf"
)

// ErrCalibrationFailed wraps any tuning error encountered while building a
// quick-tune table. Calibrate fails fast: the first error aborts the whole
// pass.
var ErrCalibrationFailed = fmt.Errorf("radio: calibration failed")

// Calibrate slow-tunes to every frequency in freqs in order, recording a
// QuickTune for each so later retunes to that frequency can use
// ScheduleRetune's fast path instead. It returns the radio's sample-clock
// timestamp read back after the pass completes, since the final tune
// perturbs timing.
//
// Calibrate is meant to run once at startup, again once per hour, and again
// after a forced device reopen - the caller is responsible for that
// scheduling; this function only does one pass.
func Calibrate(r Radio, freqs []rf.Hz) (qtunes []QuickTune, timestamp uint64, err error) {
	qtunes = make([]QuickTune, len(freqs))

	for i, f := range freqs {
		if err := r.Tune(f); err != nil {
			return nil, 0, fmt.Errorf("%w: tuning to %v: %s", ErrCalibrationFailed, f, err)
		}

		qt, err := r.QuickTuneGet()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: reading quick-tune state at %v: %s", ErrCalibrationFailed, f, err)
		}
		qt.Freq = f
		qtunes[i] = qt
	}

	ts, err := r.Timestamp()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading timestamp after calibration: %s", ErrCalibrationFailed, err)
	}

	return qtunes, ts, nil
}

// vim: foldmethod=marker
