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

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/freqplan"
	"github.com/staticfloat/bladeRF-power/internal/radio"
	"github.com/staticfloat/bladeRF-power/internal/status"
)

// maxFailuresInRow consecutive receive_and_submit failures force a device
// close/reopen/recalibrate cycle.
const maxFailuresInRow = 6

// recalibrateInterval is how often the quick-tune table is refreshed even
// absent any failure, since oscillator drift accumulates over long runs.
const recalibrateInterval = time.Hour

// statusInterval caps how often the status line is rendered.
const statusInterval = 50 * time.Millisecond

// maxCaptureBytes bounds one receive_and_submit call's allocation to keep
// the queue responsive even when num_integrations would otherwise ask for
// a huge single pull.
const maxCaptureBytes = 100 << 20

// errTimestampRecovered marks a TimestampInPast condition that
// receiveAndSubmit has already handled by refreshing last_buffer_timestamp;
// it is not counted toward the consecutive-failure reopen threshold.
var errTimestampRecovered = errors.New("capture: timestamp in the past, recovered")

// Orchestrator runs the single-threaded capture loop: it owns the radio,
// the frequency plan's quick-tune table, and the producer side of Queue.
// Nothing else in this program touches the Radio directly - tuning,
// timestamp arithmetic and SyncRx must stay serialized against the device.
type Orchestrator struct {
	// Radio is the currently open device. Reopen replaces it in place.
	Radio radio.Radio

	// ReopenRadio opens a brand new, not-yet-configured Radio, for the
	// 6-consecutive-failure recovery path. A nil ReopenRadio makes that
	// path a fatal error instead of a recovery.
	ReopenRadio func() (radio.Radio, error)

	// Configure applies sample rate, bandwidth, gains and stream setup to
	// a freshly opened Radio, in that order, and enables the rx stream.
	// Replayed verbatim after a reopen so the reopened device ends up
	// configured identically to the original.
	Configure func(r radio.Radio) error

	// Plan is the frequency plan this sweep walks.
	Plan freqplan.Plan

	// Start and End bound the requested sweep range, for the status
	// line's ruler.
	Start, End rf.Hz

	// SampleRate is the radio's configured IQ sample rate, used to size
	// the post-capture timestamp slack.
	SampleRate rf.Hz

	NumIntegrations int
	ExitTimer       time.Duration

	Queue   *Queue
	Buffers *BufferPool

	// StatusWriter receives the periodic status line; nil disables it.
	StatusWriter io.Writer

	Logger  *slog.Logger
	Verbose bool

	// Clock is swappable for deterministic tests; nil means time.Now.
	Clock func() time.Time

	qtunes              []radio.QuickTune
	lastBufferTimestamp uint64
	freqIdx             int
	integrationIdx      int
	failuresInRow       int
	tStart, tSweep      time.Time
	tStatus, tTune      time.Time
}

// now returns the current time via Clock, defaulting to time.Now.
func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// timestampSlack is 1ms worth of samples at sampleRate, added after every
// successful capture and after every calibration pass to absorb scheduling
// jitter in the next scheduled read.
func timestampSlack(sampleRate rf.Hz) uint64 {
	return uint64(float64(sampleRate) / 1000)
}

// Run opens and calibrates the radio, then drives the capture loop until
// ctx is cancelled or the exit timer elapses. It returns nil on a clean
// shutdown and a non-nil error only for an unrecoverable setup or
// device-reopen failure.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.openAndCalibrate(); err != nil {
		return fmt.Errorf("capture: initial calibration: %w", err)
	}

	o.tStart = o.now()
	o.tTune = o.tStart
	o.tStatus = o.tStart

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := o.now()
		if o.freqIdx == 0 && o.integrationIdx == 0 {
			o.tSweep = now
			if o.ExitTimer > 0 && now.Sub(o.tStart) >= o.ExitTimer {
				return nil
			}
		}

		if now.Sub(o.tStatus) >= statusInterval {
			o.renderStatus(now)
			o.tStatus = now
		}

		switch err := o.receiveAndSubmit(ctx); {
		case err == nil:
			o.failuresInRow = 0
		case errors.Is(err, errTimestampRecovered):
			// Handled inline by receiveAndSubmit: last_buffer_timestamp
			// was refreshed from the radio. Not counted as a failure.
		default:
			o.failuresInRow++
			if o.Logger != nil {
				o.Logger.Warn("capture: receive_and_submit failed", "error", err, "failures_in_row", o.failuresInRow)
			}
			if o.failuresInRow >= maxFailuresInRow {
				if rerr := o.reopen(); rerr != nil {
					return fmt.Errorf("capture: device reopen after %d consecutive failures: %w", maxFailuresInRow, rerr)
				}
				o.failuresInRow = 0
			}
		}

		if o.now().Sub(o.tTune) >= recalibrateInterval {
			if err := o.recalibrateQuickTune(); err != nil && o.Logger != nil {
				o.Logger.Error("capture: hourly recalibration failed", "error", err)
			}
			o.tTune = o.now()
		}
	}
}

// receiveAndSubmit pulls one bounded batch of FFT-length slices from the
// radio and enqueues it as a Capture, advancing (freq_idx, integration_idx)
// and scheduling the next retune when a frequency wraps.
func (o *Orchestrator) receiveAndSubmit(ctx context.Context) error {
	fftLen := o.Plan.FFTLen

	maxBuffs := maxCaptureBytes / (2 * 2 * fftLen)
	if maxBuffs < 1 {
		maxBuffs = 1
	}

	n := o.NumIntegrations - o.integrationIdx
	if n > maxBuffs {
		n = maxBuffs
	}
	if n < 1 {
		n = 1
	}

	buf := o.Buffers.Get(n * fftLen)

	ts := o.lastBufferTimestamp + uint64(n*fftLen)
	gotTs, err := o.Radio.SyncRx(ctx, buf, n*fftLen, ts)
	if err != nil {
		o.Buffers.Put(buf)

		if radio.IsTimestampInPast(err) {
			if cur, tsErr := o.Radio.Timestamp(); tsErr == nil {
				o.lastBufferTimestamp = cur + timestampSlack(o.SampleRate)
			}
			if o.Verbose && o.Logger != nil {
				o.Logger.Warn("capture: timestamp in the past", "error", err)
			}
			return errTimestampRecovered
		}

		if o.Logger != nil {
			o.Logger.Error("capture: sync_rx failed", "error", err)
		}
		return err
	}

	o.lastBufferTimestamp = gotTs + timestampSlack(o.SampleRate)

	c := &Capture{
		Data:           buf[:n*fftLen],
		FreqIdx:        o.freqIdx,
		IntegrationIdx: o.integrationIdx,
		Count:          n,
		ScanTime:       o.tSweep,
	}
	o.Queue.Push(c)

	o.integrationIdx = (o.integrationIdx + n) % o.NumIntegrations
	if o.integrationIdx == 0 {
		o.freqIdx = (o.freqIdx + 1) % len(o.Plan.Freqs)
		if len(o.Plan.Freqs) > 1 {
			qt := o.qtunes[o.freqIdx]
			if err := o.Radio.ScheduleRetune(o.lastBufferTimestamp, o.Plan.Freqs[o.freqIdx], &qt); err != nil {
				return fmt.Errorf("capture: schedule retune: %w", err)
			}
		}
	}

	return nil
}

// reopen closes the current radio, opens a replacement via ReopenRadio,
// and replays the full open-and-calibrate sequence on it.
func (o *Orchestrator) reopen() error {
	if o.ReopenRadio == nil {
		return fmt.Errorf("capture: radio reopen requested but no ReopenRadio factory is configured")
	}
	if o.Radio != nil {
		_ = o.Radio.Close()
	}

	r, err := o.ReopenRadio()
	if err != nil {
		return fmt.Errorf("capture: reopening radio: %w", err)
	}
	o.Radio = r

	return o.openAndCalibrate()
}

// openAndCalibrate applies Configure (if set), builds a fresh quick-tune
// table across the whole plan, and tunes to the first frequency so the
// loop starts from a known (freq_idx, integration_idx) == (0, 0) state.
func (o *Orchestrator) openAndCalibrate() error {
	if o.Configure != nil {
		if err := o.Configure(o.Radio); err != nil {
			return fmt.Errorf("configuring radio: %w", err)
		}
	}

	if err := o.recalibrateQuickTune(); err != nil {
		return err
	}

	if err := o.Radio.Tune(o.Plan.Freqs[0]); err != nil {
		return fmt.Errorf("tuning to initial frequency: %w", err)
	}
	ts, err := o.Radio.Timestamp()
	if err != nil {
		return fmt.Errorf("reading timestamp after initial tune: %w", err)
	}

	o.lastBufferTimestamp = ts + timestampSlack(o.SampleRate)
	o.freqIdx = 0
	o.integrationIdx = 0

	return nil
}

// recalibrateQuickTune rebuilds the quick-tune table without replaying
// Configure, for the hourly refresh path.
func (o *Orchestrator) recalibrateQuickTune() error {
	qtunes, ts, err := radio.Calibrate(o.Radio, o.Plan.Freqs)
	if err != nil {
		return err
	}
	o.qtunes = qtunes
	o.lastBufferTimestamp = ts + timestampSlack(o.SampleRate)
	return nil
}

func (o *Orchestrator) renderStatus(now time.Time) {
	if o.StatusWriter == nil {
		return
	}

	lowerSideband := o.freqIdx == 0 && o.Plan.FirstFreqLowerSideband
	info := status.Info{
		RangeStart:    o.Start,
		RangeEnd:      o.End,
		CenterFreq:    o.Plan.Freqs[o.freqIdx],
		FMBW2:         o.Plan.FMBW2,
		LowerSideband: lowerSideband,
		FirstFreq:     o.freqIdx == 0,
		QueueDepth:    o.Queue.Len(),
		Elapsed:       now.Sub(o.tStart),
		ExitAfter:     o.ExitTimer,
	}
	fmt.Fprint(o.StatusWriter, status.Render(info)+"\r")
}

// vim: foldmethod=marker
