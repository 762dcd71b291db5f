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

// Package radio defines the façade this program talks to instead of a
// concrete SDR driver: tuning, gain staging, streaming configuration,
// timestamped sample pulls and scheduled retuning. Concrete radios (or, in
// tests, internal/radio/radiomock) implement Radio; nothing above this
// package knows which one it's holding.
package radio

import (
	"context"
	"fmt"
	"strings"

	"hz.tools/rf"
)

// GainStageType describes where in the receive chain a GainStage sits.
type GainStageType uint16

// Is reports whether gst has every bit of gainStageType set.
func (gst GainStageType) Is(gainStageType GainStageType) bool {
	return (gst & gainStageType) == gainStageType
}

// String returns a short human-readable list of type names.
func (gst GainStageType) String() string {
	var attrs []string
	if gst.Is(GainStageTypeFE) {
		attrs = append(attrs, "FE")
	}
	if gst.Is(GainStageTypeIF) {
		attrs = append(attrs, "IF")
	}
	if gst.Is(GainStageTypeBB) {
		attrs = append(attrs, "BB")
	}
	return strings.Join(attrs, ",")
}

const (
	// GainStageTypeFE is the radio frontend / LNA stage.
	GainStageTypeFE GainStageType = 0x0001

	// GainStageTypeIF is the first intermediate-frequency VGA stage.
	GainStageTypeIF GainStageType = 0x0002

	// GainStageTypeBB is the baseband VGA stage.
	GainStageTypeBB GainStageType = 0x0004
)

// GainStage is one adjustable point in the receive gain chain.
type GainStage interface {
	// Range returns the [min, max] this stage accepts, in dB.
	Range() [2]float32

	// Type reports where in the chain this stage sits.
	Type() GainStageType

	// String names this stage, e.g. "LNA", "VGA1", "VGA2".
	String() string
}

// GainStages is a list of GainStage.
type GainStages []GainStage

// First returns the first stage matching gainStageType, or nil.
func (gs GainStages) First(gainStageType GainStageType) GainStage {
	for _, stage := range gs {
		if stage.Type().Is(gainStageType) {
			return stage
		}
	}
	return nil
}

// Map returns the stages keyed by their String() name.
func (gs GainStages) Map() map[string]GainStage {
	ret := map[string]GainStage{}
	for _, stage := range gs {
		ret[stage.String()] = stage
	}
	return ret
}

// StreamParams configures the radio's sample streaming path.
type StreamParams struct {
	NumBuffers    int
	BufferSize    int
	NumTransfers  int
	TimeoutMillis int
}

// QuickTune is an opaque, device-specific state blob that lets a radio jump
// to a previously-visited frequency without a full slow retune. Its
// contents are meaningless outside the Radio implementation that produced
// it.
type QuickTune struct {
	Freq rf.Hz
	Data []byte
}

// Kind distinguishes the sentinel error conditions a Radio surfaces, so
// callers can recover from TimestampInPast and escalate on DeviceLost
// without string-matching error text.
type Kind int

const (
	// KindOther covers any failure without a more specific Kind.
	KindOther Kind = iota

	// KindTimestampInPast is returned by SyncRx when the requested read
	// timestamp has already elapsed on the radio's sample clock.
	KindTimestampInPast

	// KindTimeout is returned when a streaming call exceeds its deadline
	// without completing.
	KindTimeout

	// KindDeviceLost indicates the underlying hardware link has dropped
	// and the Radio must be closed and reopened.
	KindDeviceLost
)

// Error wraps a radio failure with a Kind so callers can switch on it.
type Error struct {
	Kind Kind
	Code int
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimestampInPast:
		return fmt.Sprintf("radio: timestamp in the past: %s", e.Err)
	case KindTimeout:
		return fmt.Sprintf("radio: timeout: %s", e.Err)
	case KindDeviceLost:
		return fmt.Sprintf("radio: device lost: %s", e.Err)
	default:
		return fmt.Sprintf("radio: error %d: %s", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, &radio.Error{Kind: radio.KindTimestampInPast}) works
// without callers constructing a full Error value by hand - see the Is*
// helpers below instead.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsTimestampInPast reports whether err is a radio timestamp-in-past error.
func IsTimestampInPast(err error) bool {
	return isKind(err, KindTimestampInPast)
}

// IsTimeout reports whether err is a radio timeout error.
func IsTimeout(err error) bool {
	return isKind(err, KindTimeout)
}

// IsDeviceLost reports whether err is a radio device-lost error.
func IsDeviceLost(err error) bool {
	return isKind(err, KindDeviceLost)
}

func isKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Radio is the façade the capture loop and calibrator drive. Implementations
// must be safe to use from a single goroutine only - nothing in this
// program calls a Radio concurrently.
type Radio interface {
	// Close releases the radio and any OS handles it holds.
	Close() error

	// Tune performs a full, slow retune to f.
	Tune(f rf.Hz) error

	// SetSampleRate configures the IQ sample rate.
	SetSampleRate(rate rf.Hz) error

	// SetBandwidth configures the analog filter bandwidth.
	SetBandwidth(bw rf.Hz) error

	// GainStages returns the receive gain chain, FE to BB.
	GainStages() (GainStages, error)

	// SetGain sets one stage's gain, in dB.
	SetGain(stage GainStage, db float32) error

	// ConfigureStream prepares the streaming path per params; must be
	// called before EnableRx.
	ConfigureStream(params StreamParams) error

	// EnableRx starts or stops the receive stream.
	EnableRx(enabled bool) error

	// Timestamp returns the radio's current monotonic sample-clock
	// position.
	Timestamp() (uint64, error)

	// ScheduleRetune arranges a retune to take effect at sample-clock
	// position at, optionally applying a previously-recorded QuickTune
	// to make the retune fast. A nil quicktune performs a full retune.
	ScheduleRetune(at uint64, freq rf.Hz, quicktune *QuickTune) error

	// SyncRx blocks until numSamples have been written into dst (which
	// must be at least that long), scheduling the read to begin at the
	// sample-clock position ts, and returns the sample-clock timestamp
	// the radio actually achieved. A ts in the past (relative to the
	// radio's clock) must surface as a KindTimestampInPast *Error rather
	// than silently reading from wherever the clock currently sits. ctx
	// governs the per-call timeout; implementations should translate
	// ctx.Err() into a KindTimeout *Error.
	SyncRx(ctx context.Context, dst [][2]int16, numSamples int, ts uint64) (uint64, error)

	// QuickTuneGet captures the device-specific state needed to jump
	// back to the radio's current frequency quickly.
	QuickTuneGet() (QuickTune, error)
}

// vim: foldmethod=marker
