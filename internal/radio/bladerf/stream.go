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

package bladerf

// #cgo pkg-config: libbladerf
//
// #include <libbladeRF.h>
// #include <string.h>
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/radio"
)

// ConfigureStream implements radio.Radio. The RX module always streams in
// the SC16Q11 metadata format, since scheduled retunes and per-buffer
// timestamps both depend on it.
func (r *Radio) ConfigureStream(params radio.StreamParams) error {
	return rvToErr("sync_config", C.bladerf_sync_config(
		r.dev,
		C.BLADERF_MODULE_RX,
		C.BLADERF_FORMAT_SC16_Q11_META,
		C.uint(params.NumBuffers),
		C.uint(params.BufferSize),
		C.uint(params.NumTransfers),
		C.uint(params.TimeoutMillis),
	))
}

// EnableRx implements radio.Radio.
func (r *Radio) EnableRx(enabled bool) error {
	if err := rvToErr("enable_module", C.bladerf_enable_module(r.dev, C.BLADERF_MODULE_RX, C.bool(enabled))); err != nil {
		return err
	}
	r.streamed = enabled
	return nil
}

// SyncRx implements radio.Radio, pulling numSamples SC16Q11 IQ pairs
// directly into dst, which is laid out identically to the interleaved
// int16 pairs libbladeRF expects. The read is scheduled at ts (passed as
// meta.timestamp, IN/OUT per libbladeRF's metadata convention) rather than
// issued as an immediate read, so a ts that has already elapsed on the
// radio's sample clock surfaces as BLADERF_ERR_TIME_PAST instead of
// silently reading from the device's current position. ctx is checked
// before issuing the call; libbladeRF's own stream_timeout (set via
// ConfigureStream) is what actually bounds the blocking call.
func (r *Radio) SyncRx(ctx context.Context, dst [][2]int16, numSamples int, ts uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &radio.Error{Kind: radio.KindTimeout, Err: err}
	}
	if len(dst) < numSamples {
		return 0, fmt.Errorf("bladerf: dst has %d slots, need %d", len(dst), numSamples)
	}

	var meta C.struct_bladerf_metadata
	meta.flags = C.BLADERF_META_FLAG_NONE
	meta.timestamp = C.uint64_t(ts)

	rv := C.bladerf_sync_rx(
		r.dev,
		unsafe.Pointer(&dst[0]),
		C.uint(numSamples),
		&meta,
		0,
	)
	if err := rvToErr("sync_rx", rv); err != nil {
		return 0, err
	}

	return uint64(meta.timestamp), nil
}

// ScheduleRetune implements radio.Radio, replaying a previously-captured
// QuickTune when quicktune is non-nil so the retune lands without the
// full slow-tune settling delay.
func (r *Radio) ScheduleRetune(at uint64, freq rf.Hz, quicktune *radio.QuickTune) error {
	var qt *C.struct_bladerf_quick_tune
	if quicktune != nil && len(quicktune.Data) == int(C.sizeof_struct_bladerf_quick_tune) {
		var cqt C.struct_bladerf_quick_tune
		C.memcpy(unsafe.Pointer(&cqt), unsafe.Pointer(&quicktune.Data[0]), C.sizeof_struct_bladerf_quick_tune)
		qt = &cqt
	}

	return rvToErr("schedule_retune", C.bladerf_schedule_retune(
		r.dev,
		C.BLADERF_MODULE_RX,
		C.uint64_t(at),
		C.uint(freq),
		qt,
	))
}

// QuickTuneGet implements radio.Radio, copying libbladeRF's opaque
// quick-tune blob verbatim into QuickTune.Data; this program never
// interprets its bytes, only replays them through ScheduleRetune.
func (r *Radio) QuickTuneGet() (radio.QuickTune, error) {
	freq, err := r.currentFrequency()
	if err != nil {
		return radio.QuickTune{}, err
	}

	var cqt C.struct_bladerf_quick_tune
	if err := rvToErr("get_quick_tune", C.bladerf_get_quick_tune(r.dev, C.BLADERF_MODULE_RX, &cqt)); err != nil {
		return radio.QuickTune{}, err
	}

	data := make([]byte, C.sizeof_struct_bladerf_quick_tune)
	C.memcpy(unsafe.Pointer(&data[0]), unsafe.Pointer(&cqt), C.sizeof_struct_bladerf_quick_tune)

	return radio.QuickTune{Freq: freq, Data: data}, nil
}

func (r *Radio) currentFrequency() (rf.Hz, error) {
	var freq C.bladerf_frequency
	if err := rvToErr("get_frequency", C.bladerf_get_frequency(r.dev, C.BLADERF_MODULE_RX, &freq)); err != nil {
		return 0, err
	}
	return rf.Hz(freq), nil
}

// vim: foldmethod=marker
