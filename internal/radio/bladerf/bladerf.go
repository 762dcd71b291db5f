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

// Package bladerf implements radio.Radio against a real Nuand bladeRF over
// libbladeRF. It's the only internal/radio implementation that talks to
// hardware; everything above radio.Radio is written against the interface,
// not this package.
package bladerf

// #cgo linux LDFLAGS: -lbladeRF
// #cgo pkg-config: libbladerf
//
// #include <libbladeRF.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"unsafe"

	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/radio"
)

// FrequencyMin and FrequencyMax bound what this hardware can tune to;
// freqplan.New uses them to decide whether the sweep's first view must be
// read from its lower sideband.
var (
	FrequencyMin = rf.Hz(C.BLADERF_FREQUENCY_MIN)
	FrequencyMax = rf.Hz(C.BLADERF_FREQUENCY_MAX)
)

func rvToErr(op string, rv C.int) error {
	if rv == 0 {
		return nil
	}
	msg := C.GoString(C.bladerf_strerror(rv))
	switch rv {
	case C.BLADERF_ERR_TIMEOUT:
		return &radio.Error{Kind: radio.KindTimeout, Code: int(rv), Err: fmt.Errorf("bladerf: %s: %s", op, msg)}
	case C.BLADERF_ERR_NODEV, C.BLADERF_ERR_IO:
		return &radio.Error{Kind: radio.KindDeviceLost, Code: int(rv), Err: fmt.Errorf("bladerf: %s: %s", op, msg)}
	case C.BLADERF_ERR_TIME_PAST:
		return &radio.Error{Kind: radio.KindTimestampInPast, Code: int(rv), Err: fmt.Errorf("bladerf: %s: %s", op, msg)}
	default:
		return &radio.Error{Kind: radio.KindOther, Code: int(rv), Err: fmt.Errorf("bladerf: %s: %s", op, msg)}
	}
}

// HardwareInfo names one bladeRF found by List.
type HardwareInfo struct {
	Serial   string
	Backend  string
	USBBus   int
	USBAddr  int
}

// List enumerates every bladeRF currently attached to the system, without
// opening any of them.
func List() ([]HardwareInfo, error) {
	var devices *C.struct_bladerf_devinfo
	n := C.bladerf_get_device_list(&devices)
	if n < 0 {
		return nil, rvToErr("get_device_list", C.int(n))
	}
	defer C.bladerf_free_device_list(devices)

	infos := (*[1 << 16]C.struct_bladerf_devinfo)(unsafe.Pointer(devices))[:n:n]
	ret := make([]HardwareInfo, 0, n)
	for _, d := range infos {
		ret = append(ret, HardwareInfo{
			Serial:  C.GoString(&d.serial[0]),
			Backend: C.GoString(C.bladerf_backend_str(d.backend)),
			USBBus:  int(d.usb_bus),
			USBAddr: int(d.usb_addr),
		})
	}
	return ret, nil
}

// Radio is a radio.Radio backed by one open bladeRF, always driving the RX
// module on BLADERF_CHANNEL_RX(0).
type Radio struct {
	dev        *C.struct_bladerf
	sampleRate rf.Hz
	streamed   bool
}

// Open opens the bladeRF named by device (a libbladeRF device identifier
// string, or "" for the first device found). It leaves the device
// unconfigured: the SC16Q11 metadata streaming format is applied later by
// ConfigureStream.
func Open(device string) (*Radio, error) {
	var cDevStr *C.char
	if device != "" {
		cDevStr = C.CString(device)
		defer C.free(unsafe.Pointer(cDevStr))
	}

	var dev *C.struct_bladerf
	if err := rvToErr("open", C.bladerf_open(&dev, cDevStr)); err != nil {
		return nil, err
	}

	return &Radio{dev: dev}, nil
}

// Close implements radio.Radio.
func (r *Radio) Close() error {
	if r.dev == nil {
		return nil
	}
	if r.streamed {
		_ = C.bladerf_enable_module(r.dev, C.BLADERF_MODULE_RX, C.bool(false))
	}
	C.bladerf_close(r.dev)
	r.dev = nil
	return nil
}

// Tune implements radio.Radio, performing a full slow retune.
func (r *Radio) Tune(f rf.Hz) error {
	return rvToErr("set_frequency", C.bladerf_set_frequency(r.dev, C.BLADERF_MODULE_RX, C.bladerf_frequency(f)))
}

// SetSampleRate implements radio.Radio.
func (r *Radio) SetSampleRate(rate rf.Hz) error {
	if err := rvToErr("set_sample_rate", C.bladerf_set_sample_rate(r.dev, C.BLADERF_MODULE_RX, C.uint(rate), nil)); err != nil {
		return err
	}
	r.sampleRate = rate
	return nil
}

// SetBandwidth implements radio.Radio.
func (r *Radio) SetBandwidth(bw rf.Hz) error {
	return rvToErr("set_bandwidth", C.bladerf_set_bandwidth(r.dev, C.BLADERF_MODULE_RX, C.uint(bw), nil))
}

// Timestamp implements radio.Radio.
func (r *Radio) Timestamp() (uint64, error) {
	var ts C.uint64_t
	if err := rvToErr("get_timestamp", C.bladerf_get_timestamp(r.dev, C.BLADERF_MODULE_RX, &ts)); err != nil {
		return 0, err
	}
	return uint64(ts), nil
}

// vim: foldmethod=marker
