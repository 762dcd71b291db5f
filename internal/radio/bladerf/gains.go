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
import "C"

import (
	"fmt"

	"github.com/staticfloat/bladeRF-power/internal/radio"
)

// gainStage is the shared radio.GainStage implementation for all three
// bladeRF1 receive gain stages. The LNA stage (isLNA) reports a continuous
// range, but setLNAGain snaps the requested dB to one of the device's three
// discrete LNA settings.
type gainStage struct {
	name     string
	typ      radio.GainStageType
	min, max float32
	isLNA    bool
}

func (g gainStage) Range() [2]float32         { return [2]float32{g.min, g.max} }
func (g gainStage) Type() radio.GainStageType { return g.typ }
func (g gainStage) String() string            { return g.name }

// GainStages implements radio.Radio. The bladeRF1 receive chain is LNA
// (FE, three discrete settings) -> RXVGA1 (IF, continuous) -> RXVGA2 (BB,
// continuous).
func (r *Radio) GainStages() (radio.GainStages, error) {
	return radio.GainStages{
		gainStage{name: "LNA", typ: radio.GainStageTypeFE, min: 0, max: float32(C.BLADERF_LNA_GAIN_MAX_DB), isLNA: true},
		gainStage{name: "RXVGA1", typ: radio.GainStageTypeIF, min: 5, max: 30},
		gainStage{name: "RXVGA2", typ: radio.GainStageTypeBB, min: 0, max: 60},
	}, nil
}

// SetGain implements radio.Radio, dispatching on the stage's name since
// libbladeRF exposes each of these through its own function rather than a
// uniform set-gain-by-handle call.
func (r *Radio) SetGain(stage radio.GainStage, db float32) error {
	gs, ok := stage.(gainStage)
	if !ok {
		return fmt.Errorf("bladerf: unrecognized gain stage %q", stage.String())
	}

	switch gs.name {
	case "LNA":
		return r.setLNAGain(db)
	case "RXVGA1":
		return rvToErr("set_rxvga1", C.bladerf_set_rxvga1(r.dev, C.int(db)))
	case "RXVGA2":
		return rvToErr("set_rxvga2", C.bladerf_set_rxvga2(r.dev, C.int(db)))
	default:
		return fmt.Errorf("bladerf: unrecognized gain stage %q", gs.name)
	}
}

// setLNAGain snaps db to the nearest of the LNA's three discrete settings,
// since BLADERF_LNA_GAIN_{BYPASS,MID,MAX} is all libbladeRF accepts.
func (r *Radio) setLNAGain(db float32) error {
	var lna C.bladerf_lna_gain
	switch {
	case db >= float32(C.BLADERF_LNA_GAIN_MAX_DB):
		lna = C.BLADERF_LNA_GAIN_MAX
	case db >= float32(C.BLADERF_LNA_GAIN_MID_DB):
		lna = C.BLADERF_LNA_GAIN_MID
	default:
		lna = C.BLADERF_LNA_GAIN_BYPASS
	}
	return rvToErr("set_lna_gain", C.bladerf_set_lna_gain(r.dev, lna))
}

// vim: foldmethod=marker
