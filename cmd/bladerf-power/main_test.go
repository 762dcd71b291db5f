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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staticfloat/bladeRF-power/internal/config"
	"github.com/staticfloat/bladeRF-power/internal/radio"
)

type fakeStage struct {
	name     string
	min, max float32
}

func (f fakeStage) Range() [2]float32        { return [2]float32{f.min, f.max} }
func (f fakeStage) Type() radio.GainStageType { return radio.GainStageTypeFE }
func (f fakeStage) String() string            { return f.name }

func TestResolveGainPresets(t *testing.T) {
	stage := fakeStage{name: "LNA", min: 0, max: 6}

	assert.Equal(t, float32(0), resolveGain(config.Gain{Preset: "bypass"}, stage))
	assert.Equal(t, float32(0), resolveGain(config.Gain{Preset: "0"}, stage))
	assert.Equal(t, float32(6), resolveGain(config.Gain{Preset: "max"}, stage))
	assert.Equal(t, float32(3), resolveGain(config.Gain{Preset: "mid"}, stage))
}

func TestResolveGainExplicitDBIsClamped(t *testing.T) {
	stage := fakeStage{name: "RXVGA1", min: 5, max: 30}

	assert.Equal(t, float32(20), resolveGain(config.Gain{DB: 20}, stage))
	assert.Equal(t, float32(5), resolveGain(config.Gain{DB: -10}, stage), "below range clamps to the minimum")
	assert.Equal(t, float32(30), resolveGain(config.Gain{DB: 100}, stage), "above range clamps to the maximum")
}

func TestOpenSinkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, closeFn, err := openSink(path)
	require.NoError(t, err)

	_, err = w.WriteString("hello\n")
	require.NoError(t, err)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestOpenSinkEmptyPathUsesStdout(t *testing.T) {
	w, closeFn, err := openSink("")
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.NoError(t, closeFn())
}
