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

// Package config parses the CLI into a Config, deriving the FFT length, bin
// width, fmbw2 and integration count that the rest of the program treats as
// read-mostly, post-setup state.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"hz.tools/rf"

	"github.com/staticfloat/bladeRF-power/internal/window"
)

// Defaults, lifted from the original tool's DEFAULT() macro table.
const (
	DefaultFilterMargin  = 0.55
	DefaultWindowName    = window.Hamming
	DefaultNumBuffers    = 32
	DefaultBufferSize    = 8192
	DefaultNumTransfers  = 8
	DefaultTimeoutMillis = 1000
	DefaultNumThreads    = 2

	// maxBandwidth is BLADERF_BANDWIDTH_MAX: both the ceiling --bandwidth
	// clamps to and, per the original tool's defaults table
	// (DEFAULT(opts.samplerate, BLADERF_BANDWIDTH_MAX)), the sample rate
	// used when --bandwidth is omitted entirely.
	maxBandwidth = rf.Hz(61.44e6)
)

// Gain is a gain-stage setting: either an explicit dB value or one of the
// named presets (min/mid/max/bypass) the CLI accepts in place of a number.
type Gain struct {
	Preset string
	DB     float32
}

// Config is the fully-parsed, derived configuration driving one run.
type Config struct {
	StartFreq, EndFreq rf.Hz
	RequestedBinWidth  rf.Hz
	SampleRate         rf.Hz
	FilterMargin       float64

	FFTLen          int
	BinWidth        rf.Hz
	FMBW2           rf.Hz
	NumIntegrations int

	ExitTimer time.Duration

	NumThreads int

	NumBuffers    int
	BufferSize    int
	NumTransfers  int
	TimeoutMillis int

	LNAGain  Gain
	RXVGA1   Gain
	RXVGA2   Gain

	WindowName window.Name

	Device string

	OutputPath string
	Verbosity  int
}

// ErrUsage is returned for any CLI parsing failure; the message explains
// what was wrong.
var ErrUsage = fmt.Errorf("config: invalid command line")

// Parse parses args (normally os.Args[1:]) into a Config.
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("bladerf-power", pflag.ContinueOnError)

	verbose := fs.CountP("verbose", "v", "increase log verbosity (repeatable)")
	file := fs.StringP("file", "f", "", "output CSV file (default: stdout)")
	exitTimer := fs.StringP("exit-timer", "e", "0", "stop after this long, 0 = forever (d/h/m/s/ms suffixes)")
	integrationTime := fs.StringP("integration-time", "i", "0", "duration to average each view over (d/h/m/s/ms suffixes, bare number = ms)")
	bandwidth := fs.StringP("bandwidth", "b", "", "radio sample rate / analog bandwidth")
	filterMargin := fs.Float64P("filter-margin", "M", DefaultFilterMargin, "fraction of each view's bandwidth trusted, in [0.1, 1.0]")
	windowType := fs.StringP("window-type", "W", string(DefaultWindowName), "window function: rect|hann|hamming")
	lnaGain := fs.StringP("lna-gain", "g", "max", "LNA gain: dB, or 0|mid|max|bypass")
	rxvga1 := fs.StringP("rxvga1", "o", "min", "RXVGA1 gain: dB, min, or max")
	rxvga2 := fs.StringP("rxvga2", "w", "min", "RXVGA2 gain: dB, min, or max")
	device := fs.StringP("device", "d", "", "device identifier string")
	threads := fs.IntP("threads", "T", DefaultNumThreads, "number of worker threads, 1..128")
	fs.BoolP("help", "h", false, "show usage and exit")
	fs.BoolP("version", "V", false, "show version and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrUsage, err)
	}

	if fs.NArg() != 1 {
		return Config{}, fmt.Errorf("%w: expected exactly one positional argument lower:upper:bin_width, got %d", ErrUsage, fs.NArg())
	}

	start, end, binWidthReq, err := parseFreqRange(fs.Arg(0))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrUsage, err)
	}

	cfg := Config{
		StartFreq:         start,
		EndFreq:           end,
		RequestedBinWidth: binWidthReq,
		FilterMargin:      *filterMargin,
		NumThreads:        *threads,
		NumBuffers:        DefaultNumBuffers,
		BufferSize:        DefaultBufferSize,
		NumTransfers:      DefaultNumTransfers,
		TimeoutMillis:     DefaultTimeoutMillis,
		Device:            *device,
		OutputPath:        *file,
		Verbosity:         *verbose,
	}

	if cfg.FilterMargin < 0.1 || cfg.FilterMargin > 1.0 {
		return Config{}, fmt.Errorf("%w: --filter-margin must be in [0.1, 1.0], got %v", ErrUsage, cfg.FilterMargin)
	}
	if cfg.NumThreads < 1 || cfg.NumThreads > 128 {
		return Config{}, fmt.Errorf("%w: --threads must be in [1, 128], got %d", ErrUsage, cfg.NumThreads)
	}

	cfg.ExitTimer, err = ParseDuration(*exitTimer)
	if err != nil {
		return Config{}, fmt.Errorf("%w: --exit-timer: %s", ErrUsage, err)
	}

	cfg.WindowName, err = window.ParseName(*windowType)
	if err != nil {
		return Config{}, fmt.Errorf("%w: --window-type: %s", ErrUsage, err)
	}

	cfg.LNAGain, err = parseGain(*lnaGain, []string{"0", "mid", "max", "bypass"})
	if err != nil {
		return Config{}, fmt.Errorf("%w: --lna-gain: %s", ErrUsage, err)
	}
	cfg.RXVGA1, err = parseGain(*rxvga1, []string{"min", "max"})
	if err != nil {
		return Config{}, fmt.Errorf("%w: --rxvga1: %s", ErrUsage, err)
	}
	cfg.RXVGA2, err = parseGain(*rxvga2, []string{"min", "max"})
	if err != nil {
		return Config{}, fmt.Errorf("%w: --rxvga2: %s", ErrUsage, err)
	}

	if *bandwidth != "" {
		cfg.SampleRate, err = ParseHz(*bandwidth, 1, maxBandwidth)
		if err != nil {
			return Config{}, fmt.Errorf("%w: --bandwidth: %s", ErrUsage, err)
		}
	} else {
		cfg.SampleRate = maxBandwidth
	}

	// fft_len is the minimum FFT length whose bins are no wider than the
	// requested bin width.
	cfg.FFTLen = int(math.Ceil(float64(cfg.SampleRate) / float64(cfg.RequestedBinWidth)))
	if cfg.FFTLen < 1 {
		cfg.FFTLen = 1
	}
	cfg.BinWidth = cfg.SampleRate / rf.Hz(cfg.FFTLen)

	cfg.FMBW2 = rf.Hz(math.Ceil(cfg.FilterMargin*float64(cfg.SampleRate)*float64(cfg.FFTLen)/2) / float64(cfg.FFTLen))

	cfg.NumIntegrations, err = deriveNumIntegrations(*integrationTime, cfg.FFTLen, cfg.SampleRate)
	if err != nil {
		return Config{}, fmt.Errorf("%w: --integration-time: %s", ErrUsage, err)
	}

	return cfg, nil
}

// deriveNumIntegrations converts the user's requested integration time (a
// duration string; a bare number with no suffix is read as milliseconds by
// ParseDuration) into a spectrum count,
// the same "divide requested time by one FFT's duration, round up" rule
// the original tool used for its num_integrations field.
func deriveNumIntegrations(s string, fftLen int, sampleRate rf.Hz) (int, error) {
	if s == "" || s == "0" {
		return 1, nil
	}

	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 1, nil
	}

	fftDuration := time.Duration(float64(fftLen) / float64(sampleRate) * float64(time.Second))
	if fftDuration <= 0 {
		return 1, nil
	}

	n := int(math.Ceil(float64(d) / float64(fftDuration)))
	if n < 1 {
		n = 1
	}
	return n, nil
}

func parseGain(s string, presets []string) (Gain, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, preset := range presets {
		if lower == preset {
			return Gain{Preset: preset}, nil
		}
	}

	db, err := ParseHz(s, -1000, 1000)
	if err != nil {
		return Gain{}, fmt.Errorf("not a preset (%s) or a number: %s", strings.Join(presets, "|"), err)
	}
	return Gain{DB: float32(db)}, nil
}

// parseFreqRange splits "lower:upper:bin_width" and parses each SI-suffixed
// field.
func parseFreqRange(s string) (start, end, binWidth rf.Hz, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected lower:upper:bin_width, got %q", s)
	}

	start, err = ParseHz(parts[0], 0, rf.Hz(6e9))
	if err != nil {
		return 0, 0, 0, err
	}
	end, err = ParseHz(parts[1], 0, rf.Hz(6e9))
	if err != nil {
		return 0, 0, 0, err
	}
	if end <= start {
		return 0, 0, 0, fmt.Errorf("upper frequency must exceed lower frequency")
	}
	binWidth, err = ParseHz(parts[2], 1, rf.Hz(61.44e6))
	if err != nil {
		return 0, 0, 0, err
	}

	return start, end, binWidth, nil
}

// vim: foldmethod=marker
