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

// Command bladerf-power sweeps a bladeRF across a frequency range, folding
// windowed FFTs into per-view power spectra and emitting them as CSV.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/staticfloat/bladeRF-power/internal/capture"
	"github.com/staticfloat/bladeRF-power/internal/config"
	"github.com/staticfloat/bladeRF-power/internal/fft/gonumfft"
	"github.com/staticfloat/bladeRF-power/internal/freqplan"
	"github.com/staticfloat/bladeRF-power/internal/radio"
	"github.com/staticfloat/bladeRF-power/internal/radio/bladerf"
	"github.com/staticfloat/bladeRF-power/internal/window"
	"github.com/staticfloat/bladeRF-power/internal/worker"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := newLogger(cfg.Verbosity)

	plan, err := freqplan.New(freqplan.Params{
		Start:             cfg.StartFreq,
		End:               cfg.EndFreq,
		SampleRate:        cfg.SampleRate,
		RequestedBinWidth: cfg.RequestedBinWidth,
		FilterMargin:      cfg.FilterMargin,
		RadioMin:          bladerf.FrequencyMin,
		RadioMax:          bladerf.FrequencyMax,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	sink, closeSink, err := openSink(cfg.OutputPath)
	if err != nil {
		logger.Error("opening output", "error", err)
		return 1
	}
	defer closeSink()

	r, err := openRadio(cfg)
	if err != nil {
		logger.Error("opening radio", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		<-sigCh
		logger.Warn("caught interrupt, shutting down gracefully - interrupt again to force quit")
		signal.Stop(sigCh)
		cancel()
	}()

	queue := capture.NewQueue()
	buffers := capture.NewBufferPool()
	var sinkMu sync.Mutex

	pool := &worker.Pool{
		NumWorkers:      cfg.NumThreads,
		NumIntegrations: cfg.NumIntegrations,
		Planner:         gonumfft.Planner(),
		Windows:         window.NewCache(cfg.WindowName),
		Queue:           queue,
		Buffers:         buffers,
		Sink:            sink,
		SinkMu:          &sinkMu,
		Logger:          logger,
		ViewFor: func(freqIdx int) worker.View {
			return worker.View{
				Center:        plan.Freqs[freqIdx],
				Start:         cfg.StartFreq,
				End:           cfg.EndFreq,
				BinWidth:      plan.BinWidth,
				FMBW2:         plan.FMBW2,
				FFTLen:        plan.FFTLen,
				LowerSideband: freqIdx == 0 && plan.FirstFreqLowerSideband,
			}
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()

	orch := &capture.Orchestrator{
		Radio:           r,
		ReopenRadio:     func() (radio.Radio, error) { return openRadio(cfg) },
		Configure:       func(r radio.Radio) error { return configureRadio(r, cfg) },
		Plan:            plan,
		Start:           cfg.StartFreq,
		End:             cfg.EndFreq,
		SampleRate:      cfg.SampleRate,
		NumIntegrations: cfg.NumIntegrations,
		ExitTimer:       cfg.ExitTimer,
		Queue:           queue,
		Buffers:         buffers,
		StatusWriter:    os.Stderr,
		Logger:          logger,
		Verbose:         cfg.Verbosity > 0,
	}

	runErr := orch.Run(ctx)
	cancel()
	wg.Wait()

	if runErr != nil {
		logger.Error("capture loop exited with an error", "error", runErr)
		return 1
	}
	return 0
}

// openRadio opens a bladeRF without configuring it; sample rate, bandwidth,
// gains and streaming format are applied by configureRadio, which the
// capture loop runs on this device and again after a forced reopen.
func openRadio(cfg config.Config) (radio.Radio, error) {
	r, err := bladerf.Open(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("opening bladeRF: %w", err)
	}
	return r, nil
}

// configureRadio applies sample rate, bandwidth, gains, stream parameters
// and enables RX, in that order - the sequence the original tool's device
// setup follows.
func configureRadio(r radio.Radio, cfg config.Config) error {
	if err := r.SetSampleRate(cfg.SampleRate); err != nil {
		return fmt.Errorf("setting sample rate: %w", err)
	}
	if err := r.SetBandwidth(cfg.SampleRate); err != nil {
		return fmt.Errorf("setting bandwidth: %w", err)
	}

	stages, err := r.GainStages()
	if err != nil {
		return fmt.Errorf("reading gain stages: %w", err)
	}

	for _, set := range []struct {
		name string
		gain config.Gain
	}{
		{"LNA", cfg.LNAGain},
		{"RXVGA1", cfg.RXVGA1},
		{"RXVGA2", cfg.RXVGA2},
	} {
		stage := stages.Map()[set.name]
		if stage == nil {
			continue
		}
		if err := r.SetGain(stage, resolveGain(set.gain, stage)); err != nil {
			return fmt.Errorf("setting %s gain: %w", set.name, err)
		}
	}

	if err := r.ConfigureStream(radio.StreamParams{
		NumBuffers:    cfg.NumBuffers,
		BufferSize:    cfg.BufferSize,
		NumTransfers:  cfg.NumTransfers,
		TimeoutMillis: cfg.TimeoutMillis,
	}); err != nil {
		return fmt.Errorf("configuring stream: %w", err)
	}

	return r.EnableRx(true)
}

// resolveGain turns a config.Gain - either an explicit dB value or a named
// preset - into the dB value to apply to stage, clamped to its Range.
func resolveGain(g config.Gain, stage radio.GainStage) float32 {
	r := stage.Range()
	switch g.Preset {
	case "min", "bypass", "0":
		return r[0]
	case "max":
		return r[1]
	case "mid":
		return (r[0] + r[1]) / 2
	default:
		db := g.DB
		if db < r[0] {
			db = r[0]
		}
		if db > r[1] {
			db = r[1]
		}
		return db
	}
}

func openSink(path string) (*bufio.Writer, func() error, error) {
	if path == "" {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// vim: foldmethod=marker
