package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	diskstream "github.com/tphakala/go-audio-diskstream"
)

// Metrics server timeouts
const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 2 * time.Second
)

type simulateOptions struct {
	period   int
	speed    float64
	duration time.Duration
}

// simulateResult summarises a simulated playback.
type simulateResult struct {
	frames    int
	reads     int
	underruns int
	meter     *levelMeter
}

func newSimulateCmd(a *app) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate <input>",
		Short: "Play a file against a simulated audio clock and report underruns",
		Long: `simulate reads the input in callback-sized periods paced like an audio
device would, counts the periods where the disk was not ready, and prints
peak and RMS levels per channel.

--speed 2 runs the clock twice as fast as real time; --speed 0 runs it
unpaced, which only measures throughput.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), a, args[0], opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.period, "period", 512, "frames per simulated callback")
	f.Float64Var(&opts.speed, "speed", 1, "clock speed relative to real time (0 = unpaced)")
	f.DurationVar(&opts.duration, "duration", 0, "stop after this much audio (0 = whole file)")
	f.String("metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runSimulate(ctx context.Context, a *app, in string, opts simulateOptions, w io.Writer) error {
	cfg, err := a.cfg.streamConfig()
	if err != nil {
		return err
	}
	cfg.Logger = a.logger

	if addr := a.cfg.Metrics.Listen; addr != "" {
		reg := prometheus.NewRegistry()
		cfg.Metrics = diskstream.NewPrometheusMetrics(reg)
		stop := serveMetrics(a, addr, reg)
		defer stop()
	}

	s, err := diskstream.OpenFile(in, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if opts.period < 1 || opts.period > s.BlockFrames() {
		return fmt.Errorf("period must be 1-%d frames", s.BlockFrames())
	}

	// Prime the stream like a player would before starting the device.
	if err := s.BlockUntilReady(ctx); err != nil {
		return err
	}

	res, err := simulate(ctx, s, opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printSummary(w, s.Info(), res)
	return nil
}

func simulate(ctx context.Context, s *diskstream.ReadStream, opts simulateOptions) (*simulateResult, error) {
	info := s.Info()
	res := &simulateResult{meter: newLevelMeter(info.Channels, opts.period)}

	limit := 0
	if opts.duration > 0 {
		limit = int(opts.duration.Seconds() * float64(info.SampleRate))
	}

	var tick <-chan time.Time
	if opts.speed > 0 {
		interval := time.Duration(float64(opts.period) / float64(info.SampleRate) * float64(time.Second) / opts.speed)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for limit == 0 || res.frames < limit {
		if tick != nil {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		res.reads++
		v, err := s.Read(opts.period)
		switch {
		case errors.Is(err, diskstream.ErrNotReady):
			res.underruns++
			if tick == nil {
				if err := s.BlockUntilReady(ctx); err != nil {
					return res, err
				}
			}
			continue
		case errors.Is(err, io.EOF):
			return res, nil
		case err != nil:
			return res, err
		}

		for ch := range v.NumChannels() {
			samples, err := v.ReadChannel(ch)
			if err != nil {
				return res, err
			}
			res.meter.add(ch, samples)
		}
		res.meter.commit(v.BufferLen())
		res.frames += v.BufferLen()
	}
	return res, nil
}

func printSummary(w io.Writer, info diskstream.FileInfo, res *simulateResult) {
	_, _ = fmt.Fprintf(w, "played %d frames (%.2fs) in %d periods, %d underruns\n",
		res.frames, float64(res.frames)/float64(info.SampleRate), res.reads, res.underruns)
	for ch := range info.Channels {
		_, _ = fmt.Fprintf(w, "  channel %d: peak %6.1f dBFS, rms %6.1f dBFS\n",
			ch, dBFS(res.meter.Peak(ch)), dBFS(res.meter.RMS(ch)))
	}
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown func.
func serveMetrics(a *app, addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("metrics enabled", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
