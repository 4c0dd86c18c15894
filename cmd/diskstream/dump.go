package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	diskstream "github.com/tphakala/go-audio-diskstream"
)

type dumpOptions struct {
	loopStart int
	loopEnd   int
	loops     int
	bitDepth  int
}

func newDumpCmd(a *app) *cobra.Command {
	var opts dumpOptions

	cmd := &cobra.Command{
		Use:   "dump <input> <output.wav>",
		Short: "Stream a file into a WAV file, optionally looping a region",
		Long: `dump reads the input through a disk stream as fast as the disk allows
and writes every frame it returns to a WAV file.

With --loops N the region [--loop-start, --loop-end) is played N extra times
by seeking back to a cached jump point, which exercises the seek cache path.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), a, args[0], args[1], opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.loopStart, "loop-start", 0, "loop region start frame")
	f.IntVar(&opts.loopEnd, "loop-end", 0, "loop region end frame (exclusive)")
	f.IntVar(&opts.loops, "loops", 0, "number of extra passes through the loop region")
	f.IntVar(&opts.bitDepth, "bit-depth", bitsPerSample16, "output bit depth (16 or 24)")

	return cmd
}

func runDump(ctx context.Context, a *app, in, out string, opts dumpOptions, w io.Writer) error {
	cfg, err := a.cfg.streamConfig()
	if err != nil {
		return err
	}
	cfg.Logger = a.logger

	s, err := diskstream.OpenFile(in, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	info := s.Info()
	if opts.loops > 0 {
		if err := validateLoop(opts, info); err != nil {
			return err
		}
		if _, err := s.CacheJumpPoint(opts.loopStart); err != nil {
			return fmt.Errorf("failed to cache loop start: %w", err)
		}
	}

	output, err := createWAVOutput(out, info.SampleRate, opts.bitDepth, info.Channels)
	if err != nil {
		return err
	}

	written, err := pump(ctx, s, opts, output)
	if closeErr := output.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if derr := s.Err(); derr != nil {
		a.logger.Warn("decoder errors were replaced by silence", "error", derr)
	}

	_, _ = fmt.Fprintf(w, "wrote %d frames (%.2fs) to %s\n",
		written, float64(written)/float64(info.SampleRate), out)
	return nil
}

func validateLoop(opts dumpOptions, info diskstream.FileInfo) error {
	if opts.loopStart < 0 || opts.loopEnd <= opts.loopStart {
		return fmt.Errorf("invalid loop region [%d, %d)", opts.loopStart, opts.loopEnd)
	}
	if info.NumFrames != diskstream.UnknownLength && opts.loopEnd > info.NumFrames {
		return fmt.Errorf("loop end %d is past the end of the file (%d frames)", opts.loopEnd, info.NumFrames)
	}
	return nil
}

// pump copies the stream to output, waiting for the disk whenever the
// stream underruns, and returns the number of frames written.
func pump(ctx context.Context, s *diskstream.ReadStream, opts dumpOptions, output *wavOutputWriter) (int, error) {
	channels := s.Info().Channels
	interleaved := make([]float32, s.BlockFrames()*channels)
	loopsLeft := opts.loops
	written := 0

	for {
		want := s.BlockFrames()
		if loopsLeft > 0 {
			pos := s.Position()
			if pos == opts.loopEnd {
				if _, err := s.Seek(opts.loopStart); err != nil {
					return written, err
				}
				loopsLeft--
				continue
			}
			if pos < opts.loopEnd {
				want = min(want, opts.loopEnd-pos)
			}
		}

		v, err := s.Read(want)
		switch {
		case errors.Is(err, diskstream.ErrNotReady):
			if err := s.BlockUntilReady(ctx); err != nil {
				return written, err
			}
			continue
		case errors.Is(err, io.EOF):
			return written, nil
		case err != nil:
			return written, err
		}

		n := v.Interleave(interleaved)
		if err := output.WriteInterleaved(interleaved[:n*channels]); err != nil {
			return written, fmt.Errorf("failed to write output: %w", err)
		}
		written += n
	}
}
