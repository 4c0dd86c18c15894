// Command diskstream streams audio files through a diskstream.ReadStream.
//
// Usage:
//
//	diskstream dump input.wav output.wav
//	diskstream dump --loop-start 48000 --loop-end 96000 --loops 4 input.mp3 looped.wav
//	diskstream simulate --period 256 --preset low-latency input.wav
//	diskstream simulate --metrics-listen :9090 --speed 0 input.wav
//
// Every flag can also be set in a YAML config file (--config) or through
// DISKSTREAM_* environment variables, e.g. DISKSTREAM_STREAM_PRESET=safe.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
