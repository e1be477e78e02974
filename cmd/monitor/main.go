// Command monitor listens to the default input without any window and
// logs every change of the detected note or tuning band.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/metalblueberry/bard/pkg/config"
	"github.com/metalblueberry/bard/pkg/loop"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

func main() {
	duration := flag.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger()

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt)
	defer done()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	clock := loop.NewFrameClock()
	preset := tuning.Default().MustPreset(cfg.Tuner.Preset)
	lp := loop.New(cfg.Source(logger), clock, tuner.Create(cfg.TunerSettings()), preset, logger)

	if err := lp.Start(ctx); err != nil {
		logger.Error("cannot listen", "err", err)
		os.Exit(1)
	}
	defer lp.Stop()

	logger.Info("listening", "preset", preset.Name, "sampleRate", lp.SampleRate())
	run(ctx, lp, clock, time.Second/time.Duration(cfg.UI.RefreshRate), logger)
}

// run ticks the clock until ctx is done or the input is lost, logging
// the status whenever its note or band changes.
func run(ctx context.Context, lp *loop.Loop, clock *loop.FrameClock, frame time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	var previous tuner.Status

	for {
		select {
		case <-ticker.C:
			clock.Tick()

			if lp.State() != loop.Listening {
				logger.Error("stopped listening", "err", lp.Err())
				return
			}

			s := lp.Status()

			if s.Note != previous.Note || s.Band != previous.Band || s.StringIndex != previous.StringIndex {
				if !s.Empty() {
					logger.Info(s.Label(),
						"note", s.Note,
						"frequency", fmt.Sprintf("%.2f", s.Frequency),
						"cents", s.Cents,
						"string", s.Target.Label,
					)
				}
				previous = s
			}
		case <-ctx.Done():
			logger.Info("done", "frames", lp.Frames())
			return
		}
	}
}
