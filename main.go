// Command bard plays reference tones of a guitar tuning.
//
//	bard -list
//	bard -preset DropD            # every string, low to high
//	bard -preset OpenG -string 5
//	bard -freq 440 -volume 0.3
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/metalblueberry/bard/pkg/config"
	"github.com/metalblueberry/bard/pkg/tone"
	"github.com/metalblueberry/bard/pkg/tuning"
)

func main() {
	list := flag.Bool("list", false, "list the tuning presets and exit")
	str := flag.Int("string", 0, "play only this string, 1 is the lowest")
	freq := flag.Float64("freq", 0, "play this frequency instead of a preset")
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger()
	table := tuning.Default()

	if *list {
		printPresets(table)
		return
	}

	preset := table.MustPreset(cfg.Tuner.Preset)
	var freqs []float64

	switch {
	case *freq > 0:
		freqs = []float64{*freq}
	case *str > 0 && *str <= len(preset.Strings):
		freqs = []float64{preset.Strings[*str-1].Frequency}
	case *str == 0:
		for _, s := range preset.Strings {
			freqs = append(freqs, s.Frequency)
		}
	default:
		fmt.Fprintf(os.Stderr, "%s has no string %d\n", preset.Name, *str)
		os.Exit(2)
	}

	out, err := tone.NewOtoOutput(cfg.Tone.SampleRate)
	if err != nil {
		logger.Error("cannot open audio output", "err", err)
		os.Exit(1)
	}

	gen := tone.NewGenerator(out, logger)
	defer gen.Stop()

	for _, f := range freqs {
		logger.Info("playing", "frequency", f, "preset", preset.ID)

		err := gen.Play(tone.Request{
			Frequency: f,
			Amplitude: cfg.Tone.Volume,
			Duration:  cfg.Tone.Duration,
		})
		if err != nil {
			logger.Error("cannot play tone", "err", err)
			os.Exit(1)
		}

		time.Sleep(cfg.Tone.Duration)
	}

}

func printPresets(table *tuning.Table) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	for _, id := range table.IDs() {
		p := table.MustPreset(id)
		labels := ""

		for _, s := range p.Strings {
			labels += s.Label + " "
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", id, p.Name, labels)
	}

	w.Flush()
}
