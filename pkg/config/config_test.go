package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bard.yaml")

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()

	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	ts := c.TunerSettings()

	if ts.ReferencePitch != 440 || ts.MinFrequency != 70 || ts.MaxFrequency != 400 || ts.InTuneCents != 5 || ts.SevereCents != 15 || ts.OctaveAware || ts.Enharmonic {
		t.Errorf("tuner settings = %+v", ts)
	}

	as := c.AnalyserSettings()

	if as.WindowSize != 4096 || as.Smoothing != 0.8 || as.MinDecibels != -100 || as.MaxDecibels != -30 {
		t.Errorf("analyser settings = %+v", as)
	}

	if c.Tuner.Preset != "Standard" || c.Tone.Volume != 0.5 || c.Tone.Duration != time.Second || c.UI.RefreshRate != 60 {
		t.Errorf("config = %+v", c)
	}

}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
tuner:
  referencePitch: 432
  preset: DropD
capture:
  stallTimeout: 500ms
tone:
  volume: 0.3
`)
	c, err := Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if c.Tuner.ReferencePitch != 432 || c.Tuner.Preset != "DropD" || c.Capture.StallTimeout != 500*time.Millisecond || c.Tone.Volume != 0.3 {
		t.Errorf("loaded = %+v", c)
	}

	// untouched keys keep their defaults
	if c.Tuner.MaxFrequency != 400 || c.Analyser.WindowSize != 4096 {
		t.Errorf("defaults lost: %+v", c)
	}

}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []string{
		"tuner: {referencePitch: 0}",
		"tuner: {minFrequency: 500}",
		"tuner: {severeCents: 3}",
		"tuner: {preset: Ukulele}",
		"analyser: {windowSize: 1000}",
		"analyser: {smoothing: 1}",
		"analyser: {minDecibels: -20}",
		"tone: {volume: 1.5}",
		"ui: {refreshRate: 0}",
	}

	for _, doc := range tests {
		if _, err := Load(writeConfig(t, doc)); err == nil {
			t.Errorf("%q accepted", doc)
		}

	}

	if _, err := Load(writeConfig(t, "tone: {volume: -1}")); !errors.Is(err, ErrInvalid) {
		t.Errorf("negative volume: %v", err)
	}

	if _, err := Load(writeConfig(t, "tuner: [")); err == nil {
		t.Error("malformed yaml accepted")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "tuner: {referencePitch: 432, preset: DropD}\ntone: {volume: 0.2}")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	list := fs.Bool("list", false, "")

	c, err := Parse(fs, []string{"-config", path, "-preset", "OpenG", "-debug", "-list"})

	if err != nil {
		t.Fatal(err)
	}

	if c.Tuner.Preset != "OpenG" || !c.Debug || !*list {
		t.Errorf("flags not applied: %+v", c)
	}

	// not given on the command line, so the file wins over the flag default
	if c.Tuner.ReferencePitch != 432 || c.Tone.Volume != 0.2 {
		t.Errorf("file values lost: %+v", c)
	}

}

func TestParseWithoutFile(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	c, err := Parse(fs, []string{"-ref", "442", "-octave-aware", "-enharmonic"})

	if err != nil {
		t.Fatal(err)
	}

	if c.Tuner.ReferencePitch != 442 || !c.Tuner.OctaveAware || !c.TunerSettings().Enharmonic || c.Tuner.Preset != "Standard" {
		t.Errorf("config = %+v", c)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	if _, err := Parse(fs, []string{"-preset", "Nope"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown preset: %v", err)
	}

}
