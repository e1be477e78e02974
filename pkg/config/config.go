/*
 * Package config holds the settings shared by the tuner commands: a YAML
 * file over built-in defaults, overridden by command line flags.
 */
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/metalblueberry/bard/pkg/analyser"
	"github.com/metalblueberry/bard/pkg/capture"
	"github.com/metalblueberry/bard/pkg/tone"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

type Config struct {
	Debug    bool     `yaml:"debug"`
	Tuner    Tuner    `yaml:"tuner"`
	Analyser Analyser `yaml:"analyser"`
	Capture  Capture  `yaml:"capture"`
	Tone     Tone     `yaml:"tone"`
	UI       UI       `yaml:"ui"`
}

type Tuner struct {
	ReferencePitch float64 `yaml:"referencePitch"`
	Preset         string  `yaml:"preset"`
	MinFrequency   float64 `yaml:"minFrequency"`
	MaxFrequency   float64 `yaml:"maxFrequency"`
	InTuneCents    int     `yaml:"inTuneCents"`
	SevereCents    int     `yaml:"severeCents"`
	OctaveAware    bool    `yaml:"octaveAware"`
	Enharmonic     bool    `yaml:"enharmonic"`
}

type Analyser struct {
	WindowSize  int     `yaml:"windowSize"`
	Smoothing   float64 `yaml:"smoothing"`
	MinDecibels float64 `yaml:"minDecibels"`
	MaxDecibels float64 `yaml:"maxDecibels"`
}

type Capture struct {
	// SampleRate 0 uses the default rate of the input device.
	SampleRate      float64       `yaml:"sampleRate"`
	FramesPerBuffer int           `yaml:"framesPerBuffer"`
	StallTimeout    time.Duration `yaml:"stallTimeout"`
}

type Tone struct {
	Duration   time.Duration `yaml:"duration"`
	SampleRate int           `yaml:"sampleRate"`
	Volume     float64       `yaml:"volume"`
}

type UI struct {
	// RefreshRate of the terminal renderer, in frames per second.
	RefreshRate int `yaml:"refreshRate"`
}

/*
 * Default returns the built-in configuration.
 */
func Default() Config {
	ts := tuner.DefaultSettings()
	as := analyser.DefaultSettings()

	return Config{
		Tuner: Tuner{
			ReferencePitch: ts.ReferencePitch,
			Preset:         "Standard",
			MinFrequency:   ts.MinFrequency,
			MaxFrequency:   ts.MaxFrequency,
			InTuneCents:    ts.InTuneCents,
			SevereCents:    ts.SevereCents,
		},
		Analyser: Analyser{
			WindowSize:  as.WindowSize,
			Smoothing:   as.Smoothing,
			MinDecibels: as.MinDecibels,
			MaxDecibels: as.MaxDecibels,
		},
		Capture: Capture{
			StallTimeout: 2 * time.Second,
		},
		Tone: Tone{
			Duration:   tone.DefaultDuration,
			SampleRate: tone.DefaultSampleRate,
			Volume:     tone.DefaultVolume,
		},
		UI: UI{RefreshRate: 60},
	}
}

/*
 * Load reads the YAML file at path over the defaults. Keys missing from
 * the file keep their default value.
 */
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)

	if err != nil {
		return c, fmt.Errorf("cannot read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("cannot parse config %s: %w", path, err)
	}

	return c, c.Validate()
}

/*
 * Validate returns the first invalid field.
 */
func (c Config) Validate() error {
	switch {
	case !(c.Tuner.ReferencePitch > 0):
		return fieldError("tuner.referencePitch", c.Tuner.ReferencePitch)
	case c.Tuner.MinFrequency < 0:
		return fieldError("tuner.minFrequency", c.Tuner.MinFrequency)
	case c.Tuner.MaxFrequency <= c.Tuner.MinFrequency:
		return fieldError("tuner.maxFrequency", c.Tuner.MaxFrequency)
	case c.Tuner.InTuneCents <= 0:
		return fieldError("tuner.inTuneCents", c.Tuner.InTuneCents)
	case c.Tuner.SevereCents <= c.Tuner.InTuneCents:
		return fieldError("tuner.severeCents", c.Tuner.SevereCents)
	case c.Capture.SampleRate < 0:
		return fieldError("capture.sampleRate", c.Capture.SampleRate)
	case c.Capture.FramesPerBuffer < 0:
		return fieldError("capture.framesPerBuffer", c.Capture.FramesPerBuffer)
	case c.Capture.StallTimeout < 0:
		return fieldError("capture.stallTimeout", c.Capture.StallTimeout)
	case c.Tone.Duration <= 0:
		return fieldError("tone.duration", c.Tone.Duration)
	case c.Tone.SampleRate <= 0:
		return fieldError("tone.sampleRate", c.Tone.SampleRate)
	case c.Tone.Volume < 0 || c.Tone.Volume > 1:
		return fieldError("tone.volume", c.Tone.Volume)
	case c.UI.RefreshRate <= 0:
		return fieldError("ui.refreshRate", c.UI.RefreshRate)
	}

	if _, ok := tuning.Default().Preset(c.Tuner.Preset); !ok {
		return fieldError("tuner.preset", c.Tuner.Preset)
	}

	if err := c.AnalyserSettings().Validate(); err != nil {
		return fmt.Errorf("invalid analyser: %w", err)
	}

	return nil
}

/*
 * ErrInvalid is wrapped by every validation error.
 */
var ErrInvalid = errors.New("invalid configuration")

func fieldError(field string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalid, field, value)
}

func (c Config) TunerSettings() tuner.Settings {
	return tuner.Settings{
		ReferencePitch: c.Tuner.ReferencePitch,
		MinFrequency:   c.Tuner.MinFrequency,
		MaxFrequency:   c.Tuner.MaxFrequency,
		InTuneCents:    c.Tuner.InTuneCents,
		SevereCents:    c.Tuner.SevereCents,
		OctaveAware:    c.Tuner.OctaveAware,
		Enharmonic:     c.Tuner.Enharmonic,
	}
}

func (c Config) AnalyserSettings() analyser.Settings {
	return analyser.Settings{
		WindowSize:  c.Analyser.WindowSize,
		Smoothing:   c.Analyser.Smoothing,
		MinDecibels: c.Analyser.MinDecibels,
		MaxDecibels: c.Analyser.MaxDecibels,
	}
}

/*
 * Source returns the capture input described by c.
 */
func (c Config) Source(logger *slog.Logger) *capture.Source {
	return &capture.Source{
		SampleRate:      c.Capture.SampleRate,
		FramesPerBuffer: c.Capture.FramesPerBuffer,
		StallTimeout:    c.Capture.StallTimeout,
		Analyser:        c.AnalyserSettings(),
		Logger:          logger,
	}
}

/*
 * Parse registers the common flags on fs and parses args. The file named
 * by -config is loaded first, then every flag given explicitly overrides
 * it. Commands register their own flags on fs before calling Parse.
 */
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	path := fs.String("config", "", "YAML configuration `file`")
	flagged := Default()
	fs.BoolVar(&flagged.Debug, "debug", false, "log at debug level")
	fs.Float64Var(&flagged.Tuner.ReferencePitch, "ref", flagged.Tuner.ReferencePitch, "reference pitch of A4 in `Hz`")
	fs.StringVar(&flagged.Tuner.Preset, "preset", flagged.Tuner.Preset, "initial tuning preset")
	fs.BoolVar(&flagged.Tuner.OctaveAware, "octave-aware", false, "match the string in the nearest octave")
	fs.BoolVar(&flagged.Tuner.Enharmonic, "enharmonic", false, "match flat named strings to sharp notes, Eb to D#")
	fs.Float64Var(&flagged.Tone.Volume, "volume", flagged.Tone.Volume, "reference tone volume, 0 to 1")
	fs.IntVar(&flagged.Analyser.WindowSize, "window", flagged.Analyser.WindowSize, "analysis window in samples")
	fs.Float64Var(&flagged.Capture.SampleRate, "rate", 0, "capture sample rate, 0 for the device default")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	c := Default()

	if *path != "" {
		var err error

		if c, err = Load(*path); err != nil {
			return c, err
		}

	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			c.Debug = flagged.Debug
		case "ref":
			c.Tuner.ReferencePitch = flagged.Tuner.ReferencePitch
		case "preset":
			c.Tuner.Preset = flagged.Tuner.Preset
		case "octave-aware":
			c.Tuner.OctaveAware = flagged.Tuner.OctaveAware
		case "enharmonic":
			c.Tuner.Enharmonic = flagged.Tuner.Enharmonic
		case "volume":
			c.Tone.Volume = flagged.Tone.Volume
		case "window":
			c.Analyser.WindowSize = flagged.Analyser.WindowSize
		case "rate":
			c.Capture.SampleRate = flagged.Capture.SampleRate
		}
	})

	return c, c.Validate()
}

/*
 * Logger returns a text logger on stderr and installs it as the default,
 * so that the log package writes through it too.
 */
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if c.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)
	return logger
}
