package tuner

import (
	"fmt"
	"math"

	"github.com/metalblueberry/bard/pkg/tuning"
)

/*
 * Default plausible fundamental range of a six string guitar, exclusive.
 */
const (
	MIN_FREQUENCY = 70.0
	MAX_FREQUENCY = 400.0
)

/*
 * Data structure representing the outcome of one analysed frame.
 *
 * The zero value is the empty status: no note, 0 Hz, Silent.
 */
type Status struct {
	Note        string
	Frequency   float64
	Cents       int
	Band        Band
	Severity    Severity
	StringIndex int
	Target      tuning.StringTarget
}

/*
 * Returns true if the status carries no reading.
 */
func (this Status) Empty() bool {
	return this.Note == ""
}

/*
 * Returns the position of the cents needle on a -50..+50 cent meter, in
 * percent from the left edge.
 */
func (this Status) MeterPosition() float64 {
	return math.Max(0, math.Min(100, float64(this.Cents+50)))
}

/*
 * Returns a short instruction for the player.
 */
func (this Status) Label() string {

	switch {
	case this.Empty():
		return "Start tuning"
	case this.Band == InTune:
		return "In tune"
	case this.Cents > 0:
		return "Too high"
	default:
		return "Too low"
	}

}

func (this Status) String() string {

	if this.Empty() {
		return "--"
	}

	return fmt.Sprintf("%s %.2f Hz %+d cents (%s, %s)", this.Note, this.Frequency, this.Cents, this.Band, this.Severity)
}

/*
 * Tuner configuration.
 */
type Settings struct {
	ReferencePitch float64
	MinFrequency   float64
	MaxFrequency   float64
	InTuneCents    int
	SevereCents    int
	OctaveAware    bool
	Enharmonic     bool
}

/*
 * Returns the settings of a six string guitar tuner at A4 = 440 Hz.
 */
func DefaultSettings() Settings {
	return Settings{
		ReferencePitch: REFERENCE_PITCH,
		MinFrequency:   MIN_FREQUENCY,
		MaxFrequency:   MAX_FREQUENCY,
		InTuneCents:    IN_TUNE_CENTS,
		SevereCents:    SEVERE_CENTS,
	}
}

/*
 * Data structure representing a tuner.
 */
type Tuner struct {
	settings   Settings
	mapper     NoteMapper
	classifier Classifier
}

/*
 * Creates a guitar tuner.
 */
func Create(settings Settings) *Tuner {
	return &Tuner{
		settings: settings,
		mapper:   NewNoteMapper(settings.ReferencePitch),
		classifier: Classifier{
			InTune: settings.InTuneCents,
			Severe: settings.SevereCents,
		},
	}
}

/*
 * Returns the note mapper of this tuner.
 */
func (this *Tuner) Mapper() NoteMapper {
	return this.mapper
}

/*
 * Returns true if f is a plausible fundamental.
 */
func (this *Tuner) Plausible(f float64) bool {
	return f > this.settings.MinFrequency && f < this.settings.MaxFrequency
}

/*
 * Analyze one spectral frame against a preset.
 *
 * ok is false when the frame carries no usable reading: the dominant
 * frequency lies outside the plausible band or no string of the preset has
 * the detected note. Callers keep their previous status in that case.
 */
func (this *Tuner) Analyze(magnitudes []float64, sampleRate float64, preset tuning.Preset) (Status, bool) {
	f := EstimateDominantFrequency(magnitudes, sampleRate)

	if !this.Plausible(f) {
		return Status{}, false
	}

	return this.Evaluate(f, preset)
}

/*
 * Match a measured frequency against a preset.
 */
func (this *Tuner) Evaluate(f float64, preset tuning.Preset) (Status, bool) {
	return this.Compare(this.mapper.Name(f), f, preset)
}

/*
 * Compare a measured frequency, already mapped to note, against the first
 * matching string of a preset.
 */
func (this *Tuner) Compare(note string, f float64, preset tuning.Preset) (Status, bool) {

	if note == "" || !(f > 0) {
		return Status{}, false
	}

	idx := this.match(note, f, preset.Strings)

	if idx < 0 {
		return Status{}, false
	}

	target := preset.Strings[idx]
	cents := ComputeCents(f, target.Frequency)
	band, severity := this.classifier.Classify(cents)

	/*
	 * Create result of signal analysis.
	 */
	status := Status{
		Note:        note,
		Frequency:   f,
		Cents:       cents,
		Band:        band,
		Severity:    severity,
		StringIndex: idx,
		Target:      target,
	}

	return status, true
}

/*
 * Find the string the note belongs to.
 *
 * By default the first string with the same note name wins, regardless of
 * octave. With Enharmonic set, names are compared by pitch class, so a D#
 * matches an Eb string. With OctaveAware set, the matching string closest
 * in pitch wins.
 */
func (this *Tuner) match(note string, f float64, targets []tuning.StringTarget) int {
	best := -1
	bestDist := math.Inf(1)

	for i, target := range targets {

		if !this.sameNote(target.Note, note) {
			continue
		}

		if !this.settings.OctaveAware {
			return i
		}

		dist := math.Abs(math.Log2(f / target.Frequency))

		if dist < bestDist {
			best = i
			bestDist = dist
		}

	}

	return best
}

func (this *Tuner) sameNote(target string, note string) bool {

	if this.settings.Enharmonic {
		return tuning.SameNote(target, note)
	}

	return target == note
}
