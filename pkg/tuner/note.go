package tuner

import (
	"math"

	"github.com/metalblueberry/bard/pkg/tuning"
)

/*
 * Global constants.
 */
const (
	REFERENCE_PITCH = 440.0
)

/*
 * Offset of C0 relative to A4, in octaves.
 */
const c0Offset = -4.75

/*
 * Maps frequencies to chromatic note names using equal temperament.
 */
type NoteMapper struct {
	c0 float64
}

/*
 * Creates a note mapper for the given A4 reference pitch. Non-positive
 * values fall back to 440 Hz.
 */
func NewNoteMapper(reference float64) NoteMapper {

	if !(reference > 0) {
		reference = REFERENCE_PITCH
	}

	return NoteMapper{
		c0: reference * math.Pow(2, c0Offset),
	}
}

/*
 * Returns the number of semitones between C0 and the nearest equal-tempered
 * pitch of f.
 *
 * Ties (exactly half a semitone) round away from zero, i.e. upwards for
 * every audible frequency.
 */
func (m NoteMapper) Semitone(f float64) int {
	return int(math.Round(12 * math.Log2(f/m.c0)))
}

/*
 * Returns the nearest note name and its octave. The name is empty for
 * frequencies that are not positive.
 */
func (m NoteMapper) Note(f float64) (string, int) {

	if !(f > 0) || math.IsInf(f, 0) {
		return "", 0
	}

	h := m.Semitone(f)
	n := ((h % 12) + 12) % 12
	octave := int(math.Floor(float64(h) / 12))
	return tuning.NoteNames[n], octave
}

/*
 * Returns the nearest note name, without octave.
 */
func (m NoteMapper) Name(f float64) string {
	name, _ := m.Note(f)
	return name
}

/*
 * Returns the equal-tempered frequency of a note name in a given octave.
 */
func (m NoteMapper) Frequency(name string, octave int) (float64, bool) {
	pc, ok := tuning.PitchClass(name)

	if !ok {
		return 0, false
	}

	h := float64(12*octave + pc)
	return m.c0 * math.Pow(2, h/12), true
}

/*
 * Maps a frequency to a note name relative to A4 = 440 Hz.
 */
func MapFrequencyToNote(f float64) string {
	return NewNoteMapper(REFERENCE_PITCH).Name(f)
}
