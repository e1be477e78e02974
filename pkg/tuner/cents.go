package tuner

import (
	"math"
)

/*
 * Categorical tuning feedback.
 */
type Band int

const (
	Silent Band = iota
	InTune
	High
	Low
)

/*
 * How far off a High or Low reading is.
 */
type Severity int

const (
	None Severity = iota
	Mild
	Severe
)

/*
 * Default band thresholds in cents.
 */
const (
	IN_TUNE_CENTS = 5
	SEVERE_CENTS  = 15
)

func (b Band) String() string {

	switch b {
	case InTune:
		return "in tune"
	case High:
		return "high"
	case Low:
		return "low"
	default:
		return "silent"
	}

}

func (s Severity) String() string {

	switch s {
	case Mild:
		return "mild"
	case Severe:
		return "severe"
	default:
		return "none"
	}

}

/*
 * Returns the deviation of measured from target in cents, truncated towards
 * negative infinity. A sharp reading is under-reported by less than one cent.
 *
 * Returns 0 unless both frequencies are positive and finite.
 */
func ComputeCents(measured float64, target float64) int {

	if !(measured > 0) || !(target > 0) || math.IsInf(measured, 0) || math.IsInf(target, 0) {
		return 0
	}

	return int(math.Floor(1200 * math.Log2(measured/target)))
}

/*
 * Classifies a cents offset with explicit thresholds. Both thresholds are
 * exclusive upper bounds of their band: |cents| == inTune is already mild,
 * |cents| == severe is already severe.
 */
type Classifier struct {
	InTune int
	Severe int
}

/*
 * Classifier using the default 5 and 15 cent thresholds.
 */
func DefaultClassifier() Classifier {
	return Classifier{
		InTune: IN_TUNE_CENTS,
		Severe: SEVERE_CENTS,
	}
}

/*
 * Returns band and severity for a matched note.
 */
func (c Classifier) Classify(cents int) (Band, Severity) {
	abs := cents

	if abs < 0 {
		abs = -abs
	}

	band := Low

	if cents > 0 {
		band = High
	}

	switch {
	case abs < c.InTune:
		return InTune, None
	case abs < c.Severe:
		return band, Mild
	default:
		return band, Severe
	}

}

/*
 * Classifies with the default thresholds.
 */
func ClassifyCents(cents int) (Band, Severity) {
	return DefaultClassifier().Classify(cents)
}
