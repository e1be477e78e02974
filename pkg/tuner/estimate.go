package tuner

/*
 * Find the maximum value in a buffer.
 *
 * The scan starts from zero at index zero and only moves on a strictly
 * greater value, so the first of several equal maxima wins and an all-zero
 * buffer yields index zero.
 */
func findMaximum(buf []float64) (float64, int) {
	maxVal := 0.0
	maxIdx := 0

	/*
	 * Iterate over the buffer and find the maximum value.
	 */
	for idx, value := range buf {

		/*
		 * If we found a value which is greater than any value we
		 * encountered so far, make it the new candidate.
		 */
		if value > maxVal {
			maxVal = value
			maxIdx = idx
		}

	}

	return maxVal, maxIdx
}

/*
 * Returns the frequency of the strongest bin of a half spectrum.
 *
 * The N magnitudes are the bins of a transform over 2N samples, so bin i
 * lies at i * sampleRate / (2N). There is no interpolation between bins and
 * no harmonic correction; silence maps to bin zero, i.e. 0 Hz.
 */
func EstimateDominantFrequency(magnitudes []float64, sampleRate float64) float64 {
	n := len(magnitudes)

	if n == 0 {
		return 0
	}

	_, idx := findMaximum(magnitudes)
	return float64(idx) * sampleRate / float64(n*2)
}
