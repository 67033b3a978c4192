package mage

// movingAverage returns the centred moving average of values. The window is
// symmetric with half-width size/2 and shrinks at both ends of the series.
func movingAverage(values []float64, size int) []float64 {
	half := size / 2
	avg := make([]float64, len(values))
	for i := range values {
		start := max(0, i-half)
		end := min(len(values)-1, i+half)

		var sum float64
		for j := start; j <= end; j++ {
			sum += values[j]
		}
		avg[i] = sum / float64(end-start+1)
	}
	return avg
}

// findCrossings returns the indices where the short moving average crosses the
// long one. The first and last index of the series always bound the result.
func findCrossings(readings []float64, short, long int) []int {
	shortMA := movingAverage(readings, short)
	longMA := movingAverage(readings, long)

	crossings := []int{0}
	for i := 1; i < len(shortMA); i++ {
		prevShort, currShort := shortMA[i-1], shortMA[i]
		prevLong, currLong := longMA[i-1], longMA[i]

		if (prevShort <= prevLong && currShort > currLong) ||
			(prevShort >= prevLong && currShort < currLong) {
			crossings = append(crossings, i)
		}
	}

	// A crossing on the last sample leaves a zero-width final interval.
	return append(crossings, len(readings)-1)
}
