package mage

import (
	"math"

	"github.com/montanaflynn/stats"
)

const maxFallbackWindow = 3

// fallback estimates MAGE from strict local extremes when the moving averages
// cannot be trusted. Both single swings and three-point excursions above sd count.
func fallback(readings []float64, sd float64) Result {
	tps := windowedExtremes(readings, clamp(len(readings)/10, 1, maxFallbackWindow))
	if len(tps) == 0 {
		tps = windowedExtremes(readings, 1)
	}
	if len(tps) < 2 {
		r := notComputable(Insufficient, sd)
		r.Fallback = true
		return r
	}

	var amplitudes []float64
	for i := 0; i+1 < len(tps); i++ {
		if amp := math.Abs(tps[i+1].Value - tps[i].Value); amp > sd {
			amplitudes = append(amplitudes, amp)
		}
	}

	for i := 0; i+2 < len(tps); i++ {
		a, b, c := tps[i], tps[i+1], tps[i+2]
		if a.Kind == b.Kind || b.Kind == c.Kind {
			continue
		}

		left := math.Abs(b.Value - a.Value)
		right := math.Abs(c.Value - b.Value)
		if left > sd && right > sd {
			amplitudes = append(amplitudes, (left+right)/2)
		}
	}

	mean, err := stats.Mean(amplitudes)
	if err != nil {
		r := notComputable(NoExcursions, sd)
		r.Fallback = true
		return r
	}

	return Result{
		Value:      mean,
		Outcome:    Computed,
		Fallback:   true,
		SD:         sd,
		Excursions: len(amplitudes),
	}
}

// windowedExtremes returns the interior points that are strictly above (peak) or
// strictly below (nadir) every other point within window positions on each side.
func windowedExtremes(readings []float64, window int) []TurningPoint {
	var tps []TurningPoint
	for i := window; i < len(readings)-window; i++ {
		current := readings[i]
		isPeak, isNadir := true, true

		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if readings[j] >= current {
				isPeak = false
			}
			if readings[j] <= current {
				isNadir = false
			}
		}

		switch {
		case isPeak:
			tps = append(tps, TurningPoint{Index: i, Value: current, Kind: Peak})
		case isNadir:
			tps = append(tps, TurningPoint{Index: i, Value: current, Kind: Nadir})
		}
	}
	return tps
}
