package mage

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

type Kind int

const (
	Peak Kind = iota
	Nadir
)

func (k Kind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Nadir:
		return "nadir"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type TurningPoint struct {
	Index int
	Value float64
	Kind  Kind
}

// Excursion is a rise-then-fall or fall-then-rise over three turning points.
type Excursion struct {
	Left      float64
	Right     float64
	Direction Direction
	Indices   [3]int
}

// findTurningPoints picks one extreme per crossing interval, alternating between
// peaks and nadirs. The first interval takes whichever of its maximum or minimum
// lies further from the interval's first reading; ties go to the maximum.
func findTurningPoints(readings []float64, crossings []int) []TurningPoint {
	tps := make([]TurningPoint, 0, len(crossings))

	for i := 0; i+1 < len(crossings); i++ {
		start, end := crossings[i], crossings[i+1]

		kind := Peak
		if len(tps) > 0 {
			if tps[len(tps)-1].Kind == Peak {
				kind = Nadir
			}
		} else {
			kind = firstKind(readings, start, end)
		}

		tps = append(tps, extremeIn(readings, start, end, kind))
	}

	return tps
}

func firstKind(readings []float64, start, end int) Kind {
	maxVal, minVal := readings[start], readings[start]
	for j := start + 1; j <= end; j++ {
		if readings[j] > maxVal {
			maxVal = readings[j]
		}
		if readings[j] < minVal {
			minVal = readings[j]
		}
	}

	if math.Abs(maxVal-readings[start]) >= math.Abs(minVal-readings[start]) {
		return Peak
	}
	return Nadir
}

// extremeIn returns the first maximum (Peak) or minimum (Nadir) in readings[start:end+1].
func extremeIn(readings []float64, start, end int, kind Kind) TurningPoint {
	tp := TurningPoint{Index: start, Value: readings[start], Kind: kind}
	for j := start + 1; j <= end; j++ {
		if (kind == Peak && readings[j] > tp.Value) || (kind == Nadir && readings[j] < tp.Value) {
			tp.Index, tp.Value = j, readings[j]
		}
	}
	return tp
}

// findExcursions keeps every run of three turning points whose both halves exceed sd.
func findExcursions(tps []TurningPoint, sd float64) []Excursion {
	var excursions []Excursion
	for i := 0; i+2 < len(tps); i++ {
		a, b, c := tps[i], tps[i+1], tps[i+2]

		left := math.Abs(b.Value - a.Value)
		right := math.Abs(c.Value - b.Value)
		if left <= sd || right <= sd {
			continue
		}

		dir := Descending
		if b.Kind == Peak {
			dir = Ascending
		}
		excursions = append(excursions, Excursion{
			Left:      left,
			Right:     right,
			Direction: dir,
			Indices:   [3]int{a.Index, b.Index, c.Index},
		})
	}
	return excursions
}

// averageExcursions counts only one direction so the rising and falling halves of
// an oscillation are not both included. Auto follows the first excursion.
func averageExcursions(excursions []Excursion, dir Direction) Result {
	target := dir
	if target == Auto {
		target = excursions[0].Direction
	}

	amplitudes := make([]float64, 0, len(excursions))
	for _, e := range excursions {
		if e.Direction != target {
			continue
		}
		if target == Ascending {
			amplitudes = append(amplitudes, e.Left)
		} else {
			amplitudes = append(amplitudes, e.Right)
		}
	}

	if len(amplitudes) == 0 {
		return notComputable(NoExcursions, math.NaN())
	}

	mean, err := stats.Mean(amplitudes)
	if err != nil {
		return notComputable(NoExcursions, math.NaN())
	}
	return Result{Value: mean, Outcome: Computed, Direction: target, Excursions: len(amplitudes)}
}
