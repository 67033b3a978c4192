// Package mage computes the Mean Amplitude of Glycemic Excursions (Service et al. 1970)
// over an ordered series of glucose readings.
//
// The primary path smooths the series with a short and a long centred moving average,
// uses their crossings to bound the search for alternating peaks and nadirs, and averages
// the amplitudes of excursions whose both halves exceed one sample standard deviation.
// Short or ill-conditioned series go through a simpler windowed peak detector instead.
package mage

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
)

const (
	minReadings = 3

	// Below this many readings the moving averages carry no useful trend.
	minPrimaryReadings = 10

	minShortWindow = 3
	maxShortWindow = 5
	maxLongWindow  = 32

	// The long window has to exceed the short one by at least this much.
	minWindowGap = 2
)

var ErrUnknownDirection = errors.New("unknown excursion direction")

type Direction int

const (
	Auto Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "auto"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "ascending":
		return Ascending, nil
	case "descending":
		return Descending, nil
	default:
		return Auto, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Outcome says whether a Result carries a value and, if not, why.
type Outcome int

const (
	Computed Outcome = iota
	Insufficient
	NoVariability
	NoExcursions
)

func (o Outcome) String() string {
	switch o {
	case Computed:
		return "computed"
	case Insufficient:
		return "insufficient data"
	case NoVariability:
		return "no variability"
	case NoExcursions:
		return "no excursions"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options tunes the engine. Zero windows are derived from the series length.
type Options struct {
	ShortWindow int       `yaml:"shortWindow"`
	LongWindow  int       `yaml:"longWindow"`
	Direction   Direction `yaml:"direction"`
}

type Result struct {
	Value   float64
	Outcome Outcome

	// Fallback is set when the value came from the windowed detector.
	Fallback bool

	// Direction is the excursion direction that was averaged. It is never Auto
	// once a value has been computed.
	Direction Direction

	SD          float64
	ShortWindow int
	LongWindow  int
	Excursions  int
}

// Ok reports whether r holds a finite amplitude.
func (r Result) Ok() bool {
	return r.Outcome == Computed
}

// MAGE returns the mean amplitude of glycemic excursions in the unit of readings,
// or NaN when it cannot be computed.
func MAGE(readings []float64, opts Options) float64 {
	return Compute(readings, opts).Value
}

// Compute runs the full pipeline and reports how the value was obtained.
// Non-finite readings are discarded. The input slice is never modified.
func Compute(readings []float64, opts Options) Result {
	clean := sanitize(readings)
	if len(clean) < minReadings {
		return notComputable(Insufficient, math.NaN())
	}

	sd, ok := dispersion(clean)
	if !ok {
		return notComputable(NoVariability, sd)
	}

	short, long := opts.windows(len(clean))
	if !usePrimary(len(clean), short, long) {
		return withWindows(fallback(clean, sd), short, long)
	}

	crossings := findCrossings(clean, short, long)
	tps := findTurningPoints(clean, crossings)
	if len(tps) < minReadings {
		return withWindows(fallback(clean, sd), short, long)
	}

	excursions := findExcursions(tps, sd)
	if len(excursions) == 0 {
		return withWindows(fallback(clean, sd), short, long)
	}

	res := averageExcursions(excursions, opts.Direction)
	res.SD = sd
	if res.Ok() && (math.IsNaN(res.Value) || math.IsInf(res.Value, 0)) {
		return withWindows(fallback(clean, sd), short, long)
	}
	return withWindows(res, short, long)
}

func sanitize(readings []float64) []float64 {
	clean := make([]float64, 0, len(readings))
	for _, r := range readings {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		clean = append(clean, r)
	}
	return clean
}

// dispersion returns the unbiased sample standard deviation and whether it is usable.
func dispersion(clean []float64) (float64, bool) {
	sd, err := stats.StandardDeviationSample(clean)
	if err != nil || sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return sd, false
	}
	return sd, true
}

func (o Options) windows(n int) (short, long int) {
	short = o.ShortWindow
	if short <= 0 {
		short = clamp(n/8, minShortWindow, maxShortWindow)
	}
	long = o.LongWindow
	if long <= 0 {
		long = max(short+minWindowGap, min(maxLongWindow, n/3))
	}
	return short, long
}

func usePrimary(n, short, long int) bool {
	return n >= minPrimaryReadings && long < n-2 && long >= short+minWindowGap
}

func notComputable(o Outcome, sd float64) Result {
	return Result{Value: math.NaN(), Outcome: o, SD: sd}
}

func withWindows(r Result, short, long int) Result {
	r.ShortWindow = short
	r.LongWindow = long
	return r
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
