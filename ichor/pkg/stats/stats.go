package stats

import (
	"ichor/ichor/defs"
	"ichor/ichor/pkg/mage"
	"ichor/ichor/pkg/units"

	"github.com/montanaflynn/stats"
)

// TimeSpentInRange buckets readings against [lower, upper] in mmol/L.
// The bounds themselves count as in range.
func TimeSpentInRange(trs []defs.TransformedReading, lower, upper float64) defs.RangeAnalysis {
	if len(trs) == 0 {
		return defs.RangeAnalysis{}
	}

	below, above := 0.0, 0.0
	for _, tr := range trs {
		switch {
		case tr.Mmol < lower:
			below++
		case tr.Mmol > upper:
			above++
		}
	}
	in := float64(len(trs)) - below - above

	total := float64(len(trs))
	return defs.RangeAnalysis{
		BelowRange: below / total,
		InRange:    in / total,
		AboveRange: above / total,
	}
}

// Consensus goals for the five-band breakdown, as fractions of readings.
const (
	inRangeGoal  = 0.70
	lowGoal      = 0.04
	veryLowGoal  = 0.01
	highGoal     = 0.25
	veryHighGoal = 0.05

	// An excellent window clears the in-range goal by this much with almost no level 2 lows.
	excellentMargin     = 0.10
	excellentVeryLowMax = 0.005
)

// EnhancedTimeInRange splits readings into the five consensus bands of gcfg
// (mmol/L). Upper bounds are inclusive, so a reading equal to High is in range.
func EnhancedTimeInRange(trs []defs.TransformedReading, gcfg defs.GlucoseConfig) defs.EnhancedRange {
	if len(trs) == 0 {
		return defs.EnhancedRange{}
	}
	gcfg = gcfg.WithBands()

	var veryLow, low, in, high, veryHigh float64
	for _, tr := range trs {
		switch {
		case tr.Mmol < gcfg.VeryLow:
			veryLow++
		case tr.Mmol < gcfg.Low:
			low++
		case tr.Mmol <= gcfg.High:
			in++
		case tr.Mmol <= gcfg.VeryHigh:
			high++
		default:
			veryHigh++
		}
	}

	total := float64(len(trs))
	er := defs.EnhancedRange{
		VeryLow:  veryLow / total,
		Low:      low / total,
		InRange:  in / total,
		High:     high / total,
		VeryHigh: veryHigh / total,
	}
	er.Goals = defs.RangeGoals{
		InRange:  er.InRange >= inRangeGoal,
		Low:      er.Low < lowGoal,
		VeryLow:  er.VeryLow < veryLowGoal,
		High:     er.High < highGoal,
		VeryHigh: er.VeryHigh < veryHighGoal,
	}
	er.Assessment = assess(er)
	return er
}

// assess ranks level 2 misses above hypoglycemia and a low TIR. A level 1 high
// overshoot alone still counts as good.
func assess(er defs.EnhancedRange) string {
	switch {
	case !er.Goals.VeryLow || !er.Goals.VeryHigh:
		return "concerning"
	case !er.Goals.Low || !er.Goals.InRange:
		return "needs improvement"
	case er.InRange >= inRangeGoal+excellentMargin && er.VeryLow < excellentVeryLowMax:
		return "excellent"
	default:
		return "good"
	}
}

func GlucoseSummary(trs []defs.TransformedReading) defs.SummaryStatistics {
	values := Values(trs)
	if len(values) == 0 {
		return defs.SummaryStatistics{}
	}

	avg, _ := stats.Mean(values)
	dev := 0.0
	if len(values) > 1 {
		dev, _ = stats.StandardDeviationSample(values)
	}

	gmi := units.GMI(units.MmolToMgdl(avg))
	ss := defs.SummaryStatistics{
		Count:        len(values),
		Average:      avg,
		Deviation:    dev,
		GMI:          gmi,
		GMICategory:  string(units.CategorizeA1C(gmi)),
		EstimatedA1C: units.EstimatedA1C(units.MmolToMgdl(avg)),
		Percentiles:  percentiles(values),
	}
	if avg > 0 {
		ss.CV = 100 * dev / avg
	}
	return ss
}

func percentiles(values []float64) defs.Percentiles {
	p := func(q float64) float64 {
		v, _ := stats.PercentileNearestRank(values, q)
		return v
	}
	return defs.Percentiles{P10: p(10), P25: p(25), P50: p(50), P75: p(75), P90: p(90)}
}

// Variability assembles a full report over trs. MAGE is computed in mmol/L,
// the unit readings are stored in.
func Variability(trs []defs.TransformedReading, gcfg defs.GlucoseConfig, opts mage.Options) defs.VariabilityReport {
	report := defs.VariabilityReport{
		Summary:  GlucoseSummary(trs),
		Range:    TimeSpentInRange(trs, gcfg.Low, gcfg.High),
		Enhanced: EnhancedTimeInRange(trs, gcfg),
		Mage:     Summarize(mage.Compute(Values(trs), opts), opts.Direction),
	}
	if len(trs) > 0 {
		report.Start = trs[0].Time
		report.End = trs[len(trs)-1].Time
	}
	return report
}

// Summarize converts an engine result into its storable form. The direction is
// the one the engine averaged, or dir when nothing was resolved.
func Summarize(res mage.Result, dir mage.Direction) defs.MageSummary {
	if res.Direction != mage.Auto {
		dir = res.Direction
	}
	ms := defs.MageSummary{
		Outcome:    res.Outcome.String(),
		Direction:  dir.String(),
		Fallback:   res.Fallback,
		Excursions: res.Excursions,
	}
	if res.Ok() {
		v := res.Value
		ms.Value = &v
	}
	return ms
}

func Values(trs []defs.TransformedReading) []float64 {
	values := make([]float64, len(trs))
	for i, tr := range trs {
		values[i] = tr.Mmol
	}
	return values
}
