package defs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransformedReading is a CGM reading stored in mmol/L.
type TransformedReading struct {
	ID    *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Time  time.Time           `bson:"time" json:"time"`
	Mmol  float64             `bson:"mmol" json:"mmol"`
	Trend string              `bson:"trend" json:"trend"`
}

type RangeAnalysis struct {
	BelowRange float64 `bson:"belowRange" json:"belowRange"`
	InRange    float64 `bson:"inRange" json:"inRange"`
	AboveRange float64 `bson:"aboveRange" json:"aboveRange"`
}

// EnhancedRange is the five-band consensus breakdown. Fractions sum to 1 for a
// non-empty window; the goal flags compare them against the consensus targets.
type EnhancedRange struct {
	VeryLow  float64 `bson:"veryLow" json:"veryLow"`
	Low      float64 `bson:"low" json:"low"`
	InRange  float64 `bson:"inRange" json:"inRange"`
	High     float64 `bson:"high" json:"high"`
	VeryHigh float64 `bson:"veryHigh" json:"veryHigh"`

	Goals      RangeGoals `bson:"goals" json:"goals"`
	Assessment string     `bson:"assessment" json:"assessment"`
}

type RangeGoals struct {
	InRange  bool `bson:"inRange" json:"inRange"`
	Low      bool `bson:"low" json:"low"`
	VeryLow  bool `bson:"veryLow" json:"veryLow"`
	High     bool `bson:"high" json:"high"`
	VeryHigh bool `bson:"veryHigh" json:"veryHigh"`
}

// MeetsAll reports whether every band is within its goal.
func (g RangeGoals) MeetsAll() bool {
	return g.InRange && g.Low && g.VeryLow && g.High && g.VeryHigh
}

type Percentiles struct {
	P10 float64 `bson:"p10" json:"p10"`
	P25 float64 `bson:"p25" json:"p25"`
	P50 float64 `bson:"p50" json:"p50"`
	P75 float64 `bson:"p75" json:"p75"`
	P90 float64 `bson:"p90" json:"p90"`
}

type SummaryStatistics struct {
	Count        int         `bson:"count" json:"count"`
	Average      float64     `bson:"average" json:"average"`
	Deviation    float64     `bson:"deviation" json:"deviation"`
	CV           float64     `bson:"cv" json:"cv"`
	GMI          float64     `bson:"gmi" json:"gmi"`
	GMICategory  string      `bson:"gmiCategory" json:"gmiCategory"`
	EstimatedA1C float64     `bson:"estimatedA1c" json:"estimatedA1c"`
	Percentiles  Percentiles `bson:"percentiles" json:"percentiles"`
}

// MageSummary is the storable form of a MAGE result. Value is nil when the
// amplitude could not be computed.
type MageSummary struct {
	Value      *float64 `bson:"value" json:"value"`
	Outcome    string   `bson:"outcome" json:"outcome"`
	Direction  string   `bson:"direction" json:"direction"`
	Fallback   bool     `bson:"fallback" json:"fallback"`
	Excursions int      `bson:"excursions" json:"excursions"`
}

type VariabilityReport struct {
	ID       *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Start    time.Time           `bson:"start" json:"start"`
	End      time.Time           `bson:"end" json:"end"`
	Summary  SummaryStatistics   `bson:"summary" json:"summary"`
	Range    RangeAnalysis       `bson:"range" json:"range"`
	Enhanced EnhancedRange       `bson:"enhanced" json:"enhanced"`
	Mage     MageSummary         `bson:"mage" json:"mage"`
}
