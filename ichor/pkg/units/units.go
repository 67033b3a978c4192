// Package units converts and validates single glucose readings.
package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type Unit string

const (
	MgDL  Unit = "mg/dL"
	MmolL Unit = "mmol/L"
)

// MgdlPerMmol is the mg/dL equivalent of 1 mmol/L of glucose.
const MgdlPerMmol = 18.0182

// Physiological bounds accepted by IsValid.
const (
	minMgdl = 10
	maxMgdl = 1000
)

// Clinical thresholds used by Label.
const (
	HypoMgdl  = 70
	HyperMgdl = 180
	HypoMmol  = 3.9
	HyperMmol = 10
)

var (
	ErrInvalidGlucose = errors.New("invalid glucose value")
	ErrUnknownUnit    = errors.New("unknown glucose unit")
)

var readingPattern = regexp.MustCompile(`(?i)^([0-9]*\.?[0-9]+)\s*(mg/dl|mmol/l)$`)

func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mg/dl", "mgdl", "mg":
		return MgDL, nil
	case "mmol/l", "mmol", "mmoll":
		return MmolL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

func MgdlToMmol(mgdl float64) float64 {
	return mgdl / MgdlPerMmol
}

func MmolToMgdl(mmol float64) float64 {
	return mmol * MgdlPerMmol
}

// Convert re-expresses value from one unit in another.
func Convert(value float64, from, to Unit) (float64, error) {
	if !IsValid(value, from) {
		return 0, fmt.Errorf("%w: %v %s", ErrInvalidGlucose, value, from)
	}
	switch {
	case from == to:
		return value, nil
	case from == MgDL && to == MmolL:
		return MgdlToMmol(value), nil
	case from == MmolL && to == MgDL:
		return MmolToMgdl(value), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
}

// IsValid reports whether value is a plausible reading in unit.
func IsValid(value float64, unit Unit) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return false
	}
	switch unit {
	case MgDL:
		return value >= minMgdl && value <= maxMgdl
	case MmolL:
		mgdl := MmolToMgdl(value)
		return mgdl >= minMgdl && mgdl <= maxMgdl
	default:
		return false
	}
}

// Parse reads strings such as "100 mg/dL" or "5.5 mmol/L".
func Parse(s string) (float64, Unit, error) {
	m := readingPattern.FindStringSubmatch(strings.Join(strings.Fields(s), " "))
	if m == nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidGlucose, s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidGlucose, s)
	}
	unit, err := ParseUnit(m[2])
	if err != nil {
		return 0, "", err
	}
	if !IsValid(value, unit) {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidGlucose, s)
	}
	return value, unit, nil
}

type Status string

const (
	Low    Status = "low"
	Normal Status = "normal"
	High   Status = "high"
)

func Label(value float64, unit Unit) Status {
	hypo, hyper := float64(HypoMgdl), float64(HyperMgdl)
	if unit == MmolL {
		hypo, hyper = HypoMmol, HyperMmol
	}
	switch {
	case value < hypo:
		return Low
	case value > hyper:
		return High
	default:
		return Normal
	}
}

// GMI is the glucose management indicator (%) for a mean glucose in mg/dL.
func GMI(meanMgdl float64) float64 {
	return 3.31 + 0.02392*meanMgdl
}

// EstimatedA1C inverts the ADAG regression for a mean glucose in mg/dL.
func EstimatedA1C(meanMgdl float64) float64 {
	return (meanMgdl + 46.7) / 28.7
}

// EstimatedAverageGlucose returns the mg/dL average implied by an A1C percentage.
func EstimatedAverageGlucose(a1c float64) float64 {
	return 28.7*a1c - 46.7
}

type A1CCategory string

const (
	A1CNormal      A1CCategory = "normal"
	A1CPrediabetes A1CCategory = "prediabetes"
	A1CDiabetes    A1CCategory = "diabetes"
	A1CInvalid     A1CCategory = "invalid"
)

// ADA cutoffs, inclusive.
const (
	a1cNormalMax      = 5.7
	a1cPrediabetesMax = 6.5
)

// CategorizeA1C places an A1C (or GMI) percentage in its ADA category.
func CategorizeA1C(a1c float64) A1CCategory {
	switch {
	case math.IsNaN(a1c) || a1c <= 0 || a1c >= 20:
		return A1CInvalid
	case a1c <= a1cNormalMax:
		return A1CNormal
	case a1c <= a1cPrediabetesMax:
		return A1CPrediabetes
	default:
		return A1CDiabetes
	}
}
