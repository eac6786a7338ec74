// Package indices derives the anthropometric risk indices, classifies them
// against sex-specific bands and aggregates them into a 0–100 score.
package indices

import (
	"math"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// Band thresholds
const (
	WaistHipMale        = 0.90
	WaistHipFemale      = 0.80
	WaistHeightModerate = 0.50
	WaistHeightHigh     = 0.55
	ConicityAdequate    = 1.25
	LeanMassMale        = 17.8
	LeanMassFemale      = 14.8
	FatMassModerate     = 4.4
	FatMassHigh         = 7.0
)

// Absolute circumference bands (cm): the upper bounds of the first three
// bands, the fourth is open-ended
var (
	waistBandsMale   = [3]float64{80, 94, 102}
	waistBandsFemale = [3]float64{70, 80, 88}
	hipBandsMale     = [3]float64{90, 100, 110}
	hipBandsFemale   = [3]float64{92, 102, 112}
)

var (
	waistBands = [4]types.Band{types.BandAdequate, types.BandModerate, types.BandHigh, types.BandVeryHigh}
	hipBands   = [4]types.Band{types.BandLow, types.BandAdequate, types.BandModerate, types.BandHigh}
)

var labels = map[types.IndexName]map[types.Band]string{
	types.IndexWaistHip: {
		types.BandAdequate:   "Adequate",
		types.BandInadequate: "Inadequate",
	},
	types.IndexWaistHeight: {
		types.BandLow:      "Low risk",
		types.BandModerate: "Moderate risk",
		types.BandHigh:     "High risk",
	},
	types.IndexConicity: {
		types.BandAdequate:   "Adequate",
		types.BandInadequate: "Inadequate",
	},
	types.IndexLeanMass: {
		types.BandAdequate: "Adequate",
		types.BandLow:      "Low",
	},
	types.IndexFatMass: {
		types.BandAdequate: "Adequate",
		types.BandModerate: "Moderate excess",
		types.BandHigh:     "High excess",
	},
	types.IndexWaist: {
		types.BandAdequate: "Adequate",
		types.BandModerate: "Increased risk",
		types.BandHigh:     "High risk",
		types.BandVeryHigh: "Very high risk",
	},
	types.IndexHip: {
		types.BandLow:      "Small",
		types.BandAdequate: "Average",
		types.BandModerate: "Large",
		types.BandHigh:     "Very large",
	},
}

// Label returns the human-readable label for a classified index
func Label(name types.IndexName, band types.Band) string {
	return labels[name][band]
}

// Calculate derives and classifies every index and the composite score
func Calculate(m types.MeasurementResult, c types.CompositionResult, p types.BiometricProfile) types.IndexResult {
	waist := m[types.SiteWaist]
	hip := m[types.SiteHip]
	h2 := p.HeightMeters * p.HeightMeters

	values := map[types.IndexName]float64{
		types.IndexWaistHip:    safeDiv(waist, hip),
		types.IndexWaistHeight: safeDiv(waist, p.HeightCm()),
		types.IndexConicity:    Conicity(waist, hip),
		types.IndexLeanMass:    safeDiv(c.LeanMassKg, h2),
		types.IndexFatMass:     safeDiv(c.FatMassKg, h2),
		types.IndexWaist:       waist,
		types.IndexHip:         hip,
	}

	out := types.IndexResult{Values: make(map[types.IndexName]types.IndexValue, len(values))}
	for name, v := range values {
		band := Classify(name, v, p.Sex)
		out.Values[name] = types.IndexValue{Value: v, Band: band, BandLabel: Label(name, band)}
	}
	out.CompositeScore = Score(out)
	return out
}

// Conicity returns (waist/100) / (2·√(π·hip/100))
func Conicity(waistCm, hipCm float64) float64 {
	if hipCm <= 0 {
		return 0
	}
	return (waistCm / 100) / (2 * math.Sqrt(math.Pi*hipCm/100))
}

// Classify returns the band of an index value for a sex
func Classify(name types.IndexName, v float64, sex types.Sex) types.Band {
	female := sex == types.SexFemale
	switch name {
	case types.IndexWaistHip:
		limit := WaistHipMale
		if female {
			limit = WaistHipFemale
		}
		if v < limit {
			return types.BandAdequate
		}
		return types.BandInadequate
	case types.IndexWaistHeight:
		switch {
		case v < WaistHeightModerate:
			return types.BandLow
		case v <= WaistHeightHigh:
			return types.BandModerate
		default:
			return types.BandHigh
		}
	case types.IndexConicity:
		if v < ConicityAdequate {
			return types.BandAdequate
		}
		return types.BandInadequate
	case types.IndexLeanMass:
		limit := LeanMassMale
		if female {
			limit = LeanMassFemale
		}
		if v >= limit {
			return types.BandAdequate
		}
		return types.BandLow
	case types.IndexFatMass:
		switch {
		case v < FatMassModerate:
			return types.BandAdequate
		case v < FatMassHigh:
			return types.BandModerate
		default:
			return types.BandHigh
		}
	case types.IndexWaist:
		bounds := waistBandsMale
		if female {
			bounds = waistBandsFemale
		}
		return waistBands[step(v, bounds)]
	case types.IndexHip:
		bounds := hipBandsMale
		if female {
			bounds = hipBandsFemale
		}
		return hipBands[step(v, bounds)]
	}
	return ""
}

func step(v float64, bounds [3]float64) int {
	for i, b := range bounds {
		if v < b {
			return i
		}
	}
	return len(bounds)
}

// Partial credit per band; the optimal band earns the full share
var credits = map[types.IndexName]map[types.Band]float64{
	types.IndexFatMass: {
		types.BandAdequate: 1.0,
		types.BandModerate: 0.6,
		types.BandHigh:     0.2,
	},
	types.IndexLeanMass: {
		types.BandAdequate: 1.0,
		types.BandLow:      0.4,
	},
	types.IndexWaistHip: {
		types.BandAdequate:   1.0,
		types.BandInadequate: 0.3,
	},
	types.IndexWaistHeight: {
		types.BandLow:      1.0,
		types.BandModerate: 0.6,
		types.BandHigh:     0.2,
	},
	types.IndexConicity: {
		types.BandAdequate:   1.0,
		types.BandInadequate: 0.3,
	},
	types.IndexWaist: {
		types.BandAdequate: 1.0,
		types.BandModerate: 0.6,
		types.BandHigh:     0.4,
		types.BandVeryHigh: 0.2,
	},
}

// ScoredIndices are the six indicators of the composite score
var ScoredIndices = []types.IndexName{
	types.IndexFatMass,
	types.IndexLeanMass,
	types.IndexWaistHip,
	types.IndexWaistHeight,
	types.IndexConicity,
	types.IndexWaist,
}

// Score returns the composite 0–100 score
func Score(r types.IndexResult) int {
	share := 100.0 / float64(len(ScoredIndices))
	total := 0.0
	for _, name := range ScoredIndices {
		v, ok := r.Values[name]
		if !ok {
			continue
		}
		total += share * credits[name][v.Band]
	}
	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
