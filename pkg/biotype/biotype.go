// Package biotype classifies a subject by BMI.
//
// Two decisions use BMI with different thresholds: Classify produces the
// display label, while the correction branches of the fusion engine use the
// finer calibration.Fusion bands. The two are kept apart on purpose.
package biotype

import (
	"math"

	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Biotype is a coarse body-type tag
type Biotype string

const (
	Ectomorph Biotype = "ectomorph"
	Mesomorph Biotype = "mesomorph"
	Endomorph Biotype = "endomorph"
)

// BMI returns weight / height² clamped to the calibrated range.
// The second value reports whether clamping happened.
func BMI(profile types.BiometricProfile, r calibration.Range) (float64, bool) {
	raw := profile.WeightKg / (profile.HeightMeters * profile.HeightMeters)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return r.Min, true
	}
	bmi := r.Clamp(raw)
	return bmi, bmi != raw
}

// Classify returns the display biotype for a clamped BMI
func Classify(bmi float64, t calibration.DisplayBiotype) Biotype {
	switch {
	case bmi < t.EctomorphBelow:
		return Ectomorph
	case bmi > t.EndomorphAbove:
		return Endomorph
	default:
		return Mesomorph
	}
}

// Factor returns the staircase correction multiplier for a site
func Factor(cal calibration.Calibration, bmi float64, site types.Site) float64 {
	return cal.BiotypeFactor(bmi, site)
}
