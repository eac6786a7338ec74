// Package composition derives body-fat, lean mass, basal metabolic rate and
// body water from the six circumferences and the biometric profile.
package composition

import (
	"fmt"
	"math"

	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Method selects the basal metabolic rate equation
type Method string

const (
	// MethodCunningham uses lean mass and is used when landmark-derived
	// measurements are available
	MethodCunningham Method = "cunningham"
	// MethodHarrisBenedict uses weight, height, age and sex and is used by
	// the statistical fallback
	MethodHarrisBenedict Method = "harris_benedict"
)

// Siri conversion constants
const (
	siriA = 4.95
	siriB = 4.5
)

// Jackson–Pollock three-site coefficients
type jpCoefficients struct {
	c0, c1, c2, age float64
}

var (
	jpMale   = jpCoefficients{c0: 1.10938, c1: 0.0008267, c2: 0.0000016, age: 0.0002574}
	jpFemale = jpCoefficients{c0: 1.0994921, c1: 0.0009929, c2: 0.0000023, age: 0.0001392}
)

// Calculate returns the composition for a set of measurements. It fails only
// when the profile is invalid or a site is missing.
func Calculate(cal calibration.Calibration, m types.MeasurementResult, profile types.BiometricProfile, bmi float64, method Method) (types.CompositionResult, error) {
	if err := checkProfile(profile); err != nil {
		return types.CompositionResult{}, err
	}
	for _, site := range types.AllSites() {
		v, ok := m[site]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.CompositionResult{}, &types.CompositionError{
				Field:  "measurements." + string(site),
				Reason: "missing after fallback",
			}
		}
	}

	pct := BodyFatPercent(cal, m, profile)
	fat := pct / 100 * profile.WeightKg
	lean := profile.WeightKg - fat
	water := lean * cal.Composition.WaterFraction

	var bmr float64
	switch method {
	case MethodHarrisBenedict:
		bmr = HarrisBenedict(profile)
	default:
		method = MethodCunningham
		bmr = Cunningham(lean)
	}

	return types.CompositionResult{
		BodyFatPercent:         pct,
		FatMassKg:              fat,
		LeanMassKg:             lean,
		BasalMetabolicRateKcal: bmr,
		BodyWaterKg:            water,
		BodyWaterPercent:       water / profile.WeightKg * 100,
		BMI:                    bmi,
		Method:                 string(method),
	}, nil
}

// SkinfoldEquivalent is the weighted circumference sum substituted for the
// skinfold total of the Jackson–Pollock regression
func SkinfoldEquivalent(cal calibration.Calibration, m types.MeasurementResult, sex types.Sex) float64 {
	weights := cal.Composition.MaleSumWeights
	if sex == types.SexFemale {
		weights = cal.Composition.FemaleSumWeights
	}
	sum := 0.0
	for _, site := range types.AllSites() {
		sum += weights[site] * m[site]
	}
	return cal.Composition.SumRange.Clamp(sum)
}

// Density returns the body density estimate
func Density(sum float64, profile types.BiometricProfile) float64 {
	c := jpMale
	if profile.Sex == types.SexFemale {
		c = jpFemale
	}
	return c.c0 - c.c1*sum + c.c2*sum*sum - c.age*float64(profile.AgeYears)
}

// BodyFatPercent applies the Siri equation to the density estimate and
// bounds the result
func BodyFatPercent(cal calibration.Calibration, m types.MeasurementResult, profile types.BiometricProfile) float64 {
	d := Density(SkinfoldEquivalent(cal, m, profile.Sex), profile)
	if d <= 0 {
		return cal.Limits.BodyFatPercent.Max
	}
	return cal.Limits.BodyFatPercent.Clamp((siriA/d - siriB) * 100)
}

// Cunningham returns 370 + 21.6·leanMassKg
func Cunningham(leanMassKg float64) float64 {
	return 370 + 21.6*leanMassKg
}

// HarrisBenedict returns the revised Harris–Benedict estimate
func HarrisBenedict(p types.BiometricProfile) float64 {
	h := p.HeightCm()
	a := float64(p.AgeYears)
	if p.Sex == types.SexFemale {
		return 447.593 + 9.247*p.WeightKg + 3.098*h - 4.330*a
	}
	return 88.362 + 13.397*p.WeightKg + 4.799*h - 5.677*a
}

func checkProfile(p types.BiometricProfile) error {
	switch {
	case !(p.HeightMeters > 0) || math.IsInf(p.HeightMeters, 0):
		return &types.CompositionError{Field: "height", Reason: fmt.Sprintf("must be positive, got %v", p.HeightMeters)}
	case !(p.WeightKg > 0) || math.IsInf(p.WeightKg, 0):
		return &types.CompositionError{Field: "weight", Reason: fmt.Sprintf("must be positive, got %v", p.WeightKg)}
	case p.AgeYears <= 0:
		return &types.CompositionError{Field: "age", Reason: fmt.Sprintf("must be positive, got %d", p.AgeYears)}
	case !p.Sex.Valid():
		return &types.CompositionError{Field: "sex", Reason: fmt.Sprintf("unsupported value %q", p.Sex)}
	}
	return nil
}
