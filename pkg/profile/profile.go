// Package profile normalizes biometric input at the engine boundary.
package profile

import (
	"fmt"
	"math"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/types"
)

const (
	// DefaultHeightMeters replaces a missing or implausible height
	DefaultHeightMeters = 1.70
	// CentimeterThreshold: heights above this are taken as centimeters
	CentimeterThreshold = 3.0
	MinHeightMeters     = 1.0
	MaxHeightMeters     = 2.5
)

// NormalizeHeight converts a height to meters. Values above 3 are taken as
// centimeters. A zero height or one outside [1.0, 2.5] after conversion is
// replaced by the default and reported as a warning.
func NormalizeHeight(h float64) (float64, *types.Warning) {
	if h == 0 {
		return DefaultHeightMeters, &types.Warning{
			Kind:    types.WarnMissingInput,
			Message: fmt.Sprintf("height missing, using default %.2f m", DefaultHeightMeters),
		}
	}
	if h > CentimeterThreshold {
		h /= 100
	}
	if h < MinHeightMeters || h > MaxHeightMeters {
		return DefaultHeightMeters, &types.Warning{
			Kind:    types.WarnExtremeValue,
			Message: fmt.Sprintf("height %.2f m outside [%.1f, %.1f], using default %.2f m", h, MinHeightMeters, MaxHeightMeters, DefaultHeightMeters),
		}
	}
	return h, nil
}

// Normalize validates p and returns the profile the engine works with.
// Non-positive or non-finite weight, age or height are hard failures.
func Normalize(p types.BiometricProfile) (types.BiometricProfile, []types.Warning, error) {
	if math.IsNaN(p.HeightMeters) || math.IsInf(p.HeightMeters, 0) || p.HeightMeters < 0 {
		return p, nil, &types.CompositionError{Field: "height", Reason: fmt.Sprintf("must be positive, got %v", p.HeightMeters)}
	}
	if math.IsNaN(p.WeightKg) || math.IsInf(p.WeightKg, 0) || p.WeightKg <= 0 {
		return p, nil, &types.CompositionError{Field: "weight", Reason: fmt.Sprintf("must be positive, got %v", p.WeightKg)}
	}
	if p.AgeYears <= 0 {
		return p, nil, &types.CompositionError{Field: "age", Reason: fmt.Sprintf("must be positive, got %d", p.AgeYears)}
	}
	if !p.Sex.Valid() {
		sex, err := types.ParseSex(string(p.Sex))
		if err != nil {
			return p, nil, &types.CompositionError{Field: "sex", Reason: err.Error()}
		}
		p.Sex = sex
	}

	var warns []types.Warning
	h, w := NormalizeHeight(p.HeightMeters)
	if w != nil {
		log.Warn("height normalized", "input", p.HeightMeters, "height_m", h, "kind", w.Kind)
		warns = append(warns, *w)
	}
	p.HeightMeters = h
	return p, warns, nil
}

// New builds a profile from loosely typed input, such as form fields that
// carry sex as "masculino" or height in centimeters
func New(height, weightKg float64, ageYears int, sex string) (types.BiometricProfile, []types.Warning, error) {
	s, err := types.ParseSex(sex)
	if err != nil {
		return types.BiometricProfile{}, nil, &types.CompositionError{Field: "sex", Reason: err.Error()}
	}
	return Normalize(types.BiometricProfile{
		HeightMeters: height,
		WeightKg:     weightKg,
		AgeYears:     ageYears,
		Sex:          s,
	})
}
