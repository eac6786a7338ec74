package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Sex is the two-value biological sex used by the calibration tables
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Valid reports whether s is one of the two supported values
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// BiometricProfile holds the self-reported inputs of one analysis
type BiometricProfile struct {
	HeightMeters float64 `json:"height_m"`
	WeightKg     float64 `json:"weight_kg"`
	AgeYears     int     `json:"age_years"`
	Sex          Sex     `json:"sex"`
}

// HeightCm returns the height in centimeters
func (p BiometricProfile) HeightCm() float64 {
	return p.HeightMeters * 100
}

// Landmark is a single 2-D pose point normalized to [0,1] image space
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Missing reports whether the landmark carries no usable coordinates
func (l Landmark) Missing() bool {
	return math.IsNaN(l.X) || math.IsNaN(l.Y) || math.IsInf(l.X, 0) || math.IsInf(l.Y, 0)
}

// LandmarkSet is the output of the pose detector for one image.
// Width and Height are the source image dimensions in pixels; zero means
// distances are measured in normalized units.
type LandmarkSet struct {
	Points []Landmark `json:"landmarks"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
}

// NumLandmarks is the size of a complete BlazePose landmark set
const NumLandmarks = 33

// At returns the landmark at index i and whether it is present
func (s *LandmarkSet) At(i int) (Landmark, bool) {
	if s == nil || i < 0 || i >= len(s.Points) {
		return Landmark{}, false
	}
	lm := s.Points[i]
	if lm.Missing() {
		return Landmark{}, false
	}
	return lm, true
}

// Empty reports whether the set carries no landmarks at all
func (s *LandmarkSet) Empty() bool {
	return s == nil || len(s.Points) == 0
}

// Site is one of the six circumference measurement sites
type Site string

const (
	SiteArm     Site = "arm"
	SiteForearm Site = "forearm"
	SiteWaist   Site = "waist"
	SiteHip     Site = "hip"
	SiteThigh   Site = "thigh"
	SiteCalf    Site = "calf"
)

var allSites = []Site{SiteArm, SiteForearm, SiteWaist, SiteHip, SiteThigh, SiteCalf}

// AllSites returns the six measurement sites in a fixed order
func AllSites() []Site {
	out := make([]Site, len(allSites))
	copy(out, allSites)
	return out
}

// Torso reports whether the site is waist or hip
func (s Site) Torso() bool {
	return s == SiteWaist || s == SiteHip
}

// Valid reports whether s is a known site
func (s Site) Valid() bool {
	for _, known := range allSites {
		if s == known {
			return true
		}
	}
	return false
}

// MeasurementResult maps each site to its circumference in centimeters
type MeasurementResult map[Site]float64

// Clone returns an independent copy
func (m MeasurementResult) Clone() MeasurementResult {
	out := make(MeasurementResult, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CompositionResult holds the derived body-composition values
type CompositionResult struct {
	BodyFatPercent         float64 `json:"body_fat_percent"`
	FatMassKg              float64 `json:"fat_mass_kg"`
	LeanMassKg             float64 `json:"lean_mass_kg"`
	BasalMetabolicRateKcal float64 `json:"basal_metabolic_rate_kcal"`
	BodyWaterKg            float64 `json:"body_water_kg"`
	BodyWaterPercent       float64 `json:"body_water_percent"`
	BMI                    float64 `json:"bmi"`
	Method                 string  `json:"bmr_method"`
}

// IndexName identifies one risk index
type IndexName string

const (
	IndexWaistHip    IndexName = "waist_hip_ratio"
	IndexWaistHeight IndexName = "waist_height_ratio"
	IndexConicity    IndexName = "conicity_index"
	IndexLeanMass    IndexName = "lean_mass_index"
	IndexFatMass     IndexName = "fat_mass_index"
	IndexWaist       IndexName = "waist"
	IndexHip         IndexName = "hip"
)

// Band is the classification of an index value
type Band string

const (
	BandAdequate   Band = "adequate"
	BandInadequate Band = "inadequate"
	BandLow        Band = "low"
	BandModerate   Band = "moderate"
	BandHigh       Band = "high"
	BandVeryHigh   Band = "very_high"
)

// IndexValue is a classified index
type IndexValue struct {
	Value     float64 `json:"value"`
	Band      Band    `json:"band"`
	BandLabel string  `json:"band_label"`
}

// IndexResult holds every classified index and the composite score
type IndexResult struct {
	Values         map[IndexName]IndexValue `json:"values"`
	CompositeScore int                      `json:"composite_score"`
}

// Clone returns an independent copy
func (r IndexResult) Clone() IndexResult {
	out := IndexResult{
		Values:         make(map[IndexName]IndexValue, len(r.Values)),
		CompositeScore: r.CompositeScore,
	}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// Source tells whether visual data contributed to the measurements
type Source string

const (
	SourceVisual   Source = "visual"
	SourceFallback Source = "fallback"
)

// WarningKind classifies absorbed anomalies
type WarningKind string

const (
	WarnMissingInput           WarningKind = "missing_input"
	WarnExtremeValue           WarningKind = "extreme_value"
	WarnIrreconcilableEstimate WarningKind = "irreconcilable_estimate"
	WarnClamped                WarningKind = "clamped"
	WarnDetection              WarningKind = "detection"
)

// Warning is a non-fatal anomaly recorded during an analysis
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Site    Site        `json:"site,omitempty"`
	Message string      `json:"message"`
}

// AnalysisResult is the only artifact handed to external collaborators
type AnalysisResult struct {
	ID                 string            `json:"id"`
	CalibrationVersion string            `json:"calibration_version"`
	Source             Source            `json:"source"`
	Biotype            string            `json:"biotype"`
	Profile            BiometricProfile  `json:"profile"`
	Measurements       MeasurementResult `json:"measurements"`
	Composition        CompositionResult `json:"composition"`
	Indices            IndexResult       `json:"indices"`
	Warnings           []Warning         `json:"warnings,omitempty"`
	States             []string          `json:"states,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// ErrInvalidProfile is returned when no meaningful result can be produced
var ErrInvalidProfile = errors.New("invalid biometric profile")

// CompositionError reports a hard failure of the composition stage
type CompositionError struct {
	Field  string
	Reason string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidProfile
func (e *CompositionError) Unwrap() error {
	return ErrInvalidProfile
}

// ParseSex maps the spellings used by surrounding systems onto Sex
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "masculino", "man":
		return SexMale, nil
	case "f", "female", "feminino", "woman":
		return SexFemale, nil
	}
	return "", fmt.Errorf("unknown sex %q", s)
}
