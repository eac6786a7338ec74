// Package fusion reconciles the statistical and visual estimators.
//
// Each site is resolved by the first matching rule of an ordered list.
// The default order is ectomorph correction, female mesomorph correction,
// endomorph correction, then the visual/statistical blend. Reordering the
// list changes results.
package fusion

import (
	"math"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/estimator"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Regime names the rule that produced a measurement
type Regime string

const (
	RegimeEctomorph       Regime = "ectomorph"
	RegimeFemaleMesomorph Regime = "female_mesomorph"
	RegimeEndomorph       Regime = "endomorph"
	RegimeBlend           Regime = "blend"
)

// Input is everything a rule needs for one site
type Input struct {
	Site         types.Site
	Profile      types.BiometricProfile
	BMI          float64 // clamped
	Landmarks    *types.LandmarkSet
	HeightPixels float64
}

// Outcome is the resolved measurement and how it was reached
type Outcome struct {
	Site        types.Site `json:"site"`
	Regime      Regime     `json:"regime"`
	Value       float64    `json:"value"`
	Statistical float64    `json:"statistical,omitempty"`
	Visual      float64    `json:"visual,omitempty"`
	Deviation   float64    `json:"deviation,omitempty"`
	Threshold   float64    `json:"threshold,omitempty"`
	Rejected    bool       `json:"rejected,omitempty"`
	Guarded     bool       `json:"guarded,omitempty"`
}

// UsedVisual reports whether a visual estimate contributed to the value
func (o Outcome) UsedVisual() bool {
	return o.Regime == RegimeBlend && !o.Rejected && o.Visual > 0
}

// AnyVisual reports whether any outcome used a visual estimate
func AnyVisual(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.UsedVisual() {
			return true
		}
	}
	return false
}

// Rule is one entry of the ordered decision list
type Rule interface {
	Regime() Regime
	Match(cal calibration.Calibration, in Input) bool
	Apply(cal calibration.Calibration, in Input) Outcome
}

// DirectCorrection bypasses the visual estimate and multiplies the
// uncorrected statistical base by a per-site correction table
type DirectCorrection struct {
	Kind Regime
}

// Regime implements Rule
func (d DirectCorrection) Regime() Regime { return d.Kind }

// Match implements Rule
func (d DirectCorrection) Match(cal calibration.Calibration, in Input) bool {
	f := cal.Fusion
	switch d.Kind {
	case RegimeEctomorph:
		return in.BMI < f.EctomorphBelow
	case RegimeFemaleMesomorph:
		return in.Profile.Sex == types.SexFemale && in.BMI >= f.EctomorphBelow && in.BMI < f.EndomorphFrom
	case RegimeEndomorph:
		return in.BMI >= f.EndomorphFrom
	}
	return false
}

// Apply implements Rule
func (d DirectCorrection) Apply(cal calibration.Calibration, in Input) Outcome {
	base := estimator.Base(cal, in.Site, in.Profile)
	out := Outcome{Site: in.Site, Regime: d.Kind}

	switch d.Kind {
	case RegimeEctomorph:
		// Not composed with the biotype staircase.
		out.Value = base * cal.EctomorphCorrection[in.Site]
	case RegimeFemaleMesomorph:
		out.Value = base * cal.FemaleMesomorphCorrection[in.Site]
	case RegimeEndomorph:
		if in.Site.Torso() {
			out.Value = base * EndomorphProgression(cal.Fusion, in.BMI) * cal.EndomorphCorrection[in.Site]
		} else {
			out.Value = base * cal.BiotypeFactor(in.BMI, in.Site) * cal.EndomorphCorrection[in.Site]
		}
	}
	return out
}

// EndomorphProgression is the progressive torso multiplier 1 + (bmi−base)·slope
func EndomorphProgression(f calibration.Fusion, bmi float64) float64 {
	return 1 + (bmi-f.ProgressionBase)*f.ProgressionSlope
}

// Blend combines the visual and statistical estimates behind a safety gate
type Blend struct{}

// Regime implements Rule
func (Blend) Regime() Regime { return RegimeBlend }

// Match implements Rule
func (Blend) Match(calibration.Calibration, Input) bool { return true }

// Apply implements Rule
func (Blend) Apply(cal calibration.Calibration, in Input) Outcome {
	stat := estimator.Statistical(cal, in.Site, in.Profile, in.BMI)
	visual := 0.0
	if !in.Landmarks.Empty() {
		visual = estimator.Visual(cal, in.Site, in.Landmarks, in.HeightPixels, in.Profile.HeightCm())
	}
	return BlendEstimates(cal.Fusion, in.Site, in.Profile.Sex, in.BMI, stat, visual)
}

// BlendEstimates applies the safety gate, weighting and torso guard to a
// pair of estimates. A zero visual estimate means no landmark data.
func BlendEstimates(f calibration.Fusion, site types.Site, sex types.Sex, bmi, stat, visual float64) Outcome {
	out := Outcome{Site: site, Regime: RegimeBlend, Statistical: stat, Visual: visual, Value: stat}
	if visual <= 0 || stat <= 0 {
		return out
	}

	out.Deviation = math.Abs(visual-stat) / stat
	out.Threshold = SafetyThreshold(f, sex, bmi)
	if out.Deviation > out.Threshold {
		out.Rejected = true
		log.Info("visual estimate rejected",
			"site", site, "visual", visual, "statistical", stat,
			"deviation", out.Deviation, "threshold", out.Threshold)
		return out
	}

	w := BlendWeights(f, bmi)
	result := visual*w.Visual + stat*w.Statistical

	if site.Torso() && bmi < f.EctomorphBelow && result > stat*f.TorsoGuardTrigger {
		result = stat * f.TorsoGuardClampRatio
		out.Guarded = true
	}
	out.Value = result
	return out
}

// SafetyThreshold returns the maximum relative deviation accepted before
// the visual estimate is discarded
func SafetyThreshold(f calibration.Fusion, sex types.Sex, bmi float64) float64 {
	switch {
	case sex == types.SexFemale:
		return f.ThresholdFemale
	case bmi < f.EctomorphBelow:
		return f.ThresholdEctomorph
	default:
		return f.ThresholdDefault
	}
}

// BlendWeights returns the visual/statistical pair for a BMI band
func BlendWeights(f calibration.Fusion, bmi float64) calibration.Weights {
	switch {
	case bmi < f.EctomorphBelow:
		return f.WeightsEctomorph
	case bmi >= f.EndomorphFrom:
		return f.WeightsEndomorph
	default:
		return f.WeightsDefault
	}
}

// DefaultRules returns the production rule order
func DefaultRules() []Rule {
	return []Rule{
		DirectCorrection{Kind: RegimeEctomorph},
		DirectCorrection{Kind: RegimeFemaleMesomorph},
		DirectCorrection{Kind: RegimeEndomorph},
		Blend{},
	}
}

// Engine resolves all six sites for one analysis
type Engine struct {
	cal   calibration.Calibration
	rules []Rule
}

// New creates an Engine with the default rule order
func New(cal calibration.Calibration) *Engine {
	return NewWithRules(cal, DefaultRules()...)
}

// NewWithRules creates an Engine with a custom rule order. A Blend rule is
// appended when the list has none, so every site always resolves.
func NewWithRules(cal calibration.Calibration, rules ...Rule) *Engine {
	hasBlend := false
	for _, r := range rules {
		if r.Regime() == RegimeBlend {
			hasBlend = true
		}
	}
	rs := append([]Rule(nil), rules...)
	if !hasBlend {
		rs = append(rs, Blend{})
	}
	return &Engine{cal: cal.Clone(), rules: rs}
}

// Fuse resolves one site with the first matching rule
func (e *Engine) Fuse(in Input) Outcome {
	for _, r := range e.rules {
		if r.Match(e.cal, in) {
			return r.Apply(e.cal, in)
		}
	}
	return Blend{}.Apply(e.cal, in)
}

// FuseAll resolves every site and returns the measurements with the
// per-site outcomes
func (e *Engine) FuseAll(profile types.BiometricProfile, bmi float64, set *types.LandmarkSet, heightPixels float64) (types.MeasurementResult, []Outcome) {
	m := make(types.MeasurementResult, 6)
	outcomes := make([]Outcome, 0, 6)
	for _, site := range types.AllSites() {
		o := e.Fuse(Input{
			Site:         site,
			Profile:      profile,
			BMI:          bmi,
			Landmarks:    set,
			HeightPixels: heightPixels,
		})
		m[site] = o.Value
		outcomes = append(outcomes, o)
	}
	return m, outcomes
}
