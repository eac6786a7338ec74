// Package calibration holds the versioned constant tables that drive the
// estimation engine. A Calibration is a plain value: Default returns a fresh
// copy on every call and consumers take a Clone, so a table handed to an
// engine cannot be changed underneath it.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// DefaultVersion is the calibration revision shipped with the engine
const DefaultVersion = "v11.6"

// SiteTable maps each measurement site to a constant
type SiteTable map[types.Site]float64

// Step is one stair of a BMI step function: Factor applies while bmi < Below
type Step struct {
	Below  float64 `json:"below"`
	Factor float64 `json:"factor"`
}

// Staircase is a non-interpolated step function of BMI.
// Top applies to every bmi at or above the last step.
type Staircase struct {
	Steps []Step  `json:"steps"`
	Top   float64 `json:"top"`
}

// Factor evaluates the staircase
func (s Staircase) Factor(bmi float64) float64 {
	for _, st := range s.Steps {
		if bmi < st.Below {
			return st.Factor
		}
	}
	return s.Top
}

// Weights is the visual/statistical blend pair
type Weights struct {
	Visual      float64 `json:"visual"`
	Statistical float64 `json:"statistical"`
}

// Range is an inclusive [Min, Max] bound
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp bounds v to the range
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// DisplayBiotype holds the thresholds of the labeling classifier
type DisplayBiotype struct {
	EctomorphBelow float64 `json:"ectomorph_below"`
	EndomorphAbove float64 `json:"endomorph_above"`
}

// Fusion holds the knobs of the hybrid fusion rules
type Fusion struct {
	EctomorphBelow       float64 `json:"ectomorph_below"`
	EndomorphFrom        float64 `json:"endomorph_from"`
	ProgressionBase      float64 `json:"progression_base"`
	ProgressionSlope     float64 `json:"progression_slope"`
	ThresholdFemale      float64 `json:"threshold_female"`
	ThresholdEctomorph   float64 `json:"threshold_ectomorph"`
	ThresholdDefault     float64 `json:"threshold_default"`
	WeightsEctomorph     Weights `json:"weights_ectomorph"`
	WeightsEndomorph     Weights `json:"weights_endomorph"`
	WeightsDefault       Weights `json:"weights_default"`
	TorsoGuardTrigger    float64 `json:"torso_guard_trigger"`
	TorsoGuardClampRatio float64 `json:"torso_guard_clamp"`
}

// Composition holds the circumference-substituted Jackson–Pollock weights
type Composition struct {
	MaleSumWeights   SiteTable `json:"male_sum_weights"`
	FemaleSumWeights SiteTable `json:"female_sum_weights"`
	SumRange         Range     `json:"sum_range"`
	WaterFraction    float64   `json:"water_fraction"`
}

// Limits are the physiological clamp ranges
type Limits struct {
	Sites            map[types.Site]Range      `json:"sites"`
	BodyFatPercent   Range                     `json:"body_fat_percent"`
	FatMassKg        Range                     `json:"fat_mass_kg"`
	LeanMassKg       Range                     `json:"lean_mass_kg"`
	BMRKcal          Range                     `json:"bmr_kcal"`
	BodyWaterKg      Range                     `json:"body_water_kg"`
	BodyWaterPercent Range                     `json:"body_water_percent"`
	BMI              Range                     `json:"bmi"`
	Indices          map[types.IndexName]Range `json:"indices"`
	Score            Range                     `json:"score"`
}

// Calibration is one immutable revision of every engine constant
type Calibration struct {
	Version string `json:"version"`

	HeadLandmark  int                     `json:"head_landmark"`
	AnkleLandmark int                     `json:"ankle_landmark"`
	LandmarkPairs map[types.Site][2]int   `json:"landmark_pairs"`
	SpanToWidth   SiteTable               `json:"span_to_width"`
	DepthWidth    SiteTable               `json:"depth_width"`
	SexRatios     map[types.Sex]SiteTable `json:"sex_ratios"`

	// CrownOffset extends the head-to-ankle span to the top of the head,
	// as a fraction of the span. The nose sits about 7% of that span below
	// the crown.
	CrownOffset float64 `json:"crown_offset"`

	TorsoStaircase Staircase      `json:"torso_staircase"`
	LimbStaircase  Staircase      `json:"limb_staircase"`
	Display        DisplayBiotype `json:"display_biotype"`

	EctomorphCorrection       SiteTable `json:"ectomorph_correction"`
	FemaleMesomorphCorrection SiteTable `json:"female_mesomorph_correction"`
	EndomorphCorrection       SiteTable `json:"endomorph_correction"`

	Fusion      Fusion      `json:"fusion"`
	Composition Composition `json:"composition"`
	Limits      Limits      `json:"limits"`
}

// Default returns a fresh copy of the shipped calibration
func Default() Calibration {
	return Calibration{
		Version:       DefaultVersion,
		HeadLandmark:  0,
		AnkleLandmark: 27,
		CrownOffset:   0.07,
		LandmarkPairs: map[types.Site][2]int{
			types.SiteArm:     {11, 13},
			types.SiteForearm: {13, 15},
			types.SiteWaist:   {23, 24},
			types.SiteHip:     {23, 24},
			types.SiteThigh:   {23, 25},
			types.SiteCalf:    {25, 27},
		},
		// Landmark spans are used as widths unchanged. A revision may scale
		// joint-to-joint limb spans down to cross-section widths.
		SpanToWidth: SiteTable{
			types.SiteArm:     1.00,
			types.SiteForearm: 1.00,
			types.SiteWaist:   1.00,
			types.SiteHip:     1.00,
			types.SiteThigh:   1.00,
			types.SiteCalf:    1.00,
		},
		DepthWidth: SiteTable{
			types.SiteArm:     1.00,
			types.SiteForearm: 0.80,
			types.SiteWaist:   0.75,
			types.SiteHip:     1.05,
			types.SiteThigh:   0.95,
			types.SiteCalf:    0.95,
		},
		SexRatios: map[types.Sex]SiteTable{
			types.SexMale: {
				types.SiteArm:     0.195,
				types.SiteForearm: 0.165,
				types.SiteWaist:   0.503,
				types.SiteHip:     0.560,
				types.SiteThigh:   0.330,
				types.SiteCalf:    0.220,
			},
			types.SexFemale: {
				types.SiteArm:     0.170,
				types.SiteForearm: 0.145,
				types.SiteWaist:   0.440,
				types.SiteHip:     0.590,
				types.SiteThigh:   0.340,
				types.SiteCalf:    0.215,
			},
		},
		// Conservative on the torso: the endomorph rule adds its own progression.
		TorsoStaircase: Staircase{
			Steps: []Step{
				{Below: 25, Factor: 1.00},
				{Below: 27, Factor: 1.02},
				{Below: 29, Factor: 1.04},
				{Below: 32, Factor: 1.06},
				{Below: 35, Factor: 1.08},
			},
			Top: 1.10,
		},
		LimbStaircase: Staircase{
			Steps: []Step{
				{Below: 18.5, Factor: 0.88},
				{Below: 21, Factor: 0.93},
				{Below: 23, Factor: 0.97},
				{Below: 25, Factor: 1.00},
				{Below: 27, Factor: 1.04},
				{Below: 32, Factor: 1.09},
			},
			Top: 1.15,
		},
		Display: DisplayBiotype{EctomorphBelow: 21, EndomorphAbove: 26},
		EctomorphCorrection: SiteTable{
			types.SiteArm:     0.92,
			types.SiteForearm: 0.94,
			types.SiteWaist:   0.90,
			types.SiteHip:     0.95,
			types.SiteThigh:   0.92,
			types.SiteCalf:    0.95,
		},
		FemaleMesomorphCorrection: SiteTable{
			types.SiteArm:     1.00,
			types.SiteForearm: 0.98,
			types.SiteWaist:   0.97,
			types.SiteHip:     1.02,
			types.SiteThigh:   1.01,
			types.SiteCalf:    1.00,
		},
		EndomorphCorrection: SiteTable{
			types.SiteArm:     1.05,
			types.SiteForearm: 1.03,
			types.SiteWaist:   1.00,
			types.SiteHip:     1.00,
			types.SiteThigh:   1.03,
			types.SiteCalf:    1.02,
		},
		Fusion: Fusion{
			EctomorphBelow:       23,
			EndomorphFrom:        27,
			ProgressionBase:      25,
			ProgressionSlope:     0.018,
			ThresholdFemale:      0.40,
			ThresholdEctomorph:   0.25,
			ThresholdDefault:     0.30,
			WeightsEctomorph:     Weights{Visual: 0.30, Statistical: 0.70},
			WeightsEndomorph:     Weights{Visual: 0.50, Statistical: 0.50},
			WeightsDefault:       Weights{Visual: 0.60, Statistical: 0.40},
			TorsoGuardTrigger:    1.05,
			TorsoGuardClampRatio: 1.02,
		},
		Composition: Composition{
			MaleSumWeights: SiteTable{
				types.SiteArm:     -0.20,
				types.SiteForearm: -0.15,
				types.SiteWaist:   0.75,
				types.SiteHip:     -0.30,
				types.SiteThigh:   0.25,
				types.SiteCalf:    0.10,
			},
			FemaleSumWeights: SiteTable{
				types.SiteArm:     -0.25,
				types.SiteForearm: -0.20,
				types.SiteWaist:   0.55,
				types.SiteHip:     0.35,
				types.SiteThigh:   0.10,
				types.SiteCalf:    -0.20,
			},
			SumRange:      Range{Min: 0, Max: 200},
			WaterFraction: 0.723,
		},
		Limits: Limits{
			Sites: map[types.Site]Range{
				types.SiteArm:     {Min: 15, Max: 60},
				types.SiteForearm: {Min: 15, Max: 45},
				types.SiteWaist:   {Min: 50, Max: 160},
				types.SiteHip:     {Min: 60, Max: 170},
				types.SiteThigh:   {Min: 30, Max: 90},
				types.SiteCalf:    {Min: 20, Max: 60},
			},
			BodyFatPercent:   Range{Min: 3, Max: 50},
			FatMassKg:        Range{Min: 1, Max: 150},
			LeanMassKg:       Range{Min: 10, Max: 150},
			BMRKcal:          Range{Min: 800, Max: 4000},
			BodyWaterKg:      Range{Min: 5, Max: 110},
			BodyWaterPercent: Range{Min: 30, Max: 75},
			BMI:              Range{Min: 10, Max: 60},
			Indices: map[types.IndexName]Range{
				types.IndexWaistHip:    {Min: 0.5, Max: 1.5},
				types.IndexWaistHeight: {Min: 0.25, Max: 1.0},
				types.IndexConicity:    {Min: 0.1, Max: 1.8},
				types.IndexLeanMass:    {Min: 8, Max: 35},
				types.IndexFatMass:     {Min: 0.5, Max: 30},
				types.IndexWaist:       {Min: 50, Max: 160},
				types.IndexHip:         {Min: 60, Max: 170},
			},
			Score: Range{Min: 0, Max: 100},
		},
	}
}

// Ratio returns the statistical height ratio for a sex and site
func (c Calibration) Ratio(sex types.Sex, site types.Site) float64 {
	return c.SexRatios[sex][site]
}

// BiotypeFactor returns the staircase multiplier for a site
func (c Calibration) BiotypeFactor(bmi float64, site types.Site) float64 {
	if site.Torso() {
		return c.TorsoStaircase.Factor(bmi)
	}
	return c.LimbStaircase.Factor(bmi)
}

// Clone returns a deep copy
func (c Calibration) Clone() Calibration {
	out := c
	out.LandmarkPairs = make(map[types.Site][2]int, len(c.LandmarkPairs))
	for k, v := range c.LandmarkPairs {
		out.LandmarkPairs[k] = v
	}
	out.SpanToWidth = c.SpanToWidth.clone()
	out.DepthWidth = c.DepthWidth.clone()
	out.SexRatios = make(map[types.Sex]SiteTable, len(c.SexRatios))
	for k, v := range c.SexRatios {
		out.SexRatios[k] = v.clone()
	}
	out.TorsoStaircase.Steps = append([]Step(nil), c.TorsoStaircase.Steps...)
	out.LimbStaircase.Steps = append([]Step(nil), c.LimbStaircase.Steps...)
	out.EctomorphCorrection = c.EctomorphCorrection.clone()
	out.FemaleMesomorphCorrection = c.FemaleMesomorphCorrection.clone()
	out.EndomorphCorrection = c.EndomorphCorrection.clone()
	out.Composition.MaleSumWeights = c.Composition.MaleSumWeights.clone()
	out.Composition.FemaleSumWeights = c.Composition.FemaleSumWeights.clone()
	out.Limits.Sites = make(map[types.Site]Range, len(c.Limits.Sites))
	for k, v := range c.Limits.Sites {
		out.Limits.Sites[k] = v
	}
	out.Limits.Indices = make(map[types.IndexName]Range, len(c.Limits.Indices))
	for k, v := range c.Limits.Indices {
		out.Limits.Indices[k] = v
	}
	return out
}

func (t SiteTable) clone() SiteTable {
	if t == nil {
		return nil
	}
	out := make(SiteTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Validate checks that every table covers all six sites and that the
// step functions are ordered
func (c Calibration) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("calibration version cannot be empty")
	}
	tables := map[string]SiteTable{
		"span_to_width":                  c.SpanToWidth,
		"depth_width":                    c.DepthWidth,
		"ectomorph_correction":           c.EctomorphCorrection,
		"female_mesomorph_correction":    c.FemaleMesomorphCorrection,
		"endomorph_correction":           c.EndomorphCorrection,
		"composition.male_sum_weights":   c.Composition.MaleSumWeights,
		"composition.female_sum_weights": c.Composition.FemaleSumWeights,
	}
	for _, sex := range []types.Sex{types.SexMale, types.SexFemale} {
		tables["sex_ratios."+string(sex)] = c.SexRatios[sex]
	}
	for name, table := range tables {
		for _, site := range types.AllSites() {
			if _, ok := table[site]; !ok {
				return fmt.Errorf("%s: missing site %s", name, site)
			}
		}
	}
	for _, site := range types.AllSites() {
		pair, ok := c.LandmarkPairs[site]
		if !ok {
			return fmt.Errorf("landmark_pairs: missing site %s", site)
		}
		if pair[0] < 0 || pair[1] < 0 || pair[0] >= types.NumLandmarks || pair[1] >= types.NumLandmarks {
			return fmt.Errorf("landmark_pairs.%s: index out of range", site)
		}
		r, ok := c.Limits.Sites[site]
		if !ok || r.Min >= r.Max {
			return fmt.Errorf("limits.sites.%s: invalid range", site)
		}
		if c.SexRatios[types.SexMale][site] <= 0 || c.SexRatios[types.SexFemale][site] <= 0 {
			return fmt.Errorf("sex_ratios: %s must be positive", site)
		}
	}
	if c.CrownOffset < 0 || c.CrownOffset >= 0.5 {
		return fmt.Errorf("crown_offset: must be in [0, 0.5), got %v", c.CrownOffset)
	}
	for _, site := range types.AllSites() {
		if c.SpanToWidth[site] <= 0 {
			return fmt.Errorf("span_to_width: %s must be positive", site)
		}
	}
	if err := validateStaircase("torso_staircase", c.TorsoStaircase); err != nil {
		return err
	}
	if err := validateStaircase("limb_staircase", c.LimbStaircase); err != nil {
		return err
	}
	if c.Fusion.EctomorphBelow >= c.Fusion.EndomorphFrom {
		return fmt.Errorf("fusion.ectomorph_below must be below fusion.endomorph_from")
	}
	for name, w := range map[string]Weights{
		"weights_ectomorph": c.Fusion.WeightsEctomorph,
		"weights_endomorph": c.Fusion.WeightsEndomorph,
		"weights_default":   c.Fusion.WeightsDefault,
	} {
		if w.Visual < 0 || w.Statistical < 0 || w.Visual+w.Statistical <= 0 {
			return fmt.Errorf("fusion.%s: weights must be non-negative and not both zero", name)
		}
	}
	if c.Limits.BMI.Min <= 0 || c.Limits.BMI.Min >= c.Limits.BMI.Max {
		return fmt.Errorf("limits.bmi: invalid range")
	}
	return nil
}

func validateStaircase(name string, s Staircase) error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%s: no steps", name)
	}
	for i := 1; i < len(s.Steps); i++ {
		if s.Steps[i].Below <= s.Steps[i-1].Below {
			return fmt.Errorf("%s: breakpoints must increase", name)
		}
	}
	return nil
}

// LoadFromFile loads a calibration revision from a JSON file
func LoadFromFile(filename string) (Calibration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Calibration{}, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("failed to parse calibration file: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return Calibration{}, fmt.Errorf("invalid calibration %s: %w", filename, err)
	}

	return cal, nil
}

// SaveToFile writes the calibration as indented JSON
func (c Calibration) SaveToFile(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create calibration directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration file: %w", err)
	}

	return nil
}
