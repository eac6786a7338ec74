package indices

import (
	"math"
	"testing"

	"github.com/menta2k/body-analyzer/pkg/types"
)

func TestWaistHipSexThresholds(t *testing.T) {
	tests := []struct {
		ratio  float64
		male   types.Band
		female types.Band
	}{
		{0.79, types.BandAdequate, types.BandAdequate},
		{0.80, types.BandAdequate, types.BandInadequate},
		{0.85, types.BandAdequate, types.BandInadequate},
		{0.90, types.BandInadequate, types.BandInadequate},
	}

	for _, tt := range tests {
		if got := Classify(types.IndexWaistHip, tt.ratio, types.SexMale); got != tt.male {
			t.Errorf("male WHR %.2f: got %s, want %s", tt.ratio, got, tt.male)
		}
		if got := Classify(types.IndexWaistHip, tt.ratio, types.SexFemale); got != tt.female {
			t.Errorf("female WHR %.2f: got %s, want %s", tt.ratio, got, tt.female)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  types.IndexName
		value float64
		sex   types.Sex
		want  types.Band
	}{
		{types.IndexWaistHeight, 0.49, types.SexMale, types.BandLow},
		{types.IndexWaistHeight, 0.50, types.SexMale, types.BandModerate},
		{types.IndexWaistHeight, 0.55, types.SexFemale, types.BandModerate},
		{types.IndexWaistHeight, 0.551, types.SexFemale, types.BandHigh},
		{types.IndexConicity, 0.25, types.SexMale, types.BandAdequate},
		{types.IndexConicity, 1.25, types.SexMale, types.BandInadequate},
		{types.IndexLeanMass, 17.0, types.SexMale, types.BandLow},
		{types.IndexLeanMass, 17.0, types.SexFemale, types.BandAdequate},
		{types.IndexLeanMass, 17.8, types.SexMale, types.BandAdequate},
		{types.IndexLeanMass, 14.7, types.SexFemale, types.BandLow},
		{types.IndexFatMass, 4.3, types.SexMale, types.BandAdequate},
		{types.IndexFatMass, 4.4, types.SexMale, types.BandModerate},
		{types.IndexFatMass, 7.0, types.SexFemale, types.BandHigh},
		{types.IndexWaist, 79, types.SexMale, types.BandAdequate},
		{types.IndexWaist, 79, types.SexFemale, types.BandModerate},
		{types.IndexWaist, 95, types.SexMale, types.BandHigh},
		{types.IndexWaist, 88, types.SexFemale, types.BandVeryHigh},
		{types.IndexWaist, 102, types.SexMale, types.BandVeryHigh},
		{types.IndexHip, 89, types.SexMale, types.BandLow},
		{types.IndexHip, 91, types.SexFemale, types.BandLow},
		{types.IndexHip, 95, types.SexMale, types.BandAdequate},
		{types.IndexHip, 105, types.SexFemale, types.BandModerate},
		{types.IndexHip, 112, types.SexFemale, types.BandHigh},
	}

	for _, tt := range tests {
		if got := Classify(tt.name, tt.value, tt.sex); got != tt.want {
			t.Errorf("Classify(%s, %.3f, %s) = %s, want %s", tt.name, tt.value, tt.sex, got, tt.want)
		}
	}
}

func TestConicity(t *testing.T) {
	if got := Conicity(85.51, 95.2); math.Abs(got-0.2472) > 1e-3 {
		t.Errorf("Conicity(85.51, 95.2) = %.4f, want 0.2472", got)
	}
	if got := Conicity(85, 0); got != 0 {
		t.Errorf("Expected 0 for zero hip, got %f", got)
	}
}

func TestCalculate(t *testing.T) {
	m := types.MeasurementResult{
		types.SiteArm:     33.15,
		types.SiteForearm: 28.05,
		types.SiteWaist:   85.51,
		types.SiteHip:     95.2,
		types.SiteThigh:   56.1,
		types.SiteCalf:    37.4,
	}
	c := types.CompositionResult{FatMassKg: 9.0, LeanMassKg: 61.0}
	p := types.BiometricProfile{HeightMeters: 1.70, WeightKg: 70, AgeYears: 30, Sex: types.SexMale}

	r := Calculate(m, c, p)
	if len(r.Values) != 7 {
		t.Fatalf("Expected 7 indices, got %d", len(r.Values))
	}

	checks := map[types.IndexName]float64{
		types.IndexWaistHip:    85.51 / 95.2,
		types.IndexWaistHeight: 85.51 / 170,
		types.IndexLeanMass:    61.0 / (1.70 * 1.70),
		types.IndexFatMass:     9.0 / (1.70 * 1.70),
		types.IndexWaist:       85.51,
		types.IndexHip:         95.2,
	}
	for name, want := range checks {
		if got := r.Values[name].Value; math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %.4f, want %.4f", name, got, want)
		}
	}

	for name, v := range r.Values {
		if v.Band == "" || v.BandLabel == "" {
			t.Errorf("%s: missing band or label", name)
		}
	}

	// WHR 0.898 adequate, WHtR 0.503 moderate, conicity adequate,
	// LMI 21.1 adequate, FMI 3.1 adequate, waist 85.5 moderate
	want := int(math.Round(100.0 / 6 * (1 + 0.6 + 1 + 1 + 1 + 0.6)))
	if r.CompositeScore != want {
		t.Errorf("CompositeScore = %d, want %d", r.CompositeScore, want)
	}
}

func TestScore(t *testing.T) {
	best := types.IndexResult{Values: map[types.IndexName]types.IndexValue{}}
	worst := types.IndexResult{Values: map[types.IndexName]types.IndexValue{}}
	for name, bands := range credits {
		var hi, lo types.Band
		hiC, loC := -1.0, 2.0
		for b, c := range bands {
			if c > hiC {
				hi, hiC = b, c
			}
			if c < loC {
				lo, loC = b, c
			}
		}
		best.Values[name] = types.IndexValue{Band: hi}
		worst.Values[name] = types.IndexValue{Band: lo}
	}

	if got := Score(best); got != 100 {
		t.Errorf("Expected 100 for optimal bands, got %d", got)
	}
	if got := Score(worst); got != 27 {
		t.Errorf("Expected 27 for worst bands, got %d", got)
	}
	if got := Score(types.IndexResult{}); got != 0 {
		t.Errorf("Expected 0 for no indices, got %d", got)
	}
}

func TestLabel(t *testing.T) {
	if got := Label(types.IndexWaistHip, types.BandInadequate); got != "Inadequate" {
		t.Errorf("Unexpected label %q", got)
	}
	if got := Label(types.IndexHip, types.BandVeryHigh); got != "" {
		t.Errorf("Expected empty label for unused band, got %q", got)
	}
}
