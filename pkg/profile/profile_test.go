package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/menta2k/body-analyzer/pkg/types"
)

func TestNormalizeHeight(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		want     float64
		wantWarn types.WarningKind
	}{
		{"meters", 1.75, 1.75, ""},
		{"centimeters", 175, 1.75, ""},
		{"boundary low", 1.0, 1.0, ""},
		{"boundary high", 2.5, 2.5, ""},
		{"missing", 0, DefaultHeightMeters, types.WarnMissingInput},
		{"too tall", 260, DefaultHeightMeters, types.WarnExtremeValue},
		{"too short", 0.8, DefaultHeightMeters, types.WarnExtremeValue},
		{"ambiguous", 2.9, DefaultHeightMeters, types.WarnExtremeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, w := NormalizeHeight(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeHeight(%v) = %v, want %v", tt.in, got, tt.want)
			}
			switch {
			case tt.wantWarn == "" && w != nil:
				t.Errorf("Unexpected warning %v", w)
			case tt.wantWarn != "" && (w == nil || w.Kind != tt.wantWarn):
				t.Errorf("Expected %s warning, got %v", tt.wantWarn, w)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	p, warns, err := Normalize(types.BiometricProfile{HeightMeters: 175, WeightKg: 72, AgeYears: 34, Sex: "masculino"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.HeightMeters != 1.75 {
		t.Errorf("Expected 1.75 m, got %v", p.HeightMeters)
	}
	if p.Sex != types.SexMale {
		t.Errorf("Expected sex M, got %s", p.Sex)
	}
	if len(warns) != 0 {
		t.Errorf("Expected no warnings, got %v", warns)
	}

	_, warns, err = Normalize(types.BiometricProfile{WeightKg: 60, AgeYears: 40, Sex: types.SexFemale})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(warns) != 1 || warns[0].Kind != types.WarnMissingInput {
		t.Errorf("Expected one missing_input warning, got %v", warns)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		p     types.BiometricProfile
		field string
	}{
		{"negative height", types.BiometricProfile{HeightMeters: -1.7, WeightKg: 70, AgeYears: 30, Sex: types.SexMale}, "height"},
		{"nan height", types.BiometricProfile{HeightMeters: math.NaN(), WeightKg: 70, AgeYears: 30, Sex: types.SexMale}, "height"},
		{"zero weight", types.BiometricProfile{HeightMeters: 1.7, AgeYears: 30, Sex: types.SexMale}, "weight"},
		{"infinite weight", types.BiometricProfile{HeightMeters: 1.7, WeightKg: math.Inf(1), AgeYears: 30, Sex: types.SexMale}, "weight"},
		{"zero age", types.BiometricProfile{HeightMeters: 1.7, WeightKg: 70, Sex: types.SexMale}, "age"},
		{"unknown sex", types.BiometricProfile{HeightMeters: 1.7, WeightKg: 70, AgeYears: 30, Sex: "x"}, "sex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Normalize(tt.p)
			var ce *types.CompositionError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected CompositionError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ce.Field)
			}
			if !errors.Is(err, types.ErrInvalidProfile) {
				t.Error("Expected error to match ErrInvalidProfile")
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		sex  string
		want types.Sex
	}{
		{"M", types.SexMale},
		{"male", types.SexMale},
		{"Masculino", types.SexMale},
		{"f", types.SexFemale},
		{" FEMININO ", types.SexFemale},
		{"woman", types.SexFemale},
	}

	for _, tt := range tests {
		p, _, err := New(1.65, 60, 28, tt.sex)
		if err != nil {
			t.Errorf("New(%q) failed: %v", tt.sex, err)
			continue
		}
		if p.Sex != tt.want {
			t.Errorf("New(%q) sex = %s, want %s", tt.sex, p.Sex, tt.want)
		}
	}

	if _, _, err := New(1.65, 60, 28, "other"); err == nil {
		t.Error("Expected error for unknown sex")
	}
}
