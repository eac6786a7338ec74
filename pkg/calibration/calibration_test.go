package calibration

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/menta2k/body-analyzer/pkg/types"
)

func TestDefaultValidates(t *testing.T) {
	cal := Default()
	if err := cal.Validate(); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
	if cal.Version != DefaultVersion {
		t.Errorf("Expected version %s, got %s", DefaultVersion, cal.Version)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Calibration)
		want   string
	}{
		{"empty version", func(c *Calibration) { c.Version = "" }, "version"},
		{"missing ratio", func(c *Calibration) { delete(c.SexRatios[types.SexFemale], types.SiteCalf) }, "sex_ratios.F"},
		{"missing pair", func(c *Calibration) { delete(c.LandmarkPairs, types.SiteArm) }, "landmark_pairs"},
		{"pair out of range", func(c *Calibration) { c.LandmarkPairs[types.SiteArm] = [2]int{11, 40} }, "out of range"},
		{"unordered staircase", func(c *Calibration) { c.LimbStaircase.Steps[1].Below = 10 }, "limb_staircase"},
		{"band overlap", func(c *Calibration) { c.Fusion.EctomorphBelow = 30 }, "ectomorph_below"},
		{"negative weight", func(c *Calibration) { c.Fusion.WeightsDefault.Visual = -1 }, "weights_default"},
		{"negative crown offset", func(c *Calibration) { c.CrownOffset = -0.1 }, "crown_offset"},
		{"zero span factor", func(c *Calibration) { c.SpanToWidth[types.SiteCalf] = 0 }, "span_to_width"},
		{"inverted site limit", func(c *Calibration) {
			c.Limits.Sites[types.SiteWaist] = Range{Min: 100, Max: 50}
		}, "limits.sites.waist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := Default()
			tt.mutate(&cal)
			err := cal.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultSpanToWidthIsIdentity(t *testing.T) {
	cal := Default()
	for _, site := range types.AllSites() {
		if cal.SpanToWidth[site] != 1 {
			t.Errorf("SpanToWidth[%s] = %v, want 1", site, cal.SpanToWidth[site])
		}
	}
	if cal.CrownOffset != 0.07 {
		t.Errorf("CrownOffset = %v, want 0.07", cal.CrownOffset)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Default()
	clone := orig.Clone()

	clone.SexRatios[types.SexMale][types.SiteWaist] = 1
	clone.LimbStaircase.Steps[0].Factor = 9
	clone.Limits.Sites[types.SiteHip] = Range{Min: 0, Max: 1}

	if orig.SexRatios[types.SexMale][types.SiteWaist] != 0.503 {
		t.Error("Clone shares sex ratio table with original")
	}
	if orig.LimbStaircase.Steps[0].Factor != 0.88 {
		t.Error("Clone shares staircase steps with original")
	}
	if orig.Limits.Sites[types.SiteHip].Max != 170 {
		t.Error("Clone shares limits with original")
	}
}

func TestStaircaseFactor(t *testing.T) {
	cal := Default()
	tests := []struct {
		bmi  float64
		site types.Site
		want float64
	}{
		{24.2, types.SiteWaist, 1.00},
		{25, types.SiteWaist, 1.02},
		{34.9, types.SiteHip, 1.08},
		{40, types.SiteHip, 1.10},
		{18, types.SiteArm, 0.88},
		{18.5, types.SiteArm, 0.93},
		{22.9, types.SiteCalf, 0.97},
		{24, types.SiteThigh, 1.00},
		{31.9, types.SiteForearm, 1.09},
		{32, types.SiteForearm, 1.15},
	}

	for _, tt := range tests {
		if got := cal.BiotypeFactor(tt.bmi, tt.site); got != tt.want {
			t.Errorf("BiotypeFactor(%.1f, %s) = %.2f, want %.2f", tt.bmi, tt.site, got, tt.want)
		}
	}
}

func TestRange(t *testing.T) {
	r := Range{Min: 3, Max: 50}
	if r.Clamp(1) != 3 || r.Clamp(60) != 50 || r.Clamp(20) != 20 {
		t.Error("Clamp did not bound values")
	}
	if !r.Contains(3) || !r.Contains(50) || r.Contains(50.1) {
		t.Error("Contains is not inclusive")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cal := Default()
	cal.Version = "v11.6-test"
	cal.Fusion.ThresholdDefault = 0.28

	path := filepath.Join(t.TempDir(), "nested", "calibration.json")
	if err := cal.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, cal) {
		t.Error("Loaded calibration differs from saved one")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	cal := Default()
	delete(cal.DepthWidth, types.SiteHip)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := cal.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected validation error for incomplete table")
	}
}
