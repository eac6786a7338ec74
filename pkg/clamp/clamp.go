// Package clamp bounds every numeric output to a physiological range.
// Clamping is idempotent: an in-range value is returned unchanged and
// produces no warning.
package clamp

import (
	"fmt"
	"math"
	"sort"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Clamper applies a set of limits
type Clamper struct {
	limits calibration.Limits
}

// New creates a Clamper for the calibration limits
func New(cal calibration.Calibration) *Clamper {
	return &Clamper{limits: cal.Clone().Limits}
}

// Value bounds v and reports whether it changed. NaN maps to the minimum.
func Value(v float64, r calibration.Range) (float64, bool) {
	if math.IsNaN(v) {
		return r.Min, true
	}
	out := r.Clamp(v)
	return out, out != v
}

func (c *Clamper) apply(field string, site types.Site, v float64, r calibration.Range, warns *[]types.Warning) float64 {
	out, changed := Value(v, r)
	if changed {
		log.Warn("value clamped", "field", field, "from", v, "to", out, "min", r.Min, "max", r.Max)
		*warns = append(*warns, types.Warning{
			Kind:    types.WarnClamped,
			Site:    site,
			Message: fmt.Sprintf("%s clamped from %.2f to %.2f", field, v, out),
		})
	}
	return out
}

// Measurements returns a bounded copy of m
func (c *Clamper) Measurements(m types.MeasurementResult) (types.MeasurementResult, []types.Warning) {
	var warns []types.Warning
	out := make(types.MeasurementResult, len(m))
	for _, site := range orderedSites(m) {
		v := m[site]
		r, ok := c.limits.Sites[site]
		if !ok {
			out[site] = v
			continue
		}
		out[site] = c.apply("measurement."+string(site), site, v, r, &warns)
	}
	return out, warns
}

// Composition returns a bounded copy of cr
func (c *Clamper) Composition(cr types.CompositionResult) (types.CompositionResult, []types.Warning) {
	var warns []types.Warning
	l := c.limits
	cr.BodyFatPercent = c.apply("body_fat_percent", "", cr.BodyFatPercent, l.BodyFatPercent, &warns)
	cr.FatMassKg = c.apply("fat_mass_kg", "", cr.FatMassKg, l.FatMassKg, &warns)
	cr.LeanMassKg = c.apply("lean_mass_kg", "", cr.LeanMassKg, l.LeanMassKg, &warns)
	cr.BasalMetabolicRateKcal = c.apply("bmr_kcal", "", cr.BasalMetabolicRateKcal, l.BMRKcal, &warns)
	cr.BodyWaterKg = c.apply("body_water_kg", "", cr.BodyWaterKg, l.BodyWaterKg, &warns)
	cr.BodyWaterPercent = c.apply("body_water_percent", "", cr.BodyWaterPercent, l.BodyWaterPercent, &warns)
	cr.BMI = c.apply("bmi", "", cr.BMI, l.BMI, &warns)
	return cr, warns
}

// Indices returns a bounded copy of ir; bands are kept as classified
func (c *Clamper) Indices(ir types.IndexResult) (types.IndexResult, []types.Warning) {
	var warns []types.Warning
	out := ir.Clone()
	for _, name := range orderedIndices(out.Values) {
		v := out.Values[name]
		r, ok := c.limits.Indices[name]
		if !ok {
			continue
		}
		v.Value = c.apply("index."+string(name), "", v.Value, r, &warns)
		out.Values[name] = v
	}
	score, changed := Value(float64(out.CompositeScore), c.limits.Score)
	if changed {
		warns = append(warns, types.Warning{
			Kind:    types.WarnClamped,
			Message: fmt.Sprintf("composite score clamped from %d to %d", out.CompositeScore, int(score)),
		})
		out.CompositeScore = int(score)
	}
	return out, warns
}

// Result returns a bounded copy of r with any clamp warnings appended
func (c *Clamper) Result(r types.AnalysisResult) types.AnalysisResult {
	out := r
	var w1, w2, w3 []types.Warning
	out.Measurements, w1 = c.Measurements(r.Measurements)
	out.Composition, w2 = c.Composition(r.Composition)
	out.Indices, w3 = c.Indices(r.Indices)

	out.Warnings = append([]types.Warning(nil), r.Warnings...)
	out.Warnings = append(out.Warnings, w1...)
	out.Warnings = append(out.Warnings, w2...)
	out.Warnings = append(out.Warnings, w3...)
	out.States = append([]string(nil), r.States...)
	return out
}

func orderedSites(m types.MeasurementResult) []types.Site {
	sites := make([]types.Site, 0, len(m))
	for site := range m {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i] < sites[j] })
	return sites
}

func orderedIndices(v map[types.IndexName]types.IndexValue) []types.IndexName {
	names := make([]types.IndexName, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
