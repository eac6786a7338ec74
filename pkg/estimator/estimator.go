// Package estimator provides the two independent circumference estimators:
// a statistical one driven by height and sex ratios, and a visual one driven
// by landmark spans and an elliptical cross-section.
package estimator

import (
	"math"

	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/geometry"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Statistical computes heightCm * sexRatio[site] * biotypeFactor(bmi, site).
// It is the only estimator available without landmarks.
func Statistical(cal calibration.Calibration, site types.Site, profile types.BiometricProfile, bmi float64) float64 {
	return profile.HeightCm() * cal.Ratio(profile.Sex, site) * cal.BiotypeFactor(bmi, site)
}

// Base returns heightCm * sexRatio[site] with no biotype correction
func Base(cal calibration.Calibration, site types.Site, profile types.BiometricProfile) float64 {
	return profile.HeightCm() * cal.Ratio(profile.Sex, site)
}

// Visual estimates the circumference of a site from the frontal landmarks:
// the landmark span in centimeters is the ellipse width, the width times
// the site's depth ratio is its depth. A calibration may scale the span by
// SpanToWidth first; the default leaves it unchanged. It returns 0 when the
// width or depth cannot be derived.
func Visual(cal calibration.Calibration, site types.Site, set *types.LandmarkSet, heightPixels, trueHeightCm float64) float64 {
	width := geometry.WidthCm(set, cal.LandmarkPairs[site], heightPixels, trueHeightCm) * cal.SpanToWidth[site]
	depth := width * cal.DepthWidth[site]
	if width <= 0 || depth <= 0 {
		return 0
	}
	return EllipsePerimeter(width/2, depth/2)
}

// EllipsePerimeter is Ramanujan's first approximation
// π·(3(a+b) − √((3a+b)(a+3b)))
func EllipsePerimeter(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Pi * (3*(a+b) - math.Sqrt((3*a+b)*(a+3*b)))
}
