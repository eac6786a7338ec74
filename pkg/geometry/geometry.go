// Package geometry converts pose landmarks into physical distances.
//
// Landmarks are normalized to [0,1] image space. When the landmark set
// carries the source image size, coordinates are scaled to pixels first so
// that horizontal and vertical spans are comparable.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// point returns landmark i as a pixel-space vector
func point(set *types.LandmarkSet, i int) (r2.Vec, bool) {
	lm, ok := set.At(i)
	if !ok {
		return r2.Vec{}, false
	}
	sx, sy := 1.0, 1.0
	if Sized(set) {
		sx, sy = float64(set.Width), float64(set.Height)
	}
	return r2.Vec{X: lm.X * sx, Y: lm.Y * sy}, true
}

// Distance returns the pixel distance between landmarks a and b, or 0 when
// either one is missing
func Distance(set *types.LandmarkSet, a, b int) float64 {
	pa, ok := point(set, a)
	if !ok {
		return 0
	}
	pb, ok := point(set, b)
	if !ok {
		return 0
	}
	d := r2.Norm(r2.Sub(pa, pb))
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// HeightPixels returns the head-to-ankle reference span used for calibration
func HeightPixels(set *types.LandmarkSet, head, ankle int) float64 {
	return Distance(set, head, ankle)
}

// StaturePixels returns the head-to-ankle span extended by crownOffset, a
// fraction of the span, so that a head landmark below the top of the head
// still yields a top-of-head reference. It returns 0 when either landmark
// is missing.
func StaturePixels(set *types.LandmarkSet, head, ankle int, crownOffset float64) float64 {
	d := HeightPixels(set, head, ankle)
	if d <= 0 {
		return 0
	}
	return d * (1 + crownOffset)
}

// Sized reports whether the set carries its source image size, so that x
// and y spans share one pixel unit
func Sized(set *types.LandmarkSet) bool {
	return set != nil && set.Width > 0 && set.Height > 0
}

// WidthCm converts the span between a landmark pair into centimeters using
// the ratio trueHeightCm / heightPixels. It returns 0 when data is missing
// so callers can fall back to the statistical estimate.
func WidthCm(set *types.LandmarkSet, pair [2]int, heightPixels, trueHeightCm float64) float64 {
	if heightPixels <= 0 || trueHeightCm <= 0 {
		return 0
	}
	px := Distance(set, pair[0], pair[1])
	if px <= 0 {
		return 0
	}
	return px * (trueHeightCm / heightPixels)
}
