package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/geometry"
	"github.com/menta2k/body-analyzer/pkg/processing"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// photoExtensions are tried, in order, for a photo next to a landmark file
var photoExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// FileDetector reads landmarks produced offline, for example by a MediaPipe
// run, from a JSON file. The file holds either a landmark set object or a
// bare array of landmarks.
//
// MediaPipe output usually omits the photo size. Without it horizontal and
// vertical spans are in different units, so a set without a size takes
// Width and Height, or else the size of a photo with the same base name
// next to the file (pose.json -> pose.jpg).
type FileDetector struct {
	MinVisibility float64
	Width         int
	Height        int
}

// Detect implements PoseDetector; ref is the JSON file path
func (f FileDetector) Detect(ctx context.Context, ref string) (*types.LandmarkSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read landmark file: %w", err)
	}
	set, err := ParseLandmarks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	if !geometry.Sized(set) {
		set.Width, set.Height = f.imageSize(ref)
	}
	return NormalizeLandmarks(set, f.MinVisibility)
}

// imageSize returns the configured size or the size of a sibling photo,
// zero when neither is available
func (f FileDetector) imageSize(ref string) (int, int) {
	if f.Width > 0 && f.Height > 0 {
		return f.Width, f.Height
	}
	base := strings.TrimSuffix(ref, filepath.Ext(ref))
	p := processing.NewProcessor()
	for _, ext := range photoExtensions {
		w, h, err := p.ReadImageSize(base + ext)
		if err == nil && w > 0 && h > 0 {
			log.Debug("landmark image size from photo", "ref", ref, "photo", base+ext, "width", w, "height", h)
			return w, h
		}
	}
	log.Warn("landmark file has no image size, widths use normalized units", "ref", ref)
	return 0, 0
}

// ParseLandmarks decodes a landmark set from JSON
func ParseLandmarks(data []byte) (*types.LandmarkSet, error) {
	var set types.LandmarkSet
	if err := json.Unmarshal(data, &set); err == nil && len(set.Points) > 0 {
		return &set, nil
	}

	var points []types.Landmark
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("failed to parse landmarks: %w", err)
	}
	return &types.LandmarkSet{Points: points}, nil
}
