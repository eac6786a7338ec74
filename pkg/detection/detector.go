package detection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/client"
	"github.com/menta2k/body-analyzer/pkg/processing"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// ErrNotDetected is returned when no complete human pose is found
var ErrNotDetected = errors.New("pose not detected")

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks a vision model for the 33 BlazePose landmarks
const DefaultPrompt = `You are a human pose landmark locator.

Return JSON only:
{
  "detected": true,
  "confidence": 0.0,
  "landmarks": [{"x": 0.0, "y": 0.0, "visibility": 0.0}, ... 33 entries ...]
}

HARD RULES
- Exactly 33 landmarks in MediaPipe BlazePose order:
  0 nose, 1 left eye inner, 2 left eye, 3 left eye outer, 4 right eye inner, 5 right eye,
  6 right eye outer, 7 left ear, 8 right ear, 9 mouth left, 10 mouth right,
  11 left shoulder, 12 right shoulder, 13 left elbow, 14 right elbow, 15 left wrist,
  16 right wrist, 17 left pinky, 18 right pinky, 19 left index, 20 right index,
  21 left thumb, 22 right thumb, 23 left hip, 24 right hip, 25 left knee, 26 right knee,
  27 left ankle, 28 right ankle, 29 left heel, 30 right heel, 31 left foot index,
  32 right foot index.
- All coordinates are normalized to [0,1] (NOT pixels), origin at the top-left corner.
- visibility is your confidence in [0,1] that the point is visible.
- If there is no single full-body person in the image, return:
  {"detected": false, "confidence": 0.0, "landmarks": []}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// PoseDetector turns an image reference into a landmark set
type PoseDetector interface {
	Detect(ctx context.Context, ref string) (*types.LandmarkSet, error)
}

// Config holds settings of the model-backed detector
type Config struct {
	Model         string
	SendFormat    string
	SendSize      int
	SendQuality   int
	MinConfidence float64
	MinVisibility float64
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Model:         "openbmb/minicpm-v4.5",
		SendFormat:    "jpg",
		SendSize:      1536,
		SendQuality:   85,
		MinConfidence: 0.2,
		MinVisibility: 0.1,
	}
}

// ModelDetector detects pose landmarks with a vision model backend
type ModelDetector struct {
	client    client.PoseClient
	processor *processing.Processor
	config    Config
}

// NewDetector creates a new detector with a pose client
func NewDetector(c client.PoseClient, p *processing.Processor, cfg Config) *ModelDetector {
	if p == nil {
		p = processing.NewProcessor()
	}
	return &ModelDetector{client: c, processor: p, config: cfg}
}

// Detect loads the photo, sends it to the model and validates the answer
func (d *ModelDetector) Detect(ctx context.Context, ref string) (*types.LandmarkSet, error) {
	img, err := d.processor.LoadImageSmart(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo: %w", err)
	}
	if err := d.processor.ValidateImage(img); err != nil {
		return nil, fmt.Errorf("photo validation failed: %w", err)
	}

	imgB64, err := d.processor.PrepareImageForModel(img, d.config.SendFormat, d.config.SendSize, d.config.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare photo: %w", err)
	}

	resp, err := d.client.DetectPose(ctx, d.config.Model, DefaultPrompt, imgB64)
	if err != nil {
		return nil, err
	}
	if !resp.Detected || (resp.Confidence > 0 && resp.Confidence < d.config.MinConfidence) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotDetected)
	}

	info := d.processor.GetImageInfo(img)
	set := &types.LandmarkSet{
		Points: resp.Landmarks,
		Width:  info.Width,
		Height: info.Height,
	}
	set, err = NormalizeLandmarks(set, d.config.MinVisibility)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	log.Debug("pose detected", "ref", ref, "confidence", resp.Confidence, "width", info.Width, "height", info.Height)
	return set, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *ModelDetector) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.config.Model, SimpleTestPrompt, imageB64)
}

// NormalizeLandmarks validates a raw landmark set and returns a cleaned copy.
// Points far outside the frame or below minVisibility are marked missing;
// the rest are clamped to [0,1].
func NormalizeLandmarks(set *types.LandmarkSet, minVisibility float64) (*types.LandmarkSet, error) {
	if set == nil || len(set.Points) != types.NumLandmarks {
		n := 0
		if set != nil {
			n = len(set.Points)
		}
		return nil, fmt.Errorf("expected %d landmarks, got %d: %w", types.NumLandmarks, n, ErrNotDetected)
	}

	out := &types.LandmarkSet{
		Points: make([]types.Landmark, len(set.Points)),
		Width:  set.Width,
		Height: set.Height,
	}
	present := 0
	for i, lm := range set.Points {
		switch {
		case lm.Missing(),
			lm.X < -0.1 || lm.X > 1.1 || lm.Y < -0.1 || lm.Y > 1.1,
			lm.Visibility > 0 && lm.Visibility < minVisibility:
			out.Points[i] = types.Landmark{X: math.NaN(), Y: math.NaN()}
		default:
			out.Points[i] = types.Landmark{
				X:          clamp(lm.X, 0, 1),
				Y:          clamp(lm.Y, 0, 1),
				Visibility: lm.Visibility,
			}
			present++
		}
	}
	if present == 0 {
		return nil, fmt.Errorf("no usable landmarks: %w", ErrNotDetected)
	}
	return out, nil
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
