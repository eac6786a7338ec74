// Package bodyanalyzer estimates body measurements, body composition and
// risk indices from pose landmarks and a self-reported biometric profile.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		bodyanalyzer "github.com/menta2k/body-analyzer"
//		"github.com/menta2k/body-analyzer/pkg/profile"
//	)
//
//	func main() {
//		a := bodyanalyzer.New()
//
//		p, _, err := profile.New(175, 72, 34, "male")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// No landmarks: pure statistical estimate
//		result, err := a.Estimate(p)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("waist %.1f cm, body fat %.1f%%, score %d\n",
//			result.Measurements["waist"], result.Composition.BodyFatPercent, result.Indices.CompositeScore)
//	}
//
// The engine is built from small packages:
//
// 1. Geometry (pkg/geometry): landmark distances scaled to centimeters
// 2. Estimators (pkg/estimator): statistical and visual circumference estimates
// 3. Fusion (pkg/fusion): ordered correction rules and the safety-gated blend
// 4. Composition and indices (pkg/composition, pkg/indices)
// 5. Clamp (pkg/clamp): physiological bounds on every output
//
// Photos are turned into landmarks by a pkg/detection.PoseDetector, either a
// vision model served by Ollama or llama.cpp, or a landmark JSON file.
// When detection fails the analysis falls back to the statistical estimate,
// so a valid profile always produces a result.
package bodyanalyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/pkg/biotype"
	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/clamp"
	"github.com/menta2k/body-analyzer/pkg/composition"
	"github.com/menta2k/body-analyzer/pkg/detection"
	"github.com/menta2k/body-analyzer/pkg/estimator"
	"github.com/menta2k/body-analyzer/pkg/fusion"
	"github.com/menta2k/body-analyzer/pkg/geometry"
	"github.com/menta2k/body-analyzer/pkg/indices"
	"github.com/menta2k/body-analyzer/pkg/profile"
	"github.com/menta2k/body-analyzer/pkg/types"
)

// Version of the body analyzer library
const Version = "1.0.0"

// State is a step of one analysis
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingFrontalPose State = "awaiting_frontal_pose"
	StateExtracting          State = "extracting"
	StateDone                State = "done"
	StateFallback            State = "fallback"
)

// Analyzer runs analyses against one calibration revision. It holds no
// per-analysis state and is safe for concurrent use.
type Analyzer struct {
	cal      calibration.Calibration
	fusion   *fusion.Engine
	clamper  *clamp.Clamper
	detector detection.PoseDetector
	now      func() time.Time
}

// New creates an Analyzer with the default calibration and no pose detector
func New() *Analyzer {
	a, _ := NewWithConfig(calibration.Default(), nil)
	return a
}

// NewWithConfig creates an Analyzer with a custom calibration and an
// optional pose detector
func NewWithConfig(cal calibration.Calibration, detector detection.PoseDetector) (*Analyzer, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	cal = cal.Clone()
	return &Analyzer{
		cal:      cal,
		fusion:   fusion.New(cal),
		clamper:  clamp.New(cal),
		detector: detector,
		now:      time.Now,
	}, nil
}

// Calibration returns a copy of the calibration in use
func (a *Analyzer) Calibration() calibration.Calibration {
	return a.cal.Clone()
}

// run collects the state trace and warnings of one analysis
type run struct {
	states   []string
	warnings []types.Warning
}

func (r *run) enter(s State) {
	r.states = append(r.states, string(s))
}

func (r *run) warn(kind types.WarningKind, site types.Site, msg string) {
	r.warnings = append(r.warnings, types.Warning{Kind: kind, Site: site, Message: msg})
}

func newRun() *run {
	r := &run{}
	r.enter(StateIdle)
	return r
}

// Estimate produces the pure statistical result for a profile
func (a *Analyzer) Estimate(p types.BiometricProfile) (types.AnalysisResult, error) {
	r := newRun()
	norm, err := a.normalize(r, p)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	return a.fallback(r, norm)
}

// Analyze runs the visual pipeline on landmarks the caller already has.
// An empty set, or one without the head and ankle references, falls back
// to the statistical estimate.
func (a *Analyzer) Analyze(p types.BiometricProfile, frontal *types.LandmarkSet) (types.AnalysisResult, error) {
	r := newRun()
	norm, err := a.normalize(r, p)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	r.enter(StateAwaitingFrontalPose)
	return a.extract(r, norm, frontal)
}

// AnalyzeImages detects landmarks on both photos and analyzes the frontal
// one. The lateral photo is dispatched alongside but its landmarks are not
// used by any measurement.
func (a *Analyzer) AnalyzeImages(ctx context.Context, p types.BiometricProfile, lateralRef, frontalRef string) (types.AnalysisResult, error) {
	result, _, err := a.AnalyzeImagesWithLandmarks(ctx, p, lateralRef, frontalRef)
	return result, err
}

// AnalyzeImagesWithLandmarks is AnalyzeImages that also returns the frontal
// landmarks, nil when detection failed
func (a *Analyzer) AnalyzeImagesWithLandmarks(ctx context.Context, p types.BiometricProfile, lateralRef, frontalRef string) (types.AnalysisResult, *types.LandmarkSet, error) {
	r := newRun()
	norm, err := a.normalize(r, p)
	if err != nil {
		return types.AnalysisResult{}, nil, err
	}

	r.enter(StateAwaitingFrontalPose)
	if a.detector == nil {
		r.warn(types.WarnDetection, "", "no pose detector configured")
		log.Warn("falling back to statistical estimate", "reason", "no pose detector")
		result, err := a.fallback(r, norm)
		return result, nil, err
	}

	frontal, lateral := a.detectPair(ctx, lateralRef, frontalRef)
	discardLateral(lateral)

	if frontal.err != nil {
		r.warn(types.WarnDetection, "", fmt.Sprintf("frontal pose detection failed: %v", frontal.err))
		log.Warn("falling back to statistical estimate", "reason", "frontal detection failed", "error", frontal.err)
		result, err := a.fallback(r, norm)
		return result, nil, err
	}

	result, err := a.extract(r, norm, frontal.set)
	return result, frontal.set, err
}

type detectResult struct {
	ref string
	set *types.LandmarkSet
	err error
}

// detectPair dispatches both photos concurrently and waits for both
func (a *Analyzer) detectPair(ctx context.Context, lateralRef, frontalRef string) (frontal, lateral detectResult) {
	var wg sync.WaitGroup

	detect := func(ref string, out *detectResult) {
		defer wg.Done()
		out.ref = ref
		if ref == "" {
			out.err = fmt.Errorf("empty photo reference: %w", detection.ErrNotDetected)
			return
		}
		out.set, out.err = a.detector.Detect(ctx, ref)
	}

	wg.Add(2)
	go detect(frontalRef, &frontal)
	go detect(lateralRef, &lateral)
	wg.Wait()
	return frontal, lateral
}

// discardLateral drops the lateral pose. No measurement reads it yet.
func discardLateral(lateral detectResult) {
	if lateral.ref == "" {
		return
	}
	points := 0
	if lateral.set != nil {
		points = len(lateral.set.Points)
	}
	log.Debug("lateral pose discarded", "ref", lateral.ref, "points", points, "error", lateral.err)
}

func (a *Analyzer) normalize(r *run, p types.BiometricProfile) (types.BiometricProfile, error) {
	norm, warns, err := profile.Normalize(p)
	if err != nil {
		return types.BiometricProfile{}, err
	}
	r.warnings = append(r.warnings, warns...)
	return norm, nil
}

func (a *Analyzer) bmi(r *run, p types.BiometricProfile) float64 {
	bmi, clamped := biotype.BMI(p, a.cal.Limits.BMI)
	if clamped {
		raw := p.WeightKg / (p.HeightMeters * p.HeightMeters)
		r.warn(types.WarnExtremeValue, "", fmt.Sprintf("bmi %.1f outside [%.0f, %.0f], using %.1f", raw, a.cal.Limits.BMI.Min, a.cal.Limits.BMI.Max, bmi))
		log.Warn("bmi clamped", "raw", raw, "bmi", bmi)
	}
	return bmi
}

// extract runs the fusion pipeline, or falls back when the landmarks
// cannot be scaled to the subject's height
func (a *Analyzer) extract(r *run, p types.BiometricProfile, set *types.LandmarkSet) (types.AnalysisResult, error) {
	if set.Empty() {
		r.warn(types.WarnMissingInput, "", "no frontal landmarks")
		log.Warn("falling back to statistical estimate", "reason", "no frontal landmarks")
		return a.fallback(r, p)
	}
	heightPixels := geometry.StaturePixels(set, a.cal.HeadLandmark, a.cal.AnkleLandmark, a.cal.CrownOffset)
	if heightPixels <= 0 {
		r.warn(types.WarnMissingInput, "", "head or ankle landmark missing")
		log.Warn("falling back to statistical estimate", "reason", "no height reference")
		return a.fallback(r, p)
	}
	if !geometry.Sized(set) {
		r.warn(types.WarnMissingInput, "", "landmark image size unknown, widths measured in normalized units")
		log.Warn("landmarks carry no image size")
	}

	r.enter(StateExtracting)
	bmi := a.bmi(r, p)
	m, outcomes := a.fusion.FuseAll(p, bmi, set, heightPixels)
	for _, o := range outcomes {
		switch {
		case o.Rejected:
			r.warn(types.WarnIrreconcilableEstimate, o.Site,
				fmt.Sprintf("visual %.1f cm deviates %.0f%% from statistical %.1f cm (limit %.0f%%)",
					o.Visual, o.Deviation*100, o.Statistical, o.Threshold*100))
		case o.Regime == fusion.RegimeBlend && o.Visual <= 0:
			r.warn(types.WarnMissingInput, o.Site, "site landmarks missing, using statistical estimate")
		}
	}

	// Only an accepted visual blend makes the result visual
	source := types.SourceFallback
	if fusion.AnyVisual(outcomes) {
		source = types.SourceVisual
	}
	result, err := a.assemble(r, p, bmi, m, source, composition.MethodCunningham)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	r.enter(StateDone)
	result.States = append([]string(nil), r.states...)
	return result, nil
}

// fallback estimates every site statistically
func (a *Analyzer) fallback(r *run, p types.BiometricProfile) (types.AnalysisResult, error) {
	r.enter(StateFallback)
	bmi := a.bmi(r, p)
	m := make(types.MeasurementResult, 6)
	for _, site := range types.AllSites() {
		m[site] = estimator.Statistical(a.cal, site, p, bmi)
	}
	return a.assemble(r, p, bmi, m, types.SourceFallback, composition.MethodHarrisBenedict)
}

func (a *Analyzer) assemble(r *run, p types.BiometricProfile, bmi float64, m types.MeasurementResult, source types.Source, method composition.Method) (types.AnalysisResult, error) {
	m, warns := a.clamper.Measurements(m)
	r.warnings = append(r.warnings, warns...)

	comp, err := composition.Calculate(a.cal, m, p, bmi, method)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("composition failed: %w", err)
	}
	idx := indices.Calculate(m, comp, p)

	result := a.clamper.Result(types.AnalysisResult{
		ID:                 uuid.NewString(),
		CalibrationVersion: a.cal.Version,
		Source:             source,
		Biotype:            string(biotype.Classify(bmi, a.cal.Display)),
		Profile:            p,
		Measurements:       m,
		Composition:        comp,
		Indices:            idx,
		Warnings:           r.warnings,
		States:             r.states,
		CreatedAt:          a.now().UTC(),
	})
	return result, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
