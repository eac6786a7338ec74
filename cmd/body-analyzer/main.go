package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/internal/config"
	"github.com/menta2k/body-analyzer/internal/log"
	"github.com/menta2k/body-analyzer/internal/utils"
	"github.com/menta2k/body-analyzer/pkg/calibration"
	"github.com/menta2k/body-analyzer/pkg/client"
	"github.com/menta2k/body-analyzer/pkg/detection"
	"github.com/menta2k/body-analyzer/pkg/llamacpp"
	"github.com/menta2k/body-analyzer/pkg/ollama"
	"github.com/menta2k/body-analyzer/pkg/processing"
	"github.com/menta2k/body-analyzer/pkg/profile"
	"github.com/menta2k/body-analyzer/pkg/types"
)

func main() {
	var height, weight float64
	var age int
	var sex string
	var frontal, lateral, frontalSize string
	var backend, url, model string
	var configPath, calibrationPath string
	var out, outDir, logLevel string
	var debug bool

	flag.Float64Var(&height, "height", 0, "height in meters or centimeters (e.g. 1.75 or 175)")
	flag.Float64Var(&weight, "weight", 0, "weight in kg")
	flag.IntVar(&age, "age", 0, "age in years")
	flag.StringVar(&sex, "sex", "", "sex: M|F (also male/female, masculino/feminino)")

	flag.StringVar(&frontal, "frontal", "", "frontal arms-open photo (path or URL) or landmark JSON file")
	flag.StringVar(&lateral, "lateral", "", "lateral photo (path or URL) or landmark JSON file")
	flag.StringVar(&frontalSize, "frontal-size", "", "frontal photo size WxH for landmark JSON without one (e.g. 1080x1920)")

	flag.StringVar(&backend, "backend", "", "pose backend: ollama|llamacpp|file (overrides config)")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11435/api/chat, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "vision model name (overrides config)")

	flag.StringVar(&configPath, "config", "", "config file (default: "+config.GetConfigPath()+" when present)")
	flag.StringVar(&calibrationPath, "calibration", "", "calibration JSON file (overrides config)")
	flag.StringVar(&out, "out", "", "write the JSON result to this file instead of stdout")
	flag.StringVar(&outDir, "outdir", "out", "directory for debug overlays")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	flag.BoolVar(&debug, "debug", false, "write a landmark debug overlay of the frontal photo")

	flag.Parse()
	if weight <= 0 || age <= 0 || sex == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -height 1.75 -weight 72 -age 34 -sex M [-frontal photo.jpg|landmarks.json] [-lateral photo.jpg] [-backend ollama|llamacpp|file]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fatal("config", err)
	}
	cfg.ApplyEnv()
	if backend != "" {
		cfg.Detector.Backend = backend
	}
	if url != "" {
		cfg.Detector.URL = url
	}
	if model != "" {
		cfg.Detector.Model = model
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if calibrationPath != "" {
		cfg.Engine.CalibrationFile = calibrationPath
	}
	if utils.IsLandmarkFile(frontal) {
		cfg.Detector.Backend = config.BackendFile
	}
	if err := cfg.Validate(); err != nil {
		fatal("config", err)
	}
	log.Init(cfg.Log.Level)

	cal := calibration.Default()
	if cfg.Engine.CalibrationFile != "" {
		cal, err = calibration.LoadFromFile(cfg.Engine.CalibrationFile)
		if err != nil {
			fatal("calibration", err)
		}
	}

	var size [2]int
	if frontalSize != "" {
		size[0], size[1], err = utils.ParseSize(frontalSize)
		if err != nil {
			fatal("frontal-size", err)
		}
	}

	processor := processing.NewProcessorWithConfig(processing.Config{MinImageSize: cfg.Image.MinImageSize})
	var detector detection.PoseDetector
	if frontal != "" {
		detector, err = newDetector(cfg, processor, size)
		if err != nil {
			fatal("detector", err)
		}
	}

	analyzer, err := bodyanalyzer.NewWithConfig(cal, detector)
	if err != nil {
		fatal("analyzer", err)
	}

	p, _, err := profile.New(height, weight, age, sex)
	if err != nil {
		fatal("profile", err)
	}

	ctx := context.Background()
	if cfg.Detector.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Detector.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	var result types.AnalysisResult
	var landmarks *types.LandmarkSet
	if frontal == "" {
		result, err = analyzer.Estimate(p)
	} else {
		result, landmarks, err = analyzer.AnalyzeImagesWithLandmarks(ctx, p, lateral, frontal)
	}
	if err != nil {
		var ce *types.CompositionError
		if errors.As(err, &ce) {
			fatal("analysis", fmt.Errorf("invalid input %s: %s", ce.Field, ce.Reason))
		}
		fatal("analysis", err)
	}

	log.Info("analysis complete",
		"id", result.ID, "source", result.Source, "biotype", result.Biotype,
		"body_fat", result.Composition.BodyFatPercent, "score", result.Indices.CompositeScore,
		"warnings", len(result.Warnings))

	if debug && landmarks != nil && !utils.IsLandmarkFile(frontal) {
		if err := writeOverlay(ctx, processor, cal, frontal, outDir, landmarks); err != nil {
			log.Warn("debug overlay failed", "error", err)
		}
	}

	js, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal("encode", err)
	}
	if out == "" {
		fmt.Println(string(js))
		return
	}
	if err := os.WriteFile(out, js, 0o644); err != nil {
		fatal("write", err)
	}
	log.Info("wrote result", "path", out)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return config.LoadFromFile(def)
	}
	return config.Default(), nil
}

// newDetector creates the pose detector for the configured backend
func newDetector(cfg *config.Config, processor *processing.Processor, size [2]int) (detection.PoseDetector, error) {
	d := cfg.Detector
	if d.Backend == config.BackendFile {
		return detection.FileDetector{
			MinVisibility: detection.DefaultConfig().MinVisibility,
			Width:         size[0],
			Height:        size[1],
		}, nil
	}

	url := d.URL
	if url == "" {
		url = d.DefaultURL()
	}

	var poseClient client.PoseClient
	var err error
	switch d.Backend {
	case config.BackendOllama:
		poseClient, err = ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
	case config.BackendLlamaCPP:
		poseClient, err = llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama', 'llamacpp' or 'file')", d.Backend)
	}

	dc := detection.DefaultConfig()
	dc.Model = d.Model
	dc.SendFormat = cfg.Image.SendFormat
	dc.SendSize = cfg.Image.SendSize
	dc.SendQuality = cfg.Image.SendQuality
	return detection.NewDetector(poseClient, processor, dc), nil
}

// writeOverlay draws the frontal landmarks and measured spans on the photo
func writeOverlay(ctx context.Context, processor *processing.Processor, cal calibration.Calibration, frontal, outDir string, set *types.LandmarkSet) error {
	if err := utils.EnsureDir(outDir); err != nil {
		return err
	}
	img, err := processor.LoadImageSmart(ctx, frontal)
	if err != nil {
		return err
	}
	overlay := processor.CreateDebugOverlay(img, set, cal.LandmarkPairs)
	path := utils.OutputFilename(frontal, outDir, "", "_landmarks", "png")
	if err := processor.SaveImage(overlay, path, "png", 92, false); err != nil {
		return err
	}
	log.Info("wrote debug overlay", "path", path)
	return nil
}

func fatal(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
