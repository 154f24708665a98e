// Package bench measures estimator accuracy by rotating pages by known
// random angles and comparing the recovered correction.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"time"

	"docskew/internal/logger"
	"docskew/internal/opencv/codec"
	"docskew/internal/opencv/geometry"
	"docskew/internal/opencv/safe"
	"docskew/internal/skew"
	"docskew/internal/stats"
	"docskew/internal/synth"
	"docskew/internal/timing"
)

// Config selects the pages, perturbations and methods of a run.
type Config struct {
	// Dataset is a directory of page images. Empty uses synthetic pages.
	Dataset string
	// Trials is the number of synthetic pages when Dataset is empty.
	Trials      int
	MaxRotation float64
	Seed        uint64
	Noise       Noise
	Methods     []skew.Method
	Params      skew.Params
}

func DefaultConfig() Config {
	return Config{
		Trials:      20,
		MaxRotation: 10,
		Seed:        1,
		Methods:     []skew.Method{skew.MethodDefault},
		Params:      skew.DefaultParams(),
	}
}

// MethodReport aggregates one method over every page. Errors only cover
// pages the method did not flag for manual checking.
type MethodReport struct {
	Method      skew.Method   `json:"method"`
	Runs        int           `json:"runs"`
	Flagged     int           `json:"flagged"`
	Failed      int           `json:"failed"`
	Error       stats.Summary `json:"error"`
	AverageTime time.Duration `json:"average_time"`
}

type Report struct {
	Pages   int            `json:"pages"`
	Methods []MethodReport `json:"methods"`
}

type Runner struct {
	corrector *skew.Corrector
	log       logger.Logger
}

func NewRunner(log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{corrector: skew.NewCorrector(log, nil), log: log}
}

func (r *Runner) Run(ctx context.Context, cfg Config) (Report, error) {
	if len(cfg.Methods) == 0 {
		return Report{}, errors.New("no methods selected")
	}
	if cfg.MaxRotation <= 0 || cfg.MaxRotation > 45 {
		return Report{}, fmt.Errorf("max rotation must be within (0, 45], got %v", cfg.MaxRotation)
	}

	pages, err := r.pages(cfg)
	if err != nil {
		return Report{}, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	tracker := timing.NewTracker()
	errs := make(map[skew.Method][]float64)
	reports := make(map[skew.Method]*MethodReport)
	for _, m := range cfg.Methods {
		reports[m] = &MethodReport{Method: m}
	}

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		rotation := (rng.Float64()*2 - 1) * cfg.MaxRotation
		img, err := r.perturb(page, rotation, cfg.Noise, rng)
		if err != nil {
			return Report{}, fmt.Errorf("page %d: %w", i, err)
		}

		for _, m := range cfg.Methods {
			params := cfg.Params
			params.Method = m

			stop := tracker.Start(m.String())
			out, err := r.corrector.Estimate(ctx, img, params)
			stop()

			rep := reports[m]
			rep.Runs++
			switch {
			case err != nil:
				rep.Failed++
				r.log.Warning("bench", "estimation failed", map[string]interface{}{
					"page": i, "method": m.String(), "error": err.Error(),
				})
			case out.NeedsCheck:
				rep.Flagged++
			default:
				errs[m] = append(errs[m], math.Abs(out.Angle+rotation))
			}
		}
		img.Close()
	}

	report := Report{Pages: len(pages)}
	for _, m := range cfg.Methods {
		rep := reports[m]
		if summary, err := stats.Summarize(errs[m]); err == nil {
			rep.Error = summary
		}
		rep.AverageTime = tracker.Average(m.String())
		report.Methods = append(report.Methods, *rep)
	}
	return report, nil
}

func (r *Runner) perturb(page func() (*safe.Mat, error), rotation float64, noise Noise, rng *rand.Rand) (*safe.Mat, error) {
	src, err := page()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rotated, err := geometry.Rotate(src, rotation, geometry.BoundingLinear())
	if err != nil {
		return nil, err
	}
	defer rotated.Close()

	return noise.Apply(rotated, rng)
}

// pages returns loaders so that only one decoded page is alive at a time.
func (r *Runner) pages(cfg Config) ([]func() (*safe.Mat, error), error) {
	if cfg.Dataset == "" {
		if cfg.Trials < 1 {
			return nil, fmt.Errorf("trials must be at least 1, got %d", cfg.Trials)
		}
		loaders := make([]func() (*safe.Mat, error), cfg.Trials)
		for i := range loaders {
			loaders[i] = synth.DefaultPage().Draw
		}
		return loaders, nil
	}

	var paths []string
	err := filepath.WalkDir(cfg.Dataset, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !codec.IsImagePath(path) {
			return nil
		}
		if _, err := codec.ProbeFile(path); err != nil {
			r.log.Warning("bench", "skipping unreadable image", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images under %s", cfg.Dataset)
	}
	sort.Strings(paths)

	loaders := make([]func() (*safe.Mat, error), len(paths))
	for i, p := range paths {
		p := p
		loaders[i] = func() (*safe.Mat, error) { return codec.Decode(p) }
	}
	return loaders, nil
}
