// Command docskew straightens scanned document pages.
//
//	docskew -i page.png -o straight.png
//	docskew -d -i scans/ -o straightened/ -workers 8
//	docskew -i page.png -o straight.png -rotate -1.5
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/skew"
	"docskew/internal/tasks"
	"docskew/internal/timing"
	"docskew/internal/workerpool"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defaults := skew.DefaultParams()
	fs := flag.NewFlagSet("docskew", flag.ContinueOnError)

	input := fs.String("i", "", "input image, or directory with -d")
	output := fs.String("o", "", "output image, or directory with -d")
	dirMode := fs.Bool("d", false, "correct every image under the input directory")
	method := fs.String("m", defaults.Method.String(), "method: default, projection, edges or fourier")

	maxAngle := fs.Uint("pma", uint(defaults.Projection.MaxAngle), "projection: maximum angle in degrees")
	angleStep := fs.Float64("pas", defaults.Projection.AngleStep, "projection: angle step in degrees")
	maxRes := fs.String("pmr", defaults.Projection.MaxResolution.String(), "projection: maximum working resolution WxH, 0x0 for none")

	edgeLength := fs.Float64("elg", defaults.Lines.MinLineLength, "edges: minimum line length")
	edgeGap := fs.Float64("egp", defaults.Lines.MaxLineGap, "edges: maximum line gap")

	fourierLength := fs.Float64("flg", defaults.Spectral.MinLineLength, "fourier: minimum line length")
	fourierGap := fs.Float64("fgp", defaults.Spectral.MaxLineGap, "fourier: maximum line gap")
	fourierLow := fs.Float64("fcl", defaults.Spectral.CannyLow, "fourier: canny low threshold")
	fourierHigh := fs.Float64("fch", defaults.Spectral.CannyHigh, "fourier: canny high threshold")

	quality := fs.Int("q", defaults.Quality, "output quality 1-100")
	manual := fs.Float64("rotate", 0, "apply this angle in degrees instead of estimating one")
	workers := fs.Int("workers", runtime.NumCPU(), "concurrent corrections")
	threads := fs.Int("threads", defaults.Projection.Threads, "projection sweep threads per image")
	logLevel := fs.String("log-level", logger.LevelFromEnv().String(), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: docskew [-d] -i <input> -o <output> [options]")
		fs.PrintDefaults()
		return 2
	}

	params := defaults
	var err error
	if params.Method, err = skew.ParseMethod(*method); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *maxAngle > 90 {
		fmt.Fprintln(os.Stderr, skew.NewValidationError("max_angle", *maxAngle, "must not exceed 90 degrees"))
		return 2
	}
	params.Projection.MaxAngle = uint16(*maxAngle)
	params.Projection.AngleStep = *angleStep
	if params.Projection.MaxResolution, err = skew.ParseResolution(*maxRes); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	params.Projection.Threads = *threads
	params.Lines.MinLineLength = *edgeLength
	params.Lines.MaxLineGap = *edgeGap
	params.Spectral.MinLineLength = *fourierLength
	params.Spectral.MaxLineGap = *fourierGap
	params.Spectral.CannyLow = *fourierLow
	params.Spectral.CannyHigh = *fourierHigh
	params.Quality = *quality

	log := logger.NewConsoleLogger(logger.ParseLevel(*logLevel))
	tracker := timing.NewTracker()
	corrector := skew.NewCorrector(log, tracker)

	if flagSet(fs, "rotate") {
		if *dirMode {
			fmt.Fprintln(os.Stderr, "-rotate applies to a single image and cannot be combined with -d")
			return 2
		}
		if err := corrector.Rotate(context.Background(), *input, *output, *manual, params.Quality); err != nil {
			fmt.Fprintln(os.Stderr, err)
			if skew.IsConfigurationError(err) {
				return 2
			}
			return 1
		}
		fmt.Printf("%s -> %s: %.2f° (by hand)\n", *input, *output, *manual)
		return 0
	}

	pool, err := workerpool.New(*workers, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("workers: %w", err))
		return 2
	}

	repo := models.NewTaskRepository()
	manager := tasks.NewManager(pool, repo, corrector, nil, log)
	defer manager.Shutdown(context.Background())

	start := time.Now()
	if *dirMode {
		_, err = manager.SubmitDirectory(*input, *output, params)
	} else {
		_, err = manager.Submit(tasks.Request{Input: *input, Output: *output, Params: params})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if skew.IsConfigurationError(err) {
			return 2
		}
		return 1
	}

	manager.Wait()
	return report(repo.List(), time.Since(start), tracker)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// report prints one line per task and returns the exit code.
func report(records []models.TaskRecord, elapsed time.Duration, tracker *timing.Tracker) int {
	failed := 0
	for _, rec := range records {
		switch {
		case rec.State == models.TaskError:
			failed++
			fmt.Printf("%s: error: %s\n", rec.Input, rec.Error)
		case rec.Outcome != nil:
			note := ""
			if rec.Outcome.NeedsCheck {
				note = " (needs check)"
			}
			fmt.Printf("%s -> %s: %.2f°%s\n", rec.Input, rec.Output, rec.Outcome.Angle, note)
		}
	}

	fmt.Printf("%d image(s), %d failed, %s\n", len(records), failed, elapsed.Round(time.Millisecond))
	for _, s := range tracker.Snapshot() {
		fmt.Printf("  %-20s n=%-4d avg=%s max=%s\n", s.Operation, s.Count, s.Average.Round(time.Microsecond), s.Max.Round(time.Microsecond))
	}

	if failed > 0 {
		return 1
	}
	return 0
}
