// Command docskew-bench measures how well each method recovers known
// rotations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"docskew/internal/bench"
	"docskew/internal/logger"
	"docskew/internal/skew"
)

func main() {
	cfg := bench.DefaultConfig()

	dataset := flag.String("dataset", "", "directory of page images; empty uses synthetic pages")
	trials := flag.Int("trials", cfg.Trials, "number of synthetic pages")
	maxRotation := flag.Float64("max-rotation", cfg.MaxRotation, "pages are rotated uniformly within +-this many degrees")
	seed := flag.Uint64("seed", cfg.Seed, "random seed")
	noise := flag.String("noise", "none", "noise: none, gaussian or saltpepper")
	mean := flag.Float64("mean", 0, "gaussian noise mean")
	level := flag.Float64("level", 0, "gaussian standard deviation or salt-and-pepper probability")
	methods := flag.String("methods", "default,projection,edges,fourier", "comma separated methods")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	logLevel := flag.String("log-level", logger.LevelFromEnv().String(), "debug, info, warn or error")
	flag.Parse()

	kind, err := bench.ParseNoise(*noise)
	if err != nil {
		fail(err)
	}

	cfg.Dataset = *dataset
	cfg.Trials = *trials
	cfg.MaxRotation = *maxRotation
	cfg.Seed = *seed
	cfg.Noise = bench.Noise{Kind: kind, Mean: *mean, Level: *level}
	cfg.Methods = nil
	for _, name := range strings.Split(*methods, ",") {
		m, err := skew.ParseMethod(name)
		if err != nil {
			fail(err)
		}
		cfg.Methods = append(cfg.Methods, m)
	}

	runner := bench.NewRunner(logger.NewConsoleLogger(logger.ParseLevel(*logLevel)))
	report, err := runner.Run(context.Background(), cfg)
	if err != nil {
		fail(err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fail(err)
		}
		return
	}

	fmt.Printf("%d page(s), rotation within +-%.1f°, noise %s\n\n", report.Pages, cfg.MaxRotation, kind)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "method\truns\tflagged\tfailed\tmean err\tsd err\tmax err\tavg time")
	for _, m := range report.Methods {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\t%s\n",
			m.Method, m.Runs, m.Flagged, m.Failed,
			m.Error.Mean, m.Error.StdDev, m.Error.Max, m.AverageTime.Round(time.Microsecond))
	}
	w.Flush()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
