package skew

import (
	"context"
	"fmt"
	"image"
	"sync"

	"docskew/internal/opencv/conversion"
	"docskew/internal/opencv/geometry"
	"docskew/internal/opencv/safe"
	"docskew/internal/stats"

	"golang.org/x/sync/errgroup"
)

// Binarization applied before the sweep. Ink is 0, paper is 255.
const (
	binaryLevel = 127
	binaryMax   = 255
	erodeSize   = 3
	erodeRounds = 3
)

// profileScore holds the standard deviations of the row and column ink
// profiles at one sweep index.
type profileScore struct {
	h, v float64
}

// Preprocess prepares a decoded image for the projection sweep: grayscale,
// erosion to merge glyphs into line blobs, downscaling into the resolution
// bound and a fixed binary threshold.
func Preprocess(src *safe.Mat, p ProjectionParams) (*safe.Mat, error) {
	gray, err := conversion.ToGrayscale(src)
	if err != nil {
		return nil, primitiveError("grayscale", err)
	}
	defer gray.Close()

	anchor := image.Point{X: -1, Y: -1}
	eroded, err := geometry.Erode(gray, geometry.ErodeOptions{
		Shape:      geometry.KernelEllipse,
		Size:       erodeSize,
		Anchor:     &anchor,
		Iterations: erodeRounds,
	})
	if err != nil {
		return nil, primitiveError("erode", err)
	}
	defer eroded.Close()

	factor := conversion.ScaleFactor(eroded.Cols(), eroded.Rows(),
		p.MaxResolution.Width, p.MaxResolution.Height, p.AllowUpscale)
	scaled, err := conversion.Resize(eroded, factor)
	if err != nil {
		return nil, primitiveError("resize", err)
	}
	defer scaled.Close()

	binary, err := conversion.Threshold(scaled, binaryLevel, binaryMax)
	if err != nil {
		return nil, primitiveError("threshold", err)
	}
	return binary, nil
}

// EstimateProjection runs Preprocess followed by the variance sweep.
func EstimateProjection(ctx context.Context, src *safe.Mat, p ProjectionParams) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	binary, err := Preprocess(src, p)
	if err != nil {
		return Result{}, err
	}
	defer binary.Close()

	return Sweep(ctx, binary, p)
}

// Sweep rotates a binary image through every angle i*AngleStep for i in
// [-N, N) and picks the angle whose row profile varies most, breaking ties
// on the column profile. The outcome does not depend on Threads.
func Sweep(ctx context.Context, binary *safe.Mat, p ProjectionParams) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := safe.ValidateSingleChannel8U(binary, "projection sweep"); err != nil {
		return Result{}, primitiveError("sweep", err)
	}

	n := p.Steps()
	scores := make([]profileScore, 2*n)

	var err error
	if p.Threads > 1 {
		err = sweepParallel(ctx, binary, p, scores)
	} else {
		err = sweepSequential(ctx, binary, p, scores)
	}
	if err != nil {
		return Result{}, err
	}

	return reduceScores(scores, n, p.AngleStep), nil
}

func sweepSequential(ctx context.Context, binary *safe.Mat, p ProjectionParams, scores []profileScore) error {
	n := p.Steps()
	for k := range scores {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := scoreAngle(binary, float64(k-n)*p.AngleStep)
		if err != nil {
			return err
		}
		scores[k] = s
	}
	return nil
}

// sweepParallel hands out sweep indices from a shared counter. Each slot of
// scores is written by exactly one goroutine, so the reduction afterwards
// sees the same values a sequential sweep would produce.
func sweepParallel(ctx context.Context, binary *safe.Mat, p ProjectionParams, scores []profileScore) error {
	n := p.Steps()

	var (
		mu   sync.Mutex
		next int
	)
	claim := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(scores) {
			return 0, false
		}
		k := next
		next++
		return k, true
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < min(p.Threads, len(scores)); w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				k, ok := claim()
				if !ok {
					return nil
				}
				s, err := scoreAngle(binary, float64(k-n)*p.AngleStep)
				if err != nil {
					return err
				}
				mu.Lock()
				scores[k] = s
				mu.Unlock()
			}
		})
	}
	return g.Wait()
}

func scoreAngle(binary *safe.Mat, degrees float64) (profileScore, error) {
	rotated, err := geometry.Rotate(binary, degrees, geometry.BoundingNearest())
	if err != nil {
		return profileScore{}, primitiveError(fmt.Sprintf("rotate %.3f", degrees), err)
	}
	defer rotated.Close()

	data, err := rotated.Bytes()
	if err != nil {
		return profileScore{}, primitiveError("read pixels", err)
	}

	rows, cols := rotated.Rows(), rotated.Cols()
	rowInk := make([]float64, rows)
	colInk := make([]float64, cols)
	for r := 0; r < rows; r++ {
		line := data[r*cols : (r+1)*cols]
		for c, px := range line {
			if px == 0 {
				rowInk[r]++
				colInk[c]++
			}
		}
	}

	h, err := stats.StdDev(rowInk)
	if err != nil {
		return profileScore{}, primitiveError("row profile", err)
	}
	v, err := stats.StdDev(colInk)
	if err != nil {
		return profileScore{}, primitiveError("column profile", err)
	}
	return profileScore{h: h, v: v}, nil
}

// reduceScores walks the sweep in index order. A strictly better row score
// restarts the winner set; an equal row score counts a tie and lets the
// column score decide or extend the set.
func reduceScores(scores []profileScore, n int, step float64) Result {
	var (
		maxH, maxV   float64
		hTies, vTies = 1, 1
		winners      []int
	)

	for k, s := range scores {
		i := k - n
		switch {
		case s.h > maxH:
			winners = []int{i}
			maxH, maxV = s.h, s.v
			hTies, vTies = 1, 1
		case s.h == maxH:
			hTies++
			switch {
			case s.v > maxV:
				winners = []int{i}
				maxV = s.v
				vTies = 1
			case s.v == maxV:
				winners = append(winners, i)
				vTies++
			}
		}
	}

	candidates := make([]float64, len(winners))
	for j, i := range winners {
		candidates[j] = float64(i) * step
	}

	res := Result{Candidates: candidates, Status: NotAResult}
	if len(winners) == 1 {
		res.Angle = candidates[0]
		if hTies == 1 && vTies == 1 {
			res.Status = Believed
		} else {
			res.Status = NeedCheck
		}
	}
	return res
}
