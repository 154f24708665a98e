package conversion

import (
	"fmt"
	"image"
	"math"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ScaleFactor picks the factor that fits a width x height image inside the
// maxWidth x maxHeight box. A zero bound leaves that axis unconstrained and
// two zero bounds mean no resizing. Results above 1 are clamped unless
// allowUpscale is set.
func ScaleFactor(width, height, maxWidth, maxHeight int, allowUpscale bool) float64 {
	if width <= 0 || height <= 0 {
		return 1
	}

	scale := math.Inf(1)
	if maxWidth > 0 {
		scale = math.Min(scale, float64(maxWidth)/float64(width))
	}
	if maxHeight > 0 {
		scale = math.Min(scale, float64(maxHeight)/float64(height))
	}

	if math.IsInf(scale, 1) {
		return 1
	}
	if scale > 1 && !allowUpscale {
		return 1
	}
	return scale
}

// Resize scales src by factor, using area interpolation when shrinking.
func Resize(src *safe.Mat, factor float64) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "resize"); err != nil {
		return nil, err
	}

	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("invalid resize factor %v", factor)
	}

	if factor == 1 {
		return src.Clone()
	}

	width := max(1, int(math.Round(float64(src.Cols())*factor)))
	height := max(1, int(math.Round(float64(src.Rows())*factor)))
	if err := safe.ValidateDimensions(width, height, "resize"); err != nil {
		return nil, err
	}

	interpolation := gocv.InterpolationLinear
	if factor < 1 {
		interpolation = gocv.InterpolationArea
	}

	dst := gocv.NewMat()
	if err := gocv.Resize(src.GetMat(), &dst, image.Point{X: width, Y: height}, 0, 0, interpolation); err != nil {
		dst.Close()
		return nil, fmt.Errorf("resize failed: %w", err)
	}

	return safe.Wrap(dst, "resize")
}
