package geometry

import (
	"fmt"
	"image"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

type KernelShape int

const (
	KernelRect KernelShape = iota
	KernelEllipse
	KernelCross
)

func (k KernelShape) morphShape() gocv.MorphShape {
	switch k {
	case KernelEllipse:
		return gocv.MorphEllipse
	case KernelCross:
		return gocv.MorphCross
	default:
		return gocv.MorphRect
	}
}

// ErodeOptions describes a morphological erosion. A zero Anchor is replaced
// by the kernel center (-1,-1).
type ErodeOptions struct {
	Shape      KernelShape
	Size       int
	Anchor     *image.Point
	Iterations int
}

// Erode applies a min filter. On dark-ink documents this thickens strokes.
func Erode(src *safe.Mat, opts ErodeOptions) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "erode"); err != nil {
		return nil, err
	}
	if opts.Size < 1 {
		return nil, fmt.Errorf("erode kernel size must be positive, got %d", opts.Size)
	}
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("erode iterations must be positive, got %d", opts.Iterations)
	}

	anchor := image.Point{X: -1, Y: -1}
	if opts.Anchor != nil {
		anchor = *opts.Anchor
	}

	kernel := gocv.GetStructuringElement(opts.Shape.morphShape(), image.Point{X: opts.Size, Y: opts.Size})
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.ErodeWithParams(src.GetMat(), &dst, kernel, anchor, opts.Iterations, gocv.BorderConstant)

	return safe.Wrap(dst, "erode")
}
