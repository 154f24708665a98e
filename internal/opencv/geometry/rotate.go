package geometry

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// SizePolicy selects the output canvas of a rotation.
type SizePolicy int

const (
	// SizeExact keeps the input dimensions and crops the corners.
	SizeExact SizePolicy = iota
	// SizeBounding enlarges the canvas to hold the whole rotated image.
	SizeBounding
)

type RotateOptions struct {
	Interpolation gocv.InterpolationFlags
	Border        color.RGBA
	Policy        SizePolicy
}

var White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// BoundingLinear is the rotation used for final output images.
func BoundingLinear() RotateOptions {
	return RotateOptions{Interpolation: gocv.InterpolationLinear, Border: White, Policy: SizeBounding}
}

// BoundingNearest keeps binary images binary.
func BoundingNearest() RotateOptions {
	return RotateOptions{Interpolation: gocv.InterpolationNearestNeighbor, Border: White, Policy: SizeBounding}
}

// BoundingSize returns the canvas that holds a width x height image rotated
// by degrees.
func BoundingSize(width, height int, degrees float64) (int, int) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	w := float64(width)*cos + float64(height)*sin
	h := float64(width)*sin + float64(height)*cos
	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

// Rotate turns src counter-clockwise by degrees about its center. Negative
// angles rotate clockwise.
func Rotate(src *safe.Mat, degrees float64, opts RotateOptions) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "rotate"); err != nil {
		return nil, err
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, fmt.Errorf("invalid rotation angle %v", degrees)
	}

	width, height := src.Cols(), src.Rows()
	outW, outH := width, height
	if opts.Policy == SizeBounding {
		outW, outH = BoundingSize(width, height, degrees)
	}
	if err := safe.ValidateDimensions(outW, outH, "rotate"); err != nil {
		return nil, err
	}

	m := affineMatrix(degrees, width, height, outW, outH)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src.GetMat(), &dst, m, image.Point{X: outW, Y: outH},
		opts.Interpolation, gocv.BorderConstant, opts.Border)

	return safe.Wrap(dst, "rotate")
}

// affineMatrix builds the forward 2x3 transform rotating about the source
// center and re-centering on the output canvas.
func affineMatrix(degrees float64, width, height, outW, outH int) gocv.Mat {
	rad := degrees * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)

	cx, cy := float64(width-1)/2, float64(height-1)/2
	ncx, ncy := float64(outW-1)/2, float64(outH-1)/2

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, alpha)
	m.SetDoubleAt(0, 1, beta)
	m.SetDoubleAt(0, 2, (1-alpha)*cx-beta*cy+(ncx-cx))
	m.SetDoubleAt(1, 0, -beta)
	m.SetDoubleAt(1, 1, alpha)
	m.SetDoubleAt(1, 2, beta*cx+(1-alpha)*cy+(ncy-cy))
	return m
}
