// Package features wraps the OpenCV edge and line detectors.
package features

import (
	"fmt"
	"math"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Segment is a detected line segment in pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// AngleDegrees is atan2(dy, dx) in degrees, in (-180, 180].
func (s Segment) AngleDegrees() float64 {
	return math.Atan2(float64(s.Y2-s.Y1), float64(s.X2-s.X1)) * 180 / math.Pi
}

// HoughParams configures the probabilistic Hough transform.
type HoughParams struct {
	Rho           float32
	Theta         float32
	Threshold     int
	MinLineLength float32
	MaxLineGap    float32
}

// DefaultHough uses a one pixel, one degree accumulator.
func DefaultHough(threshold int, minLineLength, maxLineGap float64) HoughParams {
	return HoughParams{
		Rho:           1,
		Theta:         math.Pi / 180,
		Threshold:     threshold,
		MinLineLength: float32(minLineLength),
		MaxLineGap:    float32(maxLineGap),
	}
}

// Canny returns the edge map of a single channel 8-bit image.
func Canny(src *safe.Mat, low, high float32) (*safe.Mat, error) {
	if err := safe.ValidateSingleChannel8U(src, "canny"); err != nil {
		return nil, err
	}
	if low < 0 || high < 0 {
		return nil, fmt.Errorf("canny thresholds must be non-negative, got %v/%v", low, high)
	}

	edges := gocv.NewMat()
	gocv.Canny(src.GetMat(), &edges, low, high)

	return safe.Wrap(edges, "canny")
}

// HoughSegments runs the probabilistic Hough transform on an edge map.
func HoughSegments(edges *safe.Mat, p HoughParams) ([]Segment, error) {
	if err := safe.ValidateSingleChannel8U(edges, "hough"); err != nil {
		return nil, err
	}
	if p.Rho <= 0 || p.Theta <= 0 {
		return nil, fmt.Errorf("hough resolution must be positive, got rho=%v theta=%v", p.Rho, p.Theta)
	}
	if p.Threshold < 0 {
		return nil, fmt.Errorf("hough threshold must be non-negative, got %d", p.Threshold)
	}

	lines := gocv.NewMat()
	defer lines.Close()

	gocv.HoughLinesPWithParams(edges.GetMat(), &lines, p.Rho, p.Theta, p.Threshold, p.MinLineLength, p.MaxLineGap)

	segments := make([]Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segments = append(segments, Segment{
			X1: int(v[0]), Y1: int(v[1]),
			X2: int(v[2]), Y2: int(v[3]),
		})
	}

	return segments, nil
}
