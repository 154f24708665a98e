// Package synth draws synthetic document pages with known skew.
package synth

import (
	"fmt"
	"image"
	"image/color"

	"docskew/internal/opencv/geometry"
	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Page describes a white page carrying evenly spaced black bars that stand
// in for text lines.
type Page struct {
	Width, Height int
	Bars          int
	BarHeight     int
	Spacing       int
	Top           int
	Left, Right   int
	Color         bool
}

// DefaultPage is a 400x400 page with ten 8px bars from x=50 to x=350.
func DefaultPage() Page {
	return Page{
		Width:     400,
		Height:    400,
		Bars:      10,
		BarHeight: 8,
		Spacing:   30,
		Top:       50,
		Left:      50,
		Right:     350,
		Color:     true,
	}
}

func (p Page) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("page size must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Bars < 0 || p.BarHeight <= 0 {
		return fmt.Errorf("invalid bar layout: %d bars of height %d", p.Bars, p.BarHeight)
	}
	if p.Left < 0 || p.Right > p.Width || p.Left >= p.Right {
		return fmt.Errorf("bar span [%d, %d) does not fit width %d", p.Left, p.Right, p.Width)
	}
	if last := p.Top + (p.Bars-1)*p.Spacing + p.BarHeight; p.Bars > 0 && last > p.Height {
		return fmt.Errorf("bars end at row %d, past height %d", last, p.Height)
	}
	return nil
}

// Draw renders the page upright.
func (p Page) Draw() (*safe.Mat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	matType := gocv.MatTypeCV8UC1
	if p.Color {
		matType = gocv.MatTypeCV8UC3
	}

	img, err := safe.NewMatFilled(p.Height, p.Width, matType, 255, "synth-page")
	if err != nil {
		return nil, err
	}

	m := img.GetMat()
	for i := 0; i < p.Bars; i++ {
		y := p.Top + i*p.Spacing
		gocv.Rectangle(&m, image.Rect(p.Left, y, p.Right, y+p.BarHeight), color.RGBA{A: 255}, -1)
	}
	return img, nil
}

// DrawRotated renders the page and rotates it counter-clockwise by degrees
// onto a canvas large enough to hold it. The correction angle of the result
// is -degrees.
func (p Page) DrawRotated(degrees float64) (*safe.Mat, error) {
	img, err := p.Draw()
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return geometry.Rotate(img, degrees, geometry.BoundingLinear())
}
