// Package spectrum computes centred log-magnitude Fourier spectra of
// grayscale images.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// DFT2D returns the 2D discrete Fourier transform of a real w x h signal
// stored row-major, computed as row transforms followed by column transforms.
func DFT2D(signal []float64, width, height int) ([]complex128, error) {
	if width <= 0 || height <= 0 || len(signal) != width*height {
		return nil, fmt.Errorf("signal of length %d does not match %dx%d", len(signal), width, height)
	}

	out := make([]complex128, len(signal))
	for i, v := range signal {
		out[i] = complex(v, 0)
	}

	rowFFT := fourier.NewCmplxFFT(width)
	row := make([]complex128, width)
	for y := 0; y < height; y++ {
		line := out[y*width : (y+1)*width]
		rowFFT.Coefficients(row, line)
		copy(line, row)
	}

	colFFT := fourier.NewCmplxFFT(height)
	col := make([]complex128, height)
	coeffs := make([]complex128, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = out[y*width+x]
		}
		colFFT.Coefficients(coeffs, col)
		for y := 0; y < height; y++ {
			out[y*width+x] = coeffs[y]
		}
	}

	return out, nil
}

// Shift swaps quadrants so the zero frequency lands at (width/2, height/2).
// gonum's fourier package has no fftshift.
func Shift(data []complex128, width, height int) []complex128 {
	out := make([]complex128, len(data))
	hw, hh := width/2, height/2
	for y := 0; y < height; y++ {
		ny := (y + hh) % height
		for x := 0; x < width; x++ {
			nx := (x + hw) % width
			out[ny*width+nx] = data[y*width+x]
		}
	}
	return out
}

// Magnitude returns |z| for every coefficient.
func Magnitude(data []complex128) []float64 {
	out := make([]float64, len(data))
	for i, z := range data {
		out[i] = cmplx.Abs(z)
	}
	return out
}

// NormalizeMinMax rescales xs in place to [0,1]. Constant input becomes all zero.
func NormalizeMinMax(xs []float64) {
	if len(xs) == 0 {
		return
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	floats.AddConst(-lo, xs)
	if span := hi - lo; span > 0 {
		floats.Scale(1/span, xs)
	}
}

// LogMagnitude converts a grayscale image into its centred log-magnitude
// spectrum: unit-range input, DFT, quadrant shift, magnitude, min-max,
// log(1+m), min-max, then scaled to 8 bits.
func LogMagnitude(gray *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateSingleChannel8U(gray, "log magnitude spectrum"); err != nil {
		return nil, err
	}

	width, height := gray.Cols(), gray.Rows()
	pixels, err := gray.Bytes()
	if err != nil {
		return nil, err
	}

	signal := make([]float64, len(pixels))
	for i, p := range pixels {
		signal[i] = float64(p) / 255
	}

	coeffs, err := DFT2D(signal, width, height)
	if err != nil {
		return nil, err
	}

	magnitude := Magnitude(Shift(coeffs, width, height))
	NormalizeMinMax(magnitude)
	for i, m := range magnitude {
		magnitude[i] = math.Log1p(m)
	}
	NormalizeMinMax(magnitude)

	out := make([]byte, len(magnitude))
	for i, m := range magnitude {
		out[i] = uint8(math.Round(m * 255))
	}

	return safe.FromBytes(height, width, gocv.MatTypeCV8UC1, out, "spectrum")
}
