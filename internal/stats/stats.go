// Package stats provides the descriptive statistics used to score projection
// profiles and to summarise benchmark runs.
package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrEmpty = errors.New("stats: empty sequence")

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	return stat.Mean(xs, nil), nil
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	if constant(xs) {
		return 0, nil
	}
	return stat.PopStdDev(xs, nil), nil
}

// Max returns the largest element of xs.
func Max(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	return floats.Max(xs), nil
}

type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Max    float64
}

func Summarize(xs []float64) (Summary, error) {
	if len(xs) == 0 {
		return Summary{}, ErrEmpty
	}
	sd, _ := StdDev(xs)
	return Summary{
		Count:  len(xs),
		Mean:   stat.Mean(xs, nil),
		StdDev: sd,
		Max:    floats.Max(xs),
	}, nil
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
