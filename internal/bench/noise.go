package bench

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"docskew/internal/opencv/safe"
)

type NoiseKind int

const (
	NoiseNone NoiseKind = iota
	NoiseGaussian
	NoiseSaltPepper
)

func (k NoiseKind) String() string {
	switch k {
	case NoiseGaussian:
		return "gaussian"
	case NoiseSaltPepper:
		return "salt-pepper"
	default:
		return "none"
	}
}

func ParseNoise(name string) (NoiseKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoiseNone, nil
	case "gaussian", "gauss":
		return NoiseGaussian, nil
	case "salt-pepper", "saltpepper", "sp":
		return NoiseSaltPepper, nil
	default:
		return 0, fmt.Errorf("unknown noise kind %q", name)
	}
}

// Noise describes a noise model. Level is the standard deviation for
// gaussian noise and the per-sample probability for salt and pepper.
type Noise struct {
	Kind  NoiseKind
	Mean  float64
	Level float64
}

// Apply returns a noisy copy of img.
func (n Noise) Apply(img *safe.Mat, rng *rand.Rand) (*safe.Mat, error) {
	switch n.Kind {
	case NoiseNone:
		return img.Clone()
	case NoiseGaussian:
		return AddGaussian(img, n.Mean, n.Level, rng)
	case NoiseSaltPepper:
		return AddSaltPepper(img, n.Level, rng)
	default:
		return nil, fmt.Errorf("unknown noise kind %d", n.Kind)
	}
}

// AddGaussian adds N(mean, stddev) to every sample, saturating at 0 and 255.
func AddGaussian(img *safe.Mat, mean, stddev float64, rng *rand.Rand) (*safe.Mat, error) {
	if stddev < 0 {
		return nil, fmt.Errorf("gaussian stddev must be non-negative, got %v", stddev)
	}
	return mapSamples(img, "gaussian-noise", func(v uint8) uint8 {
		x := float64(v) + mean + rng.NormFloat64()*stddev
		return uint8(math.Max(0, math.Min(255, math.Round(x))))
	})
}

// AddSaltPepper replaces each sample with probability prob by 0 or 255,
// each equally likely.
func AddSaltPepper(img *safe.Mat, prob float64, rng *rand.Rand) (*safe.Mat, error) {
	if prob < 0 || prob > 1 {
		return nil, fmt.Errorf("salt and pepper probability must be within [0, 1], got %v", prob)
	}
	return mapSamples(img, "salt-pepper-noise", func(v uint8) uint8 {
		if rng.Float64() >= prob {
			return v
		}
		if rng.IntN(2) == 0 {
			return 0
		}
		return 255
	})
}

func mapSamples(img *safe.Mat, tag string, fn func(uint8) uint8) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(img, tag); err != nil {
		return nil, err
	}
	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = fn(v)
	}
	return safe.FromBytes(img.Rows(), img.Cols(), img.Type(), out, tag)
}
