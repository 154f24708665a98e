package skew

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Method selects which estimators a correction runs.
type Method int

const (
	MethodDefault Method = iota
	MethodProjectionOnly
	MethodEdgesOnly
	MethodFourierOnly
)

var methodNames = map[Method]string{
	MethodDefault:        "default",
	MethodProjectionOnly: "projection",
	MethodEdgesOnly:      "edges",
	MethodFourierOnly:    "fourier",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod accepts the short names and the long forms used by the
// original command line ("ProjectionOnly", "EdgesDetectionOnly", ...).
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return MethodDefault, nil
	case "projection", "projectiononly":
		return MethodProjectionOnly, nil
	case "edges", "edgesdetectiononly", "hough":
		return MethodEdgesOnly, nil
	case "fourier", "fouriertransformonly", "fft":
		return MethodFourierOnly, nil
	default:
		return 0, NewValidationError("method", name, "unknown method")
	}
}

// Resolution bounds the working size of the projection sweep. A zero side
// leaves that axis unconstrained.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResolution parses "WxH". "0x0" means no bound.
func ParseResolution(s string) (Resolution, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Resolution{}, NewValidationError("resolution", s, "expected WIDTHxHEIGHT")
	}

	w, err := strconv.Atoi(parts[0])
	if err != nil || w < 0 {
		return Resolution{}, NewValidationError("resolution", s, "width must be a non-negative integer")
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 0 {
		return Resolution{}, NewValidationError("resolution", s, "height must be a non-negative integer")
	}

	return Resolution{Width: w, Height: h}, nil
}

// ProjectionParams configures the projection-variance sweep.
type ProjectionParams struct {
	MaxAngle      uint16     `json:"max_angle"`
	AngleStep     float64    `json:"angle_step"`
	MaxResolution Resolution `json:"max_resolution"`
	AllowUpscale  bool       `json:"allow_upscale"`
	Threads       int        `json:"threads"`
}

// Steps returns N for the index window [-N, N).
func (p ProjectionParams) Steps() int {
	return int(math.Round(float64(p.MaxAngle) / p.AngleStep))
}

func (p ProjectionParams) Validate() error {
	if p.AngleStep <= 0 || math.IsNaN(p.AngleStep) || math.IsInf(p.AngleStep, 0) {
		return NewValidationError("angle_step", p.AngleStep, "must be a positive number")
	}
	if p.MaxAngle > 90 {
		return NewValidationError("max_angle", p.MaxAngle, "must not exceed 90 degrees")
	}
	n := math.Round(float64(p.MaxAngle) / p.AngleStep)
	if n < 1 {
		return NewValidationError("max_angle", p.MaxAngle, "window holds no angle steps")
	}
	if n > math.MaxInt32 {
		return NewValidationError("angle_step", p.AngleStep, "too many steps for the search window")
	}
	if p.MaxResolution.Width < 0 || p.MaxResolution.Height < 0 {
		return NewValidationError("max_resolution", p.MaxResolution, "must not be negative")
	}
	if p.Threads < 0 {
		return NewValidationError("threads", p.Threads, "must not be negative")
	}
	return nil
}

// LineParams configures Canny plus the probabilistic Hough transform.
type LineParams struct {
	CannyLow      float64 `json:"canny_low"`
	CannyHigh     float64 `json:"canny_high"`
	VoteThreshold int     `json:"vote_threshold"`
	MinLineLength float64 `json:"min_line_length"`
	MaxLineGap    float64 `json:"max_line_gap"`
}

func (p LineParams) Validate(prefix string) error {
	if p.CannyLow < 0 || p.CannyHigh < 0 || p.CannyLow > p.CannyHigh {
		return NewValidationError(prefix+"canny", fmt.Sprintf("%v/%v", p.CannyLow, p.CannyHigh), "thresholds must satisfy 0 <= low <= high")
	}
	if p.VoteThreshold < 0 {
		return NewValidationError(prefix+"vote_threshold", p.VoteThreshold, "must not be negative")
	}
	if p.MinLineLength < 0 {
		return NewValidationError(prefix+"min_line_length", p.MinLineLength, "must not be negative")
	}
	if p.MaxLineGap < 0 {
		return NewValidationError(prefix+"max_line_gap", p.MaxLineGap, "must not be negative")
	}
	return nil
}

// Params holds everything one correction needs.
type Params struct {
	Method     Method           `json:"method"`
	Projection ProjectionParams `json:"projection"`
	Lines      LineParams       `json:"lines"`
	Spectral   LineParams       `json:"spectral"`
	Quality    int              `json:"quality"`
}

func DefaultProjectionParams() ProjectionParams {
	return ProjectionParams{
		MaxAngle:  45,
		AngleStep: 0.2,
		Threads:   1,
	}
}

func DefaultLineParams() LineParams {
	return LineParams{
		CannyLow:      50,
		CannyHigh:     150,
		VoteThreshold: 0,
		MinLineLength: 125,
		MaxLineGap:    15,
	}
}

func DefaultSpectralParams() LineParams {
	return LineParams{
		CannyLow:      125,
		CannyHigh:     150,
		VoteThreshold: 100,
		MinLineLength: 125,
		MaxLineGap:    15,
	}
}

func DefaultParams() Params {
	return Params{
		Method:     MethodDefault,
		Projection: DefaultProjectionParams(),
		Lines:      DefaultLineParams(),
		Spectral:   DefaultSpectralParams(),
		Quality:    100,
	}
}

// Validate checks only the parameter groups the selected method uses.
func (p Params) Validate() error {
	if _, ok := methodNames[p.Method]; !ok {
		return NewValidationError("method", int(p.Method), "unknown method")
	}
	if p.Quality < 1 || p.Quality > 100 {
		return NewValidationError("quality", p.Quality, "must be within [1, 100]")
	}

	switch p.Method {
	case MethodDefault:
		if err := p.Projection.Validate(); err != nil {
			return err
		}
		return p.Lines.Validate("")
	case MethodProjectionOnly:
		return p.Projection.Validate()
	case MethodEdgesOnly:
		return p.Lines.Validate("")
	case MethodFourierOnly:
		return p.Spectral.Validate("spectral_")
	}
	return nil
}
