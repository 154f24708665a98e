// Package skew estimates and corrects the rotation of scanned document pages.
package skew

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"docskew/internal/logger"
	"docskew/internal/opencv/codec"
	"docskew/internal/opencv/geometry"
	"docskew/internal/opencv/safe"
	"docskew/internal/timing"
)

const (
	// agreementTolerance is how close the line angle must be to a NeedCheck
	// projection angle to confirm it.
	agreementTolerance = 0.1
	// candidateTolerance is how close a NotAResult projection candidate must
	// be to the line angle to be picked.
	candidateTolerance = 0.05
)

// Outcome is the final answer for one image.
type Outcome struct {
	Angle      float64       `json:"angle"`
	NeedsCheck bool          `json:"needs_check"`
	Method     Method        `json:"method"`
	Projection *Result       `json:"projection,omitempty"`
	Lines      *Result       `json:"lines,omitempty"`
	Spectral   *Result       `json:"spectral,omitempty"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Corrector runs the estimator cascade. It holds no per-image state and may
// be shared between goroutines.
type Corrector struct {
	log    logger.Logger
	timing *timing.Tracker
}

// NewCorrector builds a Corrector. tracker may be nil.
func NewCorrector(log logger.Logger, tracker *timing.Tracker) *Corrector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Corrector{log: log, timing: tracker}
}

// Estimate computes the correction angle of src without modifying it.
func (c *Corrector) Estimate(ctx context.Context, src *safe.Mat, params Params) (Outcome, error) {
	if err := params.Validate(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Method: params.Method, Width: src.Cols(), Height: src.Rows()}

	switch params.Method {
	case MethodProjectionOnly:
		res, err := c.projection(ctx, src, params.Projection)
		if err != nil {
			return Outcome{}, err
		}
		out.Projection = &res
		out.Angle, out.NeedsCheck = res.Angle, res.Status != Believed

	case MethodEdgesOnly:
		res, err := c.lines(src, params.Lines)
		if err != nil {
			return Outcome{}, err
		}
		out.Lines = &res
		out.Angle, out.NeedsCheck = res.Angle, res.Status != Believed

	case MethodFourierOnly:
		stop := c.timing.Start("estimate.spectral")
		res, err := EstimateSpectral(src, params.Spectral)
		stop()
		if err != nil {
			return Outcome{}, err
		}
		c.log.Debug("skew", "spectral estimate", resultFields(res))
		out.Spectral = &res
		out.Angle, out.NeedsCheck = res.Angle, res.Status != Believed

	default:
		proj, err := c.projection(ctx, src, params.Projection)
		if err != nil {
			return Outcome{}, err
		}
		out.Projection = &proj
		if proj.Status == Believed {
			out.Angle = proj.Angle
			break
		}

		lines, err := c.lines(src, params.Lines)
		if err != nil {
			return Outcome{}, fmt.Errorf("corroborate %s projection: %w", proj.Status, err)
		}
		out.Lines = &lines
		out.Angle, out.NeedsCheck = Reconcile(proj, lines.Angle)
	}

	return out, nil
}

func (c *Corrector) projection(ctx context.Context, src *safe.Mat, p ProjectionParams) (Result, error) {
	stop := c.timing.Start("estimate.projection")
	res, err := EstimateProjection(ctx, src, p)
	stop()
	if err != nil {
		return Result{}, err
	}
	c.log.Debug("skew", "projection estimate", resultFields(res))
	return res, nil
}

func (c *Corrector) lines(src *safe.Mat, p LineParams) (Result, error) {
	stop := c.timing.Start("estimate.lines")
	res, err := EstimateLines(src, p)
	stop()
	if err != nil {
		return Result{}, err
	}
	c.log.Debug("skew", "line estimate", resultFields(res))
	return res, nil
}

// Reconcile combines a projection result that is not Believed with the line
// estimator's angle.
func Reconcile(proj Result, edgeAngle float64) (float64, bool) {
	switch proj.Status {
	case Believed:
		return proj.Angle, false
	case NeedCheck:
		if math.Abs(proj.Angle-edgeAngle) < agreementTolerance {
			return proj.Angle, false
		}
		return edgeAngle, true
	default:
		if len(proj.Candidates) == 0 {
			return edgeAngle, true
		}
		nearest := proj.Candidates[0]
		for _, cand := range proj.Candidates[1:] {
			if math.Abs(cand-edgeAngle) < math.Abs(nearest-edgeAngle) {
				nearest = cand
			}
		}
		if math.Abs(nearest-edgeAngle) < candidateTolerance {
			return nearest, false
		}
		return edgeAngle, true
	}
}

// Correct decodes input, estimates its skew, rotates the full resolution
// image onto a canvas that holds all of it and writes the result to output.
// Output is only created when every step succeeds.
func (c *Corrector) Correct(ctx context.Context, input, output string, params Params) (Outcome, error) {
	if err := ValidatePaths(input, output); err != nil {
		return Outcome{}, err
	}
	if err := params.Validate(); err != nil {
		return Outcome{}, err
	}

	started := time.Now()
	stopTotal := c.timing.Start("correct")
	defer stopTotal()

	stop := c.timing.Start("decode")
	src, err := codec.Decode(input)
	stop()
	if err != nil {
		return Outcome{}, decodeError(err)
	}
	defer src.Close()

	out, err := c.Estimate(ctx, src, params)
	if err != nil {
		return Outcome{}, err
	}

	if err := c.write(src, out.Angle, output, params.Quality); err != nil {
		return Outcome{}, err
	}

	out.Elapsed = time.Since(started)
	c.log.Info("skew", "image corrected", map[string]interface{}{
		"input":       input,
		"output":      output,
		"angle":       out.Angle,
		"needs_check": out.NeedsCheck,
		"method":      out.Method.String(),
		"elapsed_ms":  out.Elapsed.Milliseconds(),
	})
	return out, nil
}

// Rotate applies a hand-picked angle to input and writes output without
// running any estimator. It is how a reviewer overrides a flagged result.
func (c *Corrector) Rotate(ctx context.Context, input, output string, angle float64, quality int) error {
	if err := ValidatePaths(input, output); err != nil {
		return err
	}
	if err := ValidateManualAngle(angle); err != nil {
		return err
	}
	if quality < 1 || quality > 100 {
		return NewValidationError("quality", quality, "must be within [1, 100]")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := c.timing.Start("decode")
	src, err := codec.Decode(input)
	stop()
	if err != nil {
		return decodeError(err)
	}
	defer src.Close()

	if err := c.write(src, angle, output, quality); err != nil {
		return err
	}

	c.log.Info("skew", "image rotated by hand", map[string]interface{}{
		"input":  input,
		"output": output,
		"angle":  angle,
	})
	return nil
}

func (c *Corrector) write(src *safe.Mat, angle float64, output string, quality int) error {
	stop := c.timing.Start("rotate")
	rotated, err := geometry.Rotate(src, angle, geometry.BoundingLinear())
	stop()
	if err != nil {
		return primitiveError("rotate", err)
	}
	defer rotated.Close()

	stop = c.timing.Start("encode")
	err = codec.WriteFile(output, rotated, quality)
	stop()
	if err != nil {
		return primitiveError("encode", err)
	}
	return nil
}

// MaxManualAngle bounds the angle a reviewer may apply.
const MaxManualAngle = 45.0

// ValidateManualAngle rejects angles outside [-MaxManualAngle, MaxManualAngle].
func ValidateManualAngle(angle float64) error {
	if math.IsNaN(angle) || math.Abs(angle) > MaxManualAngle {
		return NewValidationError("angle", angle, "must be within [-45, 45]")
	}
	return nil
}

// ValidatePaths rejects empty paths and output extensions that cannot be encoded.
func ValidatePaths(input, output string) error {
	if input == "" {
		return NewValidationError("input", input, "path is required")
	}
	if output == "" {
		return NewValidationError("output", output, "path is required")
	}
	if _, err := codec.FormatFromPath(output); err != nil {
		return NewValidationError("output", output, err.Error())
	}
	return nil
}

// IsConfigurationError reports whether err was caused by rejected parameters
// rather than by the image itself.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func resultFields(r Result) map[string]interface{} {
	return map[string]interface{}{
		"angle":      r.Angle,
		"status":     r.Status.String(),
		"candidates": len(r.Candidates),
	}
}
