package skew

import (
	"docskew/internal/opencv/conversion"
	"docskew/internal/opencv/safe"
	"docskew/internal/opencv/spectrum"
)

// EstimateSpectral runs the line estimator on the centred log-magnitude
// spectrum. Text lines show up as a bright streak through the origin
// perpendicular to them; after folding into [-45, 45] the streak angle is
// already the correction angle.
func EstimateSpectral(src *safe.Mat, p LineParams) (Result, error) {
	if err := p.Validate("spectral_"); err != nil {
		return Result{}, err
	}

	gray, err := conversion.ToGrayscale(src)
	if err != nil {
		return Result{}, primitiveError("grayscale", err)
	}
	defer gray.Close()

	logMag, err := spectrum.LogMagnitude(gray)
	if err != nil {
		return Result{}, primitiveError("spectrum", err)
	}
	defer logMag.Close()

	return EstimateLines(logMag, p)
}
