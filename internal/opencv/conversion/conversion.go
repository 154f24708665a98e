package conversion

import (
	"fmt"

	"docskew/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ToGrayscale converts a BGR or BGRA image to a single channel. Single
// channel input is cloned so the result is always owned by the caller.
func ToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	var code gocv.ColorConversionCode
	switch src.Channels() {
	case 3:
		code = gocv.ColorBGRToGray
	case 4:
		code = gocv.ColorBGRAToGray
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	dst := gocv.NewMat()
	if err := gocv.CvtColor(src.GetMat(), &dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("grayscale conversion failed: %w", err)
	}

	return safe.Wrap(dst, "grayscale")
}

// Threshold binarizes a grayscale image: pixels above level become maxValue,
// everything else 0.
func Threshold(src *safe.Mat, level, maxValue float32) (*safe.Mat, error) {
	if err := safe.ValidateSingleChannel8U(src, "threshold"); err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	gocv.Threshold(src.GetMat(), &dst, level, maxValue, gocv.ThresholdBinary)

	return safe.Wrap(dst, "threshold")
}
