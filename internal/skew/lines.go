package skew

import (
	"docskew/internal/opencv/conversion"
	"docskew/internal/opencv/features"
	"docskew/internal/opencv/safe"
)

// Angles closer than this share a vote.
const voteTolerance = 0.1

// EstimateLines finds straight segments with Canny and the probabilistic
// Hough transform and returns the most common segment orientation, folded
// into [-45, 45].
func EstimateLines(src *safe.Mat, p LineParams) (Result, error) {
	if err := p.Validate(""); err != nil {
		return Result{}, err
	}

	gray, err := conversion.ToGrayscale(src)
	if err != nil {
		return Result{}, primitiveError("grayscale", err)
	}
	defer gray.Close()

	edges, err := features.Canny(gray, float32(p.CannyLow), float32(p.CannyHigh))
	if err != nil {
		return Result{}, primitiveError("canny", err)
	}
	defer edges.Close()

	segments, err := features.HoughSegments(edges,
		features.DefaultHough(p.VoteThreshold, p.MinLineLength, p.MaxLineGap))
	if err != nil {
		return Result{}, primitiveError("hough", err)
	}
	if len(segments) == 0 {
		return Result{}, ErrEmptyDetectionSet
	}

	angles := make([]float64, len(segments))
	for i, s := range segments {
		angles[i] = FoldAngle(s.AngleDegrees())
	}

	return VoteAngles(angles), nil
}

// FoldAngle maps a segment orientation onto the nearest document axis.
func FoldAngle(deg float64) float64 {
	switch {
	case deg < -45:
		return deg + 90
	case deg > 45:
		return deg - 90
	default:
		return deg
	}
}

// Votes scores each angle by how many angles (itself included) lie within
// voteTolerance of it.
func Votes(angles []float64) []Candidate {
	out := make([]Candidate, len(angles))
	for i, a := range angles {
		count := 0
		for _, b := range angles {
			if d := a - b; d < voteTolerance && d > -voteTolerance {
				count++
			}
		}
		out[i] = Candidate{Angle: a, Score: float64(count)}
	}
	return out
}

// VoteAngles picks the first angle with the highest vote count. Every
// distinct angle sharing that count is reported as a candidate.
func VoteAngles(angles []float64) Result {
	if len(angles) == 0 {
		return Result{Status: NotAResult, Candidates: []float64{}}
	}

	votes := Votes(angles)
	best := 0
	for i, v := range votes {
		if v.Score > votes[best].Score {
			best = i
		}
	}

	candidates := []float64{}
	seen := make(map[float64]struct{})
	for _, v := range votes {
		if v.Score != votes[best].Score {
			continue
		}
		if _, dup := seen[v.Angle]; dup {
			continue
		}
		seen[v.Angle] = struct{}{}
		candidates = append(candidates, v.Angle)
	}

	res := Result{Angle: votes[best].Angle, Candidates: candidates}
	switch len(candidates) {
	case 0:
		res.Status = NotAResult
	case 1:
		res.Status = Believed
	default:
		res.Status = NeedCheck
	}
	return res
}
