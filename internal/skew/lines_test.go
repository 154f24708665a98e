package skew

import (
	"testing"

	"docskew/internal/opencv/safe"
	"docskew/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestFoldAngle(t *testing.T) {
	assert.Equal(t, 0.0, FoldAngle(0))
	assert.Equal(t, 45.0, FoldAngle(45))
	assert.Equal(t, -45.0, FoldAngle(-45))
	assert.InDelta(t, 2.0, FoldAngle(92), 1e-12)
	assert.InDelta(t, -3.0, FoldAngle(-93), 1e-12)
	assert.InDelta(t, -7.0, FoldAngle(83), 1e-12)
}

func TestVotes(t *testing.T) {
	votes := Votes([]float64{1.0, 1.05, 1.2, 5})
	require.Len(t, votes, 4)
	assert.Equal(t, 2.0, votes[0].Score)
	assert.Equal(t, 2.0, votes[1].Score)
	assert.Equal(t, 1.0, votes[2].Score)
	assert.Equal(t, 1.0, votes[3].Score)
}

func TestVoteAnglesBelieved(t *testing.T) {
	res := VoteAngles([]float64{-7, -7, -7, 3, 3.02, 80})
	assert.Equal(t, Believed, res.Status)
	assert.Equal(t, -7.0, res.Angle)
	assert.Equal(t, []float64{-7}, res.Candidates)
}

func TestVoteAnglesTie(t *testing.T) {
	res := VoteAngles([]float64{2, 2, -4, -4})
	assert.Equal(t, NeedCheck, res.Status)
	assert.Equal(t, 2.0, res.Angle)
	assert.Equal(t, []float64{2, -4}, res.Candidates)

	res = VoteAngles([]float64{-7, -7.02, 10})
	assert.Equal(t, NeedCheck, res.Status)
	assert.Equal(t, -7.0, res.Angle)
	assert.Equal(t, []float64{-7, -7.02}, res.Candidates)
}

func TestVoteAnglesEmpty(t *testing.T) {
	res := VoteAngles(nil)
	assert.Equal(t, NotAResult, res.Status)
	assert.Empty(t, res.Candidates)
}

func TestEstimateLinesBlankPage(t *testing.T) {
	blank, err := safe.NewMatFilled(300, 300, gocv.MatTypeCV8UC3, 255, "blank")
	require.NoError(t, err)
	defer blank.Close()

	_, err = EstimateLines(blank, DefaultLineParams())
	assert.ErrorIs(t, err, ErrEmptyDetectionSet)
}

func TestEstimateLinesRotatedBars(t *testing.T) {
	page, err := synth.DefaultPage().DrawRotated(5)
	require.NoError(t, err)
	defer page.Close()

	res, err := EstimateLines(page, DefaultLineParams())
	require.NoError(t, err)
	assert.NotEqual(t, NotAResult, res.Status)
	assert.InDelta(t, -5.0, res.Angle, 0.6)
}

func TestEstimateSpectralBlankPage(t *testing.T) {
	blank, err := safe.NewMatFilled(128, 128, gocv.MatTypeCV8UC1, 255, "blank")
	require.NoError(t, err)
	defer blank.Close()

	_, err = EstimateSpectral(blank, DefaultSpectralParams())
	assert.ErrorIs(t, err, ErrEmptyDetectionSet)
}

func TestEstimateSpectralRotatedPage(t *testing.T) {
	// The spectrum streak is one pixel wide at the origin and the Hough
	// transform works in whole degrees, so a degree either way is accepted.
	const tolerance = 1.0

	for _, degrees := range []float64{3, -5} {
		page, err := synth.DefaultPage().DrawRotated(degrees)
		require.NoError(t, err)

		res, err := EstimateSpectral(page, DefaultSpectralParams())
		page.Close()
		require.NoError(t, err, "rotation %v", degrees)
		assert.NotEqual(t, NotAResult, res.Status, "rotation %v", degrees)
		assert.InDelta(t, -degrees, res.Angle, tolerance, "rotation %v", degrees)
	}
}

func TestEstimateSpectralRejectsBadParams(t *testing.T) {
	blank, err := safe.NewMatFilled(16, 16, gocv.MatTypeCV8UC1, 255, "blank")
	require.NoError(t, err)
	defer blank.Close()

	p := DefaultSpectralParams()
	p.CannyLow = -1
	_, err = EstimateSpectral(blank, p)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
