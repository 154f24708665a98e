package skew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceScoresSingleWinner(t *testing.T) {
	scores := []profileScore{{1, 1}, {5, 2}, {3, 9}, {2, 2}}
	res := reduceScores(scores, 2, 0.5)

	assert.Equal(t, Believed, res.Status)
	assert.Equal(t, -0.5, res.Angle)
	assert.Equal(t, []float64{-0.5}, res.Candidates)
}

func TestReduceScoresColumnBreaksRowTie(t *testing.T) {
	scores := []profileScore{{5, 1}, {5, 3}, {1, 9}}
	res := reduceScores(scores, 1, 1)

	assert.Equal(t, NeedCheck, res.Status)
	assert.Equal(t, 0.0, res.Angle)
	assert.Equal(t, []float64{0}, res.Candidates)
}

func TestReduceScoresFullTie(t *testing.T) {
	scores := []profileScore{{1, 1}, {5, 3}, {2, 2}, {5, 3}}
	res := reduceScores(scores, 2, 0.2)

	assert.Equal(t, NotAResult, res.Status)
	assert.Equal(t, 0.0, res.Angle)
	assert.InDeltaSlice(t, []float64{-0.2, 0.2}, res.Candidates, 1e-12)
}

func TestReduceScoresLaterMaxClearsTies(t *testing.T) {
	scores := []profileScore{{5, 3}, {5, 3}, {6, 1}}
	res := reduceScores(scores, 1, 1)

	assert.Equal(t, Believed, res.Status)
	assert.Equal(t, 1.0, res.Angle)
}

func TestReduceScoresBlankPage(t *testing.T) {
	scores := make([]profileScore, 6)
	res := reduceScores(scores, 3, 1)

	assert.Equal(t, NotAResult, res.Status)
	assert.Len(t, res.Candidates, 6)
}

func TestReduceScoresStatusInvariant(t *testing.T) {
	inputs := [][]profileScore{
		{{1, 1}},
		{{2, 2}, {2, 2}},
		{{1, 0}, {3, 1}, {3, 0}},
		{{0, 0}, {0, 1}, {0, 1}, {4, 4}},
	}
	for _, scores := range inputs {
		res := reduceScores(scores, len(scores)/2, 1)
		switch res.Status {
		case Believed, NeedCheck:
			assert.Len(t, res.Candidates, 1)
		case NotAResult:
			assert.NotEqual(t, 1, len(res.Candidates))
		}
	}
}
