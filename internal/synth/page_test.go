package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPageDraw(t *testing.T) {
	img, err := DefaultPage().Draw()
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 400, img.Rows())
	assert.Equal(t, 400, img.Cols())
	assert.Equal(t, 3, img.Channels())

	gray := DefaultPage()
	gray.Color = false
	g, err := gray.Draw()
	require.NoError(t, err)
	defer g.Close()

	ink, err := g.GetUCharAt(54, 200)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), ink)

	paper, err := g.GetUCharAt(70, 200)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), paper)

	margin, err := g.GetUCharAt(54, 20)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), margin)
}

func TestDrawRotatedGrowsCanvas(t *testing.T) {
	img, err := DefaultPage().DrawRotated(7)
	require.NoError(t, err)
	defer img.Close()

	assert.Greater(t, img.Cols(), 400)
	assert.Greater(t, img.Rows(), 400)
}

func TestPageValidate(t *testing.T) {
	p := DefaultPage()
	p.Bars = 20
	assert.Error(t, p.Validate())

	p = DefaultPage()
	p.Right = 500
	assert.Error(t, p.Validate())

	p = DefaultPage()
	p.Width = 0
	assert.Error(t, p.Validate())

	assert.NoError(t, DefaultPage().Validate())
}
