package bench

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"docskew/internal/logger"
	"docskew/internal/opencv/codec"
	"docskew/internal/opencv/safe"
	"docskew/internal/skew"
	"docskew/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func grayPatch(t *testing.T, value float64) *safe.Mat {
	t.Helper()
	m, err := safe.NewMatFilled(32, 32, gocv.MatTypeCV8UC1, value, "patch")
	require.NoError(t, err)
	return m
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestGaussianZeroIsIdentity(t *testing.T) {
	src := grayPatch(t, 128)
	defer src.Close()

	out, err := AddGaussian(src, 0, 0, seeded())
	require.NoError(t, err)
	defer out.Close()

	want, _ := src.Bytes()
	got, _ := out.Bytes()
	assert.Equal(t, want, got)
}

func TestGaussianSaturates(t *testing.T) {
	src := grayPatch(t, 250)
	defer src.Close()

	out, err := AddGaussian(src, 300, 1, seeded())
	require.NoError(t, err)
	defer out.Close()

	data, _ := out.Bytes()
	for _, v := range data {
		require.Equal(t, uint8(255), v)
	}

	_, err = AddGaussian(src, 0, -1, seeded())
	assert.Error(t, err)
}

func TestGaussianSpread(t *testing.T) {
	src := grayPatch(t, 128)
	defer src.Close()

	out, err := AddGaussian(src, 0, 20, seeded())
	require.NoError(t, err)
	defer out.Close()

	data, _ := out.Bytes()
	changed := 0
	for _, v := range data {
		if v != 128 {
			changed++
		}
	}
	assert.Greater(t, changed, len(data)/2)
}

func TestSaltPepper(t *testing.T) {
	src := grayPatch(t, 128)
	defer src.Close()

	same, err := AddSaltPepper(src, 0, seeded())
	require.NoError(t, err)
	defer same.Close()
	data, _ := same.Bytes()
	for _, v := range data {
		require.Equal(t, uint8(128), v)
	}

	all, err := AddSaltPepper(src, 1, seeded())
	require.NoError(t, err)
	defer all.Close()
	data, _ = all.Bytes()
	salt, pepper := 0, 0
	for _, v := range data {
		switch v {
		case 0:
			pepper++
		case 255:
			salt++
		default:
			t.Fatalf("unexpected sample %d", v)
		}
	}
	assert.Greater(t, salt, 0)
	assert.Greater(t, pepper, 0)

	_, err = AddSaltPepper(src, 1.5, seeded())
	assert.Error(t, err)
}

func TestParseNoise(t *testing.T) {
	k, err := ParseNoise("gaussian")
	require.NoError(t, err)
	assert.Equal(t, NoiseGaussian, k)

	k, err = ParseNoise("sp")
	require.NoError(t, err)
	assert.Equal(t, NoiseSaltPepper, k)

	k, err = ParseNoise("")
	require.NoError(t, err)
	assert.Equal(t, NoiseNone, k)

	_, err = ParseNoise("pink")
	assert.Error(t, err)
}

func TestRunnerSyntheticPages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 2
	cfg.MaxRotation = 5
	cfg.Methods = []skew.Method{skew.MethodDefault, skew.MethodProjectionOnly, skew.MethodFourierOnly}
	cfg.Params.Projection.MaxAngle = 8

	report, err := NewRunner(logger.NewNop()).Run(context.Background(), cfg)
	require.NoError(t, err)

	// The spectral estimator resolves whole degrees of the Hough transform.
	maxError := map[skew.Method]float64{
		skew.MethodDefault:        0.5,
		skew.MethodProjectionOnly: 0.5,
		skew.MethodFourierOnly:    1.0,
	}

	assert.Equal(t, 2, report.Pages)
	require.Len(t, report.Methods, 3)
	for _, m := range report.Methods {
		assert.Equal(t, 2, m.Runs, m.Method.String())
		assert.Equal(t, m.Runs, m.Flagged+m.Failed+m.Error.Count, m.Method.String())
		if m.Error.Count > 0 {
			assert.Less(t, m.Error.Max, maxError[m.Method], m.Method.String())
		}
		assert.Greater(t, m.AverageTime.Nanoseconds(), int64(0))
	}
	assert.Equal(t, skew.MethodFourierOnly, report.Methods[2].Method)
}

func TestRunnerDatasetSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	page, err := synth.DefaultPage().Draw()
	require.NoError(t, err)
	require.NoError(t, codec.WriteFile(filepath.Join(dir, "page.png"), page, 100))
	page.Close()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "truncated.jpg"), []byte{0xff, 0xd8}, 0o644))

	cfg := DefaultConfig()
	cfg.Dataset = dir
	cfg.MaxRotation = 3
	cfg.Methods = []skew.Method{skew.MethodProjectionOnly}
	cfg.Params.Projection.MaxAngle = 5

	report, err := NewRunner(logger.NewNop()).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	require.Len(t, report.Methods, 1)
	assert.Equal(t, 1, report.Methods[0].Runs)
}

func TestRunnerRejectsConfig(t *testing.T) {
	r := NewRunner(nil)

	cfg := DefaultConfig()
	cfg.Methods = nil
	_, err := r.Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxRotation = 90
	_, err = r.Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Dataset = t.TempDir()
	_, err = r.Run(context.Background(), cfg)
	assert.Error(t, err)
}
