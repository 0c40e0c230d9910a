package calibration

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"balancecam/config"
	"balancecam/detection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func ringPicture(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 240, 320, gocv.MatTypeCV8UC3)
	require.False(t, m.Empty())
	gocv.Ellipse(&m, image.Pt(160, 120), image.Pt(60, 36), 0, 0, 360, color.RGBA{0, 0, 0, 255}, -1)
	gocv.Ellipse(&m, image.Pt(160, 120), image.Pt(30, 18), 0, 0, 360, color.RGBA{255, 255, 255, 255}, -1)
	return m
}

func TestCaptureTemplates(t *testing.T) {
	frame := ringPicture(t)
	defer frame.Close()

	sel := image.Rect(80, 70, 240, 170)
	c, err := CaptureTemplates(frame, sel, 100)
	require.NoError(t, err)

	assert.Equal(t, sel, c.Selection)
	assert.InDelta(t, 60.0/36, c.Outer.AspectRatio, 0.05)
	assert.InDelta(t, 30.0/18, c.Inner.AspectRatio, 0.1)
	assert.Greater(t, c.AreaRatio(), 3.0)
	assert.Less(t, c.AreaRatio(), 4.5)
	assert.GreaterOrEqual(t, len(c.Outer.Points), 3)
}

func TestCaptureTemplates_RoundTrip(t *testing.T) {
	frame := ringPicture(t)
	defer frame.Close()

	c, err := CaptureTemplates(frame, image.Rect(80, 70, 240, 170), 100)
	require.NoError(t, err)

	cfg := Apply(config.Default(), c)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.Rect{X: 80, Y: 70, W: 160, H: 100}, cfg.Fiducial.InitialRegion)

	l := detection.NewLocator(cfg.Fiducial)
	defer l.Close()
	fix, ok := l.Locate(frame, cfg.Fiducial.InitialRegion.Rectangle())
	require.True(t, ok, "verdicts: %v", l.Explain(frame, cfg.Fiducial.InitialRegion.Rectangle()))
	assert.InDelta(t, 160, fix.Center.X, 2)
	assert.InDelta(t, 120, fix.Center.Y, 2)
}

func TestCaptureTemplates_NoRing(t *testing.T) {
	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer blank.Close()

	_, err := CaptureTemplates(blank, image.Rect(10, 10, 90, 90), 100)
	assert.True(t, errors.Is(err, ErrNoTemplate))

	_, err = CaptureTemplates(blank, image.Rect(200, 200, 300, 300), 100)
	assert.True(t, errors.Is(err, ErrNoTemplate))

	disk := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer disk.Close()
	gocv.Circle(&disk, image.Pt(50, 50), 30, color.RGBA{0, 0, 0, 255}, -1)
	_, err = CaptureTemplates(disk, image.Rect(0, 0, 100, 100), 100)
	assert.ErrorIs(t, err, ErrNoTemplate)
}

func TestLoadStill(t *testing.T) {
	frame := ringPicture(t)
	defer frame.Close()

	path := filepath.Join(t.TempDir(), "dial.png")
	require.True(t, gocv.IMWrite(path, frame))

	m, err := LoadStill(path, 0)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 320, m.Cols())
	assert.Equal(t, 240, m.Rows())
	assert.Equal(t, gocv.MatTypeCV8UC3, m.Type())

	small, err := LoadStill(path, 160)
	require.NoError(t, err)
	defer small.Close()
	assert.Equal(t, 160, small.Cols())
	assert.Equal(t, 120, small.Rows())

	_, err = LoadStill(filepath.Join(t.TempDir(), "missing.png"), 0)
	assert.Error(t, err)
}
