package overlay

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"balancecam/beam"
	"balancecam/config"
	"balancecam/mark"
	"balancecam/pipeline"
	"balancecam/tracking"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var colorWhite = color.RGBA{255, 255, 255, 255}

func bgrAt(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func newCanvas(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 760, 800, gocv.MatTypeCV8UC3)
	require.False(t, m.Empty())
	return m
}

func TestNewRenderer_BadColor(t *testing.T) {
	cfg := config.Default()
	cfg.Overlay.MarkLine = "green"
	_, err := NewRenderer(cfg)
	assert.ErrorContains(t, err, "mark_line")
}

func TestDraw(t *testing.T) {
	r, err := NewRenderer(config.Default())
	require.NoError(t, err)

	img := newCanvas(t)
	defer img.Close()

	reading := pipeline.Reading{
		Frame: 7,
		Fiducial: tracking.Result{
			State: tracking.State{Mode: tracking.ModeValid, Position: image.Pt(300, 200), Size: image.Pt(90, 60)},
		},
		Beam:      beam.Window{Rect: image.Rect(735, 440, 751, 452)},
		BeamFound: true,
		Marks: []mark.Line{
			{Name: "mark", P1: image.Pt(470, 430), P2: image.Pt(470, 520), Valid: true},
			{Name: "pointer"},
		},
	}
	r.Draw(&img, reading)

	red := [3]uint8{0, 0, 255}
	green := [3]uint8{0, 255, 0}
	assert.Equal(t, red, bgrAt(img, 300, 200), "cross center")
	assert.Equal(t, red, bgrAt(img, 305, 205), "cross arm")
	assert.Equal(t, red, bgrAt(img, 743, 446), "beam fill")
	assert.Equal(t, green, bgrAt(img, 470, 475), "mark line")
	assert.Equal(t, red, bgrAt(img, 445, 475), "mark roi outline")
	assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(img, 550, 475), "invalid line not drawn")
}

func TestDraw_UnresolvedHasNoCross(t *testing.T) {
	r, err := NewRenderer(config.Default())
	require.NoError(t, err)
	r.ShowSearch = true

	img := newCanvas(t)
	defer img.Close()

	r.Draw(&img, pipeline.Reading{
		Fiducial: tracking.Result{
			State:    tracking.State{Mode: tracking.ModeUnresolved, Position: image.Pt(300, 200)},
			Searched: true,
			ROI:      image.Rect(100, 100, 200, 200),
		},
	})
	assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(img, 300, 200))
	assert.NotEqual(t, [3]uint8{0, 0, 0}, bgrAt(img, 100, 150), "search outline")
}

func TestDrawSelection(t *testing.T) {
	r, err := NewRenderer(config.Default())
	require.NoError(t, err)

	img := newCanvas(t)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(400, 400, 420, 420), colorWhite, -1)

	r.DrawSelection(&img, image.Rect(390, 390, 430, 430), 2)

	// The 20px white square lands at 20..60 inside the 80px inset.
	assert.Equal(t, [3]uint8{255, 255, 255}, bgrAt(img, 40, 40))
	assert.Equal(t, [3]uint8{0, 255, 0}, bgrAt(img, 0, 40), "inset border")
}

func TestSnapshot(t *testing.T) {
	img := newCanvas(t)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(10, 10, 20, 20), colorWhite, -1)

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, Snapshot(img, path))

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 800, saved.Bounds().Dx())
	assert.Equal(t, 760, saved.Bounds().Dy())
	r, g, b, _ := saved.At(15, 15).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}
