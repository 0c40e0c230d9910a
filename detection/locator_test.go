package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"balancecam/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// ellipseTemplate samples an axis-aligned ellipse with semi-axes a and b.
func ellipseTemplate(a, b float64, samples int) config.Template {
	pts := make([]image.Point, samples)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / float64(samples)
		pts[i] = image.Pt(int(math.Round(a+a*math.Cos(t))), int(math.Round(b+b*math.Sin(t))))
	}
	return config.Template{Points: pts, AspectRatio: a / b, HullArea: math.Pi * a * b}
}

func ringFiducial() config.Fiducial {
	cfg := config.Default().Fiducial
	cfg.Outer = ellipseTemplate(50, 30, 96)
	cfg.Inner = ellipseTemplate(25, 15, 64)
	return cfg
}

// blankFrame returns a white BGR frame.
func blankFrame(t *testing.T, w, h int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC3)
	require.False(t, m.Empty())
	return m
}

// drawRing paints a dark elliptical ring with a light hole at center.
func drawRing(m *gocv.Mat, center image.Point) {
	gocv.Ellipse(m, center, image.Pt(50, 30), 0, 0, 360, black, -1)
	gocv.Ellipse(m, center, image.Pt(25, 15), 0, 0, 360, white, -1)
}

func TestLocator_FindsRing(t *testing.T) {
	frame := blankFrame(t, 200, 200)
	defer frame.Close()
	drawRing(&frame, image.Pt(100, 100))

	l := NewLocator(ringFiducial())
	defer l.Close()

	fix, ok := l.Locate(frame, image.Rect(0, 0, 200, 200))
	require.True(t, ok, "verdicts: %v", l.Explain(frame, image.Rect(0, 0, 200, 200)))
	assert.InDelta(t, 100, fix.Center.X, 2)
	assert.InDelta(t, 100, fix.Center.Y, 2)
	assert.InDelta(t, 101, fix.Size.X, 4)
	assert.InDelta(t, 61, fix.Size.Y, 4)
}

func TestLocator_AddsROIOffset(t *testing.T) {
	frame := blankFrame(t, 300, 240)
	defer frame.Close()
	drawRing(&frame, image.Pt(180, 140))

	l := NewLocator(ringFiducial())
	defer l.Close()

	fix, ok := l.Locate(frame, image.Rect(110, 90, 250, 200))
	require.True(t, ok)
	assert.InDelta(t, 180, fix.Center.X, 2)
	assert.InDelta(t, 140, fix.Center.Y, 2)
}

func TestLocator_RejectsDiskWithoutHole(t *testing.T) {
	frame := blankFrame(t, 200, 200)
	defer frame.Close()
	gocv.Ellipse(&frame, image.Pt(100, 100), image.Pt(50, 30), 0, 0, 360, black, -1)

	l := NewLocator(ringFiducial())
	defer l.Close()

	_, ok := l.Locate(frame, image.Rect(0, 0, 200, 200))
	assert.False(t, ok)

	verdicts := l.Explain(frame, image.Rect(0, 0, 200, 200))
	require.Len(t, verdicts, 1)
	assert.Equal(t, CheckHasChild, verdicts[0].Failed)
}

func TestLocator_NotFound(t *testing.T) {
	frame := blankFrame(t, 120, 80)
	defer frame.Close()

	l := NewLocator(ringFiducial())
	defer l.Close()

	_, ok := l.Locate(frame, image.Rect(0, 0, 120, 80))
	assert.False(t, ok, "uniform frame")

	_, ok = l.Locate(frame, image.Rect(500, 500, 600, 600))
	assert.False(t, ok, "roi outside frame")
}

func TestExtractor_Hierarchy(t *testing.T) {
	frame := blankFrame(t, 200, 200)
	defer frame.Close()
	drawRing(&frame, image.Pt(100, 100))

	e := NewExtractor(100)
	defer e.Close()

	c := e.Extract(frame, true)
	defer c.Close()

	require.Equal(t, 2, c.Len())
	outer := 0
	if !c.IsOutside(0) {
		outer = 1
	}
	assert.True(t, c.IsOutside(outer))
	assert.Equal(t, []int{1 - outer}, c.Children(outer))
	assert.Empty(t, c.Children(1-outer))
}

func TestExtractor_Empty(t *testing.T) {
	e := NewExtractor(100)
	defer e.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	c := e.Extract(empty, true)
	defer c.Close()
	assert.Zero(t, c.Len())
}
