package tracking

import (
	"image"
	"testing"

	"balancecam/config"
	"balancecam/detection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeLocator struct {
	found bool
	fix   detection.Fix
	rois  []image.Rectangle
}

func (f *fakeLocator) Locate(_ gocv.Mat, roi image.Rectangle) (detection.Fix, bool) {
	f.rois = append(f.rois, roi)
	return f.fix, f.found
}

func newFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	require.False(t, m.Empty())
	return m
}

func fiducialConfig() config.Fiducial {
	return config.Default().Fiducial
}

func TestTracker_ValidAfterOneSearch(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	loc := &fakeLocator{found: true, fix: detection.Fix{Center: image.Pt(300, 200), Size: image.Pt(40, 20)}}
	tr := NewFiducialTracker(loc, fiducialConfig())
	assert.Equal(t, ModeUnresolved, tr.State().Mode)

	res := tr.Update(frame)
	assert.True(t, res.Searched)
	assert.Equal(t, image.Rect(0, 0, 640, 480), res.ROI, "first search covers the whole frame")
	assert.Equal(t, State{Mode: ModeValid, Position: image.Pt(300, 200), Size: image.Pt(40, 20)}, res.State)
}

func TestTracker_SkipsThenReverifies(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	loc := &fakeLocator{found: true, fix: detection.Fix{Center: image.Pt(300, 200), Size: image.Pt(40, 20)}}
	tr := NewFiducialTracker(loc, fiducialConfig())
	tr.Update(frame)

	for i := 1; i <= 4; i++ {
		res := tr.Update(frame)
		assert.False(t, res.Searched, "idle frame %d", i)
		assert.Equal(t, ModeValid, res.State.Mode)
		assert.Equal(t, i, res.State.Skip)
	}
	require.Len(t, loc.rois, 1)

	res := tr.Update(frame)
	assert.True(t, res.Searched, "fifth frame re-runs detection")
	assert.Equal(t, image.Rect(270, 185, 330, 215), res.ROI)
	assert.Equal(t, ModeValid, res.State.Mode)
	assert.Zero(t, res.State.Skip)
	assert.Len(t, loc.rois, 2)
}

func TestTracker_LostFixWidensSearch(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	loc := &fakeLocator{found: true, fix: detection.Fix{Center: image.Pt(300, 200), Size: image.Pt(40, 20)}}
	tr := NewFiducialTracker(loc, fiducialConfig())
	tr.Update(frame)
	for i := 0; i < 4; i++ {
		tr.Update(frame)
	}

	loc.found = false
	res := tr.Update(frame)
	assert.True(t, res.Searched)
	assert.Equal(t, ModeUnresolved, res.State.Mode)
	assert.Equal(t, image.Pt(300, 200), res.State.Position, "last fix is kept")

	// Every following frame searches the full frame until found.
	for i := 0; i < 3; i++ {
		res = tr.Update(frame)
		assert.True(t, res.Searched)
		assert.Equal(t, image.Rect(0, 0, 640, 480), res.ROI)
		assert.Equal(t, ModeUnresolved, res.State.Mode)
	}
}

func TestTracker_ROIClippedToFrame(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	loc := &fakeLocator{found: true, fix: detection.Fix{Center: image.Pt(10, 470), Size: image.Pt(40, 40)}}
	tr := NewFiducialTracker(loc, fiducialConfig())
	for i := 0; i < 6; i++ {
		tr.Update(frame)
	}

	require.Len(t, loc.rois, 2)
	assert.Equal(t, image.Rect(0, 440, 40, 480), loc.rois[1])
}

func TestTracker_InitialRegion(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	cfg := fiducialConfig()
	cfg.InitialRegion = config.Rect{X: 100, Y: 100, W: 50, H: 50}

	loc := &fakeLocator{}
	tr := NewFiducialTracker(loc, cfg)

	tr.Update(frame)
	tr.Update(frame)
	require.Len(t, loc.rois, 2)
	assert.Equal(t, image.Rect(100, 100, 150, 150), loc.rois[0])
	assert.Equal(t, image.Rect(0, 0, 640, 480), loc.rois[1])
}

func TestTracker_Reset(t *testing.T) {
	frame := newFrame(t)
	defer frame.Close()

	loc := &fakeLocator{found: true, fix: detection.Fix{Center: image.Pt(300, 200), Size: image.Pt(40, 20)}}
	tr := NewFiducialTracker(loc, fiducialConfig())
	tr.Update(frame)
	tr.Reset()

	assert.Equal(t, ModeUnresolved, tr.State().Mode)
	res := tr.Update(frame)
	assert.True(t, res.Searched)
	assert.Equal(t, image.Rect(0, 0, 640, 480), res.ROI)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "VALID", ModeValid.String())
	assert.Equal(t, "UNRESOLVED", ModeUnresolved.String())
}
