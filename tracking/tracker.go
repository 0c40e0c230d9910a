package tracking

import (
	"fmt"
	"image"

	"balancecam/config"
	"balancecam/geometry"

	"gocv.io/x/gocv"
)

// Global debug function for tracking package
var debugMsgFunc func(string, string)

// SetDebugFunction allows main package to provide debug function
func SetDebugFunction(fn func(string, string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// FiducialTracker alternates between searching for the fiducial and trusting
// the last fix. Once found, the next SkipFrames-1 frames run no detection;
// the frame after that re-verifies the fix in a window around it. A failed
// re-verification widens the next search to the whole frame.
type FiducialTracker struct {
	locator Locator
	skip    int
	margin  float64

	state   State
	pending image.Rectangle // next search region; empty means full frame
}

// NewFiducialTracker creates a tracker using locator for detection.
func NewFiducialTracker(locator Locator, cfg config.Fiducial) *FiducialTracker {
	return &FiducialTracker{
		locator: locator,
		skip:    cfg.SkipFrames,
		margin:  cfg.SearchMargin,
		state:   State{Mode: ModeUnresolved},
		pending: cfg.InitialRegion.Rectangle(),
	}
}

// State returns the current estimate.
func (t *FiducialTracker) State() State {
	return t.state
}

// Update advances the tracker by one frame.
func (t *FiducialTracker) Update(frame gocv.Mat) Result {
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())

	if t.state.Mode == ModeValid {
		t.state.Skip++
		if t.state.Skip < t.skip {
			return Result{State: t.state}
		}

		t.state.Skip = 0
		t.state.Mode = ModeUnresolved
		t.pending = geometry.Expand(t.state.Position, t.state.Size, t.margin)
		debugMsg("TRACKER", fmt.Sprintf("Re-verifying fiducial near %v", t.state.Position))
	}

	roi := bounds
	if !t.pending.Empty() {
		roi = geometry.Clip(t.pending, bounds)
	}

	fix, ok := t.locator.Locate(frame, roi)
	if !ok {
		if t.pending.Empty() {
			debugMsg("TRACKER", "Fiducial not found in full frame")
		} else {
			debugMsg("TRACKER", fmt.Sprintf("Fiducial lost in %v, widening to full frame", roi))
		}
		t.pending = image.Rectangle{}
		return Result{State: t.state, Searched: true, ROI: roi}
	}

	t.state = State{Mode: ModeValid, Position: fix.Center, Size: fix.Size}
	t.pending = image.Rectangle{}
	return Result{State: t.state, Searched: true, ROI: roi}
}

// Reset drops the current fix so the next Update searches the full frame.
func (t *FiducialTracker) Reset() {
	t.state = State{Mode: ModeUnresolved}
	t.pending = image.Rectangle{}
}
