package tracking

import (
	"image"

	"balancecam/detection"

	"gocv.io/x/gocv"
)

// Mode represents the current mode of the fiducial tracker
type Mode int

const (
	ModeUnresolved Mode = iota
	ModeValid
)

func (m Mode) String() string {
	switch m {
	case ModeUnresolved:
		return "UNRESOLVED"
	case ModeValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// State is the fiducial estimate carried from frame to frame.
type State struct {
	Mode     Mode
	Position image.Point // last confirmed center, full-frame pixels
	Size     image.Point // last confirmed bounding size
	Skip     int         // frames since the last confirmation
}

// Result reports what one Update did.
type Result struct {
	State State
	// Searched is true when detection ran on this frame.
	Searched bool
	// ROI is the region searched, empty when Searched is false.
	ROI image.Rectangle
}

// Locator finds the fiducial inside a region of a frame.
type Locator interface {
	Locate(frame gocv.Mat, roi image.Rectangle) (detection.Fix, bool)
}
