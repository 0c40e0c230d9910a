// Package pipeline runs the fiducial tracker, the beam locator and the mark
// fitters over each frame and collects their outputs into one Reading.
package pipeline

import (
	"errors"
	"fmt"
	"image"

	"balancecam/beam"
	"balancecam/config"
	"balancecam/detection"
	"balancecam/mark"
	"balancecam/tracking"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned for frames that cannot be processed.
var ErrEmptyFrame = errors.New("empty or malformed frame")

// Reading is everything measured on one frame.
type Reading struct {
	Frame    int
	Fiducial tracking.Result
	Beam     beam.Window
	// BeamFound is false when the strip did not fit the frame.
	BeamFound bool
	Marks     []mark.Line
}

// Processor owns the per-frame components. It is not safe for concurrent use.
type Processor struct {
	locator *detection.Locator
	tracker *tracking.FiducialTracker
	beam    *beam.Locator
	fitters []*mark.Fitter

	frames int
}

// NewProcessor builds every component from cfg. Call Close when done.
func NewProcessor(cfg config.Config) *Processor {
	locator := detection.NewLocator(cfg.Fiducial)
	p := &Processor{
		locator: locator,
		tracker: tracking.NewFiducialTracker(locator, cfg.Fiducial),
		beam:    beam.NewLocator(cfg.Beam),
	}
	for _, m := range cfg.Marks {
		p.fitters = append(p.fitters, mark.NewFitter(m))
	}
	return p
}

// Process measures one BGR frame. The consumers do not see each other's
// output, so their order only fixes the order of the debug log.
func (p *Processor) Process(frame gocv.Mat) (Reading, error) {
	if frame.Empty() {
		return Reading{}, ErrEmptyFrame
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return Reading{}, fmt.Errorf("%w: type %v, want 8UC3", ErrEmptyFrame, frame.Type())
	}

	r := Reading{Frame: p.frames}
	p.frames++

	r.Fiducial = p.tracker.Update(frame)
	r.Beam, r.BeamFound = p.beam.Locate(frame)

	r.Marks = make([]mark.Line, len(p.fitters))
	for i, f := range p.fitters {
		r.Marks[i] = f.Fit(frame)
	}
	return r, nil
}

// Tracker exposes the fiducial tracker, e.g. to reset it on seek.
func (p *Processor) Tracker() *tracking.FiducialTracker {
	return p.tracker
}

// Locator exposes the fiducial locator for diagnostics.
func (p *Processor) Locator() *detection.Locator {
	return p.locator
}

// BeamStrip returns the strip searched by the beam locator.
func (p *Processor) BeamStrip() image.Rectangle {
	return p.beam.Strip()
}

// MarkROIs returns the fitted regions in mark order.
func (p *Processor) MarkROIs() []image.Rectangle {
	rois := make([]image.Rectangle, len(p.fitters))
	for i, f := range p.fitters {
		rois[i] = f.ROI()
	}
	return rois
}

// Frames returns the number of frames processed.
func (p *Processor) Frames() int {
	return p.frames
}

// Close releases every component.
func (p *Processor) Close() {
	p.locator.Close()
	for _, f := range p.fitters {
		f.Close()
	}
}
