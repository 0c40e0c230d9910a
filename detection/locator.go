package detection

import (
	"fmt"
	"image"

	"balancecam/config"
	"balancecam/geometry"

	"gocv.io/x/gocv"
)

// Fix is a confident fiducial location in full-frame coordinates.
type Fix struct {
	Center image.Point
	// Size is the bounding size of the ellipse fitted to the outer ring.
	Size image.Point
}

// Locator finds the key-zero fiducial inside a region of a frame.
type Locator struct {
	extractor *Extractor
	matcher   *Matcher
	outerRef  gocv.PointVector
	innerRef  gocv.PointVector
}

// NewLocator builds a locator from the fiducial configuration. Call Close
// when done.
func NewLocator(cfg config.Fiducial) *Locator {
	return &Locator{
		extractor: NewExtractor(cfg.Threshold),
		matcher:   NewMatcher(cfg),
		outerRef:  gocv.NewPointVectorFromPoints(cfg.Outer.Points),
		innerRef:  gocv.NewPointVectorFromPoints(cfg.Inner.Points),
	}
}

// Locate searches roi of frame. The first outside contour that passes every
// check wins; ok is false when none does or roi misses the frame.
func (l *Locator) Locate(frame gocv.Mat, roi image.Rectangle) (fix Fix, ok bool) {
	roi = geometry.Clip(roi, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if roi.Empty() {
		return Fix{}, false
	}

	region := frame.Region(roi)
	defer region.Close()

	contours := l.extractor.Extract(region, true)
	defer contours.Close()

	candidates := 0
	for i := 0; i < contours.Len(); i++ {
		if !contours.IsOutside(i) {
			continue
		}
		candidates++

		shape := newContourShape(contours, i, l.outerRef, &l.innerRef)
		v := l.matcher.Evaluate(shape)
		if !v.Accepted {
			continue
		}

		ellipse := gocv.FitEllipse(contours.At(i))
		fix = Fix{
			Center: ellipse.Center.Add(roi.Min),
			Size:   ellipse.BoundingRect.Size(),
		}
		debugMsg("LOCATE", fmt.Sprintf("Fiducial at %v size %v (contour %d of %d)", fix.Center, fix.Size, i, contours.Len()))
		return fix, true
	}

	debugMsg("LOCATE", fmt.Sprintf("No fiducial in %v (%d outside contours)", roi, candidates))
	return Fix{}, false
}

// Explain evaluates every outside contour in roi and returns the verdicts in
// contour order. Used by the config command to tune tolerances.
func (l *Locator) Explain(frame gocv.Mat, roi image.Rectangle) []Verdict {
	roi = geometry.Clip(roi, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if roi.Empty() {
		return nil
	}

	region := frame.Region(roi)
	defer region.Close()

	contours := l.extractor.Extract(region, true)
	defer contours.Close()

	var verdicts []Verdict
	for i := 0; i < contours.Len(); i++ {
		if contours.IsOutside(i) {
			verdicts = append(verdicts, l.matcher.Evaluate(newContourShape(contours, i, l.outerRef, &l.innerRef)))
		}
	}
	return verdicts
}

// Close releases the templates and scratch buffers.
func (l *Locator) Close() {
	l.extractor.Close()
	l.outerRef.Close()
	l.innerRef.Close()
}
