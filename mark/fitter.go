// Package mark fits the heading of thin marks (the dial mark and the beam
// pointer) inside small fixed regions of the frame.
package mark

import (
	"fmt"
	"image"
	"math"

	"balancecam/config"
	"balancecam/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Global debug function for mark package
var debugMsgFunc func(string, string)

// SetDebugFunction allows main package to provide debug function
func SetDebugFunction(fn func(string, string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Line is a fitted heading in full-frame coordinates.
type Line struct {
	Name string
	// Point lies on the line: the centroid of the foreground pixels.
	Point geometry.Point2
	// Direction is a unit vector with Y >= 0.
	Direction geometry.Point2
	// P1 and P2 are the drawn endpoints, Extent pixels either side of Point.
	P1, P2 image.Point
	// Valid is false until the first successful fit.
	Valid bool
	// Fresh is true when this frame produced the fit.
	Fresh bool
}

// Angle returns the heading in radians from the x axis, in [0, pi].
func (l Line) Angle() float64 {
	return math.Atan2(l.Direction.Y, l.Direction.X)
}

// Fitter fits one configured mark frame after frame. When a frame has no
// foreground pixels the previous line is kept.
type Fitter struct {
	cfg config.Mark
	roi image.Rectangle

	blurred gocv.Mat
	gray    gocv.Mat
	binary  gocv.Mat
	nonZero gocv.Mat

	last Line
}

// NewFitter creates a fitter for cfg. Call Close when done.
func NewFitter(cfg config.Mark) *Fitter {
	return &Fitter{
		cfg:     cfg,
		roi:     cfg.ROI.Rectangle(),
		blurred: gocv.NewMat(),
		gray:    gocv.NewMat(),
		binary:  gocv.NewMat(),
		nonZero: gocv.NewMat(),
		last:    Line{Name: cfg.Name},
	}
}

// ROI returns the fitted region in frame coordinates.
func (f *Fitter) ROI() image.Rectangle {
	return f.roi
}

// Fit processes one frame.
func (f *Fitter) Fit(frame gocv.Mat) Line {
	f.last.Fresh = false

	roi := geometry.Clip(f.roi, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if roi.Empty() {
		return f.last
	}

	region := frame.Region(roi)
	defer region.Close()

	typ := gocv.ThresholdBinary
	if f.cfg.Invert {
		typ = gocv.ThresholdBinaryInv
	}

	gocv.Blur(region, &f.blurred, image.Pt(f.cfg.BlurWidth, 1))
	gocv.CvtColor(f.blurred, &f.gray, gocv.ColorBGRToGray)
	gocv.Threshold(f.gray, &f.binary, float32(f.cfg.Threshold), 255, typ)

	if gocv.CountNonZero(f.binary) == 0 {
		debugMsg("MARK", fmt.Sprintf("%s: no foreground, keeping previous line", f.cfg.Name))
		return f.last
	}

	gocv.FindNonZero(f.binary, &f.nonZero)
	pts := make([]image.Point, f.nonZero.Rows())
	for i := range pts {
		v := f.nonZero.GetVeciAt(i, 0)
		pts[i] = image.Pt(int(v[0]), int(v[1]))
	}

	point, dir, ok := FitLine(pts)
	if !ok {
		return f.last
	}

	point.X += float64(roi.Min.X)
	point.Y += float64(roi.Min.Y)
	e := f.cfg.Extent
	f.last = Line{
		Name:      f.cfg.Name,
		Point:     point,
		Direction: dir,
		P1:        image.Pt(int(math.Round(point.X-e*dir.X)), int(math.Round(point.Y-e*dir.Y))),
		P2:        image.Pt(int(math.Round(point.X+e*dir.X)), int(math.Round(point.Y+e*dir.Y))),
		Valid:     true,
		Fresh:     true,
	}
	return f.last
}

// Last returns the most recent line without processing a frame.
func (f *Fitter) Last() Line {
	return f.last
}

// Close releases the scratch buffers.
func (f *Fitter) Close() {
	f.blurred.Close()
	f.gray.Close()
	f.binary.Close()
	f.nonZero.Close()
}

// FitLine fits a least-squares line through pts: the centroid and the
// principal axis of the point cloud. Needs at least two points.
func FitLine(pts []image.Point) (point, dir geometry.Point2, ok bool) {
	if len(pts) < 2 {
		return point, dir, false
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	data := make([]float64, 0, 2*len(pts))
	for i, p := range pts {
		xs[i], ys[i] = float64(p.X), float64(p.Y)
		data = append(data, xs[i], ys[i])
	}

	var pc stat.PC
	if !pc.PrincipalComponents(mat.NewDense(len(pts), 2, data), nil) {
		return point, dir, false
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	dir = geometry.Point2{X: vecs.At(0, 0), Y: vecs.At(1, 0)}
	if n := dir.Norm(); n > 0 {
		dir = geometry.Point2{X: dir.X / n, Y: dir.Y / n}
	}
	if math.Abs(dir.Y) < 1e-12 {
		dir.Y = 0
	}
	if dir.Y < 0 || (dir.Y == 0 && dir.X < 0) {
		dir = geometry.Point2{X: -dir.X, Y: -dir.Y}
	}

	point = geometry.Point2{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
	return point, dir, true
}
