package geometry

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Point2 is a sub-pixel point.
type Point2 struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point2) Sub(q Point2) Point2 {
	return Point2{p.X - q.X, p.Y - q.Y}
}

// Norm returns the euclidean length of p as a vector.
func (p Point2) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// OrientedRect is a rotated rectangle described the way OpenCV's RotatedRect
// is: center, side lengths and rotation in degrees.
type OrientedRect struct {
	Center Point2
	Width  float64
	Height float64
	Angle  float64 // degrees
}

// FromRotatedRect converts a gocv rotated rectangle (from MinAreaRect or
// FitEllipse) into an OrientedRect.
func FromRotatedRect(r gocv.RotatedRect) OrientedRect {
	return OrientedRect{
		Center: Point2{float64(r.Center.X), float64(r.Center.Y)},
		Width:  float64(r.Width),
		Height: float64(r.Height),
		Angle:  r.Angle,
	}
}

// Vertices returns the four corners in OpenCV order: consecutive vertices
// share an edge, so 0-1 and 0-3 are the two adjacent edges of vertex 0.
func (r OrientedRect) Vertices() [4]Point2 {
	rad := r.Angle * math.Pi / 180
	b := math.Cos(rad) * 0.5
	a := math.Sin(rad) * 0.5

	var pts [4]Point2
	pts[0] = Point2{
		X: r.Center.X - a*r.Height - b*r.Width,
		Y: r.Center.Y + b*r.Height - a*r.Width,
	}
	pts[1] = Point2{
		X: r.Center.X + a*r.Height - b*r.Width,
		Y: r.Center.Y - b*r.Height - a*r.Width,
	}
	pts[2] = Point2{2*r.Center.X - pts[0].X, 2*r.Center.Y - pts[0].Y}
	pts[3] = Point2{2*r.Center.X - pts[1].X, 2*r.Center.Y - pts[1].Y}
	return pts
}

// edges returns the two edge vectors leaving the given corner.
func (r OrientedRect) edges(corner int) (Point2, Point2) {
	v := r.Vertices()
	c := v[corner%4]
	return v[(corner+1)%4].Sub(c), v[(corner+3)%4].Sub(c)
}

// MajorSide returns the length of the longer side.
func (r OrientedRect) MajorSide() float64 {
	return math.Max(r.Width, r.Height)
}

// AspectRatio returns the ratio of the long edge to the short edge, so the
// major axis is always treated as the height and the result is >= 1.
// A rectangle with a zero-length edge yields +Inf.
func AspectRatio(r OrientedRect) float64 {
	return aspectAt(r, 0)
}

func aspectAt(r OrientedRect, corner int) float64 {
	e1, e2 := r.edges(corner)
	m1, m2 := e1.Norm(), e2.Norm()
	return math.Max(m1, m2) / math.Min(m1, m2)
}

// majorAxisAngle is the polar angle of the longer edge leaving vertex 0.
func majorAxisAngle(r OrientedRect) float64 {
	e1, e2 := r.edges(0)
	axis := e2
	if e1.Norm() > e2.Norm() {
		axis = e1
	}
	return math.Atan2(axis.Y, axis.X)
}

// MajorAxisDelta returns the acute angle in radians between the major axes of
// two rectangles. Axes are undirected so the result lies in [0, pi/2].
func MajorAxisDelta(a, b OrientedRect) float64 {
	d := majorAxisAngle(a) - majorAxisAngle(b)
	d = math.Abs(math.Atan2(math.Sin(d), math.Cos(d)))
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}

// CenterDistance is the euclidean distance between the centers of a and b.
func CenterDistance(a, b OrientedRect) float64 {
	return a.Center.Sub(b.Center).Norm()
}

// Expand returns the rectangle centered on center that extends margin times
// size beyond it in each direction.
func Expand(center, size image.Point, margin float64) image.Rectangle {
	dx := int(float64(size.X) * margin)
	dy := int(float64(size.Y) * margin)
	return image.Rect(center.X-dx, center.Y-dy, center.X+dx, center.Y+dy)
}

// Clip restricts r to bounds. The result is empty when they do not overlap.
func Clip(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}
