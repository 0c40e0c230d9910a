package detection

import (
	"balancecam/geometry"

	"gocv.io/x/gocv"
)

// contourShape measures one traced contour against a reference template.
// Every measurement is computed on first use and then reused.
type contourShape struct {
	contours *Contours
	idx      int
	ref      gocv.PointVector
	// childRef is the template the nested hole is bound to. Zero for shapes
	// that are themselves holes.
	childRef *gocv.PointVector

	score     *float64
	rect      *geometry.OrientedRect
	hull      *float64
	childDone bool
	child     *contourShape
}

func newContourShape(c *Contours, idx int, ref gocv.PointVector, childRef *gocv.PointVector) *contourShape {
	return &contourShape{contours: c, idx: idx, ref: ref, childRef: childRef}
}

func (s *contourShape) points() gocv.PointVector {
	return s.contours.At(s.idx)
}

func (s *contourShape) Score() float64 {
	if s.score == nil {
		v := gocv.MatchShapes(s.ref, s.points(), gocv.ContoursMatchI3, 0)
		s.score = &v
	}
	return *s.score
}

func (s *contourShape) Rect() geometry.OrientedRect {
	if s.rect == nil {
		r := geometry.FromRotatedRect(gocv.MinAreaRect(s.points()))
		s.rect = &r
	}
	return *s.rect
}

func (s *contourShape) HullArea() float64 {
	if s.hull == nil {
		v := hullArea(s.points())
		s.hull = &v
	}
	return *s.hull
}

func (s *contourShape) Len() int {
	return s.points().Size()
}

// Child picks the largest hole directly inside the contour.
func (s *contourShape) Child() (Shape, bool) {
	if !s.childDone {
		s.childDone = true
		if s.childRef != nil {
			best, bestArea := -1, -1.0
			for _, k := range s.contours.Children(s.idx) {
				if a := gocv.ContourArea(s.contours.At(k)); a > bestArea {
					best, bestArea = k, a
				}
			}
			if best >= 0 {
				s.child = newContourShape(s.contours, best, *s.childRef, nil)
			}
		}
	}
	if s.child == nil {
		return nil, false
	}
	return s.child, true
}

// hullArea returns the area of the convex hull of pv.
func hullArea(pv gocv.PointVector) float64 {
	hull := gocv.NewMat()
	defer hull.Close()

	gocv.ConvexHull(pv, &hull, false, true)
	hullPoints := gocv.NewPointVectorFromMat(hull)
	defer hullPoints.Close()

	return gocv.ContourArea(hullPoints)
}
