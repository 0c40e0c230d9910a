package detection

import (
	"balancecam/config"
	"balancecam/geometry"
)

// CheckID names one step of the fiducial shape check.
type CheckID int

const (
	CheckNone CheckID = iota
	CheckOuterScore
	CheckOuterAspect
	CheckHasChild
	CheckInnerShape
	CheckAreaRatio
	CheckAxisAlignment
	CheckConcentric
	CheckEllipsePoints
)

func (c CheckID) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckOuterScore:
		return "outer-score"
	case CheckOuterAspect:
		return "outer-aspect"
	case CheckHasChild:
		return "has-child"
	case CheckInnerShape:
		return "inner-shape"
	case CheckAreaRatio:
		return "area-ratio"
	case CheckAxisAlignment:
		return "axis-alignment"
	case CheckConcentric:
		return "concentric"
	case CheckEllipsePoints:
		return "ellipse-points"
	default:
		return "unknown"
	}
}

// Shape is what the checks measure on a candidate contour. Implementations
// are expected to compute each value at most once.
type Shape interface {
	// Score is the shape distance to the bound reference template.
	Score() float64
	Rect() geometry.OrientedRect
	HullArea() float64
	// Len is the number of contour points.
	Len() int
	// Child returns the nested hole contour, bound to the inner template.
	Child() (Shape, bool)
}

// Verdict is the outcome of evaluating one candidate.
type Verdict struct {
	Accepted bool
	// Failed is the first check that did not pass, CheckNone when accepted.
	Failed CheckID
}

type check struct {
	id   CheckID
	pass func(m *Matcher, s Shape) bool
}

// checks run in order, cheapest first. Only the first failure is reported.
var checks = []check{
	{CheckOuterScore, func(m *Matcher, s Shape) bool {
		return s.Score() <= m.tol.MatchScore
	}},
	{CheckOuterAspect, func(m *Matcher, s Shape) bool {
		return geometry.AspectRatio(s.Rect())-m.outerAspect <= m.tol.Aspect
	}},
	{CheckHasChild, func(m *Matcher, s Shape) bool {
		_, ok := s.Child()
		return ok
	}},
	{CheckInnerShape, func(m *Matcher, s Shape) bool {
		c, _ := s.Child()
		if c.Score() > m.tol.MatchScore {
			return false
		}
		return geometry.AspectRatio(c.Rect())-m.innerAspect <= m.tol.Aspect
	}},
	{CheckAreaRatio, func(m *Matcher, s Shape) bool {
		c, _ := s.Child()
		inner := c.HullArea()
		if inner <= 0 {
			return false
		}
		return s.HullArea()/inner-m.areaRatio <= m.tol.AreaRatio
	}},
	{CheckAxisAlignment, func(m *Matcher, s Shape) bool {
		c, _ := s.Child()
		return geometry.MajorAxisDelta(s.Rect(), c.Rect()) <= m.tol.AxisDelta
	}},
	{CheckConcentric, func(m *Matcher, s Shape) bool {
		c, _ := s.Child()
		outer := s.Rect()
		return geometry.CenterDistance(outer, c.Rect()) <= m.tol.Concentricity*outer.MajorSide()
	}},
	{CheckEllipsePoints, func(m *Matcher, s Shape) bool {
		return s.Len() >= m.minPoints
	}},
}

// Matcher decides whether a candidate is the key-zero fiducial: an outer
// ring matching the outer template with a concentric, aligned hole matching
// the inner template.
type Matcher struct {
	tol         config.Tolerances
	outerAspect float64
	innerAspect float64
	areaRatio   float64
	minPoints   int
}

// NewMatcher builds a matcher from the fiducial configuration.
func NewMatcher(cfg config.Fiducial) *Matcher {
	return &Matcher{
		tol:         cfg.Tolerances,
		outerAspect: cfg.Outer.AspectRatio,
		innerAspect: cfg.Inner.AspectRatio,
		areaRatio:   cfg.AreaRatio(),
		minPoints:   cfg.MinEllipsePoints,
	}
}

// Evaluate runs the checks against s, stopping at the first failure.
func (m *Matcher) Evaluate(s Shape) Verdict {
	for _, c := range checks {
		if !c.pass(m, s) {
			return Verdict{Failed: c.id}
		}
	}
	return Verdict{Accepted: true}
}
