package config

import (
	"image"
	"math"
)

// Default returns the constants used with the balance.m4v recordings.
//
// The fiducial templates are ellipses standing in for a calibrated key-zero
// ring seen at an angle; replace them with `balancecam calibrate` output for
// a real dial. A perfect circle has no major axis, so the axis alignment
// check cannot hold for one.
func Default() Config {
	outer := ellipseTemplate(24, 16, 64)
	inner := ellipseTemplate(12, 8, 48)

	return Config{
		Fiducial: Fiducial{
			SkipFrames:       5,
			SearchMargin:     0.75,
			Threshold:        100,
			MinEllipsePoints: 5,
			Outer:            outer,
			Inner:            inner,
			Tolerances: Tolerances{
				MatchScore:    0.10,
				Aspect:        0.10,
				AreaRatio:     0.10,
				AxisDelta:     0.1,
				Concentricity: 0.10,
			},
		},
		Beam: Beam{
			Strip:          Rect{X: 735, Y: 240, W: 16, H: 480},
			Subdivisions:   120,
			WindowFraction: 0.27,
		},
		Marks: []Mark{
			{
				Name:      "mark",
				ROI:       RectFrom(image.Rect(445, 425, 499, 525)),
				Invert:    true,
				BlurWidth: 50,
				Threshold: 100,
				Extent:    50,
			},
			{
				Name:      "pointer",
				ROI:       RectFrom(image.Rect(527, 425, 581, 525)),
				Invert:    false,
				BlurWidth: 50,
				Threshold: 100,
				Extent:    50,
			},
		},
		Overlay: Overlay{
			Fiducial:  "#ff0000",
			Beam:      "#ff0000",
			MarkLine:  "#00ff00",
			MarkROI:   "#ff0000",
			Selection: "#00ff00",
			Text:      "#ffffff",
		},
		Video: Video{
			FPS: 30.293694,
		},
	}
}

// ellipseTemplate samples an axis-aligned ellipse with semi-axes a >= b.
// Hull area is the polygon area of the samples.
func ellipseTemplate(a, b float64, samples int) Template {
	pts := make([]image.Point, samples)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / float64(samples)
		pts[i] = image.Pt(
			int(math.Round(a+a*math.Cos(t))),
			int(math.Round(b+b*math.Sin(t))),
		)
	}
	return Template{
		Points:      pts,
		AspectRatio: a / b,
		HullArea:    polygonArea(pts),
	}
}

// polygonArea is the shoelace area of a closed polygon.
func polygonArea(pts []image.Point) float64 {
	var sum int
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(float64(sum)) / 2
}
