// Package calibration captures the fiducial reference templates from a still
// picture of the dial.
package calibration

import (
	"errors"
	"fmt"
	"image"

	"balancecam/config"
	"balancecam/detection"
	"balancecam/geometry"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// ErrNoTemplate is returned when the selection holds no usable ring.
var ErrNoTemplate = errors.New("no ring contour in selection")

// Capture is the pair of templates measured from one selection.
type Capture struct {
	Selection image.Rectangle
	Outer     config.Template
	Inner     config.Template
}

// AreaRatio is the outer/inner hull area ratio of the capture.
func (c Capture) AreaRatio() float64 {
	return c.Outer.HullArea / c.Inner.HullArea
}

// LoadStill reads an image file into a BGR Mat, applying any EXIF
// orientation. A positive maxWidth scales wider pictures down to it.
func LoadStill(path string, maxWidth int) (gocv.Mat, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open %s: %w", path, err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert %s: %w", path, err)
	}
	return m, nil
}

// CaptureTemplates measures the ring inside sel: the convex hull of its
// largest outside contour becomes the outer template and the hull of that
// contour's largest hole the inner one.
func CaptureTemplates(frame gocv.Mat, sel image.Rectangle, threshold float64) (Capture, error) {
	sel = geometry.Clip(sel, image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if sel.Empty() {
		return Capture{}, fmt.Errorf("%w: selection outside frame", ErrNoTemplate)
	}

	region := frame.Region(sel)
	defer region.Close()

	e := detection.NewExtractor(threshold)
	defer e.Close()

	contours := e.Extract(region, true)
	defer contours.Close()

	outer, outerTpl := -1, config.Template{}
	for i := 0; i < contours.Len(); i++ {
		if !contours.IsOutside(i) {
			continue
		}
		tpl, ok := hullTemplate(contours.At(i))
		if ok && tpl.HullArea > outerTpl.HullArea {
			outer, outerTpl = i, tpl
		}
	}
	if outer < 0 {
		return Capture{}, fmt.Errorf("%w: no outside contour", ErrNoTemplate)
	}

	var innerTpl config.Template
	for _, k := range contours.Children(outer) {
		tpl, ok := hullTemplate(contours.At(k))
		if ok && tpl.HullArea > innerTpl.HullArea {
			innerTpl = tpl
		}
	}
	if innerTpl.HullArea == 0 {
		return Capture{}, fmt.Errorf("%w: outside contour has no hole", ErrNoTemplate)
	}

	return Capture{Selection: sel, Outer: outerTpl, Inner: innerTpl}, nil
}

// hullTemplate turns a contour into a template from its convex hull.
func hullTemplate(pv gocv.PointVector) (config.Template, bool) {
	if pv.Size() < 3 {
		return config.Template{}, false
	}

	hullMat := gocv.NewMat()
	defer hullMat.Close()
	gocv.ConvexHull(pv, &hullMat, false, true)

	hull := gocv.NewPointVectorFromMat(hullMat)
	defer hull.Close()
	if hull.Size() < 3 {
		return config.Template{}, false
	}

	area := gocv.ContourArea(hull)
	if area <= 0 {
		return config.Template{}, false
	}
	rect := geometry.FromRotatedRect(gocv.MinAreaRect(hull))

	return config.Template{
		Points:      hull.ToPoints(),
		AspectRatio: geometry.AspectRatio(rect),
		HullArea:    area,
	}, true
}

// Apply returns cfg with the captured templates and the selection as the
// initial search region.
func Apply(cfg config.Config, c Capture) config.Config {
	cfg.Fiducial.Outer = c.Outer
	cfg.Fiducial.Inner = c.Inner
	cfg.Fiducial.InitialRegion = config.RectFrom(c.Selection)
	return cfg
}
