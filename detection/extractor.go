package detection

import (
	"gocv.io/x/gocv"
)

// Contours is one extraction pass: the traced boundaries plus their
// two-level nesting. It is only valid until Close.
type Contours struct {
	Points gocv.PointsVector
	// Parent holds the enclosing contour index, or -1 for an outside contour.
	Parent []int
}

// Len returns the number of contours.
func (c *Contours) Len() int {
	return len(c.Parent)
}

// At returns contour i. The vector is owned by c.
func (c *Contours) At(i int) gocv.PointVector {
	return c.Points.At(i)
}

// IsOutside reports whether contour i has no parent.
func (c *Contours) IsOutside(i int) bool {
	return c.Parent[i] < 0
}

// Children returns the indexes of the contours directly inside contour i.
func (c *Contours) Children(i int) []int {
	var kids []int
	for j, p := range c.Parent {
		if p == i {
			kids = append(kids, j)
		}
	}
	return kids
}

// Close releases the contour storage.
func (c *Contours) Close() {
	c.Points.Close()
}

// Extractor turns a frame region into contours: median blur, bilateral
// smoothing, grayscale, fixed threshold, then tracing with full hierarchy and
// no point approximation.
//
// The scratch Mats are reused between calls and fully overwritten each time.
// An Extractor is not safe for concurrent use. Call Close when done.
type Extractor struct {
	threshold float32

	median    gocv.Mat
	smoothed  gocv.Mat
	gray      gocv.Mat
	binary    gocv.Mat
	hierarchy gocv.Mat
}

// NewExtractor creates an extractor binarizing at threshold (0-255).
func NewExtractor(threshold float64) *Extractor {
	return &Extractor{
		threshold: float32(threshold),
		median:    gocv.NewMat(),
		smoothed:  gocv.NewMat(),
		gray:      gocv.NewMat(),
		binary:    gocv.NewMat(),
		hierarchy: gocv.NewMat(),
	}
}

// Extract traces the contours of a BGR region. With invert set, dark pixels
// are foreground. A uniform or empty region yields an empty result.
func (e *Extractor) Extract(region gocv.Mat, invert bool) *Contours {
	if region.Empty() {
		return &Contours{Points: gocv.NewPointsVector()}
	}

	typ := gocv.ThresholdBinary
	if invert {
		typ = gocv.ThresholdBinaryInv
	}

	gocv.MedianBlur(region, &e.median, 3)
	gocv.BilateralFilter(e.median, &e.smoothed, 5, 75, 75)
	gocv.CvtColor(e.smoothed, &e.gray, gocv.ColorBGRToGray)
	gocv.Threshold(e.gray, &e.binary, e.threshold, 255, typ)

	points := gocv.FindContoursWithParams(e.binary, &e.hierarchy, gocv.RetrievalCComp, gocv.ChainApproxNone)

	n := points.Size()
	parents := make([]int, n)
	for i := 0; i < n; i++ {
		// hierarchy entries are [next, previous, first child, parent]
		parents[i] = int(e.hierarchy.GetVeciAt(0, i)[3])
	}

	return &Contours{Points: points, Parent: parents}
}

// Binary returns the last thresholded image. It is overwritten by the next
// call to Extract.
func (e *Extractor) Binary() gocv.Mat {
	return e.binary
}

// Close releases the scratch buffers.
func (e *Extractor) Close() {
	e.median.Close()
	e.smoothed.Close()
	e.gray.Close()
	e.binary.Close()
	e.hierarchy.Close()
}
