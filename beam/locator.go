// Package beam finds the moving indicator of the balance beam: the darkest
// band of a narrow vertical strip of the frame.
package beam

import (
	"fmt"
	"image"

	"balancecam/config"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// Global debug function for beam package
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

// Window is the darkest run of sub-bands in one frame.
type Window struct {
	// Index is the first sub-band of the window.
	Index int
	// Rect covers the window in full-frame pixels.
	Rect image.Rectangle
	// Score is the summed darkness of the window; lower is darker.
	Score float64
	// Profile holds one score per sub-band, top to bottom.
	Profile []float64
}

// Locator scores a fixed strip band by band and picks the darkest window.
type Locator struct {
	strip  image.Rectangle
	bands  int
	rows   int
	window int
}

// NewLocator creates a locator for the configured strip.
func NewLocator(cfg config.Beam) *Locator {
	return &Locator{
		strip:  cfg.Strip.Rectangle(),
		bands:  cfg.Subdivisions,
		rows:   cfg.RowsPerBand(),
		window: cfg.WindowBands(),
	}
}

// Strip returns the searched strip in frame coordinates.
func (l *Locator) Strip() image.Rectangle {
	return l.strip
}

// Locate returns the darkest window of frame. ok is false when the strip does
// not fit inside the frame.
func (l *Locator) Locate(frame gocv.Mat) (w Window, ok bool) {
	if !l.strip.In(image.Rect(0, 0, frame.Cols(), frame.Rows())) || frame.Channels() != 3 {
		debugMsg("BEAM", fmt.Sprintf("Strip %v outside %dx%d frame", l.strip, frame.Cols(), frame.Rows()))
		return Window{}, false
	}

	profile := l.Profile(frame)
	idx, score := DarkestWindow(profile, l.window)

	top := l.strip.Min.Y + idx*l.rows
	return Window{
		Index:   idx,
		Rect:    image.Rect(l.strip.Min.X, top, l.strip.Max.X, top+l.window*l.rows),
		Score:   score,
		Profile: profile,
	}, true
}

// Profile scores every sub-band as the mean over its pixels of B*G*R.
// The caller guarantees the strip lies inside frame.
func (l *Locator) Profile(frame gocv.Mat) []float64 {
	profile := make([]float64, l.bands)
	pixels := float64(l.rows * l.strip.Dx())

	for b := range profile {
		y0 := l.strip.Min.Y + b*l.rows
		var sum float64
		for y := y0; y < y0+l.rows; y++ {
			for x := l.strip.Min.X; x < l.strip.Max.X; x++ {
				v := frame.GetVecbAt(y, x)
				sum += float64(v[0]) * float64(v[1]) * float64(v[2])
			}
		}
		profile[b] = sum / pixels
	}
	return profile
}

// DarkestWindow slides a window of w entries over profile and returns the
// start index and sum of the smallest window. Every start from 0 to
// len(profile)-w is considered; ties go to the lowest index.
func DarkestWindow(profile []float64, w int) (int, float64) {
	if w < 1 || w > len(profile) {
		return 0, 0
	}

	best, bestSum := 0, floats.Sum(profile[:w])
	for i := 1; i+w <= len(profile); i++ {
		if s := floats.Sum(profile[i : i+w]); s < bestSum {
			best, bestSum = i, s
		}
	}
	return best, bestSum
}
