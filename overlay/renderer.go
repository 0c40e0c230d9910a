package overlay

import (
	"fmt"
	"image"
	"image/color"

	"balancecam/config"
	"balancecam/pipeline"
	"balancecam/tracking"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// debugMsgFunc is a function that will be set by main package to use unified logging
var debugMsgFunc func(component, message string)

// SetDebugFunction allows main package to provide the debug logger
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

// debugMsg is a wrapper that handles nil checks
func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Renderer handles visualization and overlay rendering
type Renderer struct {
	fiducialColor  color.RGBA
	beamColor      color.RGBA
	markLineColor  color.RGBA
	markROIColor   color.RGBA
	selectionColor color.RGBA
	textColor      color.RGBA
	searchColor    color.RGBA

	markROIs []image.Rectangle

	// ShowSearch outlines the region searched for the fiducial.
	ShowSearch bool
}

// parseColor turns a hex string like "#ff8800" into a drawing color.
func parseColor(field, hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("overlay.%s: %w", field, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// NewRenderer creates a renderer for the configured colors and mark regions.
func NewRenderer(cfg config.Config) (*Renderer, error) {
	r := &Renderer{}
	fields := []struct {
		name string
		hex  string
		dst  *color.RGBA
	}{
		{"fiducial", cfg.Overlay.Fiducial, &r.fiducialColor},
		{"beam", cfg.Overlay.Beam, &r.beamColor},
		{"mark_line", cfg.Overlay.MarkLine, &r.markLineColor},
		{"mark_roi", cfg.Overlay.MarkROI, &r.markROIColor},
		{"selection", cfg.Overlay.Selection, &r.selectionColor},
		{"text", cfg.Overlay.Text, &r.textColor},
	}
	for _, f := range fields {
		c, err := parseColor(f.name, f.hex)
		if err != nil {
			return nil, err
		}
		*f.dst = c
	}

	// Search outlines use a dimmer shade of the fiducial color.
	fc, _ := colorful.Hex(cfg.Overlay.Fiducial)
	dim := fc.BlendLab(colorful.Color{}, 0.5).Clamped()
	sr, sg, sb := dim.RGB255()
	r.searchColor = color.RGBA{R: sr, G: sg, B: sb, A: 255}

	for _, m := range cfg.Marks {
		r.markROIs = append(r.markROIs, m.ROI.Rectangle())
	}
	return r, nil
}

// Draw annotates img with one reading.
func (r *Renderer) Draw(img *gocv.Mat, reading pipeline.Reading) {
	if reading.BeamFound {
		gocv.Rectangle(img, reading.Beam.Rect, r.beamColor, -1)
	}

	for _, roi := range r.markROIs {
		gocv.Rectangle(img, roi, r.markROIColor, 1)
	}
	for _, line := range reading.Marks {
		if line.Valid {
			gocv.Line(img, line.P1, line.P2, r.markLineColor, 2)
		}
	}

	fid := reading.Fiducial
	if r.ShowSearch && fid.Searched {
		gocv.Rectangle(img, fid.ROI, r.searchColor, 1)
	}
	if fid.State.Mode == tracking.ModeValid {
		r.drawCross(img, fid.State.Position, 7, 3)
	}

	status := fmt.Sprintf("frame %d  %s", reading.Frame, fid.State.Mode)
	gocv.PutText(img, status, image.Pt(10, 25), gocv.FontHersheySimplex, 0.6, r.textColor, 2)
}

// drawCross draws an X of half-size arm centered on c.
func (r *Renderer) drawCross(img *gocv.Mat, c image.Point, arm, thickness int) {
	gocv.Line(img, image.Pt(c.X-arm, c.Y-arm), image.Pt(c.X+arm, c.Y+arm), r.fiducialColor, thickness)
	gocv.Line(img, image.Pt(c.X-arm, c.Y+arm), image.Pt(c.X+arm, c.Y-arm), r.fiducialColor, thickness)
}

// DrawSelection outlines sel and copies it, scaled by zoom, into the top-left
// corner of img as a picture-in-picture inset.
func (r *Renderer) DrawSelection(img *gocv.Mat, sel image.Rectangle, zoom float64) {
	sel = sel.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if sel.Empty() {
		return
	}

	inset := gocv.NewMat()
	defer inset.Close()

	src := img.Region(sel)
	gocv.Resize(src, &inset, image.Point{}, zoom, zoom, gocv.InterpolationNearestNeighbor)
	src.Close()

	dst := image.Rect(0, 0, inset.Cols(), inset.Rows()).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if dst.Empty() {
		return
	}
	if dst.Dx() != inset.Cols() || dst.Dy() != inset.Rows() {
		debugMsg("OVERLAY", fmt.Sprintf("Selection inset %dx%d cropped to %v", inset.Cols(), inset.Rows(), dst))
	}

	srcInset := inset.Region(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	target := img.Region(dst)
	srcInset.CopyTo(&target)
	srcInset.Close()
	target.Close()

	gocv.Rectangle(img, dst, r.selectionColor, 2)
	gocv.Rectangle(img, sel, r.selectionColor, 1)
}

// Snapshot writes img to path; the format follows the file extension.
func Snapshot(img gocv.Mat, path string) error {
	picture, err := img.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	if err := imaging.Save(picture, path); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", path, err)
	}
	debugMsg("OVERLAY", fmt.Sprintf("Snapshot saved to %s", path))
	return nil
}
