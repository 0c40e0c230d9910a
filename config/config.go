package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Rect is a JSON-friendly rectangle: top-left corner plus size.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// RectFrom converts an image.Rectangle to a Rect.
func RectFrom(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Template is a reference contour captured once during calibration.
type Template struct {
	Points      []image.Point `json:"points"`
	AspectRatio float64       `json:"aspect_ratio"`
	HullArea    float64       `json:"hull_area"`
}

// Tolerances bound each step of the fiducial shape check.
type Tolerances struct {
	MatchScore    float64 `json:"match_score"`
	Aspect        float64 `json:"aspect"`
	AreaRatio     float64 `json:"area_ratio"`
	AxisDelta     float64 `json:"axis_delta"`    // radians
	Concentricity float64 `json:"concentricity"` // fraction of the outer major side
}

// Fiducial configures the key-zero search and tracking policy.
type Fiducial struct {
	// InitialRegion restricts the very first search. Zero means full frame.
	InitialRegion    Rect       `json:"initial_region"`
	SkipFrames       int        `json:"skip_frames"`
	SearchMargin     float64    `json:"search_margin"`
	Threshold        float64    `json:"threshold"`
	MinEllipsePoints int        `json:"min_ellipse_points"`
	Outer            Template   `json:"outer"`
	Inner            Template   `json:"inner"`
	Tolerances       Tolerances `json:"tolerances"`
}

// AreaRatio is the calibrated outer/inner convex hull area ratio.
func (f Fiducial) AreaRatio() float64 {
	if f.Inner.HullArea == 0 {
		return 0
	}
	return f.Outer.HullArea / f.Inner.HullArea
}

// Beam configures the darkest-band search strip.
type Beam struct {
	Strip          Rect    `json:"strip"`
	Subdivisions   int     `json:"subdivisions"`
	WindowFraction float64 `json:"window_fraction"`
}

// RowsPerBand is the pixel height of one sub-band.
func (b Beam) RowsPerBand() int {
	return b.Strip.H / b.Subdivisions
}

// WindowBands is the sliding window width in sub-bands, at least one.
func (b Beam) WindowBands() int {
	w := int(math.Floor(float64(b.Subdivisions)*b.WindowFraction + 1e-9))
	if w < 1 {
		w = 1
	}
	return w
}

// Mark configures one line-fit region.
type Mark struct {
	Name      string  `json:"name"`
	ROI       Rect    `json:"roi"`
	Invert    bool    `json:"invert"`
	BlurWidth int     `json:"blur_width"`
	Threshold float64 `json:"threshold"`
	Extent    float64 `json:"extent"`
}

// Overlay holds annotation colors as hex strings.
type Overlay struct {
	Fiducial  string `json:"fiducial"`
	Beam      string `json:"beam"`
	MarkLine  string `json:"mark_line"`
	MarkROI   string `json:"mark_roi"`
	Selection string `json:"selection"`
	Text      string `json:"text"`
}

// Video holds frame source parameters.
type Video struct {
	FPS float64 `json:"fps"`
}

// Config is the complete, immutable set of constants the core needs.
// Components copy the parts they use at construction.
type Config struct {
	Fiducial Fiducial `json:"fiducial"`
	Beam     Beam     `json:"beam"`
	Marks    []Mark   `json:"marks"`
	Overlay  Overlay  `json:"overlay"`
	Video    Video    `json:"video"`
}

// Load reads a JSON config file over the defaults and validates it.
// Fields omitted from the file keep their default values.
func Load(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that every constant is usable.
func (c Config) Validate() error {
	f := c.Fiducial
	if f.SkipFrames < 1 {
		return fmt.Errorf("%w: fiducial.skip_frames must be >= 1, got %d", ErrInvalid, f.SkipFrames)
	}
	if f.SearchMargin <= 0 {
		return fmt.Errorf("%w: fiducial.search_margin must be > 0, got %v", ErrInvalid, f.SearchMargin)
	}
	if f.MinEllipsePoints < 5 {
		return fmt.Errorf("%w: fiducial.min_ellipse_points must be >= 5, got %d", ErrInvalid, f.MinEllipsePoints)
	}
	if len(f.Outer.Points) < 3 || len(f.Inner.Points) < 3 {
		return fmt.Errorf("%w: fiducial templates need at least 3 points", ErrInvalid)
	}
	if f.Outer.AspectRatio < 1 || f.Inner.AspectRatio < 1 {
		return fmt.Errorf("%w: template aspect ratios must be >= 1", ErrInvalid)
	}
	if f.Inner.HullArea <= 0 || f.Outer.HullArea <= 0 {
		return fmt.Errorf("%w: template hull areas must be > 0", ErrInvalid)
	}

	b := c.Beam
	if b.Subdivisions < 1 || b.Strip.W < 1 || b.Strip.H < b.Subdivisions {
		return fmt.Errorf("%w: beam strip %+v cannot hold %d sub-bands", ErrInvalid, b.Strip, b.Subdivisions)
	}
	if b.WindowFraction <= 0 || b.WindowBands() > b.Subdivisions {
		return fmt.Errorf("%w: beam.window_fraction %v out of range", ErrInvalid, b.WindowFraction)
	}

	for _, m := range c.Marks {
		if m.ROI.W < 1 || m.ROI.H < 1 {
			return fmt.Errorf("%w: mark %q has empty roi", ErrInvalid, m.Name)
		}
		if m.BlurWidth < 1 {
			return fmt.Errorf("%w: mark %q blur_width must be >= 1", ErrInvalid, m.Name)
		}
	}

	if c.Video.FPS <= 0 {
		return fmt.Errorf("%w: video.fps must be > 0", ErrInvalid)
	}
	return nil
}
