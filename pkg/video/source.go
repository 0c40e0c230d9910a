// Package video provides frame sources and playback pacing.
package video

import (
	"errors"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// Global debug function for video package
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

// ErrInvalidFrame is returned for frames that are empty or not 8-bit BGR.
var ErrInvalidFrame = errors.New("invalid frame")

// Source produces BGR frames of a stable size.
type Source interface {
	// Next reads the next frame into dst. It returns io.EOF when the source
	// is exhausted.
	Next(dst *gocv.Mat) error
	Close() error
}

// ValidateFrame rejects frames the processing core cannot use.
func ValidateFrame(frame gocv.Mat) error {
	if frame.Ptr() == nil || frame.Empty() {
		return fmt.Errorf("%w: empty", ErrInvalidFrame)
	}
	if frame.Rows() <= 0 || frame.Cols() <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, frame.Cols(), frame.Rows())
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: type %v, want 8UC3", ErrInvalidFrame, frame.Type())
	}
	return nil
}

// FileSource reads a video file, optionally starting over at end of stream.
type FileSource struct {
	path string
	loop bool
	vc   *gocv.VideoCapture

	frames int // frames read since the last open
	loops  int
}

// OpenFile opens a video file for reading.
func OpenFile(path string, loop bool) (*FileSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	debugMsg("VIDEO", fmt.Sprintf("Opened %s (%d frames at %.3f fps)", path,
		int(vc.Get(gocv.VideoCaptureFrameCount)), vc.Get(gocv.VideoCaptureFPS)))
	return &FileSource{path: path, loop: loop, vc: vc}, nil
}

// Next reads the next frame. A looping source rewinds at end of stream
// unless the file produced no frames at all.
func (s *FileSource) Next(dst *gocv.Mat) error {
	if ok := s.vc.Read(dst); !ok || dst.Empty() {
		if !s.loop || s.frames == 0 {
			return io.EOF
		}
		s.vc.Set(gocv.VideoCapturePosFrames, 0)
		s.frames = 0
		s.loops++
		debugMsg("VIDEO", fmt.Sprintf("End of %s, starting loop %d", s.path, s.loops))

		if ok := s.vc.Read(dst); !ok || dst.Empty() {
			return io.EOF
		}
	}
	s.frames++
	return ValidateFrame(*dst)
}

// FPS reports the container frame rate, 0 when unknown.
func (s *FileSource) FPS() float64 {
	return s.vc.Get(gocv.VideoCaptureFPS)
}

// FrameCount reports the number of frames in the file, 0 when unknown.
func (s *FileSource) FrameCount() int {
	return int(s.vc.Get(gocv.VideoCaptureFrameCount))
}

// Loops returns how many times the file has restarted.
func (s *FileSource) Loops() int {
	return s.loops
}

// Close releases the capture.
func (s *FileSource) Close() error {
	return s.vc.Close()
}

// StillSource repeats one image, for calibration and tests.
type StillSource struct {
	img   gocv.Mat
	limit int
	count int
}

// NewStillSource returns a source producing copies of img. A positive limit
// ends the source with io.EOF after that many frames. The source takes
// ownership of img.
func NewStillSource(img gocv.Mat, limit int) *StillSource {
	return &StillSource{img: img, limit: limit}
}

// OpenImage loads an image file as a still source.
func OpenImage(path string, limit int) (*StillSource, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("failed to read image %s", path)
	}
	return NewStillSource(img, limit), nil
}

func (s *StillSource) Next(dst *gocv.Mat) error {
	if s.limit > 0 && s.count >= s.limit {
		return io.EOF
	}
	s.count++
	s.img.CopyTo(dst)
	return ValidateFrame(*dst)
}

func (s *StillSource) Close() error {
	return s.img.Close()
}
