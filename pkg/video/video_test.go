package video

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestValidateFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.ErrorIs(t, ValidateFrame(empty), ErrInvalidFrame)

	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()
	assert.ErrorIs(t, ValidateFrame(gray), ErrInvalidFrame)

	bgr := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer bgr.Close()
	assert.NoError(t, ValidateFrame(bgr))
}

func TestStillSource(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 8, 12, gocv.MatTypeCV8UC3)
	src := NewStillSource(img, 2)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, src.Next(&dst))
		assert.Equal(t, 12, dst.Cols())
		assert.Equal(t, 8, dst.Rows())
		v := dst.GetVecbAt(3, 3)
		assert.Equal(t, []uint8{10, 20, 30}, []uint8{v[0], v[1], v[2]})
	}
	assert.True(t, errors.Is(src.Next(&dst), io.EOF))
}

func TestStillSource_RejectsGray(t *testing.T) {
	src := NewStillSource(gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1), 0)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	assert.ErrorIs(t, src.Next(&dst), ErrInvalidFrame)
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile("/nonexistent/balance.m4v", true)
	assert.Error(t, err)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestPacer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewPacer(25)
	p.now = clock.now
	require.Equal(t, 40*time.Millisecond, p.Interval())

	assert.Equal(t, time.Millisecond, p.Wait(), "first frame")

	clock.t = clock.t.Add(15 * time.Millisecond)
	assert.Equal(t, 25*time.Millisecond, p.Wait())

	clock.t = clock.t.Add(60 * time.Millisecond)
	assert.Equal(t, time.Millisecond, p.Wait(), "late frames wait the minimum")

	// A clock running backwards cannot ask for more than one interval.
	clock.t = clock.t.Add(-time.Second)
	assert.Equal(t, 40*time.Millisecond, p.Wait())
}

func TestPacer_DefaultRate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewPacer(30.293694)
	p.now = clock.now

	p.Wait()
	clock.t = clock.t.Add(3 * time.Millisecond)
	assert.Equal(t, 30, p.WaitMillis())
}
