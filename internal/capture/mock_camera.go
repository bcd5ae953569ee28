package capture

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing.
// Frames are mirrored on read like a real device.
type MockCamera struct {
	frames    []*gocv.Mat
	index     int
	loop      bool
	mu        sync.Mutex
	running   bool
	openErr   error
	failEvery int
	delay     time.Duration
	fps       int
	reads     int
	opens     int
	closes    int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	c.opens++
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.closes++
	}
	c.running = false
	return nil
}

// ReadFrame returns the next frame. A configured read delay is spent after
// the read is counted, like a device blocking on the next exposure.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	frame, delay, err := c.read()
	if delay > 0 {
		time.Sleep(delay)
	}
	return frame, err
}

func (c *MockCamera) read() (*gocv.Mat, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, 0, ErrCameraNotOpen
	}

	c.reads++
	if c.failEvery > 0 && c.reads%c.failEvery == 0 {
		return nil, c.delay, ErrReadFailed
	}

	if len(c.frames) == 0 {
		return nil, c.delay, errors.Wrap(ErrReadFailed, "no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, c.delay, errors.Wrap(ErrReadFailed, "no more frames")
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	Mirror(&frame)
	return &frame, c.delay, nil
}

// Size reports the dimensions of the first frame, or the defaults.
func (c *MockCamera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return DefaultWidth, DefaultHeight
	}
	return c.frames[0].Cols(), c.frames[0].Rows()
}

// SetFPS records the requested rate. Values less than or equal to 0 are ignored.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// SetOpenError makes subsequent Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// FailEvery makes every n-th read fail with ErrReadFailed. Zero disables.
func (c *MockCamera) FailEvery(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failEvery = n
}

// SetReadDelay makes every read take at least d.
func (c *MockCamera) SetReadDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

// Reads returns the number of read attempts while open.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Opens returns the number of successful Open calls.
func (c *MockCamera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Closes returns how many times an open camera was released.
func (c *MockCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
