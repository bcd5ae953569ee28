package output

import (
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MockSink records frames for tests.
type MockSink struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	sendErr   error
	width     int
	height    int
	fps       int
	sent      int
	lastBytes []byte
	opens     int
	closes    int
}

// NewMockSink returns a closed mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// SetOpenError makes the next Open calls fail with err wrapped in ErrSinkUnavailable.
func (m *MockSink) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetSendError makes Send fail with err.
func (m *MockSink) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Open implements Sink.
func (m *MockSink) Open(width, height, fps int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return errors.Wrap(ErrSinkUnavailable, m.openErr.Error())
	}
	m.open = true
	m.width, m.height, m.fps = width, height, fps
	m.opens++
	return nil
}

// Send implements Sink.
func (m *MockSink) Send(frame gocv.Mat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrSinkNotOpen
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent++
	m.lastBytes = frame.ToBytes()
	return nil
}

// Close implements Sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		m.closes++
	}
	m.open = false
	return nil
}

// IsOpen reports whether the sink is open.
func (m *MockSink) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Sent returns the number of frames received.
func (m *MockSink) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// LastFrame returns the raw bytes of the last frame received.
func (m *MockSink) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.lastBytes...)
}

// Geometry returns the values passed to the last Open.
func (m *MockSink) Geometry() (width, height, fps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, m.fps
}

// Opens returns how many times the sink was opened.
func (m *MockSink) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how many times an open sink was closed.
func (m *MockSink) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
