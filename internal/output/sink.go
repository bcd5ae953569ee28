// Package output delivers composited frames: a paced virtual camera sink and
// the shared latest-frame slot read by the preview.
package output

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrSinkNotOpen is returned when sending to a sink that has not been opened.
	ErrSinkNotOpen = errors.New("sink not open")
	// ErrSinkUnavailable is returned when the sink target cannot be opened.
	ErrSinkUnavailable = errors.New("sink unavailable")
)

// DefaultFPS is the target output rate.
const DefaultFPS = 30

// Sink receives composited frames in order.
type Sink interface {
	// Open prepares the sink for frames of the given geometry.
	Open(width, height, fps int) error

	// Send writes one frame. The sink must not retain frame after returning.
	Send(frame gocv.Mat) error

	// Close releases the sink. Safe to call more than once.
	Close() error
}
