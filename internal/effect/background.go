package effect

import (
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrNoFrames is returned when a median is requested over zero frames.
	ErrNoFrames = errors.New("no frames to sample")
	// ErrFrameMismatch is returned when sampled frames differ in size or type.
	ErrFrameMismatch = errors.New("sampled frames differ in size or type")
)

// Background holds the optional reference image. Once set it is only ever
// replaced as a whole.
type Background struct {
	mu  sync.RWMutex
	mat *gocv.Mat
}

// NewBackground returns an empty background model.
func NewBackground() *Background {
	return &Background{}
}

// Set stores mat as the new background, taking ownership of it.
// The previous background, if any, is released.
func (b *Background) Set(mat gocv.Mat) {
	b.mu.Lock()
	prev := b.mat
	b.mat = &mat
	b.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

// Has reports whether a background has been captured.
func (b *Background) Has() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mat != nil
}

// With calls fn with the current background, or nil when unset.
// fn must not retain the Mat after returning.
func (b *Background) With(fn func(bg *gocv.Mat)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.mat)
}

// Clear drops the background.
func (b *Background) Clear() {
	b.mu.Lock()
	prev := b.mat
	b.mat = nil
	b.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

// Median computes the per-pixel, per-channel median of frames. With an even
// number of frames the two middle samples are averaged and truncated.
// The caller owns the returned Mat.
func Median(frames []gocv.Mat) (gocv.Mat, error) {
	if len(frames) == 0 {
		return gocv.NewMat(), ErrNoFrames
	}

	rows, cols, typ := frames[0].Rows(), frames[0].Cols(), frames[0].Type()
	if frames[0].Type() != gocv.MatTypeCV8UC3 && frames[0].Type() != gocv.MatTypeCV8UC1 {
		return gocv.NewMat(), errors.Wrapf(ErrFrameMismatch, "unsupported type %v", typ)
	}

	samples := make([][]byte, len(frames))
	for i, f := range frames {
		if f.Rows() != rows || f.Cols() != cols || f.Type() != typ {
			return gocv.NewMat(), errors.Wrapf(ErrFrameMismatch, "frame %d is %dx%d", i, f.Cols(), f.Rows())
		}
		samples[i] = f.ToBytes()
	}

	out := make([]byte, len(samples[0]))
	column := make([]int, len(frames))
	mid := len(frames) / 2

	for p := range out {
		for i := range samples {
			column[i] = int(samples[i][p])
		}
		sort.Ints(column)

		if len(column)%2 == 1 {
			out[p] = byte(column[mid])
		} else {
			out[p] = byte((column[mid-1] + column[mid]) / 2)
		}
	}

	view, err := gocv.NewMatFromBytes(rows, cols, typ, out)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "build median frame")
	}
	defer view.Close()

	// view aliases out; clone so the result owns its pixels
	median := view.Clone()
	runtime.KeepAlive(out)
	return median, nil
}
