package output

import (
	"sync"

	"gocv.io/x/gocv"
)

// LatestFrame is a single-slot, last-write-wins holder shared between the
// pipeline (writer) and the preview (reader). Frames are copied in and out;
// the lock only covers the swap and the copy-out.
type LatestFrame struct {
	mu    sync.Mutex
	frame *gocv.Mat
	seq   uint64
}

// NewLatestFrame returns an empty slot.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{}
}

// Store copies frame into the slot, replacing any previous frame, and
// returns its sequence number.
func (l *LatestFrame) Store(frame gocv.Mat) uint64 {
	clone := frame.Clone()

	l.mu.Lock()
	prev := l.frame
	l.frame = &clone
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return seq
}

// Load returns a copy of the newest frame and its sequence number.
// ok is false when no frame has been stored. The caller owns the copy.
func (l *LatestFrame) Load() (frame gocv.Mat, seq uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frame == nil {
		return gocv.NewMat(), 0, false
	}
	return l.frame.Clone(), l.seq, true
}

// Seq returns the sequence number of the newest frame, zero if none.
func (l *LatestFrame) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Clear empties the slot. The sequence keeps counting.
func (l *LatestFrame) Clear() {
	l.mu.Lock()
	prev := l.frame
	l.frame = nil
	l.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}
