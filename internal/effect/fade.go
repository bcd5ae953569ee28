// Package effect implements the dissolve effect: the fade state machine,
// the median background model and the per-pixel compositor.
package effect

import (
	"sync"

	"github.com/pkg/errors"
)

const (
	// DefaultFadeStep is the alpha decrement applied per frame while fading.
	DefaultFadeStep = 0.04

	// DetectThreshold is the alpha above which gesture detection runs.
	DetectThreshold = 0.9

	// alphaEpsilon absorbs float drift so 1/step steps always reach zero.
	alphaEpsilon = 1e-9
)

// ErrInvalidFadeStep is returned for fade steps outside (0, 1].
var ErrInvalidFadeStep = errors.New("fade step must be in (0, 1]")

// Phase names the fade state machine states.
type Phase string

const (
	PhaseReady  Phase = "ready"
	PhaseFading Phase = "fading"
	PhaseGone   Phase = "gone"
)

// FadeState is a snapshot of the fade controller.
type FadeState struct {
	Phase  Phase   `json:"phase"`
	Alpha  float64 `json:"alpha"`
	Fading bool    `json:"fading"`
}

// Fade owns the subject opacity. Alpha starts at 1, only decreases while
// fading and never leaves [0, 1]. Progress is per frame, not wall clock,
// so fade duration is ceil(1/step) frames.
type Fade struct {
	mu     sync.Mutex
	step   float64
	alpha  float64
	fading bool
}

// NewFade creates a controller in the ready state.
func NewFade(step float64) (*Fade, error) {
	if step <= 0 || step > 1 {
		return nil, errors.Wrapf(ErrInvalidFadeStep, "got %v", step)
	}
	return &Fade{step: step, alpha: 1}, nil
}

// Trigger starts fading. It only takes effect while detection is allowed
// (see CanDetect) and reports whether the controller started fading.
func (f *Fade) Trigger() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.canDetect() {
		return false
	}
	f.fading = true
	return true
}

// Step advances an active fade by one frame. It reports true on the frame
// where alpha reaches zero and the fade completes.
func (f *Fade) Step() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.fading {
		return false
	}

	f.alpha -= f.step
	if f.alpha <= alphaEpsilon {
		f.alpha = 0
		f.fading = false
		return true
	}
	return false
}

// Reset returns to the ready state with full opacity.
func (f *Fade) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alpha = 1
	f.fading = false
}

// Alpha returns the current subject opacity.
func (f *Fade) Alpha() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alpha
}

// Fading reports whether a fade is in progress.
func (f *Fade) Fading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fading
}

// CanDetect reports whether the subject is fully present and not dissolving.
func (f *Fade) CanDetect() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canDetect()
}

func (f *Fade) canDetect() bool {
	return f.alpha > DetectThreshold && !f.fading
}

// Active reports whether frames need compositing against the background.
func (f *Fade) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fading || f.alpha < 1
}

// StepSize returns the per frame alpha decrement.
func (f *Fade) StepSize() float64 {
	return f.step
}

// State returns a consistent snapshot.
func (f *Fade) State() FadeState {
	f.mu.Lock()
	defer f.mu.Unlock()

	phase := PhaseReady
	switch {
	case f.fading:
		phase = PhaseFading
	case f.alpha <= 0:
		phase = PhaseGone
	}

	return FadeState{Phase: phase, Alpha: f.alpha, Fading: f.fading}
}
