// Package app runs the byechat session: it owns the camera, the dissolve
// effect state and the output sink, and exposes the control operations.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/byechat/internal/capture"
	"github.com/ayusman/byechat/internal/config"
	"github.com/ayusman/byechat/internal/detector"
	"github.com/ayusman/byechat/internal/effect"
	"github.com/ayusman/byechat/internal/output"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

var (
	// ErrNotRunning is returned by operations that need an active session.
	ErrNotRunning = errors.New("session not running")
	// ErrCaptureInProgress is returned when a background capture is already counting down or sampling.
	ErrCaptureInProgress = errors.New("background capture in progress")
	// ErrNoBackground is returned by Reset before a background was captured.
	ErrNoBackground = errors.New("no background captured")
)

// Config holds the session parameters.
type Config struct {
	CameraID          int
	CameraWidth       int
	CameraHeight      int
	OutputDevice      string
	OutputFPS         int
	FadeStep          float64
	BackgroundSamples int
	CountdownTicks    int
	CountdownTick     time.Duration
	ReadBackoff       time.Duration
	Detector          detector.Config
}

// DefaultConfig returns the standard session parameters.
func DefaultConfig() Config {
	return Config{
		CameraWidth:       capture.DefaultWidth,
		CameraHeight:      capture.DefaultHeight,
		OutputDevice:      output.DefaultDevice,
		OutputFPS:         output.DefaultFPS,
		FadeStep:          effect.DefaultFadeStep,
		BackgroundSamples: 5,
		CountdownTicks:    5,
		CountdownTick:     time.Second,
		ReadBackoff:       100 * time.Millisecond,
		Detector:          detector.DefaultConfig(),
	}
}

// ConfigFrom maps the loaded configuration onto session parameters.
func ConfigFrom(c *config.Config) Config {
	cfg := DefaultConfig()
	cfg.CameraID = c.Camera.DeviceIndex
	cfg.CameraWidth = c.Camera.Width
	cfg.CameraHeight = c.Camera.Height
	cfg.OutputDevice = c.Output.Device
	cfg.OutputFPS = c.Output.FPS
	cfg.FadeStep = c.Effect.FadeStep
	cfg.BackgroundSamples = c.Effect.BackgroundSamples
	cfg.CountdownTicks = c.Effect.CountdownTicks
	cfg.Detector = detector.Config{
		MaxHands:       c.Detector.MaxHands,
		MinConfidence:  c.Detector.MinConfidence,
		ModelSelection: c.Detector.ModelSelection,
		ScriptPath:     c.Detector.ScriptPath,
		PythonPath:     c.Detector.PythonPath,
	}
	return cfg
}

// State is a snapshot of the session for the control surfaces.
type State struct {
	Session             string           `json:"session,omitempty"`
	Running             bool             `json:"running"`
	CameraOpen          bool             `json:"camera_open"`
	CountingDown        bool             `json:"counting_down"`
	CapturingBackground bool             `json:"capturing_background"`
	HasBackground       bool             `json:"has_background"`
	Fade                effect.FadeState `json:"fade"`
	Frames              uint64           `json:"frames"`
	SendErrors          uint64           `json:"send_errors"`
}

// session is the state of one start→stop run. Everything in it is dropped
// when the run ends.
type session struct {
	id     string
	config Config
	stop   chan struct{}
	done   chan struct{}
	logger zerolog.Logger

	camera    capture.Camera
	sink      output.Sink
	detector  detector.Detector
	segmenter detector.Segmenter

	fade       *effect.Fade
	background *effect.Background
	dist       *output.Distributor

	countingDown atomic.Bool
	capturing    atomic.Bool
}

// App is the session controller shared by the tray, the HTTP API and the
// pipeline goroutine.
type App struct {
	mu        sync.RWMutex
	config    Config
	camera    capture.Camera
	sink      output.Sink
	ownCamera bool
	ownSink   bool
	detector  detector.Detector
	segmenter detector.Segmenter
	current   *session
	// last is the most recently started session, kept until its devices are released
	last *session

	latest *output.LatestFrame
	status *statusBus
}

// New creates an App. The MediaPipe service is used for detection and
// segmentation when available; otherwise gestures are never detected.
func New(config Config) *App {
	a := &App{
		config:    config,
		camera:    capture.NewCameraWithSize(config.CameraID, config.CameraWidth, config.CameraHeight),
		sink:      output.NewGstSink(config.OutputDevice),
		ownCamera: true,
		ownSink:   true,
		latest:    output.NewLatestFrame(),
		status:    newStatusBus(),
	}

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		a.segmenter = mp
		log.Info().Msg("using MediaPipe hand detection and segmentation")
	} else {
		log.Warn().Err(err).Msg("MediaPipe not available, gesture detection disabled")
		a.detector = detector.NewMockDetector()
		a.segmenter = detector.NewMockSegmenter(0)
	}

	return a
}

// SetCamera replaces the frame source used by the next session.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
	a.ownCamera = false
}

// SetSink replaces the output sink used by the next session.
func (a *App) SetSink(s output.Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = s
	a.ownSink = false
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetSegmenter sets the person segmentation implementation to use.
func (a *App) SetSegmenter(s detector.Segmenter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segmenter = s
}

// Configure updates the user adjustable parameters. They take effect on the
// next Start.
func (a *App) Configure(cameraID int, outputDevice string, fadeStep float64) error {
	if _, err := effect.NewFade(fadeStep); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.config.CameraID = cameraID
	a.config.OutputDevice = outputDevice
	a.config.FadeStep = fadeStep

	if a.ownCamera {
		a.camera = capture.NewCameraWithSize(cameraID, a.config.CameraWidth, a.config.CameraHeight)
	}
	if a.ownSink {
		a.sink = output.NewGstSink(outputDevice)
	}
	return nil
}

// Start begins a session. The camera and sink are opened by the pipeline
// goroutine; failures are reported as StatusError followed by StatusStopped.
// Starting a running session is a no-op. If a previous session is still
// releasing its devices, Start waits for it to finish first.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if a.current != nil {
			return nil
		}
		prev := a.last
		if prev == nil || closed(prev.done) {
			break
		}
		a.mu.Unlock()
		<-prev.done
		a.mu.Lock()
	}

	fade, err := effect.NewFade(a.config.FadeStep)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	s := &session{
		id:         id,
		config:     a.config,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     log.With().Str("session", id).Logger(),
		camera:     a.camera,
		sink:       a.sink,
		detector:   a.detector,
		segmenter:  a.segmenter,
		fade:       fade,
		background: effect.NewBackground(),
		dist:       output.NewDistributor(a.sink, a.config.OutputFPS, a.latest),
	}
	a.current = s
	a.last = s

	go a.run(s)

	s.logger.Info().Int("camera", a.config.CameraID).Str("output", a.config.OutputDevice).Msg("session starting")
	return nil
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Stop ends the running session and waits until the camera and sink are
// released, including when another caller already requested the stop.
// Stopping an idle App is a no-op.
func (a *App) Stop() {
	a.mu.Lock()
	s := a.current
	a.current = nil
	last := a.last
	a.mu.Unlock()

	if s != nil {
		close(s.stop)
	}
	if last != nil {
		<-last.done
	}
}

// Close stops any session and shuts down the inference collaborators.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.detector != nil {
		err = a.detector.Close()
	}
	if a.segmenter != nil && any(a.segmenter) != any(a.detector) {
		if serr := a.segmenter.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// TriggerBackgroundCapture starts the countdown after which the next frames
// are sampled into a new background.
func (a *App) TriggerBackgroundCapture() error {
	s := a.active()
	if s == nil {
		return ErrNotRunning
	}
	if s.capturing.Load() || !s.countingDown.CompareAndSwap(false, true) {
		return ErrCaptureInProgress
	}

	go a.countdown(s)
	return nil
}

// Reset brings the subject back to full opacity.
func (a *App) Reset() error {
	s := a.active()
	if s == nil {
		return ErrNotRunning
	}
	if !s.background.Has() {
		return ErrNoBackground
	}

	s.fade.Reset()
	a.publish(s, Status{Kind: StatusReset, Message: "Reset! Waiting for Peace sign"})
	return nil
}

// Running reports whether a session is active.
func (a *App) Running() bool {
	return a.active() != nil
}

// State returns a snapshot of the current session.
func (a *App) State() State {
	s := a.active()
	if s == nil {
		return State{Fade: effect.FadeState{Phase: effect.PhaseReady, Alpha: 1}}
	}

	stats := s.dist.Stats()
	return State{
		Session:             s.id,
		Running:             true,
		CameraOpen:          s.camera.IsOpen(),
		CountingDown:        s.countingDown.Load(),
		CapturingBackground: s.capturing.Load(),
		HasBackground:       s.background.Has(),
		Fade:                s.fade.State(),
		Frames:              stats.Frames,
		SendErrors:          stats.SendErrors,
	}
}

// Latest returns the slot holding the most recent composited frame.
func (a *App) Latest() *output.LatestFrame {
	return a.latest
}

func (a *App) active() *session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *App) countdown(s *session) {
	defer s.countingDown.Store(false)

	tick := s.config.CountdownTick
	for i := s.config.CountdownTicks; i > 0; i-- {
		a.publish(s, Status{Kind: StatusCountdown, Tick: i, Message: fmt.Sprintf("Move out! %d...", i)})

		timer := time.NewTimer(tick)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	// capturing is raised before countingDown drops so no second trigger slips in
	s.capturing.Store(true)
}
