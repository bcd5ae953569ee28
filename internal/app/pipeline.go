package app

import (
	"fmt"
	"time"

	"github.com/ayusman/byechat/internal/effect"
	"github.com/ayusman/byechat/internal/gesture"
	"gocv.io/x/gocv"
)

// run owns the session resources for its whole lifetime. The camera and the
// sink are released exactly once whichever way the loop ends.
func (a *App) run(s *session) {
	defer close(s.done)
	defer a.finish(s)

	s.camera.SetFPS(s.config.OutputFPS)
	if err := s.camera.Open(); err != nil {
		s.logger.Error().Err(err).Msg("camera unavailable")
		a.publish(s, Status{
			Kind:    StatusError,
			Error:   ErrorDeviceUnavailable,
			Message: fmt.Sprintf("Error: Cannot open Camera %d", s.config.CameraID),
		})
		return
	}
	defer func() {
		if err := s.camera.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("camera close failed")
		}
		s.logger.Info().Msg("physical camera released")
	}()
	s.logger.Info().Int("fps", s.camera.FPS()).Msg("physical camera opened")

	width, height := s.camera.Size()
	if err := s.sink.Open(width, height, s.config.OutputFPS); err != nil {
		s.logger.Error().Err(err).Msg("virtual camera unavailable")
		a.publish(s, Status{
			Kind:    StatusError,
			Error:   ErrorSinkUnavailable,
			Message: "Error: Cannot open virtual camera",
		})
		return
	}
	defer func() {
		if err := s.sink.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("virtual camera close failed")
		}
	}()

	a.publish(s, Status{Kind: StatusStarted, Message: "Ready. Scan background!"})
	a.loop(s)
}

// finish detaches s and drops its state.
func (a *App) finish(s *session) {
	a.mu.Lock()
	if a.current == s {
		a.current = nil
	}
	a.mu.Unlock()

	s.countingDown.Store(false)
	s.capturing.Store(false)
	s.background.Clear()
	a.latest.Clear()

	a.publish(s, Status{Kind: StatusStopped, Message: "Camera stopped"})
}

func (a *App) loop(s *session) {
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		frame, err := s.camera.ReadFrame()
		if err != nil {
			s.logger.Debug().Err(err).Msg("frame read failed")
			if !sleep(s.stop, s.config.ReadBackoff) {
				return
			}
			continue
		}

		if s.capturing.Load() {
			frame.Close()
			if !a.captureBackground(s) {
				return
			}
			continue
		}

		out := a.process(s, frame)
		frame.Close()

		ok := s.dist.Distribute(out, s.stop)
		out.Close()
		if !ok {
			return
		}
	}
}

// captureBackground samples consecutive frames into a new background. With
// no successful reads the session stays in capture mode and retries on the
// next iteration. It returns false if the session was stopped.
func (a *App) captureBackground(s *session) bool {
	n := s.config.BackgroundSamples
	if n < 1 {
		n = 1
	}

	samples := make([]gocv.Mat, 0, n)
	defer func() {
		for i := range samples {
			samples[i].Close()
		}
	}()

	for i := 0; i < n; i++ {
		frame, err := s.camera.ReadFrame()
		if err == nil {
			samples = append(samples, *frame)
		} else {
			s.logger.Debug().Err(err).Msg("background sample read failed")
		}

		select {
		case <-s.stop:
			return false
		default:
		}
	}

	if len(samples) == 0 {
		return true
	}

	median, err := effect.Median(samples)
	if err != nil {
		s.logger.Warn().Err(err).Msg("background median failed")
		return true
	}

	s.background.Set(median)
	s.fade.Reset()
	s.capturing.Store(false)

	s.logger.Info().Int("samples", len(samples)).Msg("background captured")
	a.publish(s, Status{Kind: StatusBackgroundReady, Message: "Background OK! Waiting for Peace Sign"})
	return true
}

// process runs detection, advances the fade and composites one frame.
// The caller owns the returned Mat.
func (a *App) process(s *session, frame *gocv.Mat) gocv.Mat {
	if !s.background.Has() {
		return frame.Clone()
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(*frame, &rgb, gocv.ColorBGRToRGB)

	if s.fade.CanDetect() && a.peaceSign(s, &rgb) && s.fade.Trigger() {
		a.publish(s, Status{Kind: StatusGestureDetected, Message: "BYE CHAT!"})
	}

	if !s.fade.Active() {
		return frame.Clone()
	}

	if s.fade.Step() {
		a.publish(s, Status{Kind: StatusFadeComplete, Message: "Gone."})
	}

	mask := a.segment(s, &rgb)
	if mask != nil {
		defer mask.Close()
	}

	alpha := s.fade.Alpha()
	var out gocv.Mat
	s.background.With(func(bg *gocv.Mat) {
		out = effect.Compose(*frame, bg, mask, alpha)
	})
	return out
}

// peaceSign reports whether any detected hand shows a peace sign. Detector
// failures count as no gesture.
func (a *App) peaceSign(s *session, rgb *gocv.Mat) bool {
	if s.detector == nil {
		return false
	}
	hands, err := s.detector.Detect(rgb)
	if err != nil {
		s.logger.Debug().Err(err).Msg("hand detection failed")
		return false
	}
	return gesture.AnyPeaceSign(hands)
}

// segment returns the person mask, or nil when segmentation fails, which
// composites as pure background.
func (a *App) segment(s *session, rgb *gocv.Mat) *gocv.Mat {
	if s.segmenter == nil {
		return nil
	}
	mask, err := s.segmenter.Segment(rgb)
	if err != nil {
		mask.Close()
		s.logger.Debug().Err(err).Msg("segmentation failed")
		return nil
	}
	return &mask
}

// sleep waits for d or until stop is closed, returning false on stop.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
