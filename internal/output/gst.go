package output

import (
	"fmt"
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"gocv.io/x/gocv"
)

// DefaultDevice is the v4l2loopback device the sink writes to.
const DefaultDevice = "/dev/video20"

// GstSink pushes BGR frames into a v4l2loopback device through GStreamer:
//
//	appsrc → videoconvert → v4l2sink
type GstSink struct {
	device string

	mu       sync.Mutex
	pipeline *gst.Pipeline
	src      *app.Source
	width    int
	height   int
}

// NewGstSink creates a sink writing to device.
func NewGstSink(device string) *GstSink {
	if device == "" {
		device = DefaultDevice
	}
	return &GstSink{device: device}
}

// Device returns the target device path.
func (s *GstSink) Device() string {
	return s.device
}

// Open builds and starts the pipeline.
func (s *GstSink) Open(width, height, fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != nil {
		return nil
	}
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrSinkUnavailable, "invalid geometry %dx%d", width, height)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return errors.Wrap(ErrSinkUnavailable, err.Error())
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return errors.Wrapf(ErrSinkUnavailable, "create appsrc: %v", err)
	}
	src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=BGR,width=%d,height=%d,framerate=%d/1", width, height, fps)))
	src.SetProperty("is-live", true)
	src.SetProperty("do-timestamp", true)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return errors.Wrapf(ErrSinkUnavailable, "create videoconvert: %v", err)
	}

	v4l2, err := gst.NewElement("v4l2sink")
	if err != nil {
		return errors.Wrapf(ErrSinkUnavailable, "create v4l2sink: %v", err)
	}
	v4l2.SetProperty("device", s.device)
	v4l2.SetProperty("sync", false)

	if err := pipeline.AddMany(src.Element, convert, v4l2); err != nil {
		return errors.Wrapf(ErrSinkUnavailable, "add elements: %v", err)
	}
	if err := gst.ElementLinkMany(src.Element, convert, v4l2); err != nil {
		return errors.Wrapf(ErrSinkUnavailable, "link elements: %v", err)
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return errors.Wrapf(ErrSinkUnavailable, "%s: %v", s.device, err)
	}

	s.pipeline = pipeline
	s.src = src
	s.width = width
	s.height = height

	log.Info().
		Str("device", s.device).
		Int("width", width).
		Int("height", height).
		Int("fps", fps).
		Msg("virtual camera opened")
	return nil
}

// Send pushes one frame. Frames whose size differs from the negotiated caps
// are resized first.
func (s *GstSink) Send(frame gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return ErrSinkNotOpen
	}
	if frame.Empty() {
		return errors.New("empty frame")
	}

	data := frameBytes(frame, s.width, s.height)
	if ret := s.src.PushBuffer(gst.NewBufferFromBytes(data)); ret != gst.FlowOK {
		return errors.Errorf("push buffer: %v", ret)
	}
	return nil
}

// Close stops the pipeline.
func (s *GstSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline == nil {
		return nil
	}

	s.src.EndStream()
	err := s.pipeline.SetState(gst.StateNull)
	s.pipeline = nil
	s.src = nil

	log.Info().Str("device", s.device).Msg("virtual camera closed")
	return err
}

func frameBytes(frame gocv.Mat, width, height int) []byte {
	if frame.Cols() == width && frame.Rows() == height {
		return frame.ToBytes()
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return resized.ToBytes()
}
