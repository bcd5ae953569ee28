package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/byechat/internal/output"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// StreamHandler serves the latest composited frame as an MJPEG stream.
// It polls the shared slot at its own cadence and never blocks the pipeline.
type StreamHandler struct {
	latest   *output.LatestFrame
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading latest at fps.
func NewStreamHandler(latest *output.LatestFrame, fps int) *StreamHandler {
	if fps <= 0 {
		fps = DefaultPreviewFPS
	}
	return &StreamHandler{
		latest:   latest,
		interval: time.Second / time.Duration(fps),
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		if h.latest.Seq() == lastSeq {
			continue
		}

		frame, seq, ok := h.latest.Load()
		if !ok {
			frame.Close()
			continue
		}
		lastSeq = seq

		data, err := encodeJPEG(frame)
		frame.Close()
		if err != nil {
			log.Debug().Err(err).Msg("preview encode failed")
			continue
		}

		if err := writePart(w, data); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

// SnapshotHandler serves the latest composited frame as a single JPEG.
type SnapshotHandler struct {
	latest *output.LatestFrame
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(latest *output.LatestFrame) *SnapshotHandler {
	return &SnapshotHandler{latest: latest}
}

// ServeHTTP writes the latest frame, or 404 when there is none.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame, _, ok := h.latest.Load()
	defer frame.Close()
	if !ok {
		http.Error(w, "No frame available", http.StatusNotFound)
		return
	}

	data, err := encodeJPEG(frame)
	if err != nil {
		http.Error(w, "Failed to encode frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func encodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close
	return append([]byte(nil), buf.GetBytes()...), nil
}
