package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes an RGB video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Segmenter defines the interface for person segmentation implementations.
type Segmenter interface {
	// Segment analyzes an RGB video frame and returns a single channel
	// float32 (CV32FC1) mask of foreground probabilities in [0,1], the
	// same size as the frame. The caller must close the returned Mat.
	Segment(frame *gocv.Mat) (gocv.Mat, error)

	// Close releases any resources held by the segmenter.
	Close() error
}

// Config holds configuration options for hand detection and segmentation.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ModelSelection picks the selfie segmentation model (0 general, 1 landscape).
	ModelSelection int

	// ScriptPath overrides the service script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:       1,
		MinConfidence:  0.7,
		ModelSelection: 0,
	}
}
