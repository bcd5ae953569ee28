package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

// Service operations.
const (
	opHands   = "hands"
	opSegment = "segment"
)

// idleTimeout is how long the Python service may sit unused before it is stopped.
const idleTimeout = 30 * time.Second

// maxMessageSize bounds a single response frame.
const maxMessageSize = 64 << 20

// ErrScriptNotFound is returned when the MediaPipe service script cannot be located.
var ErrScriptNotFound = errors.New("byechat_service.py not found")

// MediaPipeDetector implements Detector and Segmenter using a Python MediaPipe subprocess.
//
// Wire protocol, both directions: 4-byte big-endian length followed by a
// msgpack document. Requests carry raw RGB pixels; segmentation replies carry
// the mask as little-endian float32 values, row major.
type MediaPipeDetector struct {
	config    Config
	command   func() *exec.Cmd
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

type request struct {
	Op     string `msgpack:"op"`
	Width  int    `msgpack:"width"`
	Height int    `msgpack:"height"`
	Pixels []byte `msgpack:"pixels"`
}

type response struct {
	Hands  []wireHand `msgpack:"hands"`
	Width  int        `msgpack:"width"`
	Height int        `msgpack:"height"`
	Mask   []byte     `msgpack:"mask"`
	Error  string     `msgpack:"error"`
}

type wireHand struct {
	Points     []wirePoint `msgpack:"points"`
	Handedness string      `msgpack:"handedness"`
	Score      float64     `msgpack:"score"`
}

type wirePoint struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
	Z float64 `msgpack:"z"`
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first use.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, errors.Wrap(ErrScriptNotFound, scriptPath)
	}

	pythonPath := config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d := &MediaPipeDetector{config: config}
	d.command = func() *exec.Cmd {
		cmd := exec.Command(pythonPath, scriptPath)
		cmd.Env = append(os.Environ(), serviceEnv(config)...)
		return cmd
	}
	return d, nil
}

func serviceEnv(config Config) []string {
	return []string{
		"BYECHAT_MAX_HANDS=" + strconv.Itoa(config.MaxHands),
		"BYECHAT_MIN_CONFIDENCE=" + strconv.FormatFloat(config.MinConfidence, 'f', -1, 64),
		"BYECHAT_MODEL_SELECTION=" + strconv.Itoa(config.ModelSelection),
	}
}

// Detect analyzes an RGB frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	resp, err := d.roundTrip(opHands, frame)
	if err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, len(resp.Hands))
	for i, h := range resp.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// Segment analyzes an RGB frame and returns the person probability mask.
func (d *MediaPipeDetector) Segment(frame *gocv.Mat) (gocv.Mat, error) {
	resp, err := d.roundTrip(opSegment, frame)
	if err != nil {
		return gocv.NewMat(), err
	}

	if resp.Width <= 0 || resp.Height <= 0 || len(resp.Mask) != resp.Width*resp.Height*4 {
		return gocv.NewMat(), fmt.Errorf("malformed mask: %dx%d with %d bytes", resp.Width, resp.Height, len(resp.Mask))
	}

	view, err := gocv.NewMatFromBytes(resp.Height, resp.Width, gocv.MatTypeCV32FC1, resp.Mask)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "build mask")
	}
	defer view.Close()

	mask := view.Clone()
	runtime.KeepAlive(resp.Mask)
	return mask, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) roundTrip(op string, frame *gocv.Mat) (*response, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	payload, err := msgpack.Marshal(&request{
		Op:     op,
		Width:  frame.Cols(),
		Height: frame.Rows(),
		Pixels: frame.ToBytes(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	if err := writeMessage(d.stdin, payload); err != nil {
		d.shutdown()
		return nil, errors.Wrap(err, "write request")
	}

	data, err := readMessage(d.stdout)
	if err != nil {
		d.shutdown()
		return nil, errors.Wrap(err, "read response")
	}

	var resp response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "parse response")
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", resp.Error)
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return &resp, nil
}

func writeMessage(w io.Writer, payload []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := w.Write(length); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readMessage(r io.Reader) ([]byte, error) {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(length)
	if n > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", n)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	cmd := d.command()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "create stdin pipe")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "create stdout pipe")
	}

	// Capture stderr for debugging
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start mediapipe service")
	}

	log.Debug().Int("pid", cmd.Process.Pid).Msg("mediapipe service started")

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if time.Since(d.lastUsed) < idleTimeout {
			return
		}
		if err := d.shutdown(); err != nil {
			log.Debug().Err(err).Msg("mediapipe service exited")
		}
	})
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/byechat_service.py",
		"../scripts/byechat_service.py",
		filepath.Join(execDir, "scripts/byechat_service.py"),
		filepath.Join(os.Getenv("HOME"), ".byechat/scripts/byechat_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	// Get executable directory to find project root
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".byechat/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

func (h wireHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
