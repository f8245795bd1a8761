package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const poseScript = "pose_service.py"

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New(poseScript + " not found")

// MediaPipeDetector runs MediaPipe Pose in a Python subprocess
// (scripts/pose_service.py). Frames go to its stdin as a 4-byte big-endian
// length followed by JPEG bytes; each frame is answered by one JSON line on
// stdout:
//
//	{"pose": null}
//	{"pose": {"score": 0.9, "points": [{"x", "y", "z", "visibility"} x33],
//	          "mask": {"width": 160, "height": 90, "data": "<base64>"}}}
//	{"error": "message"}
//
// Points are normalized to the frame. The mask is present only with
// Segmentation enabled; its data is base64 of Width*Height bytes, 255 where
// the person is. The process starts on the first frame, stops after
// IdleTimeout without frames and is restarted after a broken exchange.
type MediaPipeDetector struct {
	config Config
	python string
	script string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
	scaled    gocv.Mat
}

// NewMediaPipeDetector resolves the interpreter and script for config.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findPoseScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config: config,
		python: python,
		script: script,
		scaled: gocv.NewMat(),
	}, nil
}

// Detect runs pose inference on frame. It returns nil when nobody is found.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.encode(frame)
	if err != nil {
		return nil, err
	}
	if err := d.start(); err != nil {
		return nil, err
	}

	line, err := d.exchange(data)
	if err != nil {
		// The service died or lost sync; the next frame starts a fresh one.
		d.stop()
		return nil, err
	}
	d.resetIdleTimer()
	return parsePoseResponse(line)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.stop()
	d.scaled.Close()
	return err
}

func (d *MediaPipeDetector) encode(frame *gocv.Mat) ([]byte, error) {
	src := *frame
	if w := d.config.InputWidth; w > 0 && frame.Cols() > w {
		h := frame.Rows() * w / frame.Cols()
		gocv.Resize(*frame, &d.scaled, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		src = d.scaled
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, src)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	data := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(data, uint32(len(b)))
	copy(data[4:], b)
	return data, nil
}

func (d *MediaPipeDetector) exchange(data []byte) ([]byte, error) {
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

func (d *MediaPipeDetector) start() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command(d.python, append([]string{d.script}, serviceArgs(d.config)...)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}
	log.Printf("Pose service started (pid %d)", cmd.Process.Pid)

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func serviceArgs(c Config) []string {
	args := []string{
		"--model-complexity", strconv.Itoa(c.ModelComplexity),
		"--smooth", strconv.FormatBool(c.SmoothLandmarks),
		"--min-detection", strconv.FormatFloat(c.MinConfidence, 'f', 2, 64),
		"--min-tracking", strconv.FormatFloat(c.MinTrackingConf, 'f', 2, 64),
	}
	if c.Segmentation {
		args = append(args, "--segmentation", "--mask-width", strconv.Itoa(c.MaskWidth))
	}
	return args
}

func (d *MediaPipeDetector) stop() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.cmd == nil {
		return nil
	}

	// Closing stdin is the service's signal to exit.
	d.stdin.Close()
	err := d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Reset(d.config.IdleTimeout)
		return
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		log.Println("Pose service idle, stopping")
		d.stop()
	})
}

func findPoseScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	return firstExisting([]string{
		filepath.Join("scripts", poseScript),
		filepath.Join("..", "scripts", poseScript),
		filepath.Join(execDir, "scripts", poseScript),
		filepath.Join(os.Getenv("HOME"), ".howlong", "scripts", poseScript),
	})
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	return firstExisting([]string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".howlong/venv/bin/python"),
	})
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// poseResponse is one line emitted by the pose service. A null pose or a
// short points array means nobody was found in the frame.
type poseResponse struct {
	Pose *struct {
		Points []Landmark `json:"points"`
		Score  float64    `json:"score"`
		Mask   *Mask      `json:"mask"`
	} `json:"pose"`
	Error string `json:"error,omitempty"`
}

func parsePoseResponse(line []byte) (*Pose, error) {
	var resp poseResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}
	if resp.Pose == nil || len(resp.Pose.Points) < NumLandmarks {
		return nil, nil
	}

	pose := &Pose{Score: resp.Pose.Score}
	copy(pose.Points[:], resp.Pose.Points)
	if m := resp.Pose.Mask; m.Valid() {
		pose.Mask = m
	} else if m != nil {
		log.Printf("Dropping malformed segmentation mask (%dx%d, %d bytes)", m.Width, m.Height, len(m.Data))
	}
	return pose, nil
}
