package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval paces the MJPEG stream at about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// FrameSource provides the most recent JPEG-encoded camera frame.
// seq changes whenever a new frame is available.
type FrameSource interface {
	LatestJPEG() (data []byte, seq uint64, ok bool)
}

// StreamHandler serves MJPEG frames published by the pipeline.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: DefaultStreamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		data, seq, ok := h.frames.LatestJPEG()
		if ok && seq != last {
			last = seq

			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
			if _, err := w.Write(data); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
