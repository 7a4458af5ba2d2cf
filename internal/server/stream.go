package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// streamPeriod caps the MJPEG frame rate sent to each client.
const streamPeriod = 66 * time.Millisecond

// FrameStream serves the latest rendered frame as MJPEG. It is an
// app.FrameSink: the frame loop pushes frames and clients pull the newest.
type FrameStream struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewFrameStream creates an empty FrameStream.
func NewFrameStream() *FrameStream {
	return &FrameStream{}
}

// SetFrame encodes frame as JPEG and makes it the latest frame.
func (s *FrameStream) SetFrame(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)

	s.mu.Lock()
	s.jpeg = data
	s.seq++
	s.mu.Unlock()
}

// Latest returns the newest JPEG and its sequence number. seq is zero
// until the first frame arrives.
func (s *FrameStream) Latest() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg, s.seq
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (s *FrameStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPeriod)
	defer ticker.Stop()

	var sent uint64
	for {
		if data, seq := s.Latest(); seq != sent {
			if err := writePart(w, data); err != nil {
				return
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
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
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
