package pipeline

import (
	"sync"
	"time"

	"lpr-service/internal/domain/anpr"
)

type LiveStatus struct {
	Running       bool                 `json:"running"`
	SessionID     string               `json:"session_id,omitempty"`
	Source        string               `json:"source,omitempty"`
	Frames        int64                `json:"frames"`
	Detections    int64                `json:"detections"`
	LastDetection *anpr.DetectionEvent `json:"last_detection,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// LiveState is written by the processor and read by HTTP handlers.
type LiveState struct {
	mu     sync.RWMutex
	status LiveStatus
	frame  []byte
	seq    int64
}

func NewLiveState() *LiveState {
	return &LiveState{}
}

func (s *LiveState) start(sessionID, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = LiveStatus{Running: true, SessionID: sessionID, Source: source, UpdatedAt: time.Now()}
}

func (s *LiveState) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.UpdatedAt = time.Now()
}

func (s *LiveState) frameDone(n int64, jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Frames = n
	s.status.UpdatedAt = time.Now()
	if jpeg != nil {
		s.frame = jpeg
		s.seq++
	}
}

func (s *LiveState) detected(ev anpr.DetectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Detections++
	s.status.LastDetection = &ev
}

func (s *LiveState) Status() LiveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Frame returns the last rendered JPEG and its sequence number. The slice
// must not be modified.
func (s *LiveState) Frame() ([]byte, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.seq
}
