// Package capture manages a live camera session: acquire the device stream,
// take still snapshots, and release the device on every exit path.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"greenlens/internal/models"
)

// Distinct, user-presentable acquisition failures. Device implementations
// wrap these so the session can map them to states and messages.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("no camera found on this device")
	ErrUnsupported      = errors.New("camera not supported on this device")
)

// Stream is an open camera feed. Frame returns the current frame at the
// stream's native resolution.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Device is a host-environment camera capability.
type Device interface {
	ID() string
	Open(ctx context.Context) (Stream, error)
}

type State int

const (
	StateIdle State = iota
	StateRequesting
	StateActive
	StateDenied
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateDenied:
		return "denied"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// activeDevices tracks which devices are held by an Active session. Only
// one session may hold a given device at a time.
var (
	activeMu      sync.Mutex
	activeDevices = map[string]struct{}{}
)

func acquireDevice(id string) bool {
	activeMu.Lock()
	defer activeMu.Unlock()
	if _, held := activeDevices[id]; held {
		return false
	}
	activeDevices[id] = struct{}{}
	return true
}

func releaseDevice(id string) {
	activeMu.Lock()
	defer activeMu.Unlock()
	delete(activeDevices, id)
}

type Session struct {
	mu     sync.Mutex
	device Device
	stream Stream
	state  State
	now    func() time.Time
}

func NewSession(device Device) *Session {
	return &Session{device: device, state: StateIdle, now: time.Now}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the device stream. On failure the session lands in Denied
// or Unavailable and the returned error carries the matching sentinel.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActive {
		return errors.New("capture session already active")
	}
	if !acquireDevice(s.device.ID()) {
		return fmt.Errorf("camera %s is in use by another session", s.device.ID())
	}

	s.state = StateRequesting
	stream, err := s.device.Open(ctx)
	if err != nil {
		releaseDevice(s.device.ID())
		switch {
		case errors.Is(err, ErrPermissionDenied):
			s.state = StateDenied
			return fmt.Errorf("unable to access camera, please allow camera permissions and try again: %w", err)
		case errors.Is(err, ErrDeviceNotFound):
			s.state = StateUnavailable
			return fmt.Errorf("unable to access camera: %w", err)
		case errors.Is(err, ErrUnsupported):
			s.state = StateUnavailable
			return fmt.Errorf("unable to access camera: %w", err)
		default:
			s.state = StateIdle
			return fmt.Errorf("unable to access camera: %w", err)
		}
	}

	s.stream = stream
	s.state = StateActive
	return nil
}

// Snapshot captures the current frame as a JPEG still. The session stays
// Active on success; a frame failure releases the device.
func (s *Session) Snapshot() (models.CaptureFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return models.CaptureFile{}, fmt.Errorf("cannot snapshot in state %s", s.state)
	}

	frame, err := s.stream.Frame()
	if err != nil {
		s.releaseLocked()
		return models.CaptureFile{}, fmt.Errorf("failed to capture frame: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		s.releaseLocked()
		return models.CaptureFile{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	filename := fmt.Sprintf("camera-capture-%d.jpg", s.now().UnixMilli())
	return models.CaptureFile{
		Filename: filename,
		MIME:     "image/jpeg",
		Size:     int64(buf.Len()),
		Data:     buf.Bytes(),
	}, nil
}

// Stop releases the device stream and returns the session to Idle. Safe to
// call from any state, including repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
		releaseDevice(s.device.ID())
	}
	s.state = StateIdle
}
