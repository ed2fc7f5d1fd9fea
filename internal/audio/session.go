package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoDevice       = errors.New("no audio input devices found")
	ErrCaptureBusy    = errors.New("another recording is already capturing")
	ErrSessionStarted = errors.New("capture session already started")
	ErrSessionClosed  = errors.New("capture session closed")
	ErrNotCapturing   = errors.New("capture session is not capturing")
)

// AcquisitionError reports that no microphone stream could be opened.
type AcquisitionError struct {
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("acquire microphone: %v", e.Err)
	}
	return fmt.Sprintf("acquire microphone %q: %v", e.Device, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Stream is an open microphone stream. Stop must close Chunks.
type Stream interface {
	Chunks() <-chan []byte
	Stop() error
}

// Acquirer opens microphone streams.
type Acquirer interface {
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusCapturing Status = "capturing"
	StatusStopped   Status = "stopped"
)

// Recording is the encoded outcome of one capture session.
type Recording struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	SampleRate  int
	ContentType string
	Audio       []byte
}

// capturing guards the process-wide single active capture.
var capturing atomic.Bool

// SessionOption customizes a CaptureSession.
type SessionOption func(*CaptureSession)

// WithConstraints overrides DefaultConstraints.
func WithConstraints(c Constraints) SessionOption {
	return func(s *CaptureSession) { s.constraints = c }
}

// WithLevelInterval sets the sampling loop cadence.
func WithLevelInterval(d time.Duration) SessionOption {
	return func(s *CaptureSession) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLevelHandler receives every level sample.
func WithLevelHandler(fn func(float64)) SessionOption {
	return func(s *CaptureSession) { s.onLevel = fn }
}

// WithCompletionHandler receives the finalized recording from Stop.
func WithCompletionHandler(fn func(Recording)) SessionOption {
	return func(s *CaptureSession) { s.onComplete = fn }
}

// CaptureSession owns one microphone acquisition from Start to release.
type CaptureSession struct {
	id          string
	acquirer    Acquirer
	constraints Constraints
	interval    time.Duration
	onLevel     func(float64)
	onComplete  func(Recording)
	now         func() time.Time

	mu        sync.Mutex
	status    Status
	closed    bool
	startedAt time.Time
	stream    Stream
	pcm       []byte
	meter     *LevelMeter

	level       atomic.Uint64
	releaseOnce sync.Once
	loopStop    chan struct{}
	loopDone    chan struct{}
	collectDone chan struct{}
}

// NewCaptureSession prepares an idle session; nothing is acquired until Start.
func NewCaptureSession(acquirer Acquirer, opts ...SessionOption) *CaptureSession {
	s := &CaptureSession{
		id:          uuid.NewString(),
		acquirer:    acquirer,
		constraints: DefaultConstraints(),
		interval:    16 * time.Millisecond,
		now:         time.Now,
		status:      StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CaptureSession) ID() string { return s.id }

func (s *CaptureSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Level returns the latest level sample in [0,1].
func (s *CaptureSession) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// Start acquires the microphone and begins buffering and level sampling.
func (s *CaptureSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.status != StatusIdle {
		return ErrSessionStarted
	}
	if !capturing.CompareAndSwap(false, true) {
		return ErrCaptureBusy
	}

	stream, err := s.acquirer.Acquire(ctx, s.constraints)
	if err != nil {
		capturing.Store(false)
		var acqErr *AcquisitionError
		if !errors.As(err, &acqErr) {
			err = &AcquisitionError{Err: err}
		}
		return err
	}

	s.stream = stream
	s.startedAt = s.now()
	s.status = StatusCapturing
	s.meter = NewLevelMeter(levelFFTSize)
	s.loopStop = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.collectDone = make(chan struct{})

	go s.collect(stream)
	go s.sample()
	return nil
}

// Stop releases the microphone, encodes the buffered audio, and hands the
// recording to the completion handler.
func (s *CaptureSession) Stop() (Recording, error) {
	s.mu.Lock()
	if s.status != StatusCapturing {
		s.mu.Unlock()
		return Recording{}, ErrNotCapturing
	}
	s.status = StatusStopped
	s.mu.Unlock()

	s.release()

	s.mu.Lock()
	pcm := s.pcm
	s.pcm = nil
	startedAt := s.startedAt
	s.mu.Unlock()

	rate := s.constraints.SampleRate
	rec := Recording{
		ID:          s.id,
		StartedAt:   startedAt,
		Duration:    pcmDuration(len(pcm), rate),
		SampleRate:  rate,
		ContentType: ContentTypeWAV,
		Audio:       EncodeWAV(pcm, rate, 1),
	}
	if s.onComplete != nil {
		s.onComplete(rec)
	}
	return rec, nil
}

// Close tears the session down, discarding any buffered audio.
func (s *CaptureSession) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.status == StatusCapturing {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	s.release()

	s.mu.Lock()
	s.pcm = nil
	s.mu.Unlock()
	return nil
}

// release stops the sampling loop and the stream, then frees the capture slot.
func (s *CaptureSession) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		stream := s.stream
		s.mu.Unlock()
		if stream == nil {
			return
		}

		close(s.loopStop)
		<-s.loopDone

		_ = stream.Stop()
		<-s.collectDone

		s.level.Store(0)
		capturing.Store(false)
	})
}

func (s *CaptureSession) collect(stream Stream) {
	defer close(s.collectDone)
	for chunk := range stream.Chunks() {
		s.mu.Lock()
		s.pcm = append(s.pcm, chunk...)
		s.meter.Push(chunk)
		s.mu.Unlock()
	}
}

func (s *CaptureSession) sample() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.loopStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			level := s.meter.Level()
			s.mu.Unlock()

			s.level.Store(math.Float64bits(level))
			if s.onLevel != nil {
				s.onLevel(level)
			}
		}
	}
}
