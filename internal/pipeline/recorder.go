// Package pipeline binds device selection, capture sessions and debug
// artifacts into the recorder the session controller drives.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/logging"
)

var (
	ErrAlreadyStarted = errors.New("recorder already started")
	ErrNotStarted     = errors.New("recorder not started")
)

// deviceSource reports which device the last acquisition used.
type deviceSource interface {
	Selected() (audio.Device, bool)
}

// Recorder runs one CaptureSession per voice run.
type Recorder struct {
	acquirer audio.Acquirer
	devices  deviceSource
	opts     []audio.SessionOption
	dump     bool
	logger   *slog.Logger

	mu      sync.Mutex
	session *audio.CaptureSession
}

// NewRecorder captures from the configured Pulse source.
func NewRecorder(cfg config.Config, logger *slog.Logger) *Recorder {
	acquirer := &audio.PulseAcquirer{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger,
	}
	return newRecorder(acquirer, acquirer, cfg, logger)
}

func newRecorder(acquirer audio.Acquirer, devices deviceSource, cfg config.Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		acquirer: acquirer,
		devices:  devices,
		opts: []audio.SessionOption{
			audio.WithConstraints(audio.Constraints{
				EchoCancellation: cfg.Audio.EchoCancellation,
				NoiseSuppression: cfg.Audio.NoiseSuppression,
				SampleRate:       cfg.Audio.SampleRate,
			}),
			audio.WithLevelInterval(cfg.Audio.LevelInterval),
		},
		dump:   cfg.Debug.EnableAudioDump,
		logger: logger,
	}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return ErrAlreadyStarted
	}

	session := audio.NewCaptureSession(r.acquirer, r.opts...)
	if err := session.Start(ctx); err != nil {
		return err
	}
	r.session = session
	r.logInfo("capture started", "session_id", session.ID(), "device", r.Device())
	return nil
}

// Stop finalizes the capture into one WAV recording.
func (r *Recorder) Stop(context.Context) (audio.Recording, error) {
	session := r.take()
	if session == nil {
		return audio.Recording{}, ErrNotStarted
	}

	rec, err := session.Stop()
	if err != nil {
		return audio.Recording{}, err
	}
	r.logInfo("capture stopped",
		"session_id", rec.ID,
		"duration_ms", rec.Duration.Milliseconds(),
		"bytes", len(rec.Audio),
	)
	r.writeDebugAudio(rec)
	return rec, nil
}

// Cancel releases the capture and discards its audio.
func (r *Recorder) Cancel(context.Context) error {
	session := r.take()
	if session == nil {
		return nil
	}
	return session.Close()
}

// Level returns the live level sample, or 0 when idle.
func (r *Recorder) Level() float64 {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return 0
	}
	return session.Level()
}

// Device describes the most recently acquired source.
func (r *Recorder) Device() string {
	if r.devices == nil {
		return ""
	}
	device, ok := r.devices.Selected()
	if !ok {
		return ""
	}
	return device.String()
}

func (r *Recorder) take() *audio.CaptureSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.session
	r.session = nil
	return session
}

func (r *Recorder) logInfo(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Info(msg, args...)
}

func (r *Recorder) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

// createDebugFile creates timestamped debug artifacts under the atlas state dir.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// writeDebugAudio keeps a copy of the recording when debug.audio_dump is on.
func (r *Recorder) writeDebugAudio(rec audio.Recording) {
	if !r.dump || len(rec.Audio) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Write(rec.Audio); err != nil {
		r.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}
