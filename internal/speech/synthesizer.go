// Package speech plays reply text as synthesized speech, one utterance at a
// time across the whole process.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const DefaultLanguage = "en-US"

var (
	ErrInterrupted = errors.New("interrupted")
	ErrEmptyText   = errors.New("nothing to speak")
)

// SynthesisError reports a failed or interrupted utterance.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return "Speech synthesis error: " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Utterance is one request to the engine.
type Utterance struct {
	Text     string
	Language string
	Rate     float64
	Pitch    float64
	Volume   float64
}

// Engine renders an utterance and returns when playback ends.
type Engine interface {
	Say(ctx context.Context, u Utterance) error
}

// Voice holds the fixed prosody defaults.
type Voice struct {
	Language string
	Rate     float64
	Pitch    float64
	Volume   float64
}

func DefaultVoice() Voice {
	return Voice{Language: DefaultLanguage, Rate: 0.9, Pitch: 1, Volume: 1}
}

// slot is the single process-wide playback slot.
var slot struct {
	mu     sync.Mutex
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Synthesizer speaks through an Engine using the shared slot.
type Synthesizer struct {
	engine Engine
	voice  Voice
	logger *slog.Logger
}

func NewSynthesizer(engine Engine, voice Voice, logger *slog.Logger) *Synthesizer {
	if voice.Language == "" {
		voice.Language = DefaultLanguage
	}
	return &Synthesizer{engine: engine, voice: voice, logger: logger}
}

// Speak cancels any utterance in flight, then blocks until this one
// completes. An empty language selects the configured voice language.
func (s *Synthesizer) Speak(ctx context.Context, text string, language string) error {
	if strings.TrimSpace(text) == "" {
		return &SynthesisError{Err: ErrEmptyText}
	}
	if language == "" {
		language = s.voice.Language
	}

	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})

	slot.mu.Lock()
	if slot.cancel != nil {
		slot.cancel(ErrInterrupted)
		<-slot.done
	}
	slot.cancel = cancel
	slot.done = done
	slot.mu.Unlock()

	defer func() {
		cancel(nil)
		close(done)
		slot.mu.Lock()
		if slot.done == done {
			slot.cancel = nil
			slot.done = nil
		}
		slot.mu.Unlock()
	}()

	started := time.Now()
	err := s.engine.Say(ctx, Utterance{
		Text:     text,
		Language: language,
		Rate:     s.voice.Rate,
		Pitch:    s.voice.Pitch,
		Volume:   s.voice.Volume,
	})
	if err == nil {
		if s.logger != nil {
			s.logger.Debug("utterance finished", "language", language, "elapsed_ms", time.Since(started).Milliseconds())
		}
		return nil
	}
	if errors.Is(context.Cause(ctx), ErrInterrupted) {
		return &SynthesisError{Err: ErrInterrupted}
	}
	return &SynthesisError{Err: err}
}

// Stop cancels the utterance in flight, if any, and waits for it to end.
func Stop() {
	slot.mu.Lock()
	cancel, done := slot.cancel, slot.done
	slot.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel(ErrInterrupted)
	<-done
}

// Stop is Synthesizer-scoped sugar for the package-level Stop.
func (s *Synthesizer) Stop() {
	Stop()
}

// Speaking reports whether any utterance is in flight.
func Speaking() bool {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.done != nil
}
