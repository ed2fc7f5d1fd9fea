package session

import (
	"context"
	"errors"
	"time"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/transcribe"
)

var (
	// ErrEmptyTranscript indicates capture completed but no speech was recognized.
	ErrEmptyTranscript = errors.New("no speech detected in audio")
	// ErrBusy rejects work that needs an idle controller.
	ErrBusy = errors.New("a voice run is already in progress")
)

// Recorder owns one capture at a time.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (audio.Recording, error)
	Cancel(context.Context) error
	Level() float64
	Device() string
}

// Transcriber converts a finished recording to text.
type Transcriber interface {
	Transcribe(context.Context, audio.Recording) (transcribe.Result, error)
}

// Responder produces the assistant reply for a transcript.
type Responder interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

// Speaker plays the reply. An empty language selects the default voice.
type Speaker interface {
	Speak(ctx context.Context, text string, language string) error
}

// Indicator is the user-visible surface for stage changes and failures.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowGenerating(context.Context)
	ShowSpeaking(context.Context)
	ShowWarning(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Metrics receives stage timings and run outcomes.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	RunFinished(outcome string)
	FallbackUsed()
	Transcribed(provider string)
	Recorded(d time.Duration)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)       {}
func (noopIndicator) ShowTranscribing(context.Context)    {}
func (noopIndicator) ShowGenerating(context.Context)      {}
func (noopIndicator) ShowSpeaking(context.Context)        {}
func (noopIndicator) ShowWarning(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)   {}
func (noopIndicator) CueStop(context.Context)             {}
func (noopIndicator) CueComplete(context.Context)         {}
func (noopIndicator) CueCancel(context.Context)           {}
func (noopIndicator) Hide(context.Context)                {}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, time.Duration) {}
func (noopMetrics) RunFinished(string)                 {}
func (noopMetrics) FallbackUsed()                      {}
func (noopMetrics) Transcribed(string)                 {}
func (noopMetrics) Recorded(time.Duration)             {}

// Run outcomes reported to Metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeNoSpeech  = "no_speech"
	OutcomeAborted   = "aborted"
	OutcomeCancelled = "cancelled"
	OutcomeRefused   = "refused"
)
