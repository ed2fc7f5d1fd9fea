// Package transcribe arbitrates between the primary remote speech-to-text
// provider and the on-device fallback.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/workingedge/atlas/internal/audio"
)

var (
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")
	ErrTranscriptionTimeout     = errors.New("transcription timed out")
	ErrSecondaryUnsupported     = errors.New("on-device recognition is not supported")
)

// ProviderKind says which provider produced a result.
type ProviderKind string

const (
	ProviderPrimary   ProviderKind = "primary"
	ProviderSecondary ProviderKind = "secondary"
)

// Transcript is what a single provider returns.
type Transcript struct {
	Text     string
	Language string
}

// Result is the orchestrator's immutable outcome for one recording.
type Result struct {
	Text     string
	Language string
	Provider ProviderKind
	Name     string
}

// Blank reports whether the result carries no speech.
func (r Result) Blank() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Provider is one speech-to-text capability.
type Provider interface {
	Name() string
	IsSupported(ctx context.Context) bool
	Transcribe(ctx context.Context, rec audio.Recording) (Transcript, error)
}

// UnavailableError carries both provider failures.
type UnavailableError struct {
	Primary   error
	Secondary error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("transcription unavailable: primary: %v; secondary: %v", e.Primary, e.Secondary)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrTranscriptionUnavailable
}

func (e *UnavailableError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

// Orchestrator runs the primary provider and falls back once.
type Orchestrator struct {
	primary            Provider
	secondary          Provider
	secondarySupported bool
	logger             *slog.Logger
	onFallback         func(primaryErr error)
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithFallbackHook is called with the primary failure before the secondary runs.
func WithFallbackHook(fn func(primaryErr error)) Option {
	return func(o *Orchestrator) { o.onFallback = fn }
}

// NewOrchestrator probes secondary support once; a nil secondary is unsupported.
func NewOrchestrator(ctx context.Context, primary Provider, secondary Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{primary: primary, secondary: secondary}
	for _, opt := range opts {
		opt(o)
	}
	if secondary != nil {
		o.secondarySupported = secondary.IsSupported(ctx)
	}
	if o.logger != nil {
		secondaryName := ""
		if secondary != nil {
			secondaryName = secondary.Name()
		}
		o.logger.Info("transcription providers",
			"primary", primary.Name(),
			"secondary", secondaryName,
			"secondary_supported", o.secondarySupported,
		)
	}
	return o
}

// SecondarySupported reports the construction-time probe result.
func (o *Orchestrator) SecondarySupported() bool {
	return o.secondarySupported
}

// Transcribe converts one recording to text.
func (o *Orchestrator) Transcribe(ctx context.Context, rec audio.Recording) (Result, error) {
	transcript, primaryErr := o.primary.Transcribe(ctx, rec)
	if primaryErr == nil {
		return Result{
			Text:     transcript.Text,
			Language: transcript.Language,
			Provider: ProviderPrimary,
			Name:     o.primary.Name(),
		}, nil
	}

	if o.logger != nil {
		o.logger.Warn("primary transcription failed", "provider", o.primary.Name(), "error", primaryErr.Error())
	}
	if !o.secondarySupported {
		return Result{}, &UnavailableError{Primary: primaryErr, Secondary: ErrSecondaryUnsupported}
	}
	if o.onFallback != nil {
		o.onFallback(primaryErr)
	}

	transcript, secondaryErr := o.secondary.Transcribe(ctx, rec)
	if secondaryErr != nil {
		return Result{}, &UnavailableError{Primary: primaryErr, Secondary: secondaryErr}
	}
	return Result{
		Text:     transcript.Text,
		Language: transcript.Language,
		Provider: ProviderSecondary,
		Name:     o.secondary.Name(),
	}, nil
}
