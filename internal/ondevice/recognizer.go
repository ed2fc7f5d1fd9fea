package ondevice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/transcribe"
)

const (
	DefaultLanguage   = "en-US"
	ListenSampleRate  = 16000
	playbackMediaName = "atlas recognition playback"
)

var ErrPlayback = errors.New("failed to play audio for transcription")

// Player renders an encoded clip on the default sink.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Listener opens a capture of what the default sink is playing.
type Listener interface {
	Available(ctx context.Context) error
	Listen(ctx context.Context) (audio.Stream, error)
}

// Recognizer replays a recording while a listening session captures it and
// hands the captured clip to the local engine.
type Recognizer struct {
	engine   Engine
	player   Player
	listener Listener
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Recognizer)

func WithLanguage(language string) Option {
	return func(r *Recognizer) {
		if language != "" {
			r.language = language
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) { r.logger = logger }
}

func NewRecognizer(engine Engine, player Player, listener Listener, opts ...Option) *Recognizer {
	r := &Recognizer{
		engine:   engine,
		player:   player,
		listener: listener,
		language: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) Name() string { return "riva" }

func (r *Recognizer) IsSupported(ctx context.Context) bool {
	if err := r.engine.Ready(ctx); err != nil {
		r.debug("on-device engine not ready", err)
		return false
	}
	if err := r.listener.Available(ctx); err != nil {
		r.debug("listening session unavailable", err)
		return false
	}
	return true
}

func (r *Recognizer) debug(msg string, err error) {
	if r.logger != nil {
		r.logger.Debug(msg, "error", err.Error())
	}
}

// Transcribe blocks until the listening session settles. An empty text is a
// valid blank result.
func (r *Recognizer) Transcribe(ctx context.Context, rec audio.Recording) (transcribe.Transcript, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stream, err := r.listener.Listen(ctx)
	if err != nil {
		return transcribe.Transcript{}, fmt.Errorf("start speech recognition: %w", err)
	}

	out := newOutcome()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var pcm bytes.Buffer
		for chunk := range stream.Chunks() {
			pcm.Write(chunk)
		}
		if out.settled() {
			return
		}
		if pcm.Len() == 0 {
			out.result("")
			return
		}
		text, err := r.engine.Recognize(ctx, audio.EncodeWAV(pcm.Bytes(), ListenSampleRate, 1), r.language)
		if err != nil {
			out.fail(fmt.Errorf("speech recognition error: %w", err))
			return
		}
		out.result(text)
	}()

	go func() {
		defer wg.Done()
		if err := r.player.Play(ctx, rec.Audio); err != nil {
			out.fail(fmt.Errorf("%w: %w", ErrPlayback, err))
		}
		_ = stream.Stop()
	}()

	text, err := out.wait(ctx)
	_ = stream.Stop()
	wg.Wait()
	if err != nil {
		return transcribe.Transcript{}, err
	}
	return transcribe.Transcript{Text: text, Language: r.language}, nil
}

// outcome collapses result, error and end notifications into one value.
type outcome struct {
	once sync.Once
	done chan struct{}
	text string
	err  error
}

func newOutcome() *outcome {
	return &outcome{done: make(chan struct{})}
}

func (o *outcome) result(text string) {
	o.once.Do(func() {
		o.text = text
		close(o.done)
	})
}

func (o *outcome) fail(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

func (o *outcome) settled() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (o *outcome) wait(ctx context.Context) (string, error) {
	select {
	case <-o.done:
		return o.text, o.err
	case <-ctx.Done():
		o.fail(ctx.Err())
		<-o.done
		return o.text, o.err
	}
}

// PulsePlayer plays clips through the default Pulse sink.
type PulsePlayer struct{}

func (PulsePlayer) Play(ctx context.Context, wav []byte) error {
	return audio.PlayWAV(ctx, wav, playbackMediaName)
}

// MonitorListener captures the default sink's monitor source.
type MonitorListener struct{}

func (MonitorListener) Available(ctx context.Context) error {
	_, err := audio.MonitorDevice(ctx)
	return err
}

func (MonitorListener) Listen(ctx context.Context) (audio.Stream, error) {
	device, err := audio.MonitorDevice(ctx)
	if err != nil {
		return nil, err
	}
	capture, err := audio.StartCapture(ctx, device, audio.Constraints{SampleRate: ListenSampleRate})
	if err != nil {
		return nil, err
	}
	return capture, nil
}
