package ondevice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/transcribe"
)

type fakeStream struct {
	chunks chan []byte
	once   sync.Once
	stops  atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{chunks: make(chan []byte, 16)}
}

func (f *fakeStream) Chunks() <-chan []byte { return f.chunks }

func (f *fakeStream) Stop() error {
	f.stops.Add(1)
	f.once.Do(func() { close(f.chunks) })
	return nil
}

type fakeListener struct {
	stream     *fakeStream
	listenErr  error
	unavailErr error
}

func (f *fakeListener) Available(context.Context) error { return f.unavailErr }

func (f *fakeListener) Listen(context.Context) (audio.Stream, error) {
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	return f.stream, nil
}

// loopbackPlayer feeds the played clip into the listening stream.
type loopbackPlayer struct {
	stream *fakeStream
	err    error
	block  bool
}

func (p *loopbackPlayer) Play(ctx context.Context, wav []byte) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.stream.chunks <- []byte{1, 0, 2, 0}
	return nil
}

type fakeEngine struct {
	readyErr error
	text     string
	err      error
	calls    atomic.Int32
	language string
}

func (f *fakeEngine) Ready(context.Context) error { return f.readyErr }

func (f *fakeEngine) Recognize(_ context.Context, wav []byte, language string) (string, error) {
	f.calls.Add(1)
	f.language = language
	if _, err := audio.DecodeWAV(wav); err != nil {
		return "", err
	}
	return f.text, f.err
}

func TestRecognizerTranscribesPlayedRecording(t *testing.T) {
	stream := newFakeStream()
	engine := &fakeEngine{text: "bonjour"}
	r := NewRecognizer(engine, &loopbackPlayer{stream: stream}, &fakeListener{stream: stream}, WithLanguage("fr-FR"))

	out, err := r.Transcribe(context.Background(), audio.Recording{Audio: []byte("wav")})
	require.NoError(t, err)
	require.Equal(t, transcribe.Transcript{Text: "bonjour", Language: "fr-FR"}, out)
	require.Equal(t, "fr-FR", engine.language)
	require.GreaterOrEqual(t, stream.stops.Load(), int32(1))
}

func TestRecognizerSilentSessionIsBlank(t *testing.T) {
	stream := newFakeStream()
	engine := &fakeEngine{}
	player := playerFunc(func(context.Context, []byte) error { return nil })
	r := NewRecognizer(engine, player, &fakeListener{stream: stream})

	out, err := r.Transcribe(context.Background(), audio.Recording{})
	require.NoError(t, err)
	require.Empty(t, out.Text)
	require.Equal(t, DefaultLanguage, out.Language)
	require.Zero(t, engine.calls.Load())
}

func TestRecognizerPlaybackFailure(t *testing.T) {
	stream := newFakeStream()
	engine := &fakeEngine{text: "ignored"}
	r := NewRecognizer(engine, &loopbackPlayer{stream: stream, err: errors.New("no sink")}, &fakeListener{stream: stream})

	_, err := r.Transcribe(context.Background(), audio.Recording{})
	require.ErrorIs(t, err, ErrPlayback)
	require.Zero(t, engine.calls.Load())
}

func TestRecognizerEngineFailure(t *testing.T) {
	stream := newFakeStream()
	r := NewRecognizer(&fakeEngine{err: errors.New("model missing")}, &loopbackPlayer{stream: stream}, &fakeListener{stream: stream})

	_, err := r.Transcribe(context.Background(), audio.Recording{})
	require.ErrorContains(t, err, "speech recognition error: model missing")
}

func TestRecognizerListenFailure(t *testing.T) {
	r := NewRecognizer(&fakeEngine{}, &loopbackPlayer{}, &fakeListener{listenErr: errors.New("no monitor")})

	_, err := r.Transcribe(context.Background(), audio.Recording{})
	require.ErrorContains(t, err, "start speech recognition")
}

func TestRecognizerCancelledContext(t *testing.T) {
	stream := newFakeStream()
	r := NewRecognizer(&fakeEngine{}, &loopbackPlayer{stream: stream, block: true}, &fakeListener{stream: stream})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Transcribe(ctx, audio.Recording{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecognizerIsSupported(t *testing.T) {
	stream := newFakeStream()
	require.True(t, NewRecognizer(&fakeEngine{}, nil, &fakeListener{stream: stream}).IsSupported(context.Background()))
	require.False(t, NewRecognizer(&fakeEngine{readyErr: errors.New("down")}, nil, &fakeListener{}).IsSupported(context.Background()))
	require.False(t, NewRecognizer(&fakeEngine{}, nil, &fakeListener{unavailErr: errors.New("no pulse")}).IsSupported(context.Background()))
}

func TestFallbackToRecognizerAfterPrimaryTimeout(t *testing.T) {
	stream := newFakeStream()
	secondary := NewRecognizer(&fakeEngine{text: "bonjour"}, &loopbackPlayer{stream: stream}, &fakeListener{stream: stream})
	primary := timeoutProvider{}

	orchestrator := transcribe.NewOrchestrator(context.Background(), primary, secondary)
	require.True(t, orchestrator.SecondarySupported())

	result, err := orchestrator.Transcribe(context.Background(), audio.Recording{Audio: []byte("wav")})
	require.NoError(t, err)
	require.Equal(t, "bonjour", result.Text)
	require.Equal(t, transcribe.ProviderSecondary, result.Provider)
}

type playerFunc func(context.Context, []byte) error

func (f playerFunc) Play(ctx context.Context, wav []byte) error { return f(ctx, wav) }

type timeoutProvider struct{}

func (timeoutProvider) Name() string                     { return "replicate" }
func (timeoutProvider) IsSupported(context.Context) bool { return true }
func (timeoutProvider) Transcribe(context.Context, audio.Recording) (transcribe.Transcript, error) {
	return transcribe.Transcript{}, transcribe.ErrTranscriptionTimeout
}
