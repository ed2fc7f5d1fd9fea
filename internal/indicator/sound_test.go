package indicator

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/config"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueStart))
	require.NotEmpty(t, cueSamples(cueStop))
	require.NotEmpty(t, cueSamples(cueComplete))
	require.NotEmpty(t, cueSamples(cueCancel))
	require.Nil(t, cueSamples(cueKind(99)))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueInsertsGap(t *testing.T) {
	tone := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{tone, tone})
	want := 2*samplesForDuration(50*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, got, want)
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueStart, config.IndicatorConfig{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmitCuePrefersConfiguredFile(t *testing.T) {
	pcm := make([]byte, 8)
	for i := range 4 {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(1000+i))
	}
	path := filepath.Join(t.TempDir(), "start.wav")
	require.NoError(t, os.WriteFile(path, audio.EncodeWAV(pcm, 22050, 1), 0o644))

	played := capturePlayer(t)
	require.NoError(t, emitCue(context.Background(), cueStart, config.IndicatorConfig{SoundStartFile: path}))
	require.Len(t, *played, 1)
	require.Equal(t, 22050, (*played)[0].SampleRate)
	require.Equal(t, []int16{1000, 1001, 1002, 1003}, (*played)[0].Samples)
}

func TestEmitCueFallsBackToSynthesizedTone(t *testing.T) {
	played := capturePlayer(t)
	cfg := config.IndicatorConfig{SoundStopFile: filepath.Join(t.TempDir(), "missing.wav")}

	require.NoError(t, emitCue(context.Background(), cueStop, cfg))
	require.Len(t, *played, 1)
	require.Equal(t, cueSampleRate, (*played)[0].SampleRate)
	require.Equal(t, stopCuePCM, (*played)[0].Samples)
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Empty(t, expandUserPath("  "))
	require.Equal(t, home, expandUserPath("~"))
	require.Equal(t, filepath.Join(home, "cues", "a.wav"), expandUserPath("~/cues/a.wav"))
	require.Equal(t, "/abs/a.wav", expandUserPath("/abs/a.wav"))
}

func capturePlayer(t *testing.T) *[]audio.Clip {
	t.Helper()

	var played []audio.Clip
	prev := cuePlayer
	cuePlayer = func(_ context.Context, clip audio.Clip, _ string) error {
		played = append(played, clip)
		return nil
	}
	t.Cleanup(func() { cuePlayer = prev })
	return &played
}
