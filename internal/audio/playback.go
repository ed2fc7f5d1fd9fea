package audio

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
)

// PlayWAV decodes a WAV recording and plays it on the default sink,
// returning once playback drains or ctx is done.
func PlayWAV(ctx context.Context, data []byte, mediaName string) error {
	clip, err := DecodeWAV(data)
	if err != nil {
		return err
	}
	return Play(ctx, clip, mediaName)
}

// Play writes clip samples to a Pulse playback stream.
func Play(ctx context.Context, clip Clip, mediaName string) error {
	if len(clip.Samples) == 0 {
		return nil
	}

	client, err := newClient("audio-speakers")
	if err != nil {
		return err
	}
	defer client.Close()

	channels := pulse.PlaybackMono
	if clip.Channels == 2 {
		channels = pulse.PlaybackStereo
	}

	samples := clip.Samples
	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		channels,
		pulse.PlaybackSampleRate(clip.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.Start()
		stream.Drain()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Drain does not return for a stopped stream; closing the client releases it.
		stream.Stop()
		return ctx.Err()
	}

	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return nil
}
