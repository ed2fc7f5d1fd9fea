package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	size := chunkBytes(16000)
	capture := &Capture{
		chunkSize: size,
		chunks:    make(chan []byte, 8),
		stopCh:    make(chan struct{}),
	}

	input := make([]byte, size+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())

	firstChunk := <-capture.Chunks()
	require.Len(t, firstChunk, size)

	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Len(t, remaining, 111)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := &Capture{
		chunkSize: chunkBytes(16000),
		chunks:    make(chan []byte, 1),
		stopCh:    make(chan struct{}),
	}
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureDeviceAndCloseAlias(t *testing.T) {
	capture := &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}

func TestChunkBytesIsTwentyMilliseconds(t *testing.T) {
	require.Equal(t, 640, chunkBytes(16000))
	require.Equal(t, 1764, chunkBytes(44100))
	require.Equal(t, 640, chunkBytes(0))
}

func TestStreamPropertiesFromConstraints(t *testing.T) {
	props := streamProperties(DefaultConstraints())
	require.Equal(t, "echo-cancel", props["filter.want"])
	require.Equal(t, "phone", props["media.role"])
	require.Contains(t, props["filter.apply.echo-cancel.parameters"], "aec_method=webrtc")
	require.Contains(t, props["filter.apply.echo-cancel.parameters"], "noise_suppression=1")

	nsOnly := streamProperties(Constraints{NoiseSuppression: true, SampleRate: 16000})
	require.Equal(t, "echo-cancel", nsOnly["filter.want"])
	require.NotContains(t, nsOnly, "media.role")

	require.Nil(t, streamProperties(Constraints{SampleRate: 16000}))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}
