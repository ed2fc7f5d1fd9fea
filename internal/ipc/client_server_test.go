package ipc

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveTest(t *testing.T, handler Handler) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()
	return socketPath, cancel, done
}

func TestStatusRoundTripCarriesLevelAndFlags(t *testing.T) {
	socketPath, cancel, done := serveTest(t, HandlerFunc(func(_ context.Context, req Request) Response {
		require.Equal(t, CommandStatus, req.Command)
		level := 0.42
		return Response{OK: true, State: "capturing", Processing: true, Level: &level, Message: "status"}
	}))

	resp, err := Status(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	require.Equal(t, "capturing", resp.State)
	require.True(t, resp.Processing)
	require.False(t, resp.Playing)
	require.NotNil(t, resp.Level)
	require.InDelta(t, 0.42, *resp.Level, 1e-9)

	cancel()
	require.NoError(t, <-done)
}

func TestSendSurfacesRejection(t *testing.T) {
	socketPath, cancel, done := serveTest(t, HandlerFunc(func(_ context.Context, req Request) Response {
		return Response{OK: false, State: "transcribing", Error: "cannot cancel while transcribing"}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandCancel}, 200*time.Millisecond)
	require.NoError(t, err)
	require.EqualError(t, resp.Err(), "cannot cancel while transcribing")

	cancel()
	require.NoError(t, <-done)
}

func TestResponseErrDefaultMessage(t *testing.T) {
	require.EqualError(t, Response{}.Err(), "request rejected")
	require.NoError(t, Response{OK: true}.Err())
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.ErrorContains(t, err, "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.ErrorContains(t, err, "read response")
}

func TestServeAnswersMalformedRequest(t *testing.T) {
	socketPath, cancel, done := serveTest(t, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, readLine(bufio.NewReader(conn), &resp, "response"))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-done)
}

func TestProbe(t *testing.T) {
	socketPath, cancel, done := serveTest(t, HandlerFunc(func(_ context.Context, req Request) Response {
		return Response{OK: true, State: "idle"}
	}))

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)

	alive, err = Probe(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}
