package ondevice

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) grpc.DialOption {
	t.Helper()
	listener := bufconn.Listen(1 << 16)
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", status)
	healthpb.RegisterHealthServer(server, healthServer)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	})
}

func TestRivaEngineReadyWhenServing(t *testing.T) {
	dial := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health/ready", r.URL.Path)
	}))
	defer httpServer.Close()

	engine := NewRivaEngine(RivaConfig{
		GRPCAddr:    "passthrough:///bufnet",
		HTTPAddr:    httpServer.URL,
		HealthPath:  "/v1/health/ready",
		HTTP:        httpServer.Client(),
		DialOptions: []grpc.DialOption{dial},
	})
	require.NoError(t, engine.Ready(context.Background()))
}

func TestRivaEngineNotReadyWhenNotServing(t *testing.T) {
	dial := startHealthServer(t, healthpb.HealthCheckResponse_NOT_SERVING)

	engine := NewRivaEngine(RivaConfig{
		GRPCAddr:    "passthrough:///bufnet",
		DialOptions: []grpc.DialOption{dial},
	})
	err := engine.Ready(context.Background())
	require.ErrorContains(t, err, "NOT_SERVING")
}

func TestRivaEngineNotReadyWhenHTTPHealthFails(t *testing.T) {
	dial := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer httpServer.Close()

	engine := NewRivaEngine(RivaConfig{
		GRPCAddr:    "passthrough:///bufnet",
		HTTPAddr:    httpServer.URL,
		HealthPath:  "/v1/health/ready",
		HTTP:        httpServer.Client(),
		DialOptions: []grpc.DialOption{dial},
	})
	require.ErrorContains(t, engine.Ready(context.Background()), "status 503")
}

func TestRivaEngineUnreachableFailsFast(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	started := time.Now()
	err = NewRivaEngine(RivaConfig{GRPCAddr: addr}).Ready(ctx)
	require.ErrorContains(t, err, "riva grpc unreachable")
	require.Less(t, time.Since(started), 4*time.Second)
}

func TestWaitForReadyHonorsContext(t *testing.T) {
	dial := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	conn, err := grpc.NewClient("passthrough:///bufnet", dial, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, waitForReady(context.Background(), conn))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, waitForReady(ctx, conn), "an already ready connection ignores ctx")
}

func TestRivaEngineRequiresGRPCAddress(t *testing.T) {
	require.Error(t, NewRivaEngine(RivaConfig{}).Ready(context.Background()))
}

func TestRivaEngineRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "fr-FR", r.FormValue("language"))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, []byte("RIFF"), data)
		_, _ = io.WriteString(w, `{"text":" bonjour "}`)
	}))
	defer server.Close()

	engine := NewRivaEngine(RivaConfig{HTTPAddr: server.URL, HTTP: server.Client()})
	text, err := engine.Recognize(context.Background(), []byte("RIFF"), "fr-FR")
	require.NoError(t, err)
	require.Equal(t, "bonjour", text)
}

func TestRivaEngineRecognizeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "unsupported language")
	}))
	defer server.Close()

	engine := NewRivaEngine(RivaConfig{HTTPAddr: server.URL, HTTP: server.Client()})
	_, err := engine.Recognize(context.Background(), []byte("RIFF"), "xx")
	require.ErrorContains(t, err, "unsupported language")
}

func TestHTTPBaseAddsScheme(t *testing.T) {
	require.Equal(t, "http://127.0.0.1:9000", httpBase("127.0.0.1:9000/"))
	require.Equal(t, "https://riva.local", httpBase("https://riva.local"))
	require.Empty(t, httpBase(" "))
}
