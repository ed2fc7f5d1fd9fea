// Package ondevice implements the secondary speech-to-text provider backed by
// a speech engine running on the local machine.
package ondevice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Engine is a local recognizer reachable without the network.
type Engine interface {
	Ready(ctx context.Context) error
	Recognize(ctx context.Context, wav []byte, language string) (string, error)
}

// RivaConfig addresses a Riva speech server.
type RivaConfig struct {
	GRPCAddr    string
	HTTPAddr    string
	HealthPath  string
	HTTP        *http.Client
	DialOptions []grpc.DialOption
}

// RivaEngine probes readiness over gRPC health and recognizes over the
// OpenAI-compatible HTTP endpoint.
type RivaEngine struct {
	cfg RivaConfig
}

func NewRivaEngine(cfg RivaConfig) *RivaEngine {
	if cfg.HTTP == nil {
		cfg.HTTP = http.DefaultClient
	}
	cfg.HTTPAddr = httpBase(cfg.HTTPAddr)
	return &RivaEngine{cfg: cfg}
}

func httpBase(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" || strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

// Ready requires the gRPC health service to report SERVING and, when a
// health path is configured, the HTTP health endpoint to answer 200.
func (e *RivaEngine) Ready(ctx context.Context) error {
	if err := e.checkGRPC(ctx); err != nil {
		return err
	}
	if e.cfg.HealthPath == "" || e.cfg.HTTPAddr == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.HTTPAddr+e.cfg.HealthPath, nil)
	if err != nil {
		return fmt.Errorf("build riva health request: %w", err)
	}
	resp, err := e.cfg.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("riva http health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("riva http health: status %d", resp.StatusCode)
	}
	return nil
}

func (e *RivaEngine) checkGRPC(ctx context.Context) error {
	if e.cfg.GRPCAddr == "" {
		return fmt.Errorf("riva grpc address is empty")
	}
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, e.cfg.DialOptions...)
	conn, err := grpc.NewClient(e.cfg.GRPCAddr, opts...)
	if err != nil {
		return fmt.Errorf("dial riva grpc %s: %w", e.cfg.GRPCAddr, err)
	}
	defer conn.Close()

	if err := waitForReady(ctx, conn); err != nil {
		return err
	}
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("riva grpc health: %w", err)
	}
	if status := resp.GetStatus(); status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("riva grpc health: %s", status)
	}
	return nil
}

// Recognize uploads a WAV clip and returns the recognized text.
func (e *RivaEngine) Recognize(ctx context.Context, wav []byte, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "listen.wav")
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("write audio part: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.HTTPAddr+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.cfg.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("riva recognize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("riva recognize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode riva response: %w", err)
	}
	return strings.TrimSpace(payload.Text), nil
}
