// Package replicate implements the primary speech-to-text provider, either
// through the companion HTTP backend or directly against the hosted job API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/transcribe"
)

const backendFileName = "recording.wav"

// BackendClient posts recordings to the companion transcription backend.
type BackendClient struct {
	baseURL string
	http    *http.Client
}

func NewBackendClient(baseURL string, client *http.Client) *BackendClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *BackendClient) Name() string { return "backend" }

// IsSupported is always true; reachability is only known per request.
func (c *BackendClient) IsSupported(context.Context) bool { return true }

func (c *BackendClient) Transcribe(ctx context.Context, rec audio.Recording) (transcribe.Transcript, error) {
	if len(rec.Audio) == 0 {
		return transcribe.Transcript{}, fmt.Errorf("backend transcription failed: empty recording")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", backendFileName)
	if err != nil {
		return transcribe.Transcript{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(rec.Audio); err != nil {
		return transcribe.Transcript{}, fmt.Errorf("write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return transcribe.Transcript{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return transcribe.Transcript{}, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return transcribe.Transcript{}, fmt.Errorf("backend transcription failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transcribe.Transcript{}, readError("backend transcription failed", resp)
	}

	var payload struct {
		Transcription string  `json:"transcription"`
		Language      *string `json:"language"`
		Error         string  `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return transcribe.Transcript{}, fmt.Errorf("decode backend response: %w", err)
	}
	if payload.Error != "" {
		return transcribe.Transcript{}, fmt.Errorf("backend transcription failed: %s", payload.Error)
	}

	out := transcribe.Transcript{Text: strings.TrimSpace(payload.Transcription)}
	if payload.Language != nil {
		out.Language = *payload.Language
	}
	return out, nil
}

// Health checks the backend root endpoint.
func (c *BackendClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readError("backend health", resp)
	}
	return nil
}
