// Package gemini generates assistant replies with the Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	promptTemplate = `You are a helpful AI assistant. Please respond to the following user input in a natural and helpful way. If the user spoke in a language other than English, please respond in the same language. User input: "%s"`
)

var (
	ErrEmptyInput   = errors.New("transcript is empty")
	ErrNoCandidates = errors.New("no response generated")
	ErrMissingText  = errors.New("invalid response format")
)

// UpstreamError is any failure to obtain reply text from the service.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Message != "":
		return "Gemini API error: " + e.Message
	case errors.Is(e.Err, ErrNoCandidates):
		return "No response generated from Gemini AI"
	case errors.Is(e.Err, ErrMissingText):
		return "Invalid response format from Gemini AI"
	case e.Err != nil:
		return "Gemini API error: " + e.Err.Error()
	default:
		return fmt.Sprintf("Gemini API error: status %d", e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// GenerationConfig is the fixed sampling configuration sent with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// Client calls generateContent for one model.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    client,
	}
}

// Prompt wraps the transcript in the assistant instruction.
func Prompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}

// Generate returns the first candidate's first text part.
func (c *Client) Generate(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyInput
	}

	prompt := Prompt(transcript)
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: &prompt}}}},
		GenerationConfig: DefaultGenerationConfig(),
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: redact(err, c.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(payload.Candidates) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Err: ErrNoCandidates}
	}
	first := payload.Candidates[0].Content
	if first == nil || len(first.Parts) == 0 || first.Parts[0].Text == nil || *first.Parts[0].Text == "" {
		return "", &UpstreamError{Status: resp.StatusCode, Err: ErrMissingText}
	}
	return *first.Parts[0].Text, nil
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// redact keeps the API key out of transport errors, which embed the URL.
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	if msg == err.Error() {
		return err
	}
	return errors.New(msg)
}
