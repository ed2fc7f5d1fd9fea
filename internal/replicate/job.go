package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/transcribe"
)

var ErrMissingToken = errors.New("job api token is empty")

// JobConfig configures a JobClient.
type JobConfig struct {
	BaseURL      string
	Token        string
	Model        string
	PollInterval time.Duration
	MaxAttempts  int
	HTTP         *http.Client
	Wait         WaitFunc
	Logger       *slog.Logger
}

// JobClient submits a prediction and polls it to a terminal status.
type JobClient struct {
	cfg JobConfig
}

func NewJobClient(cfg JobConfig) *JobClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTP == nil {
		cfg.HTTP = http.DefaultClient
	}
	if cfg.Wait == nil {
		cfg.Wait = Sleep
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &JobClient{cfg: cfg}
}

func (c *JobClient) Name() string { return "replicate" }

func (c *JobClient) IsSupported(context.Context) bool { return c.cfg.Token != "" }

// Version returns the model version id, the part after ':' when present.
func Version(model string) string {
	if _, after, ok := strings.Cut(model, ":"); ok {
		return after
	}
	return model
}

type predictionInput struct {
	Audio                   string  `json:"audio"`
	Model                   string  `json:"model"`
	Language                string  `json:"language"`
	Translate               bool    `json:"translate"`
	Temperature             float64 `json:"temperature"`
	SuppressTokens          string  `json:"suppress_tokens"`
	LogprobThreshold        float64 `json:"logprob_threshold"`
	NoSpeechThreshold       float64 `json:"no_speech_threshold"`
	ConditionOnPreviousText bool    `json:"condition_on_previous_text"`
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Error  any       `json:"error"`
	Output *struct {
		Transcription    string `json:"transcription"`
		Language         string `json:"language"`
		DetectedLanguage string `json:"detected_language"`
	} `json:"output"`
	URLs struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

func (p prediction) failure() string {
	if p.Error == nil {
		return string(p.Status)
	}
	return fmt.Sprint(p.Error)
}

func (c *JobClient) Transcribe(ctx context.Context, rec audio.Recording) (transcribe.Transcript, error) {
	if c.cfg.Token == "" {
		return transcribe.Transcript{}, ErrMissingToken
	}
	pred, err := c.submit(ctx, rec)
	if err != nil {
		return transcribe.Transcript{}, err
	}

	for polls := 0; ; polls++ {
		switch Decide(pred.Status, polls, c.cfg.MaxAttempts) {
		case DecisionSucceed:
			return pred.transcript()
		case DecisionFail:
			if pred.Status.Terminal() {
				return transcribe.Transcript{}, fmt.Errorf("prediction %s %s: %s", pred.ID, pred.Status, pred.failure())
			}
			return transcribe.Transcript{}, fmt.Errorf("prediction %s still %s after %d polls: %w",
				pred.ID, pred.Status, polls, transcribe.ErrTranscriptionTimeout)
		}

		if err := c.cfg.Wait(ctx, c.cfg.PollInterval); err != nil {
			return transcribe.Transcript{}, fmt.Errorf("wait for prediction %s: %w", pred.ID, err)
		}
		next, err := c.get(ctx, pred.URLs.Get)
		if err != nil {
			return transcribe.Transcript{}, err
		}
		if next.URLs.Get == "" {
			next.URLs.Get = pred.URLs.Get
		}
		pred = next
		if c.cfg.Logger != nil {
			c.cfg.Logger.Debug("prediction polled", "id", pred.ID, "status", string(pred.Status), "poll", polls+1)
		}
	}
}

func (p prediction) transcript() (transcribe.Transcript, error) {
	if p.Output == nil {
		return transcribe.Transcript{}, fmt.Errorf("prediction %s succeeded without output", p.ID)
	}
	language := p.Output.Language
	if language == "" {
		language = p.Output.DetectedLanguage
	}
	return transcribe.Transcript{
		Text:     strings.TrimSpace(p.Output.Transcription),
		Language: language,
	}, nil
}

func (c *JobClient) submit(ctx context.Context, rec audio.Recording) (prediction, error) {
	contentType := rec.ContentType
	if contentType == "" {
		contentType = audio.ContentTypeWAV
	}
	payload := predictionRequest{
		Version: Version(c.cfg.Model),
		Input: predictionInput{
			Audio:                   "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(rec.Audio),
			Model:                   "large-v3",
			Language:                "auto",
			Translate:               false,
			Temperature:             0,
			SuppressTokens:          "-1",
			LogprobThreshold:        -1.0,
			NoSpeechThreshold:       0.6,
			ConditionOnPreviousText: true,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return prediction{}, fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return prediction{}, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "submit prediction")
}

func (c *JobClient) get(ctx context.Context, url string) (prediction, error) {
	if url == "" {
		return prediction{}, errors.New("prediction has no poll url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return prediction{}, fmt.Errorf("build poll request: %w", err)
	}
	return c.do(req, "poll prediction")
}

func (c *JobClient) do(req *http.Request, op string) (prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	resp, err := c.cfg.HTTP.Do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return prediction{}, readError(op, resp)
	}
	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return prediction{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return pred, nil
}
