package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	primary := cfg.Transcription.Primary
	switch strings.ToLower(strings.TrimSpace(primary.Mode)) {
	case "backend":
		if strings.TrimSpace(primary.BackendURL) == "" {
			return nil, fmt.Errorf("transcription.primary.backend_url must not be empty when mode=backend")
		}
	case "job":
		if strings.TrimSpace(primary.JobURL) == "" {
			return nil, fmt.Errorf("transcription.primary.job_url must not be empty when mode=job")
		}
		if !strings.Contains(primary.Model, ":") {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("transcription.primary.model %q has no version suffix; submitting it as-is", primary.Model)})
		}
	default:
		return nil, fmt.Errorf("transcription.primary.mode must be one of: backend, job")
	}
	if primary.PollInterval <= 0 {
		return nil, fmt.Errorf("transcription.primary.poll_interval must be > 0")
	}
	if primary.MaxAttempts <= 0 {
		return nil, fmt.Errorf("transcription.primary.max_attempts must be > 0")
	}

	secondary := cfg.Transcription.Secondary
	if secondary.Enable {
		if strings.TrimSpace(secondary.RivaGRPC) == "" {
			return nil, fmt.Errorf("transcription.secondary.riva_grpc must not be empty")
		}
		if strings.TrimSpace(secondary.RivaHTTP) == "" {
			return nil, fmt.Errorf("transcription.secondary.riva_http must not be empty")
		}
		if !strings.HasPrefix(strings.TrimSpace(secondary.HealthPath), "/") {
			return nil, fmt.Errorf("transcription.secondary.health_path must start with '/'")
		}
	}

	if strings.TrimSpace(cfg.Gemini.BaseURL) == "" {
		return nil, fmt.Errorf("gemini.base_url must not be empty")
	}
	if len(cfg.Speech.Command.Argv) == 0 {
		return nil, fmt.Errorf("speech.command must not be empty")
	}
	if cfg.Speech.Rate <= 0 {
		return nil, fmt.Errorf("speech.rate must be > 0")
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.LevelInterval <= 0 {
		return nil, fmt.Errorf("audio.level_interval must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Output.Clipboard && len(cfg.Output.ClipboardCmd.Argv) == 0 {
		return nil, fmt.Errorf("output.clipboard_cmd must not be empty when output.clipboard=true")
	}

	if missing := cfg.Credentials().Missing(); len(missing) > 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("missing required settings (%s); voice runs will be refused", strings.Join(missing, ", "))})
	}

	return warnings, nil
}
