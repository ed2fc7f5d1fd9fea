package config

import (
	"fmt"
	"strings"
)

// Credentials is the settings subset a voice run cannot start without.
type Credentials struct {
	TranscriptionAPIKey string
	TranscriptionModel  string
	GenerationAPIKey    string
	GenerationModel     string
}

// ConfigurationError reports which required settings are blank.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Missing, ", "))
}

// Credentials extracts the required settings from cfg.
func (c Config) Credentials() Credentials {
	return Credentials{
		TranscriptionAPIKey: c.Transcription.Primary.APIKey,
		TranscriptionModel:  c.Transcription.Primary.Model,
		GenerationAPIKey:    c.Gemini.APIKey,
		GenerationModel:     c.Gemini.Model,
	}
}

// Missing lists the config keys of blank fields.
func (c Credentials) Missing() []string {
	fields := []struct {
		key   string
		value string
	}{
		{"transcription.primary.api_key", c.TranscriptionAPIKey},
		{"transcription.primary.model", c.TranscriptionModel},
		{"gemini.api_key", c.GenerationAPIKey},
		{"gemini.model", c.GenerationModel},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// Check returns a *ConfigurationError when any required field is blank.
func (c Credentials) Check() error {
	if missing := c.Missing(); len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
