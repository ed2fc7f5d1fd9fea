// Package config resolves, loads, validates, and defaults atlas configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by atlas.
type Config struct {
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Indicator     IndicatorConfig     `mapstructure:"indicator"`
	Output        OutputConfig        `mapstructure:"output"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Debug         DebugConfig         `mapstructure:"debug"`
}

// TranscriptionConfig groups the primary remote provider and the on-device fallback.
type TranscriptionConfig struct {
	Primary   PrimaryConfig   `mapstructure:"primary"`
	Secondary SecondaryConfig `mapstructure:"secondary"`
}

// PrimaryConfig selects the remote provider shape and its polling budget.
type PrimaryConfig struct {
	Mode         string        `mapstructure:"mode"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BackendURL   string        `mapstructure:"backend_url"`
	JobURL       string        `mapstructure:"job_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SecondaryConfig points at the local speech engine.
type SecondaryConfig struct {
	Enable     bool          `mapstructure:"enable"`
	RivaGRPC   string        `mapstructure:"riva_grpc"`
	RivaHTTP   string        `mapstructure:"riva_http"`
	HealthPath string        `mapstructure:"health_path"`
	Language   string        `mapstructure:"language"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GeminiConfig controls the response generator.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SpeechConfig controls reply playback.
type SpeechConfig struct {
	Command  CommandConfig `mapstructure:"command"`
	Language string        `mapstructure:"language"`
	Rate     float64       `mapstructure:"rate"`
	Pitch    float64       `mapstructure:"pitch"`
	Volume   float64       `mapstructure:"volume"`
}

// AudioConfig controls input-source selection and capture constraints.
type AudioConfig struct {
	Input            string        `mapstructure:"input"`
	Fallback         string        `mapstructure:"fallback"`
	SampleRate       int           `mapstructure:"sample_rate"`
	EchoCancellation bool          `mapstructure:"echo_cancellation"`
	NoiseSuppression bool          `mapstructure:"noise_suppression"`
	LevelInterval    time.Duration `mapstructure:"level_interval"`
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool   `mapstructure:"enable"`
	Backend           string `mapstructure:"backend"`
	DesktopAppName    string `mapstructure:"desktop_app_name"`
	SoundEnable       bool   `mapstructure:"sound_enable"`
	SoundStartFile    string `mapstructure:"sound_start_file"`
	SoundStopFile     string `mapstructure:"sound_stop_file"`
	SoundCompleteFile string `mapstructure:"sound_complete_file"`
	SoundCancelFile   string `mapstructure:"sound_cancel_file"`
	ErrorTimeoutMS    int    `mapstructure:"error_timeout_ms"`
}

// OutputConfig controls what happens to the reply after playback.
type OutputConfig struct {
	Clipboard    bool          `mapstructure:"clipboard"`
	ClipboardCmd CommandConfig `mapstructure:"clipboard_cmd"`
}

// MetricsConfig enables the prometheus listener when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool `mapstructure:"audio_dump"`
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}
