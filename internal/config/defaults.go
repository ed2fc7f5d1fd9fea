package config

import "time"

const (
	DefaultTranscriptionModel = "openai/whisper:cdd97b257f93cb89dede1c7584e3f3dfc969571b357dbcee08e793740bedd854"
	DefaultGenerationModel    = "gemini-2.0-flash"
	DefaultLanguage           = "en-US"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"
	speech := "espeak-ng"

	return Config{
		Transcription: TranscriptionConfig{
			Primary: PrimaryConfig{
				Mode:         "backend",
				Model:        DefaultTranscriptionModel,
				BackendURL:   "http://localhost:5000",
				JobURL:       "https://api.replicate.com/v1",
				PollInterval: time.Second,
				MaxAttempts:  60,
				Timeout:      30 * time.Second,
			},
			Secondary: SecondaryConfig{
				Enable:     true,
				RivaGRPC:   "127.0.0.1:50051",
				RivaHTTP:   "127.0.0.1:9000",
				HealthPath: "/v1/health/ready",
				Language:   DefaultLanguage,
				Timeout:    30 * time.Second,
			},
		},
		Gemini: GeminiConfig{
			Model:   DefaultGenerationModel,
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: 30 * time.Second,
		},
		Speech: SpeechConfig{
			Command:  mustCommand(speech),
			Language: DefaultLanguage,
			Rate:     0.9,
			Pitch:    1,
			Volume:   1,
		},
		Audio: AudioConfig{
			Input:            "default",
			Fallback:         "default",
			SampleRate:       44100,
			EchoCancellation: true,
			NoiseSuppression: true,
			LevelInterval:    16 * time.Millisecond,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "atlas-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Output: OutputConfig{
			Clipboard:    false,
			ClipboardCmd: mustCommand(clipboard),
		},
	}
}

// defaultSettings flattens Default into viper keys.
func defaultSettings() map[string]any {
	d := Default()
	return map[string]any{
		"transcription.primary.mode":          d.Transcription.Primary.Mode,
		"transcription.primary.api_key":       d.Transcription.Primary.APIKey,
		"transcription.primary.model":         d.Transcription.Primary.Model,
		"transcription.primary.backend_url":   d.Transcription.Primary.BackendURL,
		"transcription.primary.job_url":       d.Transcription.Primary.JobURL,
		"transcription.primary.poll_interval": d.Transcription.Primary.PollInterval,
		"transcription.primary.max_attempts":  d.Transcription.Primary.MaxAttempts,
		"transcription.primary.timeout":       d.Transcription.Primary.Timeout,
		"transcription.secondary.enable":      d.Transcription.Secondary.Enable,
		"transcription.secondary.riva_grpc":   d.Transcription.Secondary.RivaGRPC,
		"transcription.secondary.riva_http":   d.Transcription.Secondary.RivaHTTP,
		"transcription.secondary.health_path": d.Transcription.Secondary.HealthPath,
		"transcription.secondary.language":    d.Transcription.Secondary.Language,
		"transcription.secondary.timeout":     d.Transcription.Secondary.Timeout,
		"gemini.api_key":                      d.Gemini.APIKey,
		"gemini.model":                        d.Gemini.Model,
		"gemini.base_url":                     d.Gemini.BaseURL,
		"gemini.timeout":                      d.Gemini.Timeout,
		"speech.command":                      d.Speech.Command.Raw,
		"speech.language":                     d.Speech.Language,
		"speech.rate":                         d.Speech.Rate,
		"speech.pitch":                        d.Speech.Pitch,
		"speech.volume":                       d.Speech.Volume,
		"audio.input":                         d.Audio.Input,
		"audio.fallback":                      d.Audio.Fallback,
		"audio.sample_rate":                   d.Audio.SampleRate,
		"audio.echo_cancellation":             d.Audio.EchoCancellation,
		"audio.noise_suppression":             d.Audio.NoiseSuppression,
		"audio.level_interval":                d.Audio.LevelInterval,
		"indicator.enable":                    d.Indicator.Enable,
		"indicator.backend":                   d.Indicator.Backend,
		"indicator.desktop_app_name":          d.Indicator.DesktopAppName,
		"indicator.sound_enable":              d.Indicator.SoundEnable,
		"indicator.sound_start_file":          d.Indicator.SoundStartFile,
		"indicator.sound_stop_file":           d.Indicator.SoundStopFile,
		"indicator.sound_complete_file":       d.Indicator.SoundCompleteFile,
		"indicator.sound_cancel_file":         d.Indicator.SoundCancelFile,
		"indicator.error_timeout_ms":          d.Indicator.ErrorTimeoutMS,
		"output.clipboard":                    d.Output.Clipboard,
		"output.clipboard_cmd":                d.Output.ClipboardCmd.Raw,
		"metrics.listen":                      d.Metrics.Listen,
		"debug.audio_dump":                    d.Debug.EnableAudioDump,
	}
}
