// Package doctor runs readiness diagnostics for config, credentials, tools,
// audio, and the transcription providers.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/workingedge/atlas/internal/audio"
	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/httpc"
	"github.com/workingedge/atlas/internal/ondevice"
	"github.com/workingedge/atlas/internal/replicate"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// probes are the network-facing checks; tests substitute them.
type probes struct {
	backend  func(ctx context.Context, baseURL string) error
	ondevice func(ctx context.Context, cfg config.SecondaryConfig) error
	audio    func(ctx context.Context, input, fallback string) (audio.Selection, error)
}

func defaultProbes() probes {
	return probes{
		backend: func(ctx context.Context, baseURL string) error {
			return replicate.NewBackendClient(baseURL, httpc.NewClient(probeTimeout)).Health(ctx)
		},
		ondevice: func(ctx context.Context, cfg config.SecondaryConfig) error {
			engine := ondevice.NewRivaEngine(ondevice.RivaConfig{
				GRPCAddr:   cfg.RivaGRPC,
				HTTPAddr:   cfg.RivaHTTP,
				HealthPath: cfg.HealthPath,
				HTTP:       httpc.NewClient(probeTimeout),
			})
			return engine.Ready(ctx)
		},
		audio: audio.SelectDevice,
	}
}

// Run executes environment, config, and provider checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	return run(ctx, loaded, defaultProbes())
}

func run(ctx context.Context, loaded config.Loaded, p probes) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded), checkCredentials(cfg)}

	if cfg.Indicator.Enable && strings.EqualFold(strings.TrimSpace(cfg.Indicator.Backend), "hypr") {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
		checks = append(checks, checkBinary("hyprctl", "indicator notifications"))
	}

	checks = append(checks, checkCommand(cfg.Speech.Command.Argv, "speech.command"))
	if cfg.Output.Clipboard {
		checks = append(checks, checkCommand(cfg.Output.ClipboardCmd.Argv, "output.clipboard_cmd"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Audio, p.audio))
	checks = append(checks, checkPrimary(ctx, cfg.Transcription.Primary, p.backend))
	if cfg.Transcription.Secondary.Enable {
		checks = append(checks, checkSecondary(ctx, cfg.Transcription.Secondary, p.ondevice))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkCredentials(cfg config.Config) Check {
	if err := cfg.Credentials().Check(); err != nil {
		return Check{Name: "credentials", Pass: false, Message: err.Error()}
	}
	return Check{Name: "credentials", Pass: true, Message: "transcription and generation keys set"}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig, selectDevice func(context.Context, string, string) (audio.Selection, error)) Check {
	selection, err := selectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkPrimary(ctx context.Context, cfg config.PrimaryConfig, health func(context.Context, string) error) Check {
	const name = "transcription.primary"
	if !strings.EqualFold(strings.TrimSpace(cfg.Mode), "backend") {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("job mode via %s (model %s)", cfg.JobURL, replicate.Version(cfg.Model))}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := health(ctx, cfg.BackendURL); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("backend reachable at %s", cfg.BackendURL)}
}

func checkSecondary(ctx context.Context, cfg config.SecondaryConfig, ready func(context.Context, config.SecondaryConfig) error) Check {
	const name = "transcription.secondary"
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := ready(ctx, cfg); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("on-device engine ready at %s", cfg.RivaGRPC)}
}
