package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/events"
	"github.com/workingedge/atlas/internal/gemini"
	"github.com/workingedge/atlas/internal/httpc"
	"github.com/workingedge/atlas/internal/indicator"
	"github.com/workingedge/atlas/internal/metrics"
	"github.com/workingedge/atlas/internal/ondevice"
	"github.com/workingedge/atlas/internal/output"
	"github.com/workingedge/atlas/internal/pipeline"
	"github.com/workingedge/atlas/internal/replicate"
	"github.com/workingedge/atlas/internal/session"
	"github.com/workingedge/atlas/internal/speech"
	"github.com/workingedge/atlas/internal/transcribe"
)

const (
	supportProbeTimeout = 2 * time.Second
	metricsShutdown     = time.Second
)

// owner holds the collaborators of the process that owns the pipeline.
type owner struct {
	controller *session.Controller
	metrics    *http.Server
	logger     *slog.Logger
}

func newOwner(ctx context.Context, cfg config.Config, logger *slog.Logger, stderr io.Writer) (*owner, error) {
	log := newEventLog(logger, stderr)
	m := metrics.New()

	o := &owner{logger: logger}
	if addr := strings.TrimSpace(cfg.Metrics.Listen); addr != "" {
		srv, err := serveMetrics(addr, m, logger)
		if err != nil {
			return nil, err
		}
		o.metrics = srv
	}

	probeCtx, cancel := context.WithTimeout(ctx, supportProbeTimeout)
	defer cancel()
	transcriber := transcribe.NewOrchestrator(
		probeCtx,
		newPrimary(cfg.Transcription.Primary, logger),
		newSecondary(cfg.Transcription.Secondary, logger),
		transcribe.WithLogger(logger.With("component", "transcribe")),
		transcribe.WithFallbackHook(session.FallbackNotice(log, m)),
	)

	deps := session.Deps{
		Events:      log,
		Credentials: cfg.Credentials(),
		Recorder:    pipeline.NewRecorder(cfg, logger.With("component", "recorder")),
		Transcriber: transcriber,
		Responder:   gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model, httpc.NewClient(cfg.Gemini.Timeout)),
		Speaker:     newSpeaker(cfg.Speech, logger),
		Indicator:   newIndicator(cfg.Indicator, logger),
		Metrics:     m,
	}
	if committer := output.NewCommitter(cfg.Output, logger.With("component", "output")); committer != nil {
		deps.Committer = committer
	}
	o.controller = session.NewController(deps)
	return o, nil
}

func (o *owner) close() {
	if o.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
	defer cancel()
	if err := o.metrics.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics shutdown failed", "error", err.Error())
	}
}

// serveMetrics exposes the prometheus registry for the lifetime of the owner.
func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err.Error())
		}
	}()
	logger.Info("metrics listening", "addr", listener.Addr().String())
	return srv, nil
}

// newEventLog mirrors pipeline events into logger and prints them to w.
func newEventLog(logger *slog.Logger, w io.Writer) *events.Log {
	log := events.New(logger.With("component", "pipeline"))
	log.Subscribe(func(e events.Event) {
		fmt.Fprintln(w, formatEvent(e))
	})
	return log
}

func newPrimary(cfg config.PrimaryConfig, logger *slog.Logger) transcribe.Provider {
	client := httpc.NewClient(cfg.Timeout)
	if strings.EqualFold(strings.TrimSpace(cfg.Mode), "job") {
		return replicate.NewJobClient(replicate.JobConfig{
			BaseURL:      cfg.JobURL,
			Token:        cfg.APIKey,
			Model:        cfg.Model,
			PollInterval: cfg.PollInterval,
			MaxAttempts:  cfg.MaxAttempts,
			HTTP:         client,
			Logger:       logger.With("component", "replicate"),
		})
	}
	return replicate.NewBackendClient(cfg.BackendURL, client)
}

// newSecondary returns nil when the on-device fallback is disabled.
func newSecondary(cfg config.SecondaryConfig, logger *slog.Logger) transcribe.Provider {
	if !cfg.Enable {
		return nil
	}
	engine := ondevice.NewRivaEngine(ondevice.RivaConfig{
		GRPCAddr:   cfg.RivaGRPC,
		HTTPAddr:   cfg.RivaHTTP,
		HealthPath: cfg.HealthPath,
		HTTP:       httpc.NewClient(cfg.Timeout),
	})
	return ondevice.NewRecognizer(
		engine,
		ondevice.PulsePlayer{},
		ondevice.MonitorListener{},
		ondevice.WithLanguage(cfg.Language),
		ondevice.WithTimeout(cfg.Timeout),
		ondevice.WithLogger(logger.With("component", "ondevice")),
	)
}

func newSpeaker(cfg config.SpeechConfig, logger *slog.Logger) *speech.Synthesizer {
	voice := speech.Voice{
		Language: cfg.Language,
		Rate:     cfg.Rate,
		Pitch:    cfg.Pitch,
		Volume:   cfg.Volume,
	}
	return speech.NewSynthesizer(speech.NewCommandEngine(cfg.Command.Argv), voice, logger.With("component", "speech"))
}

func newIndicator(cfg config.IndicatorConfig, logger *slog.Logger) session.Indicator {
	return indicator.NewHyprNotify(cfg, logger.With("component", "indicator"))
}
