// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/hypr"
)

const (
	iconWarning = 0
	iconInfo    = 1
	iconError   = 3

	colorRecording    = "rgb(89b4fa)"
	colorTranscribing = "rgb(cba6f7)"
	colorGenerating   = "rgb(f9e2af)"
	colorSpeaking     = "rgb(a6e3a1)"
	colorWarning      = "rgb(fab387)"
	colorError        = "rgb(f38ba8)"

	stickyTimeoutMS  = 300000
	defaultTimeoutMS = 1200
	dispatchTimeout  = 400 * time.Millisecond
)

// HyprNotify is the concrete indicator used by the voice session.
// It routes notifications via Hyprland or desktop DBus based on config backend.
type HyprNotify struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// NewHyprNotify creates an indicator controller from config.
func NewHyprNotify(cfg config.IndicatorConfig, logger *slog.Logger) *HyprNotify {
	return &HyprNotify{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
	}
}

// ShowRecording signals capture start and emits the start cue.
func (h *HyprNotify) ShowRecording(ctx context.Context) {
	h.playCue(cueStart)
	h.show(ctx, iconInfo, stickyTimeoutMS, colorRecording, h.messages.recording)
}

func (h *HyprNotify) ShowTranscribing(ctx context.Context) {
	h.show(ctx, iconInfo, stickyTimeoutMS, colorTranscribing, h.messages.transcribing)
}

func (h *HyprNotify) ShowGenerating(ctx context.Context) {
	h.show(ctx, iconInfo, stickyTimeoutMS, colorGenerating, h.messages.generating)
}

func (h *HyprNotify) ShowSpeaking(ctx context.Context) {
	h.show(ctx, iconInfo, stickyTimeoutMS, colorSpeaking, h.messages.speaking)
}

// ShowWarning displays a short-lived warning such as an empty transcript.
func (h *HyprNotify) ShowWarning(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	h.show(ctx, iconWarning, h.errorTimeout(), colorWarning, text)
}

// ShowError displays an error-state message, falling back to a generic one.
func (h *HyprNotify) ShowError(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = h.messages.errorText
	}
	h.show(ctx, iconError, h.errorTimeout(), colorError, text)
}

func (h *HyprNotify) CueStop(context.Context) {
	h.playCue(cueStop)
}

func (h *HyprNotify) CueComplete(context.Context) {
	h.playCue(cueComplete)
}

func (h *HyprNotify) CueCancel(context.Context) {
	h.playCue(cueCancel)
}

// Hide dismisses the active indicator surface.
func (h *HyprNotify) Hide(ctx context.Context) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, h.dismiss)
}

func (h *HyprNotify) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, icon, timeoutMS, color, text)
	})
}

func (h *HyprNotify) errorTimeout() int {
	if h.cfg.ErrorTimeoutMS <= 0 {
		return defaultTimeoutMS
	}
	return h.cfg.ErrorTimeoutMS
}

func (h *HyprNotify) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(h.cfg.Backend), "desktop")
}

func (h *HyprNotify) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if h.desktop() {
		level := urgencyNormal
		if icon == iconError {
			level = urgencyCritical
		}
		return h.notifyDesktop(ctx, timeoutMS, level, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

func (h *HyprNotify) dismiss(ctx context.Context) error {
	if h.desktop() {
		return h.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (h *HyprNotify) notifyDesktop(ctx context.Context, timeoutMS int, level urgency, text string) error {
	h.mu.Lock()
	replaceID := h.desktopNotificationID
	h.mu.Unlock()

	appName := strings.TrimSpace(h.cfg.DesktopAppName)
	if appName == "" {
		appName = "atlas-indicator"
	}

	id, err := desktopNotify(ctx, desktopNotice{
		appName:   appName,
		replaceID: replaceID,
		summary:   text,
		urgency:   level,
		timeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.desktopNotificationID = id
	h.mu.Unlock()
	return nil
}

func (h *HyprNotify) dismissDesktop(ctx context.Context) error {
	h.mu.Lock()
	id := h.desktopNotificationID
	h.desktopNotificationID = 0
	h.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (h *HyprNotify) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		h.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (h *HyprNotify) playCue(kind cueKind) {
	if !h.cfg.SoundEnable {
		return
	}
	go func() {
		h.soundMu.Lock()
		defer h.soundMu.Unlock()
		if err := emitCue(context.Background(), kind, h.cfg); err != nil {
			h.log("indicator audio cue failed", err)
		}
	}()
}

func (h *HyprNotify) log(message string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Debug(message, "error", err.Error())
}
