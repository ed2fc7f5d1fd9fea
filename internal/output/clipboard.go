// Package output copies generated replies to the clipboard.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/workingedge/atlas/internal/config"
)

const clipboardTimeout = 2 * time.Second

// ErrEmptyCommand is returned when the clipboard command has no argv.
var ErrEmptyCommand = errors.New("command argv cannot be empty")

// Committer writes the reply to the configured clipboard command.
type Committer struct {
	argv   []string
	logger *slog.Logger
}

// NewCommitter returns nil when clipboard output is disabled so callers can
// skip wiring it.
func NewCommitter(cfg config.OutputConfig, logger *slog.Logger) *Committer {
	if !cfg.Clipboard {
		return nil
	}
	return &Committer{argv: cfg.ClipboardCmd.Argv, logger: logger}
}

// Commit pipes reply into the clipboard command.
func (c *Committer) Commit(ctx context.Context, reply string) error {
	if strings.TrimSpace(reply) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.argv, reply); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("reply copied to clipboard", "bytes", len(reply))
	}
	return nil
}

// runCommandWithInput executes argv and writes input to its stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("run %s: %w", argv[0], err)
		}
		return fmt.Errorf("run %s: %w (%s)", argv[0], err, trimmed)
	}
	return nil
}
