package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/session"
)

var _ session.Committer = (*Committer)(nil)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from atlas")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from atlas", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestNewCommitterDisabledReturnsNil(t *testing.T) {
	cfg := config.Default().Output
	cfg.Clipboard = false
	require.Nil(t, NewCommitter(cfg, nil))
}

func TestCommitterWritesReply(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default().Output
	cfg.Clipboard = true
	cfg.ClipboardCmd = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	committer := NewCommitter(cfg, nil)
	require.NoError(t, committer.Commit(context.Background(), "Hi! How can I help?"))

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "Hi! How can I help?", string(data))
}

func TestCommitterSkipsBlankReply(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.OutputConfig{
		Clipboard:    true,
		ClipboardCmd: config.CommandConfig{Argv: []string{scriptPath, clipboardPath}},
	}

	require.NoError(t, NewCommitter(cfg, nil).Commit(context.Background(), "  "))

	_, err := os.Stat(clipboardPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommitterReturnsCommandFailure(t *testing.T) {
	cfg := config.OutputConfig{
		Clipboard:    true,
		ClipboardCmd: config.CommandConfig{Argv: []string{writeFailScript(t, "clipboard failed")}},
	}

	err := NewCommitter(cfg, nil).Commit(context.Background(), "reply")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
	require.Contains(t, err.Error(), "clipboard failed")
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture-stdin.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\ncat > \"$1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho \"" + message + "\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
