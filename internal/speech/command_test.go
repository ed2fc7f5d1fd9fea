package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandEngineArgs(t *testing.T) {
	engine := NewCommandEngine([]string{"espeak-ng", "-z"})
	args := engine.Args(Utterance{Text: "Hello there", Language: "en-US", Rate: 0.9, Pitch: 1, Volume: 1})
	require.Equal(t, []string{"-z", "-v", "en-us", "-s", "158", "-p", "50", "-a", "100", "--", "Hello there"}, args)
}

func TestCommandEngineDefaultsToEspeak(t *testing.T) {
	require.Equal(t, []string{"espeak-ng"}, NewCommandEngine(nil).argv)
}

func TestCommandEngineRunsStubOnPath(t *testing.T) {
	dir := t.TempDir()
	argsPath := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argsPath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "espeak-ng"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	err := NewCommandEngine(nil).Say(context.Background(), Utterance{Text: "bonjour", Language: "fr-FR", Rate: 1, Pitch: 1, Volume: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(argsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{"-v", "fr-fr", "-s", "175", "-p", "50", "-a", "100", "--", "bonjour"}, lines)
}

func TestCommandEngineReportsStderr(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'voice not found' >&2\nexit 1\n"), 0o755))

	err := NewCommandEngine([]string{script}).Say(context.Background(), Utterance{Text: "x", Language: "zz"})
	require.ErrorContains(t, err, "voice not found")
}
