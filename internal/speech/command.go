package speech

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// CommandEngine drives an espeak-ng compatible command line.
type CommandEngine struct {
	argv []string
}

func NewCommandEngine(argv []string) *CommandEngine {
	if len(argv) == 0 {
		argv = []string{"espeak-ng"}
	}
	return &CommandEngine{argv: append([]string(nil), argv...)}
}

// Args renders the command line for one utterance.
func (e *CommandEngine) Args(u Utterance) []string {
	args := append([]string(nil), e.argv[1:]...)
	return append(args,
		"-v", strings.ToLower(u.Language),
		"-s", strconv.Itoa(scale(175, u.Rate)),
		"-p", strconv.Itoa(scale(50, u.Pitch)),
		"-a", strconv.Itoa(scale(100, u.Volume)),
		"--", u.Text,
	)
}

func scale(base int, factor float64) int {
	if factor <= 0 {
		factor = 1
	}
	return int(math.Round(float64(base) * factor))
}

func (e *CommandEngine) Say(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, e.argv[0], e.Args(u)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", e.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", e.argv[0], err)
	}
	return nil
}
