package speedtest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one bandwidth measurement and returns its raw output.
type Runner interface {
	Run(ctx context.Context) ([]byte, error)
}

// CommandRunner runs an external speedtest-cli compatible command.
type CommandRunner struct {
	Command string
	Args    []string
}

// NewCommandRunner returns a runner invoking command in CSV mode.
func NewCommandRunner(command string) CommandRunner {
	return CommandRunner{Command: command, Args: []string{"--csv"}}
}

func (r CommandRunner) Run(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
