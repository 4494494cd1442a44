package monitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Probe is a running reachability-probe process. Lines is closed when the
// output ends; Done then yields the exit result.
type Probe interface {
	Lines() <-chan string
	Done() <-chan error
	Stop()
}

// Launcher starts a probe bound to ctx.
type Launcher func(ctx context.Context) (Probe, error)

// PingArgs returns arguments for a continuous one-per-second ping on goos.
func PingArgs(goos, target string) []string {
	switch goos {
	case "windows":
		return []string{"-t", target}
	case "linux":
		return []string{"-n", "-i", "1", target}
	default:
		return []string{"-i", "1", target}
	}
}

// CommandLauncher launches command with args and streams its stdout.
func CommandLauncher(command string, args ...string) Launcher {
	return func(ctx context.Context) (Probe, error) {
		return startCommand(ctx, command, args...)
	}
}

// PingLauncher launches the system ping utility against target.
func PingLauncher(command, target string) Launcher {
	return CommandLauncher(command, PingArgs(runtime.GOOS, target)...)
}

type execProbe struct {
	lines  chan string
	done   chan error
	cancel context.CancelFunc
}

func startCommand(parent context.Context, name string, args ...string) (*execProbe, error) {
	ctx, cancel := context.WithCancel(parent)
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &execProbe{
		lines:  make(chan string, 64),
		done:   make(chan error, 1),
		cancel: cancel,
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case p.lines <- scanner.Text():
			case <-ctx.Done():
			}
		}
		close(p.lines)

		err := cmd.Wait()
		if err != nil && stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		p.done <- err
		close(p.done)
	}()

	return p, nil
}

func (p *execProbe) Lines() <-chan string { return p.lines }
func (p *execProbe) Done() <-chan error   { return p.done }
func (p *execProbe) Stop()                { p.cancel() }
