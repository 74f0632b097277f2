package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/google/shlex"
)

// HookLink drives the PPP link by running external commands, typically
// pppd wrappers such as `pon` and `poff`.
//
// The up hook is started in the background on the first activation and
// is expected to run for as long as the link exists. Later activations run
// the enable hook instead, falling back to the up hook when none is set.
type HookLink struct {
	Up      string
	Enable  string
	Disable string
	Down    string
	Logger  *slog.Logger

	mu     sync.Mutex
	exited chan struct{}
}

// BringUp starts the link.
func (l *HookLink) BringUp(first bool) error {
	if !first && l.Enable != "" && l.running() {
		return l.run(context.Background(), l.Enable)
	}
	return l.start(l.Up)
}

// SetEnabled runs the enable or disable hook.
func (l *HookLink) SetEnabled(enabled bool) error {
	if enabled {
		return l.run(context.Background(), l.Enable)
	}
	return l.run(context.Background(), l.Disable)
}

// WaitDown waits for the up hook to exit and then runs the down hook.
func (l *HookLink) WaitDown(ctx context.Context) error {
	l.mu.Lock()
	exited := l.exited
	l.mu.Unlock()

	if exited != nil {
		select {
		case <-exited:
		case <-ctx.Done():
			return fmt.Errorf("link still up: %w", ctx.Err())
		}
	}
	return l.run(ctx, l.Down)
}

func (l *HookLink) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exited == nil {
		return false
	}
	select {
	case <-l.exited:
		return false
	default:
		return true
	}
}

func (l *HookLink) start(line string) error {
	cmd, err := l.command(context.Background(), line)
	if err != nil || cmd == nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", line, err)
	}

	exited := make(chan struct{})
	l.mu.Lock()
	l.exited = exited
	l.mu.Unlock()

	go func() {
		err := cmd.Wait()
		l.logger().Info("link hook exited", "cmd", line, "err", err)
		close(exited)
	}()
	return nil
}

func (l *HookLink) run(ctx context.Context, line string) error {
	cmd, err := l.command(ctx, line)
	if err != nil || cmd == nil {
		return err
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %q: %w (%s)", line, err, out)
	}
	return nil
}

// command parses line with shell quoting rules. An empty line yields no
// command and no error.
func (l *HookLink) command(ctx context.Context, line string) (*exec.Cmd, error) {
	if line == "" {
		return nil, nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty hook command")
	}
	l.logger().Debug("link hook", "cmd", args)
	return exec.CommandContext(ctx, args[0], args[1:]...), nil
}

func (l *HookLink) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}
