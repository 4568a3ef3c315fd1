package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// CommandPlayer pipes audio into an external player process, such as
// "mpg123 -q -" or "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	name string
	args []string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewCommandPlayer creates a player for the given command line.
func NewCommandPlayer(name string, args ...string) *CommandPlayer {
	return &CommandPlayer{name: name, args: args}
}

// Play blocks until the player exits or is stopped.
func (p *CommandPlayer) Play(ctx context.Context, audio Audio) error {
	if audio.Empty() {
		return nil
	}

	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio.Data)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	p.mu.Lock()
	p.current = cmd
	p.mu.Unlock()

	err := cmd.Wait()

	p.mu.Lock()
	if p.current == cmd {
		p.current = nil
	}
	p.mu.Unlock()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && !exitErr.Exited() {
			// Killed by StopPlayback or ctx.
			return nil
		}
		return fmt.Errorf("play audio with %s: %w", p.name, err)
	}
	return nil
}

// StopPlayback kills the running player process, if any.
func (p *CommandPlayer) StopPlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.Process == nil {
		return
	}
	if err := p.current.Process.Kill(); err != nil {
		slog.Debug("stop playback", "error", err)
	}
}

var _ Player = (*CommandPlayer)(nil)
