package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/yanniedog/blueberry/internal/models"
)

var DEFAULT_COMMAND = []string{"btmgmt", "find"}

// CommandError describes a failed discovery subprocess.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("discovery command %q failed: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("discovery command %q failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandScanner runs a discovery utility and consumes its stdout line by
// line until the process exits.
type CommandScanner struct {
	command []string
	logger  *slog.Logger
}

func NewCommandScanner(command []string, logger *slog.Logger) *CommandScanner {
	if len(command) == 0 {
		command = DEFAULT_COMMAND
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CommandScanner{
		command: command,
		logger:  logger,
	}
}

func (s *CommandScanner) Scan(ctx context.Context, resolver VendorResolver) (models.Observations, error) {
	collector := NewCollector(resolver)
	commandLine := strings.Join(s.command, " ")

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return collector.Observations(), &CommandError{Command: commandLine, Err: err}
	}

	s.logger.Debug("Starting discovery", "command", commandLine)

	if err := cmd.Start(); err != nil {
		return collector.Observations(), &CommandError{Command: commandLine, Err: err}
	}

	readErr := collector.ReadFrom(ctx, stdout)
	if readErr != nil {
		// Wait blocks until stdout is drained, so keep reading after a parse failure.
		io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	observations := collector.Observations()
	s.logger.Debug("Discovery finished", "command", commandLine, "devices", len(observations))

	if err := errors.Join(readErr, waitErr); err != nil {
		return observations, &CommandError{
			Command: commandLine,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	return observations, nil
}
