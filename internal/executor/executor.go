// Package executor runs the external tools the client drives: make,
// configure scripts, sudo and psql.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/pgxn-client/internal/logger"
)

// errEmptyCommand is returned when a Cmd carries no program to run.
var errEmptyCommand = errors.New("empty command")

// Cmd describes one external command invocation.
type Cmd struct {
	// Argv is the program followed by its arguments.
	Argv []string
	// Dir is the working directory, empty for the inherited one.
	Dir string
	// Env holds additional environment entries appended to the process
	// environment. Nil inherits the environment unchanged.
	Env []string
	// Stdin is the standard input, nil for none.
	Stdin io.Reader
	// Stdout receives the standard output. Nil inherits the process
	// stdout, letting tool output flow to the terminal.
	Stdout io.Writer
}

// ToolError reports an external tool exiting with a non-zero status.
type ToolError struct {
	// Tool is the base name of the program that failed.
	Tool string
	// ExitCode is the status the tool exited with.
	ExitCode int
}

// Error renders the failure with the tool name and exit code.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed with return code %d", e.Tool, e.ExitCode)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Cmd) error

// Run calls the wrapped function.
func (f RunnerFunc) Run(ctx context.Context, cmd Cmd) error {
	return f(ctx, cmd)
}

// ExecRunner runs commands through os/exec, blocking until they finish.
type ExecRunner struct{}

// NewExecRunner creates the real command runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command. A non-zero exit status is reported as a
// *ToolError; every other failure keeps its original error.
func (r *ExecRunner) Run(ctx context.Context, cmd Cmd) error {
	if len(cmd.Argv) == 0 {
		return errEmptyCommand
	}

	logger.Debugf(ctx, "calling %v", cmd.Argv)

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.Stderr = os.Stderr

	c.Stdout = cmd.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}

	if cmd.Env != nil {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ToolError{
				Tool:     filepath.Base(cmd.Argv[0]),
				ExitCode: exitErr.ExitCode(),
			}
		}

		return fmt.Errorf("run %s: %w", cmd.Argv[0], err)
	}

	return nil
}

// Sudo prepends the privilege escalation program to a command line.
func Sudo(sudoProgram string, argv []string) []string {
	return append([]string{sudoProgram}, argv...)
}
