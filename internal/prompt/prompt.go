// Package prompt asks the operator for confirmation before actions that
// deserve a second look, such as loading a guessed SQL file.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/oshokin/pgxn-client/internal/logger"
)

// ErrDeclined is returned when the operator answers no.
// Callers treat it as a skip, not a failure of the run.
var ErrDeclined = errors.New("operation not confirmed")

// Confirmer asks the operator to confirm an action before it runs.
type Confirmer interface {
	Confirm(ctx context.Context, question string) error
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, question string) error

// Confirm calls the wrapped function.
func (f ConfirmerFunc) Confirm(ctx context.Context, question string) error {
	return f(ctx, question)
}

// Terminal asks questions interactively on the controlling terminal.
type Terminal struct{}

// NewTerminal creates the interactive confirmer.
func NewTerminal() *Terminal {
	return &Terminal{}
}

// Confirm prints the question and reads answers until one of y or n is
// given. Aborting the prompt counts as declining.
func (t *Terminal) Confirm(_ context.Context, question string) error {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	// The question goes to stderr alongside the log output.
	fmt.Fprintln(os.Stderr, question)

	for {
		answer, err := state.Prompt("[y/n] ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return ErrDeclined
			}

			return fmt.Errorf("read confirmation: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return nil
		case "n", "no":
			return ErrDeclined
		}
	}
}

// Auto answers every question affirmatively. It backs the --yes flag.
type Auto struct{}

// NewAuto creates the assume-yes confirmer.
func NewAuto() *Auto {
	return &Auto{}
}

// Confirm approves without asking, leaving a trace in the debug log.
func (a *Auto) Confirm(ctx context.Context, question string) error {
	logger.Debugf(ctx, "assuming yes: %s", question)

	return nil
}
