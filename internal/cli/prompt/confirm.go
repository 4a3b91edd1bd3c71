// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, ErrAborted)
}

// runner is the part of promptui.Prompt used here.
type runner interface {
	Run() (string, error)
}

// Confirm prompts the user for yes/no confirmation. An empty answer selects
// the default. Returns ErrAborted if the user presses Ctrl+C.
func Confirm(label string, defaultYes bool) (bool, error) {
	return confirm(newConfirmPrompt(label, defaultYes))
}

// ConfirmWithForce returns true immediately if force is true,
// otherwise prompts for confirmation defaulting to no.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

func newConfirmPrompt(label string, defaultYes bool) *promptui.Prompt {
	p := &promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if defaultYes {
		p.Default = "y"
	}
	return p
}

func confirm(r runner) (bool, error) {
	result, err := r.Run()
	switch {
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// promptui answers anything but yes with ErrAbort
		return false, nil
	case err != nil:
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(result)) {
	case "y", "yes", "":
		return true, nil
	default:
		return false, nil
	}
}
