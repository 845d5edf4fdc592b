package output

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question, defaulting to no. Abort (Ctrl-C) and
// an empty answer both read as declined.
func Confirm(message string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
