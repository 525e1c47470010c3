package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/substantialcattle5/backup/util"
)

// Confirm asks a yes/no question. On a terminal it uses promptui; otherwise
// it reads a line from in.
func Confirm(prompt string, in io.Reader, out io.Writer) (bool, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		confirmPrompt := promptui.Prompt{
			Label:     prompt,
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				return false, nil
			}
			return false, fmt.Errorf("prompt failed: %w", err)
		}
		return true, nil
	}

	ok, err := util.ReadYesNo(prompt, in, out)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return ok, err
}

// Confirmer binds Confirm to a pair of streams.
func Confirmer(in io.Reader, out io.Writer) func(string) (bool, error) {
	return func(prompt string) (bool, error) {
		return Confirm(prompt, in, out)
	}
}
