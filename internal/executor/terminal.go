package executor

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// DefaultTerminal is used when neither a template nor a terminal program is configured.
const DefaultTerminal = "alacritty"

// Terminal describes how terminal applications are wrapped.
type Terminal struct {
	// Template is a user supplied command line such as "kitty --hold -e".
	// It wins over Program when not blank.
	Template string
	// Program is the terminal named by the environment, started as "<Program> -e".
	Program string
}

// Argv returns the terminal command words the application command is appended to.
func (t Terminal) Argv() ([]string, error) {
	if strings.TrimSpace(t.Template) != "" {
		words, err := shellquote.Split(t.Template)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrConfigParse, t.Template, err)
		}
		return words, nil
	}
	if t.Program != "" {
		return []string{t.Program, "-e"}, nil
	}
	return []string{DefaultTerminal, "-e"}, nil
}

// Wrap builds a shell command line that runs command inside the terminal.
// command is passed to the terminal as a single argument.
func (t Terminal) Wrap(command string) (string, error) {
	argv, err := t.Argv()
	if err != nil {
		return "", err
	}
	return shellquote.Join(append(argv, command)...), nil
}
