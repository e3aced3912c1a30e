// Package prompt collects interactive operator input. Only the daemon
// variant prompts (for the service account); every other surface is
// flag- or config-driven.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is
// not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal; pass --user or set service.user in the configuration")

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// UserExists reports whether name is a known system account.
func UserExists(name string) bool {
	_, err := user.Lookup(name)
	return err == nil
}

// Username asks which account the service should run as, re-asking
// until the answer names an existing account. An empty answer takes
// defaultUser. Fails immediately when stdin is not a terminal.
func Username(defaultUser string) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	label := fmt.Sprintf("Run the service as user [%s]: ", defaultUser)
	for {
		input, err := line.Prompt(label)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", errors.New("username prompt aborted")
			}
			return "", fmt.Errorf("failed to read username: %w", err)
		}

		name, err := resolveUsername(input, defaultUser, UserExists)
		if err != nil {
			fmt.Println(err)
			continue
		}
		return name, nil
	}
}

// resolveUsername validates one prompt answer. exists is injected so
// tests do not depend on the host's account database.
func resolveUsername(input, defaultUser string, exists func(string) bool) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		name = defaultUser
	}
	if name == "" {
		return "", errors.New("a username is required")
	}
	if !exists(name) {
		return "", fmt.Errorf("user %q does not exist on this system", name)
	}
	return name, nil
}

// CurrentUsername returns the invoking account's name, for use as the
// prompt default.
func CurrentUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
