package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a keystore passphrase from an environment variable or by
// prompting on the terminal. The first result, success or failure, is cached.
type Source struct {
	envVar string
	prompt string

	// isTerminal and readPassword are swapped out in tests.
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)

	once  sync.Once
	value string
	err   error
}

// NewSource returns a source that checks envVar before prompting with prompt.
func NewSource(envVar, prompt string) *Source {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Enter keystore passphrase: "
	}
	return &Source{
		envVar:       strings.TrimSpace(envVar),
		prompt:       prompt,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Get returns the passphrase. A set environment variable is used verbatim;
// whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		fd := int(os.Stdin.Fd())
		if !s.isTerminal(fd) {
			if s.envVar != "" {
				s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("keystore passphrase required and no terminal available")
			}
			return
		}

		fmt.Fprint(os.Stderr, s.prompt)
		raw, err := s.readPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			s.err = fmt.Errorf("failed to read passphrase: %w", err)
			return
		}
		if strings.TrimSpace(string(raw)) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		s.value = string(raw)
	})
	return s.value, s.err
}
