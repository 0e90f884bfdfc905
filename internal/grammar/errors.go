package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLanguage is returned for a language tag with no
	// registered grammar and query program.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnknownCapture marks a query file using a capture name outside the
	// reserved vocabulary.
	ErrUnknownCapture = errors.New("unknown capture name")
)

// ConfigError reports a bad or missing query program. It is always raised
// while loading, before any file is parsed.
type ConfigError struct {
	Language string
	File     string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("grammar: %s: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("grammar: %s (%s): %v", e.Language, e.File, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
