package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("invalid configuration")
	ErrGeneration       = errors.New("payload generation failed")
	ErrEmptySceneCorpus = errors.New("scene corpus is empty")
	ErrUnknownProvider  = errors.New("unknown provider")
)

// ConfigError reports a missing or invalid configuration value. It is fatal to
// a run and is raised before any payload is built.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// GenerationError wraps a failure that happened while producing the payloads
// for a single image.
type GenerationError struct {
	Image    int
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate image %d (%s): %v", e.Image, e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }
