package domain

import (
	"fmt"
	"strings"

	"codexgen/internal/provider"
)

// Mode decides which providers receive a payload for each image.
type Mode int

const (
	// ModeFixed keeps the configured provider for every image.
	ModeFixed Mode = iota
	// ModeBroadcast emits one payload per configured provider per image.
	ModeBroadcast
	// ModeRandom draws one provider per image.
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeBroadcast:
		return "broadcast"
	case ModeRandom:
		return "random"
	default:
		return "fixed"
	}
}

// ParseMode accepts the names produced by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return ModeFixed, nil
	case "broadcast":
		return ModeBroadcast, nil
	case "random":
		return ModeRandom, nil
	}
	return ModeFixed, &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

const (
	// DefaultMaxPromptLength bounds both the raw scene and the final prompt.
	DefaultMaxPromptLength = 850
	// DefaultRate is used for providers without a configured inclusion rate.
	DefaultRate = 0.5
	// ScenePlaceholder is replaced by the scene in the override template.
	ScenePlaceholder = "<SCENE>"
	// UnspecifiedSeed asks providers to pick a random seed.
	UnspecifiedSeed = -1
	// PortraitAspect is sent in aspect_ratio regardless of dimensions.
	PortraitAspect = "portrait"
)

// Override replaces probabilistic prompt assembly with a fixed template.
type Override struct {
	Enabled  bool
	Template string
	Model    string
	Style    string
}

// GenerationConfig is the immutable snapshot threaded through a run.
type GenerationConfig struct {
	Mode      Mode
	Provider  provider.Kind
	Providers []provider.Kind

	Override Override

	Rates      map[provider.Kind]float64
	ModelPools map[provider.Kind][]string
	StylePools map[provider.Kind][]string
	Tokens     map[provider.Kind]string

	Width          int
	Height         int
	NegativePrompt string
	ForceUniverse  string
	Sampler        string
	NumImages      int

	MaxPromptLength int
}

// Rate returns the inclusion probability for k.
func (c GenerationConfig) Rate(k provider.Kind) float64 {
	if r, ok := c.Rates[k]; ok {
		return r
	}
	return DefaultRate
}

// ModelPool returns the model ids k draws from.
func (c GenerationConfig) ModelPool(k provider.Kind) []string {
	if pool, ok := c.ModelPools[k]; ok && len(pool) > 0 {
		return pool
	}
	return c.ModelPools[provider.ProfileOf(k).ModelPool]
}

// StylePool returns the styles k draws from.
func (c GenerationConfig) StylePool(k provider.Kind) []string {
	if pool, ok := c.StylePools[k]; ok && len(pool) > 0 {
		return pool
	}
	return c.StylePools[provider.ProfileOf(k).StylePool]
}

// Token returns the credential for k; unknown kinds use Leonardo's.
func (c GenerationConfig) Token(k provider.Kind) string {
	if !k.Valid() {
		k = provider.Leonardo
	}
	return c.Tokens[k]
}

// RequireToken reports a ConfigError when k has no credential.
func (c GenerationConfig) RequireToken(k provider.Kind) error {
	if !k.Valid() {
		k = provider.Leonardo
	}
	if strings.TrimSpace(c.Tokens[k]) == "" {
		return &ConfigError{Field: strings.ToUpper(k.Tag()) + "_TOKEN", Reason: "is required"}
	}
	return nil
}

// MaxLength returns the configured prompt bound or the default.
func (c GenerationConfig) MaxLength() int {
	if c.MaxPromptLength > 0 {
		return c.MaxPromptLength
	}
	return DefaultMaxPromptLength
}

// Candidates lists the providers a run can select.
func (c GenerationConfig) Candidates() []provider.Kind {
	switch c.Mode {
	case ModeBroadcast, ModeRandom:
		if len(c.Providers) > 0 {
			return c.Providers
		}
		return provider.All
	default:
		return []provider.Kind{c.Provider}
	}
}

// Validate checks every value a run needs before any payload is built.
func (c GenerationConfig) Validate() error {
	if c.Mode < ModeFixed || c.Mode > ModeRandom {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unsupported value %d", int(c.Mode))}
	}
	if c.Mode == ModeFixed && !c.Provider.Valid() {
		return &ConfigError{Field: "RENDER_MODE", Reason: "unknown provider"}
	}
	for _, k := range c.Providers {
		if !k.Valid() {
			return &ConfigError{Field: "RENDER_MODES", Reason: fmt.Sprintf("unknown provider %s", k)}
		}
	}
	if c.Width <= 0 {
		return &ConfigError{Field: "IMAGE_WIDTH", Reason: "must be positive"}
	}
	if c.Height <= 0 {
		return &ConfigError{Field: "IMAGE_HEIGHT", Reason: "must be positive"}
	}
	if c.MaxPromptLength < 0 {
		return &ConfigError{Field: "MAX_PROMPT_LENGTH", Reason: "must not be negative"}
	}
	for k, r := range c.Rates {
		if r < 0 || r > 1 {
			return &ConfigError{Field: strings.ToUpper(k.Tag()) + "_RATE", Reason: "must be within [0, 1]"}
		}
	}
	for _, k := range c.Candidates() {
		if err := c.RequireToken(k); err != nil {
			return err
		}
	}
	if c.Override.Enabled {
		if strings.TrimSpace(c.Override.Template) == "" {
			return &ConfigError{Field: "SCENE", Reason: "is required in override mode"}
		}
		for _, k := range c.Candidates() {
			if provider.ProfileOf(k).PoolOverride {
				continue
			}
			if strings.TrimSpace(c.Override.Model) == "" {
				return &ConfigError{Field: "OVERRIDE_MODEL", Reason: "is required in override mode"}
			}
		}
	}
	return nil
}
