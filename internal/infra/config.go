package infra

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" env-default:"development"`
	Port        string `env:"PORT" env-default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	StoragePath string `env:"STORAGE_PATH" env-default:"./downloaded_images"`

	StructureParamsPath string `env:"STRUCTURE_PARAMS_PATH"`
	ScenesPath          string `env:"SCENES_PATH"`

	ComfyAddress      string `env:"COMFY_SERVER_ADDRESS" env-default:"127.0.0.1:8188"`
	ComfyWorkflowPath string `env:"COMFY_WORKFLOW_PATH"`
	ComfyPromptNode   string `env:"COMFY_PROMPT_NODE" env-default:"6"`

	HTTPReadTimeoutSeconds  int `env:"HTTP_READ_TIMEOUT_SECONDS" env-default:"15"`
	HTTPWriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HTTPIdleTimeoutSeconds  int `env:"HTTP_IDLE_TIMEOUT_SECONDS" env-default:"60"`

	CORSAllowedOrigins StringList `env:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int        `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`

	Render RenderConfig
}

// RenderConfig mirrors the flat generation settings of the job scripts.
type RenderConfig struct {
	RenderMode    string       `env:"RENDER_MODE" env-default:"Leonardo"`
	RenderModes   ProviderList `env:"RENDER_MODES"`
	BroadcastMode bool         `env:"BROADCAST_MODE" env-default:"false"`
	RandomMode    bool         `env:"RANDOM_MODE" env-default:"false"`

	OverrideMode  bool   `env:"OVERRIDE_MODE" env-default:"false"`
	SceneTemplate string `env:"SCENE"`
	OverrideModel string `env:"OVERRIDE_MODEL"`
	Style         string `env:"STYLE"`

	LeonardoRate   float64 `env:"LEONARDO_RATE" env-default:"0.5"`
	CivitaiRate    float64 `env:"CIVITAI_RATE" env-default:"0.5"`
	ProdiaRate     float64 `env:"PRODIA_RATE" env-default:"0.5"`
	MidjourneyRate float64 `env:"MIDJOURNEY_RATE" env-default:"0.5"`
	DalleRate      float64 `env:"DALLE_RATE" env-default:"0.5"`

	LeonardoModelIDs StringList `env:"LEONARDO_MODEL_IDS"`
	CivitaiModelIDs  StringList `env:"CIVITAI_MODEL_IDS"`
	ProdiaModelIDs   StringList `env:"PRODIA_MODEL_IDS"`
	LeonardoStyles   StringList `env:"LEONARDO_STYLES"`
	ProdiaStyles     StringList `env:"PRODIA_STYLES"`

	LeonardoToken   string `env:"LEONARDO_TOKEN"`
	CivitaiToken    string `env:"CIVITAI_TOKEN"`
	ProdiaToken     string `env:"PRODIA_TOKEN"`
	MidjourneyToken string `env:"MIDJOURNEY_TOKEN"`
	DalleToken      string `env:"DALLE_TOKEN"`

	ImageWidth      int    `env:"IMAGE_WIDTH" env-default:"768"`
	ImageHeight     int    `env:"IMAGE_HEIGHT" env-default:"1024"`
	Negative        string `env:"NEGATIVE"`
	ForceUniverse   string `env:"FORCE_UNIVERSE"`
	Sampler         string `env:"SAMPLER"`
	NumImages       int    `env:"NUM_IMAGES" env-default:"1"`
	MaxPromptLength int    `env:"MAX_PROMPT_LENGTH" env-default:"850"`
}

// LoadConfig loads .env files when present and reads the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return &cfg, nil
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutSeconds) * time.Second
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutSeconds) * time.Second
}

func (c *Config) HTTPIdleTimeout() time.Duration {
	return time.Duration(c.HTTPIdleTimeoutSeconds) * time.Second
}

// Tokens returns the env-provided credentials keyed by provider.
func (r RenderConfig) Tokens() map[provider.Kind]string {
	return map[provider.Kind]string{
		provider.Leonardo:   strings.TrimSpace(r.LeonardoToken),
		provider.Civitai:    strings.TrimSpace(r.CivitaiToken),
		provider.Prodia:     strings.TrimSpace(r.ProdiaToken),
		provider.Midjourney: strings.TrimSpace(r.MidjourneyToken),
		provider.Dalle:      strings.TrimSpace(r.DalleToken),
	}
}

// Generation converts the flat settings into a validated run configuration.
// Broadcast takes precedence over random selection.
func (r RenderConfig) Generation() (domain.GenerationConfig, error) {
	return r.GenerationWithTokens(r.Tokens())
}

// GenerationWithTokens is Generation with credentials resolved by the caller,
// e.g. env tokens completed from the credential store.
func (r RenderConfig) GenerationWithTokens(tokens map[provider.Kind]string) (domain.GenerationConfig, error) {
	active, ok := provider.Lookup(r.RenderMode)
	if !ok {
		return domain.GenerationConfig{}, &domain.ConfigError{Field: "RENDER_MODE", Reason: fmt.Sprintf("unknown provider %q", r.RenderMode)}
	}
	mode := domain.ModeFixed
	switch {
	case r.BroadcastMode:
		mode = domain.ModeBroadcast
	case r.RandomMode:
		mode = domain.ModeRandom
	}

	cfg := domain.GenerationConfig{
		Mode:      mode,
		Provider:  active,
		Providers: []provider.Kind(r.RenderModes),
		Override: domain.Override{
			Enabled:  r.OverrideMode,
			Template: r.SceneTemplate,
			Model:    r.OverrideModel,
			Style:    r.Style,
		},
		Rates: map[provider.Kind]float64{
			provider.Leonardo:   r.LeonardoRate,
			provider.Civitai:    r.CivitaiRate,
			provider.Prodia:     r.ProdiaRate,
			provider.Midjourney: r.MidjourneyRate,
			provider.Dalle:      r.DalleRate,
		},
		ModelPools: map[provider.Kind][]string{
			provider.Leonardo: r.LeonardoModelIDs,
			provider.Civitai:  r.CivitaiModelIDs,
			provider.Prodia:   r.ProdiaModelIDs,
		},
		StylePools: map[provider.Kind][]string{
			provider.Leonardo: r.LeonardoStyles,
			provider.Prodia:   r.ProdiaStyles,
		},
		Tokens:          tokens,
		Width:           r.ImageWidth,
		Height:          r.ImageHeight,
		NegativePrompt:  r.Negative,
		ForceUniverse:   r.ForceUniverse,
		Sampler:         r.Sampler,
		NumImages:       r.NumImages,
		MaxPromptLength: r.MaxPromptLength,
	}
	if err := cfg.Validate(); err != nil {
		return domain.GenerationConfig{}, err
	}
	return cfg, nil
}

// StringList accepts either a JSON array or a comma separated list.
type StringList []string

func (l *StringList) SetValue(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		*l = out
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l = out
	return nil
}

// ProviderList parses provider names with the same rules as StringList.
type ProviderList []provider.Kind

func (l *ProviderList) SetValue(s string) error {
	var names StringList
	if err := names.SetValue(s); err != nil {
		return err
	}
	out := make([]provider.Kind, 0, len(names))
	for _, name := range names {
		k, ok := provider.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
		}
		out = append(out, k)
	}
	*l = out
	return nil
}
