package generation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"codexgen/internal/domain"
	"codexgen/internal/metrics"
	"codexgen/internal/payload"
	"codexgen/internal/prompt"
	"codexgen/internal/provider"
)

// maxPrealloc bounds the images the result slice is sized for up front.
const maxPrealloc = 1024

// Engine produces payload sequences for batch requests. An Engine owns its
// random generator and is not safe for concurrent use.
type Engine struct {
	cfg      domain.GenerationConfig
	composer *prompt.Composer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Options configures a new Engine.
type Options struct {
	Config domain.GenerationConfig
	// Seed makes every draw reproducible when non-nil.
	Seed    *uint64
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// New validates the configuration and returns a ready engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if opts.Seed != nil {
		rng = rand.New(rand.NewPCG(*opts.Seed, *opts.Seed))
	}
	return &Engine{
		cfg:      opts.Config,
		composer: prompt.NewComposer(opts.Config, rng),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Config returns the snapshot the engine was built with.
func (e *Engine) Config() domain.GenerationConfig { return e.cfg }

// Generate shuffles params in place and builds the payloads for n images.
// On failure the payloads produced so far are returned with the error.
func (e *Engine) Generate(ctx context.Context, params domain.StructuralParams, corpus domain.SceneCorpus, n int) ([]domain.Payload, error) {
	if n < 0 {
		return nil, &domain.ConfigError{Field: "images", Reason: fmt.Sprintf("must not be negative, got %d", n)}
	}
	if len(corpus) == 0 {
		return nil, domain.ErrEmptySceneCorpus
	}
	e.logger.Info().
		Int("images", n).
		Str("mode", e.cfg.Mode.String()).
		Bool("override", e.cfg.Override.Enabled).
		Msg("generation: creating job payloads")

	e.composer.Shuffle(params)

	payloads := make([]domain.Payload, 0, min(n, maxPrealloc)*len(e.cfg.Candidates()))
	for i := 0; i < n; i++ {
		kinds := e.providersFor()
		for _, kind := range kinds {
			p, err := e.generateOne(ctx, params, corpus, i, kind)
			if err != nil {
				e.logger.Error().Err(err).
					Int("image", i).
					Str("provider", kind.String()).
					Msg("generation: an error occurred while generating job payloads")
				e.metrics.ObserveGenerationError(kind.Tag())
				return payloads, &domain.GenerationError{Image: i, Provider: kind.String(), Err: err}
			}
			e.metrics.ObservePayload(kind.Tag())
			payloads = append(payloads, p)
		}
	}

	e.logger.Info().Int("payloads", len(payloads)).Msg("generation: job payloads generated")
	return payloads, nil
}

// Build exposes the payload builder for callers that run their own loop.
// kind may lie outside the run's candidates, so its token is checked here.
func (e *Engine) Build(kind provider.Kind, modelID, promptText, style string) (domain.Payload, error) {
	if err := e.cfg.RequireToken(kind); err != nil {
		return domain.Payload{}, err
	}
	return payload.Build(kind, modelID, promptText, style, e.cfg), nil
}

func (e *Engine) providersFor() []provider.Kind {
	switch e.cfg.Mode {
	case domain.ModeBroadcast:
		return e.cfg.Candidates()
	case domain.ModeRandom:
		return []provider.Kind{e.composer.Pick(e.cfg.Candidates())}
	default:
		return []provider.Kind{e.cfg.Provider}
	}
}

func (e *Engine) generateOne(ctx context.Context, params domain.StructuralParams, corpus domain.SceneCorpus, image int, kind provider.Kind) (domain.Payload, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payload{}, err
	}
	comp, err := e.composer.Compose(params, corpus, image, kind)
	if err != nil {
		return domain.Payload{}, err
	}
	e.logger.Debug().
		Int("image", image).
		Str("provider", kind.String()).
		Str("model", comp.Model).
		Str("style", comp.Style).
		Msg("generation: prompt composed")
	return payload.Build(kind, comp.Model, comp.Prompt, comp.Style, e.cfg), nil
}
