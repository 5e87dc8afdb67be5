// Package bootstrap turns the loaded environment into the pieces both
// binaries run on: a validated generation config and the prompt corpus.
package bootstrap

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"codexgen/internal/corpus"
	"codexgen/internal/domain"
	"codexgen/internal/infra"
	"codexgen/internal/infra/credentials"
	"codexgen/internal/provider"
)

// Runtime is everything a generation run needs besides the image count.
type Runtime struct {
	Generation domain.GenerationConfig
	Params     domain.StructuralParams
	Corpus     domain.SceneCorpus
}

// Load resolves credentials, builds the generation config and reads the
// corpus files named in cfg. Missing corpus paths leave the corresponding
// field empty.
func Load(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (Runtime, error) {
	var rt Runtime
	tokens, err := ResolveTokens(ctx, cfg, logger)
	if err != nil {
		return rt, err
	}
	rt.Generation, err = cfg.Render.GenerationWithTokens(tokens)
	if err != nil {
		return rt, err
	}
	if cfg.StructureParamsPath != "" {
		if rt.Params, err = corpus.LoadParams(cfg.StructureParamsPath); err != nil {
			return rt, err
		}
	}
	if cfg.ScenesPath != "" {
		if rt.Corpus, err = corpus.LoadScenes(cfg.ScenesPath); err != nil {
			return rt, err
		}
	}
	logger.Info().
		Str("mode", rt.Generation.Mode.String()).
		Str("provider", rt.Generation.Provider.String()).
		Int("categories", len(rt.Params)).
		Int("scenes", len(rt.Corpus)).
		Msg("bootstrap: configuration loaded")
	return rt, nil
}

// ResolveTokens starts from the env tokens and, when DATABASE_URL is set,
// fills the blanks from the integration_tokens table.
func ResolveTokens(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (map[provider.Kind]string, error) {
	tokens := cfg.Render.Tokens()
	if !missing(tokens) {
		return tokens, nil
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if errors.Is(err, infra.ErrNoDatabase) {
		return tokens, nil
	}
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.Fill(ctx, tokens); err != nil {
		logger.Warn().Err(err).Msg("bootstrap: credential lookup failed")
	}
	return tokens, nil
}

func missing(tokens map[provider.Kind]string) bool {
	for _, k := range provider.All {
		if tokens[k] == "" {
			return true
		}
	}
	return false
}
