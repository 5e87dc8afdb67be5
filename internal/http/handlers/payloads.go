package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"codexgen/internal/corpus"
	"codexgen/internal/domain"
	"codexgen/internal/generation"
	"codexgen/internal/middleware"
	"codexgen/internal/payload"
	"codexgen/internal/provider"
)

// MaxImages caps a single generate request.
const MaxImages = 500

type generateRequest struct {
	Images          int             `json:"images"`
	Seed            *uint64         `json:"seed,omitempty"`
	Mode            string          `json:"mode,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	Providers       []string        `json:"providers,omitempty"`
	Scenes          []string        `json:"scenes,omitempty"`
	StructureParams json.RawMessage `json:"structure_params,omitempty"`
}

type generateResponse struct {
	Count    int              `json:"count"`
	Payloads []domain.Payload `json:"payloads"`
}

// GeneratePayloads runs one batch with the server defaults, optionally
// narrowed by the request.
func (a *App) GeneratePayloads(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Images <= 0 {
		req.Images = 1
	}
	if req.Images > MaxImages {
		a.error(w, http.StatusBadRequest, "bad_request", "too many images requested")
		return
	}

	cfg, err := a.requestConfig(req)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	params := slices.Clone(a.Params)
	if len(req.StructureParams) > 0 {
		params, err = corpus.DecodeParamsJSON(req.StructureParams)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	// The engine shuffles fragments in place; never hand it the shared slices.
	for i := range params {
		params[i].Fragments = slices.Clone(params[i].Fragments)
	}
	scenes := a.Corpus
	if len(req.Scenes) > 0 {
		scenes = domain.SceneCorpus(req.Scenes)
	}

	logger := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	engine, err := generation.New(generation.Options{Config: cfg, Seed: req.Seed, Metrics: a.Metrics, Logger: logger})
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	payloads, err := engine.Generate(r.Context(), params, scenes, req.Images)
	switch {
	case errors.Is(err, domain.ErrEmptySceneCorpus):
		a.error(w, http.StatusBadRequest, "empty_corpus", "no scene descriptions available")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "generation_failed", err.Error())
		return
	}
	a.json(w, http.StatusOK, generateResponse{Count: len(payloads), Payloads: payloads})
}

func (a *App) requestConfig(req generateRequest) (domain.GenerationConfig, error) {
	cfg := a.Config
	if req.Mode != "" {
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if req.Provider != "" {
		kind, ok := provider.Lookup(req.Provider)
		if !ok {
			return cfg, &domain.ConfigError{Field: "provider", Reason: "unknown provider " + req.Provider}
		}
		cfg.Provider = kind
	}
	if len(req.Providers) > 0 {
		kinds := make([]provider.Kind, 0, len(req.Providers))
		for _, name := range req.Providers {
			kind, ok := provider.Lookup(name)
			if !ok {
				return cfg, &domain.ConfigError{Field: "providers", Reason: "unknown provider " + name}
			}
			kinds = append(kinds, kind)
		}
		cfg.Providers = kinds
	}
	return cfg, cfg.Validate()
}

type buildRequest struct {
	Provider string `json:"provider"`
	ModelID  string `json:"model_id"`
	Prompt   string `json:"prompt"`
	Style    string `json:"style"`
}

// BuildPayload wraps an already composed prompt. Unknown providers resolve
// to Leonardo, matching the builder.
func (a *App) BuildPayload(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	kind := provider.Parse(req.Provider)
	if err := a.Config.RequireToken(kind); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	p := payload.Build(kind, req.ModelID, req.Prompt, req.Style, a.Config)
	a.Metrics.ObservePayload(kind.Tag())
	a.json(w, http.StatusOK, p)
}
