package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"codexgen/internal/domain"
	"codexgen/internal/metrics"
)

// App carries the defaults every request starts from. Each generate request
// builds its own engine, so App itself holds no mutable run state.
type App struct {
	Config  domain.GenerationConfig
	Params  domain.StructuralParams
	Corpus  domain.SceneCorpus
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func NewApp(cfg domain.GenerationConfig, params domain.StructuralParams, corpus domain.SceneCorpus, m *metrics.Metrics, logger zerolog.Logger) *App {
	return &App{Config: cfg, Params: params, Corpus: corpus, Metrics: m, Logger: logger}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	var body errorBody
	body.Error.Code = errCode
	body.Error.Message = message
	a.json(w, code, body)
}
