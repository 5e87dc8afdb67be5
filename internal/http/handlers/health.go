package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mode":      a.Config.Mode.String(),
		"provider":  a.Config.Provider.Tag(),
		"scenes":    len(a.Corpus),
		"fragments": a.Params.Fragments(),
	})
}
