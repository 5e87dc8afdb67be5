package handlers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

//go:embed openapi.json
var openAPIBase []byte

const openAPIPath = "/v1/openapi.json"

var redocHTML = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>codexgen payload API</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body { margin: 0; } redoc { display: block; height: 100vh; }</style>
  </head>
  <body>
    <redoc spec-url=%q></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`, openAPIPath)

// openAPIDocument is the embedded description with the provider and mode
// enums and the batch limit filled in from the code.
var openAPIDocument = sync.OnceValues(func() ([]byte, error) {
	return fillOpenAPI(openAPIBase)
})

func fillOpenAPI(base []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("openapi: decode: %w", err)
	}
	providers := make([]string, 0, len(provider.All))
	for _, k := range provider.All {
		providers = append(providers, k.String())
	}
	modes := []string{domain.ModeFixed.String(), domain.ModeBroadcast.String(), domain.ModeRandom.String()}

	generate := schemaProperties(doc, "GenerateRequest")
	build := schemaProperties(doc, "BuildRequest")
	if generate == nil || build == nil {
		return nil, fmt.Errorf("openapi: request schemas missing")
	}
	setField(generate, "mode", "enum", modes)
	setField(generate, "provider", "enum", providers)
	setField(generate, "images", "maximum", MaxImages)
	if list, ok := generate["providers"].(map[string]any); ok {
		setField(list, "items", "enum", providers)
	}
	setField(build, "provider", "enum", providers)
	return json.Marshal(doc)
}

func schemaProperties(doc map[string]any, name string) map[string]any {
	components, _ := doc["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	schema, _ := schemas[name].(map[string]any)
	props, _ := schema["properties"].(map[string]any)
	return props
}

func setField(props map[string]any, prop, key string, value any) {
	if p, ok := props[prop].(map[string]any); ok {
		p[key] = value
	}
}

// OpenAPIJSON serves the API description.
func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	body, err := openAPIDocument()
	if err != nil {
		a.Logger.Error().Err(err).Msg("openapi: document unavailable")
		a.error(w, http.StatusInternalServerError, "internal", "api description unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(redocHTML))
}
