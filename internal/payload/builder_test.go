package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

func testConfig() domain.GenerationConfig {
	return domain.GenerationConfig{
		Width:          768,
		Height:         1024,
		Sampler:        "DPM++ 2M Karras",
		NegativePrompt: "blurry",
		NumImages:      2,
		Tokens: map[provider.Kind]string{
			provider.Leonardo:   "leo-token",
			provider.Civitai:    "civ-token",
			provider.Prodia:     "prodia-token",
			provider.Midjourney: "mj-token",
			provider.Dalle:      "dalle-token",
		},
	}
}

func decode(t *testing.T, p domain.Payload) map[string]any {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBuildCivitaiUsesReducedFieldSet(t *testing.T) {
	p := Build(provider.Civitai, "civ-model", "a fox", "CINEMATIC", testConfig())
	doc := decode(t, p)

	params := doc["codex_parameters"].(map[string]any)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"height", "width", "model", "sampler", "steps", "seed", "cfgScale", "negativePrompt"}, keys)
	assert.Equal(t, float64(30), params["steps"])
	assert.Equal(t, 4.7, params["cfgScale"])
	assert.Equal(t, float64(-1), params["seed"])
	assert.Equal(t, "civ-model", params["model"])
	assert.Equal(t, "blurry", params["negativePrompt"])

	assert.Equal(t, map[string]any{"provider": "civitai", "api_key": "civ-token"}, doc["service_options"])
	assert.Equal(t, "a fox", doc["prompt"])
}

func TestBuildStandardDuplicatesLegacyKeys(t *testing.T) {
	for _, k := range []provider.Kind{provider.Leonardo, provider.Prodia, provider.Midjourney, provider.Dalle} {
		t.Run(k.String(), func(t *testing.T) {
			doc := decode(t, Build(k, "model-x", "a fox", "ANIME", testConfig()))
			params := doc["codex_parameters"].(map[string]any)

			assert.Equal(t, "model-x", params["modelId"])
			assert.Equal(t, params["modelId"], params["sd_model"])
			assert.Equal(t, params["modelId"], params["model"])
			assert.Equal(t, "ANIME", params["presetStyle"])
			assert.Equal(t, params["presetStyle"], params["style_preset"])
			assert.Equal(t, false, params["upscale"])
			assert.Equal(t, "portrait", params["aspect_ratio"])
			assert.Equal(t, float64(25), params["steps"])
			assert.Equal(t, 4.6, params["cfg_scale"])
			assert.Equal(t, float64(2), params["num_images"])
			assert.Equal(t, "blurry", params["negative_prompt"])
			assert.NotContains(t, params, "cfgScale")
			assert.NotContains(t, params, "negativePrompt")

			opts := doc["service_options"].(map[string]any)
			assert.Equal(t, k.Tag(), opts["provider"])
		})
	}
}

func TestBuildAspectRatioIgnoresDimensions(t *testing.T) {
	cfg := testConfig()
	cfg.Width, cfg.Height = 1360, 768
	p := Build(provider.Leonardo, "m", "p", "s", cfg)
	params, ok := p.CodexParameters.(domain.StandardParameters)
	require.True(t, ok)
	assert.Equal(t, "portrait", params.AspectRatio)
	w, h := params.Dimensions()
	assert.Equal(t, 1360, w)
	assert.Equal(t, 768, h)
}

func TestBuildUnknownProviderFallsBackToLeonardo(t *testing.T) {
	p := Build(provider.Kind(17), "m", "p", "s", testConfig())
	assert.Equal(t, domain.ServiceOptions{Provider: "leonardo", APIKey: "leo-token"}, p.ServiceOptions)
	_, ok := p.CodexParameters.(domain.StandardParameters)
	assert.True(t, ok)
}

func TestBuildWireOrder(t *testing.T) {
	raw, err := json.Marshal(Build(provider.Civitai, "m", "p", "s", testConfig()))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"prompt": "p",
		"service_options": {"provider": "civitai", "api_key": "civ-token"},
		"codex_parameters": {
			"height": 1024, "width": 768, "model": "m", "sampler": "DPM++ 2M Karras",
			"steps": 30, "seed": -1, "cfgScale": 4.7, "negativePrompt": "blurry"
		}
	}`, string(raw))
	assert.Regexp(t, `^\{"prompt":"p","service_options":\{"provider":"civitai","api_key":"civ-token"\},"codex_parameters":\{"height":1024,"width":768,"model":"m"`, string(raw))
}
