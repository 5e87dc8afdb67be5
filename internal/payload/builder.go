package payload

import (
	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

// Build assembles the provider-specific payload for one prompt. cfg is
// expected to have passed Validate; Build itself never fails.
func Build(kind provider.Kind, modelID, prompt, style string, cfg domain.GenerationConfig) domain.Payload {
	if !kind.Valid() {
		kind = provider.Leonardo
	}
	profile := provider.ProfileOf(kind)
	return domain.Payload{
		Prompt: prompt,
		ServiceOptions: domain.ServiceOptions{
			Provider: profile.Tag,
			APIKey:   cfg.Token(kind),
		},
		CodexParameters: codexParameters(profile, modelID, style, cfg),
	}
}

func codexParameters(profile provider.Profile, modelID, style string, cfg domain.GenerationConfig) domain.CodexParameters {
	steps, cfgScale := provider.DefaultSteps, provider.DefaultCFG
	if profile.Steps > 0 {
		steps = profile.Steps
	}
	if profile.CFG > 0 {
		cfgScale = profile.CFG
	}

	switch profile.Shape {
	case provider.ShapeCivitai:
		return domain.CivitaiParameters{
			Height:         cfg.Height,
			Width:          cfg.Width,
			Model:          modelID,
			Sampler:        cfg.Sampler,
			Steps:          steps,
			Seed:           domain.UnspecifiedSeed,
			CfgScale:       cfgScale,
			NegativePrompt: cfg.NegativePrompt,
		}
	default:
		return domain.StandardParameters{
			Height:         cfg.Height,
			Width:          cfg.Width,
			ModelID:        modelID,
			SDModel:        modelID,
			Model:          modelID,
			PresetStyle:    style,
			StylePreset:    style,
			NumImages:      cfg.NumImages,
			Steps:          steps,
			CfgScale:       cfgScale,
			Seed:           domain.UnspecifiedSeed,
			Upscale:        false,
			Sampler:        cfg.Sampler,
			AspectRatio:    domain.PortraitAspect,
			NegativePrompt: cfg.NegativePrompt,
		}
	}
}
