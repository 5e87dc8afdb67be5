package prompt

import (
	"math/rand/v2"
	"strings"

	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

// Composition is the composer's output for one (image, provider) pair.
type Composition struct {
	Prompt    string
	Model     string
	Style     string
	ModelPool []string
}

// Composer turns a scene plus structural fragments into a finished prompt.
//
// Every random value comes from rng, in this order: prefix Bernoulli, prefix
// choice, one choice per non-prefix category, one Bernoulli per chosen
// fragment, style choice, model choice. In override mode with a pool-override
// provider only the model choice and then the style choice are drawn. Empty
// pools are skipped without consuming a value.
type Composer struct {
	cfg domain.GenerationConfig
	rng *rand.Rand
}

// NewComposer binds cfg and rng. A nil rng uses a randomly seeded generator.
func NewComposer(cfg domain.GenerationConfig, rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Composer{cfg: cfg, rng: rng}
}

// Shuffle reorders every category's fragments in place.
func (c *Composer) Shuffle(params domain.StructuralParams) {
	for _, cat := range params {
		frags := cat.Fragments
		c.rng.Shuffle(len(frags), func(i, j int) { frags[i], frags[j] = frags[j], frags[i] })
	}
}

// Compose builds the prompt for the image at imageIndex targeted at kind.
func (c *Composer) Compose(params domain.StructuralParams, corpus domain.SceneCorpus, imageIndex int, kind provider.Kind) (Composition, error) {
	full, err := corpus.At(imageIndex)
	if err != nil {
		return Composition{}, err
	}
	limit := c.cfg.MaxLength()
	scene := Truncate(full, limit)
	profile := provider.ProfileOf(kind)
	modelPool := c.cfg.ModelPool(kind)

	var out Composition
	if c.cfg.Override.Enabled {
		out = c.override(scene, profile, modelPool)
	} else {
		out = c.assemble(params, scene, profile, modelPool)
	}

	if profile.AspectFlags {
		out.Prompt += AspectSuffix(c.cfg.Width, c.cfg.Height)
	}
	out.Prompt = Truncate(out.Prompt, limit)
	out.ModelPool = modelPool
	return out, nil
}

func (c *Composer) override(scene string, profile provider.Profile, modelPool []string) Composition {
	out := Composition{Prompt: strings.ReplaceAll(c.cfg.Override.Template, domain.ScenePlaceholder, scene)}
	if profile.PoolOverride {
		out.Model = c.choose(modelPool)
		out.Style = c.choose(c.cfg.StylePool(profile.Kind))
		return out
	}
	out.Model = c.cfg.Override.Model
	out.Style = c.cfg.Override.Style
	return out
}

func (c *Composer) assemble(params domain.StructuralParams, scene string, profile provider.Profile, modelPool []string) Composition {
	rate := c.cfg.Rate(profile.Kind)

	prefix := ""
	prefixes, _ := params.Get(domain.PrefixCategory)
	if c.rng.Float64() < rate && len(prefixes) > 0 {
		prefix = c.choose(prefixes)
	}

	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	if c.cfg.ForceUniverse != "" {
		b.WriteString(c.cfg.ForceUniverse)
		b.WriteByte(' ')
	}
	b.WriteString(scene)

	chosen := make([]string, 0, len(params))
	for _, cat := range params {
		if cat.Name == domain.PrefixCategory || len(cat.Fragments) == 0 {
			continue
		}
		chosen = append(chosen, c.choose(cat.Fragments))
	}
	for _, frag := range chosen {
		if c.rng.Float64() < rate {
			b.WriteString(", ")
			b.WriteString(frag)
		}
	}

	style := c.choose(c.cfg.StylePool(profile.Kind))
	model := c.choose(modelPool)
	return Composition{Prompt: b.String(), Style: style, Model: model}
}

// Pick draws one provider uniformly from candidates.
func (c *Composer) Pick(candidates []provider.Kind) provider.Kind {
	if len(candidates) == 0 {
		return c.cfg.Provider
	}
	return candidates[c.rng.IntN(len(candidates))]
}

func (c *Composer) choose(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[c.rng.IntN(len(pool))]
}

// AspectSuffix returns the --ar/--v flags for the configured dimensions.
func AspectSuffix(width, height int) string {
	if height > width {
		return " --fast --ar 9:16 --v 6"
	}
	return " --fast --ar 16:9 --v 6"
}

// Truncate keeps at most limit characters of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
