package prompt

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codexgen/internal/domain"
	"codexgen/internal/provider"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func baseConfig() domain.GenerationConfig {
	return domain.GenerationConfig{
		Mode:     domain.ModeFixed,
		Provider: provider.Leonardo,
		Width:    768,
		Height:   1024,
		Rates: map[provider.Kind]float64{
			provider.Leonardo:   1,
			provider.Prodia:     1,
			provider.Midjourney: 1,
			provider.Dalle:      1,
		},
		ModelPools: map[provider.Kind][]string{
			provider.Leonardo: {"leo-a", "leo-b"},
			provider.Prodia:   {"prodia-a", "prodia-b", "prodia-c"},
			provider.Civitai:  {"civ-1"},
		},
		StylePools: map[provider.Kind][]string{
			provider.Leonardo: {"CINEMATIC", "DYNAMIC"},
			provider.Prodia:   {"anime", "photographic"},
		},
	}
}

func TestComposeEndToEndScenario(t *testing.T) {
	c := NewComposer(baseConfig(), seeded(1))
	params := domain.StructuralParams{{Name: "Prefix", Fragments: []string{"at dawn"}}}

	out, err := c.Compose(params, domain.SceneCorpus{"A cat on a mat"}, 0, provider.Leonardo)
	require.NoError(t, err)
	assert.Equal(t, "at dawn A cat on a mat", out.Prompt)
	assert.Contains(t, []string{"leo-a", "leo-b"}, out.Model)
	assert.Contains(t, []string{"CINEMATIC", "DYNAMIC"}, out.Style)
	assert.Equal(t, []string{"leo-a", "leo-b"}, out.ModelPool)
}

func TestComposePrefixFollowsShuffledPool(t *testing.T) {
	params := domain.StructuralParams{
		{Name: "Prefix", Fragments: []string{"at dawn", "at dusk", "at noon"}},
		{Name: "Lighting", Fragments: []string{"rim light", "soft light"}},
		{Name: "Mood", Fragments: []string{"serene"}},
	}
	for seed := uint64(0); seed < 20; seed++ {
		c := NewComposer(baseConfig(), seeded(seed))
		c.Shuffle(params)
		out, err := c.Compose(params, domain.SceneCorpus{"a lighthouse"}, 0, provider.Leonardo)
		require.NoError(t, err)

		prefixes, _ := params.Get("Prefix")
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(out.Prompt, p+" a lighthouse") {
				matched = true
			}
		}
		assert.True(t, matched, out.Prompt)
		assert.Contains(t, out.Prompt, ", serene")
		assert.True(t, strings.Contains(out.Prompt, ", rim light") || strings.Contains(out.Prompt, ", soft light"))
	}
}

func TestComposeZeroRateKeepsBareScene(t *testing.T) {
	cfg := baseConfig()
	cfg.Rates[provider.Leonardo] = 0
	cfg.ForceUniverse = "in the Dune universe,"
	c := NewComposer(cfg, seeded(3))
	params := domain.StructuralParams{
		{Name: "Prefix", Fragments: []string{"at dawn"}},
		{Name: "Mood", Fragments: []string{"serene"}},
	}
	out, err := c.Compose(params, domain.SceneCorpus{"a desert"}, 0, provider.Leonardo)
	require.NoError(t, err)
	assert.Equal(t, "in the Dune universe, a desert", out.Prompt)
}

func TestComposeIsDeterministicForSeed(t *testing.T) {
	params := func() domain.StructuralParams {
		return domain.StructuralParams{
			{Name: "Prefix", Fragments: []string{"p1", "p2", "p3"}},
			{Name: "Lighting", Fragments: []string{"l1", "l2", "l3"}},
			{Name: "Mood", Fragments: []string{"m1", "m2"}},
		}
	}
	cfg := baseConfig()
	cfg.Rates[provider.Leonardo] = 0.5

	run := func() []Composition {
		c := NewComposer(cfg, seeded(42))
		p := params()
		c.Shuffle(p)
		var outs []Composition
		for i := 0; i < 5; i++ {
			out, err := c.Compose(p, domain.SceneCorpus{"s1", "s2"}, i, provider.Leonardo)
			require.NoError(t, err)
			outs = append(outs, out)
		}
		return outs
	}
	assert.Equal(t, run(), run())
}

func TestComposeOverrideUsesFixedValues(t *testing.T) {
	cfg := baseConfig()
	cfg.Override = domain.Override{Enabled: true, Template: "poster of <SCENE>, bold", Model: "fixed-model", Style: "fixed-style"}
	c := NewComposer(cfg, seeded(5))

	for _, k := range []provider.Kind{provider.Leonardo, provider.Civitai, provider.Dalle} {
		out, err := c.Compose(nil, domain.SceneCorpus{"a fox"}, 0, k)
		require.NoError(t, err)
		assert.Equal(t, "poster of a fox, bold", out.Prompt)
		assert.Equal(t, "fixed-model", out.Model)
		assert.Equal(t, "fixed-style", out.Style)
	}
}

func TestComposeOverrideProdiaDrawsFromPools(t *testing.T) {
	cfg := baseConfig()
	cfg.Override = domain.Override{Enabled: true, Template: "<SCENE>", Model: "fixed-model", Style: "fixed-style"}
	for seed := uint64(0); seed < 10; seed++ {
		c := NewComposer(cfg, seeded(seed))
		out, err := c.Compose(nil, domain.SceneCorpus{"a fox"}, 0, provider.Prodia)
		require.NoError(t, err)
		assert.Contains(t, cfg.ModelPools[provider.Prodia], out.Model)
		assert.Contains(t, cfg.StylePools[provider.Prodia], out.Style)
	}
}

func TestComposeMidjourneySuffix(t *testing.T) {
	cfg := baseConfig()
	cfg.Rates[provider.Midjourney] = 0
	c := NewComposer(cfg, seeded(9))
	out, err := c.Compose(nil, domain.SceneCorpus{"a fox"}, 0, provider.Midjourney)
	require.NoError(t, err)
	assert.Equal(t, "a fox --fast --ar 9:16 --v 6", out.Prompt)

	cfg.Width, cfg.Height = 1360, 768
	c = NewComposer(cfg, seeded(9))
	out, err = c.Compose(nil, domain.SceneCorpus{"a fox"}, 0, provider.Midjourney)
	require.NoError(t, err)
	assert.Equal(t, "a fox --fast --ar 16:9 --v 6", out.Prompt)
}

func TestComposeRespectsMaxLength(t *testing.T) {
	cfg := baseConfig()
	long := strings.Repeat("é", 2000)
	params := domain.StructuralParams{
		{Name: "Prefix", Fragments: []string{"at dawn"}},
		{Name: "Mood", Fragments: []string{"serene"}},
	}
	for _, k := range provider.All {
		c := NewComposer(cfg, seeded(11))
		out, err := c.Compose(params, domain.SceneCorpus{long}, 0, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, utf8.RuneCountInString(out.Prompt), domain.DefaultMaxPromptLength, k.String())
		assert.True(t, utf8.ValidString(out.Prompt))
	}

	cfg.Override = domain.Override{Enabled: true, Template: "<SCENE> <SCENE>", Model: "m"}
	c := NewComposer(cfg, seeded(11))
	out, err := c.Compose(nil, domain.SceneCorpus{long}, 0, provider.Midjourney)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxPromptLength, utf8.RuneCountInString(out.Prompt))
	assert.NotContains(t, out.Prompt, "--ar")
}

func TestComposeCyclesScenes(t *testing.T) {
	cfg := baseConfig()
	cfg.Rates[provider.Leonardo] = 0
	corpus := domain.SceneCorpus{"first", "second", "third"}
	c := NewComposer(cfg, seeded(2))
	a, err := c.Compose(nil, corpus, 0, provider.Leonardo)
	require.NoError(t, err)
	b, err := c.Compose(nil, corpus, len(corpus), provider.Leonardo)
	require.NoError(t, err)
	assert.Equal(t, a.Prompt, b.Prompt)
}

func TestComposeEmptyCorpus(t *testing.T) {
	c := NewComposer(baseConfig(), seeded(1))
	_, err := c.Compose(nil, nil, 0, provider.Leonardo)
	assert.ErrorIs(t, err, domain.ErrEmptySceneCorpus)
}

func TestComposeEmptyPoolsDegrade(t *testing.T) {
	cfg := baseConfig()
	cfg.ModelPools = nil
	cfg.StylePools = nil
	c := NewComposer(cfg, seeded(1))
	params := domain.StructuralParams{{Name: "Prefix"}, {Name: "Mood"}}
	out, err := c.Compose(params, domain.SceneCorpus{"a fox"}, 0, provider.Civitai)
	require.NoError(t, err)
	assert.Equal(t, "a fox", out.Prompt)
	assert.Empty(t, out.Model)
	assert.Empty(t, out.Style)
}

func TestShuffleKeepsElements(t *testing.T) {
	params := domain.StructuralParams{{Name: "Mood", Fragments: []string{"a", "b", "c", "d", "e"}}}
	NewComposer(baseConfig(), seeded(7)).Shuffle(params)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, params[0].Fragments)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
