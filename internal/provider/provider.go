package provider

import (
	"fmt"
	"strings"
)

// Kind enumerates the image-generation services a payload can target.
type Kind int

const (
	Leonardo Kind = iota
	Civitai
	Prodia
	Midjourney
	Dalle
)

// All lists every provider in broadcast order.
var All = []Kind{Leonardo, Civitai, Prodia, Midjourney, Dalle}

// Shape selects the codex parameter vocabulary a provider expects.
type Shape int

const (
	// ShapeStandard carries modelId/sd_model/model duplicates plus style keys.
	ShapeStandard Shape = iota
	// ShapeCivitai is the reduced camelCase field set.
	ShapeCivitai
)

// Profile is the static description of a provider. Every branch the composer
// and builder take on the provider goes through this table.
type Profile struct {
	Kind  Kind
	Name  string
	Tag   string
	Shape Shape
	Steps int
	CFG   float64

	// ModelPool and StylePool name the provider whose configured pools are
	// drawn from when this one has none of its own.
	ModelPool Kind
	StylePool Kind

	// PoolOverride draws model and style from pools even in override mode.
	PoolOverride bool
	// AspectFlags appends --ar/--v flags to the prompt.
	AspectFlags bool
}

const (
	DefaultSteps = 25
	DefaultCFG   = 4.6
)

var profiles = map[Kind]Profile{
	Leonardo: {
		Kind: Leonardo, Name: "Leonardo", Tag: "leonardo", Shape: ShapeStandard,
		Steps: DefaultSteps, CFG: DefaultCFG, ModelPool: Leonardo, StylePool: Leonardo,
	},
	Civitai: {
		Kind: Civitai, Name: "Civitai", Tag: "civitai", Shape: ShapeCivitai,
		Steps: 30, CFG: 4.7, ModelPool: Civitai, StylePool: Leonardo,
	},
	Prodia: {
		Kind: Prodia, Name: "Prodia", Tag: "prodia", Shape: ShapeStandard,
		Steps: 25, CFG: 4.6, ModelPool: Prodia, StylePool: Prodia, PoolOverride: true,
	},
	Midjourney: {
		Kind: Midjourney, Name: "Midjourney", Tag: "midjourney", Shape: ShapeStandard,
		Steps: DefaultSteps, CFG: DefaultCFG, ModelPool: Leonardo, StylePool: Leonardo, AspectFlags: true,
	},
	Dalle: {
		Kind: Dalle, Name: "Dalle", Tag: "dalle", Shape: ShapeStandard,
		Steps: DefaultSteps, CFG: DefaultCFG, ModelPool: Leonardo, StylePool: Leonardo,
	},
}

// ProfileOf returns the profile for k. Unknown kinds resolve to Leonardo.
func ProfileOf(k Kind) Profile {
	if p, ok := profiles[k]; ok {
		return p
	}
	return profiles[Leonardo]
}

func (k Kind) String() string {
	if p, ok := profiles[k]; ok {
		return p.Name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Tag is the lowercase identifier used in service_options.provider.
func (k Kind) Tag() string { return ProfileOf(k).Tag }

// Valid reports whether k is one of the known providers.
func (k Kind) Valid() bool {
	_, ok := profiles[k]
	return ok
}

// Lookup resolves a provider name case-insensitively.
func Lookup(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range All {
		if profiles[k].Tag == name {
			return k, true
		}
	}
	return Leonardo, false
}

// Parse resolves name and falls back to Leonardo for anything unrecognised.
func Parse(name string) Kind {
	k, _ := Lookup(name)
	return k
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := Lookup(string(b))
	if !ok {
		return fmt.Errorf("unknown provider %q", string(b))
	}
	*k = parsed
	return nil
}
