package domain

// Payload is the unit handed to the submission collaborator. Its JSON form is
// the wire contract consumed by existing provider integrations.
type Payload struct {
	Prompt          string          `json:"prompt"`
	ServiceOptions  ServiceOptions  `json:"service_options"`
	CodexParameters CodexParameters `json:"codex_parameters"`
}

type ServiceOptions struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// CodexParameters is implemented by the provider-specific parameter shapes.
type CodexParameters interface {
	ModelRef() string
	Dimensions() (width, height int)
}

// CivitaiParameters is the reduced camelCase vocabulary.
type CivitaiParameters struct {
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	Model          string  `json:"model"`
	Sampler        string  `json:"sampler"`
	Steps          int     `json:"steps"`
	Seed           int     `json:"seed"`
	CfgScale       float64 `json:"cfgScale"`
	NegativePrompt string  `json:"negativePrompt"`
}

func (p CivitaiParameters) ModelRef() string       { return p.Model }
func (p CivitaiParameters) Dimensions() (int, int) { return p.Width, p.Height }

// StandardParameters is shared by every provider except Civitai. The model and
// style appear under several keys because downstream consumers disagree on
// the name.
type StandardParameters struct {
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	ModelID        string  `json:"modelId"`
	SDModel        string  `json:"sd_model"`
	Model          string  `json:"model"`
	PresetStyle    string  `json:"presetStyle"`
	StylePreset    string  `json:"style_preset"`
	NumImages      int     `json:"num_images"`
	Steps          int     `json:"steps"`
	CfgScale       float64 `json:"cfg_scale"`
	Seed           int     `json:"seed"`
	Upscale        bool    `json:"upscale"`
	Sampler        string  `json:"sampler"`
	AspectRatio    string  `json:"aspect_ratio"`
	NegativePrompt string  `json:"negative_prompt"`
}

func (p StandardParameters) ModelRef() string       { return p.ModelID }
func (p StandardParameters) Dimensions() (int, int) { return p.Width, p.Height }
