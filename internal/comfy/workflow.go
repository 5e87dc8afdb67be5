package comfy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Workflow is an API-format graph: node id -> {"class_type", "inputs", ...}.
type Workflow map[string]any

// LoadWorkflow reads an API-format workflow export.
func LoadWorkflow(path string) (Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("comfy: read workflow: %w", err)
	}
	return ParseWorkflow(raw)
}

func ParseWorkflow(raw []byte) (Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("comfy: decode workflow: %w", err)
	}
	if len(wf) == 0 {
		return nil, fmt.Errorf("comfy: workflow has no nodes")
	}
	return wf, nil
}

// WithPrompt returns a copy of w whose node inputs.text is set to text.
// w itself is left untouched so one template serves every payload.
func (w Workflow) WithPrompt(node, text string) (Workflow, error) {
	out, err := w.clone()
	if err != nil {
		return nil, err
	}
	n, ok := out[node].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("comfy: workflow has no node %q", node)
	}
	inputs, ok := n["inputs"].(map[string]any)
	if !ok {
		inputs = map[string]any{}
		n["inputs"] = inputs
	}
	inputs["text"] = text
	return out, nil
}

func (w Workflow) clone() (Workflow, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("comfy: copy workflow: %w", err)
	}
	var out Workflow
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("comfy: copy workflow: %w", err)
	}
	return out, nil
}
