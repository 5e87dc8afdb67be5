package domain

// Artifact identifies one output file produced by the job server for a
// submitted payload.
type Artifact struct {
	Node      string `json:"node"`
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Key is the storage key used when the artifact is saved locally.
func (a Artifact) Key() string {
	if a.Type == "" {
		return a.Filename
	}
	return a.Filename + "." + a.Type
}
