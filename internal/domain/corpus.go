package domain

// PrefixCategory is drawn before the scene instead of appended after it.
const PrefixCategory = "Prefix"

// Category is one named list of interchangeable prompt fragments.
type Category struct {
	Name      string   `json:"name" toml:"name"`
	Fragments []string `json:"fragments" toml:"fragments"`
}

// StructuralParams holds fragment categories in a fixed order. The order is
// part of the draw sequence, so it is kept as a slice rather than a map.
type StructuralParams []Category

// Get returns the fragments of the named category.
func (p StructuralParams) Get(name string) ([]string, bool) {
	for _, c := range p {
		if c.Name == name {
			return c.Fragments, true
		}
	}
	return nil, false
}

// Fragments counts every fragment across all categories.
func (p StructuralParams) Fragments() int {
	n := 0
	for _, c := range p {
		n += len(c.Fragments)
	}
	return n
}

// SceneCorpus is indexed cyclically, so scenes repeat once exhausted.
type SceneCorpus []string

// At returns the scene for a running image index.
func (c SceneCorpus) At(index int) (string, error) {
	if len(c) == 0 {
		return "", ErrEmptySceneCorpus
	}
	i := index % len(c)
	if i < 0 {
		i += len(c)
	}
	return c[i], nil
}
