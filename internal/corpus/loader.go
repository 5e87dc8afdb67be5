// Package corpus loads structural parameters and scene descriptions from disk.
//
// Structural parameters are accepted as a JSON object ({"Prefix": [...], ...},
// key order preserved), a JSON array of {"name", "fragments"} objects, or a
// TOML file of [[category]] tables. Scenes are accepted as a JSON array, a
// JSON object holding a "Scene Description" column, a TOML file with a
// "scenes" array, or plain text with one scene per line.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/unicode/norm"

	"codexgen/internal/domain"
)

// SceneColumn is the column name used by tabular scene exports.
const SceneColumn = "Scene Description"

// ErrUnsupportedFormat is returned for file extensions the loader cannot read.
var ErrUnsupportedFormat = errors.New("corpus: unsupported file format")

// LoadParams reads structural parameters from path, picking the decoder from
// the file extension.
func LoadParams(path string) (domain.StructuralParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read params: %w", err)
	}
	switch ext(path) {
	case ".json":
		return DecodeParamsJSON(raw)
	case ".toml":
		return DecodeParamsTOML(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadScenes reads a scene corpus from path.
func LoadScenes(path string) (domain.SceneCorpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: read scenes: %w", err)
	}
	switch ext(path) {
	case ".json":
		return DecodeScenesJSON(raw)
	case ".toml":
		return DecodeScenesTOML(raw)
	case ".txt", "":
		return DecodeScenesText(raw), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// DecodeParamsJSON accepts either an object keyed by category or an array of
// categories.
func DecodeParamsJSON(raw []byte) (domain.StructuralParams, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var cats []domain.Category
		if err := json.Unmarshal(raw, &cats); err != nil {
			return nil, fmt.Errorf("corpus: decode params: %w", err)
		}
		return normalizeParams(cats), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var cats []domain.Category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("corpus: decode params: %w", err)
		}
		name, _ := tok.(string)
		var frags []string
		if err := dec.Decode(&frags); err != nil {
			return nil, fmt.Errorf("corpus: decode category %q: %w", name, err)
		}
		cats = append(cats, domain.Category{Name: name, Fragments: frags})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return normalizeParams(cats), nil
}

type paramsFile struct {
	Category []domain.Category `toml:"category"`
}

// DecodeParamsTOML reads [[category]] tables in file order.
func DecodeParamsTOML(raw []byte) (domain.StructuralParams, error) {
	var f paramsFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("corpus: decode params: %w", err)
	}
	return normalizeParams(f.Category), nil
}

// DecodeScenesJSON accepts a bare array or an object with a SceneColumn key.
func DecodeScenesJSON(raw []byte) (domain.SceneCorpus, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var scenes []string
		if err := json.Unmarshal(raw, &scenes); err != nil {
			return nil, fmt.Errorf("corpus: decode scenes: %w", err)
		}
		return normalizeScenes(scenes), nil
	}
	var table map[string][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("corpus: decode scenes: %w", err)
	}
	scenes, ok := table[SceneColumn]
	if !ok {
		return nil, fmt.Errorf("corpus: decode scenes: missing %q column", SceneColumn)
	}
	return normalizeScenes(scenes), nil
}

type scenesFile struct {
	Scenes []string `toml:"scenes"`
}

func DecodeScenesTOML(raw []byte) (domain.SceneCorpus, error) {
	var f scenesFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("corpus: decode scenes: %w", err)
	}
	return normalizeScenes(f.Scenes), nil
}

// DecodeScenesText treats every non-blank line as one scene.
func DecodeScenesText(raw []byte) domain.SceneCorpus {
	var scenes []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		scenes = append(scenes, sc.Text())
	}
	return normalizeScenes(scenes)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("corpus: decode params: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("corpus: decode params: expected %q, got %v", want, tok)
	}
	return nil
}

// normalizeParams NFC-normalizes and trims fragments, dropping blanks.
func normalizeParams(cats []domain.Category) domain.StructuralParams {
	out := make(domain.StructuralParams, 0, len(cats))
	for _, c := range cats {
		frags := make([]string, 0, len(c.Fragments))
		for _, f := range c.Fragments {
			if f = clean(f); f != "" {
				frags = append(frags, f)
			}
		}
		out = append(out, domain.Category{Name: strings.TrimSpace(c.Name), Fragments: frags})
	}
	return out
}

func normalizeScenes(scenes []string) domain.SceneCorpus {
	out := make(domain.SceneCorpus, 0, len(scenes))
	for _, s := range scenes {
		if s = clean(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
