// internal/stages/catalog.go
//
// Stage catalog for the hunt.
//
// Responsibilities:
//   - Hold the ordered, read-only list of stages (hint, salt, expected digest).
//   - Load a catalog from a YAML or TOML file, or fall back to the embedded sample.
//   - Project the hint for a stage index, including the completed state.
//
// Catalog files:
//
//	stages:
//	  - hint: "Start where books sleep."
//	    salt: "sA9!"
//	    digest: "<64 hex chars>"
//
// The TOML form uses [[stages]] tables with the same keys.
//
// Constraints:
//   • At least one stage.
//   • Every hint is non-empty; every digest is a lowercase hex SHA-256 (64 chars).
//   • The catalog never carries the pepper, so leaking it does not reveal answers.

package stages

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/treasurehunt/assets"
)

// CompletedHint is shown once every stage has been solved.
const CompletedHint = "You completed the treasure hunt. Well played."

// digestLen is the hex length of a SHA-256 digest.
const digestLen = 64

// ErrEmpty is returned when a catalog has no stages.
var ErrEmpty = errors.New("stages: catalog is empty")

// Stage is one puzzle step.
type Stage struct {
	Hint   string `yaml:"hint" toml:"hint"`
	Salt   string `yaml:"salt" toml:"salt"`
	Digest string `yaml:"digest" toml:"digest"`
}

// Catalog is an ordered, immutable stage list. Index i unlocks only after i-1 is solved.
type Catalog struct {
	stages []Stage
}

// file mirrors the on-disk layout.
type file struct {
	Stages []Stage `yaml:"stages" toml:"stages"`
}

// New validates list and returns a catalog holding a private copy of it.
func New(list []Stage) (*Catalog, error) {
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	out := make([]Stage, len(list))
	for i, s := range list {
		s.Hint = strings.TrimSpace(s.Hint)
		s.Digest = strings.ToLower(strings.TrimSpace(s.Digest))
		if s.Hint == "" {
			return nil, fmt.Errorf("stages: stage %d: hint is required", i)
		}
		if len(s.Digest) != digestLen {
			return nil, fmt.Errorf("stages: stage %d: digest must be %d hex chars", i, digestLen)
		}
		if _, err := hex.DecodeString(s.Digest); err != nil {
			return nil, fmt.Errorf("stages: stage %d: digest is not hex", i)
		}
		out[i] = s
	}
	return &Catalog{stages: out}, nil
}

// Default returns the embedded sample catalog.
func Default() (*Catalog, error) {
	return Parse(assets.StagesYAML, "yaml")
}

// Load reads a catalog file. The format is chosen by extension (.toml, else YAML).
// An empty path returns the embedded sample.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stages: read %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog data in the given format ("yaml" or "toml").
func Parse(data []byte, format string) (*Catalog, error) {
	var f file
	switch format {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, fmt.Errorf("stages: decode toml: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("stages: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("stages: unknown format %q", format)
	}
	return New(f.Stages)
}

// Len returns the number of stages (N). Index N means "completed".
func (c *Catalog) Len() int { return len(c.stages) }

// At returns stage i, or false when i is outside [0, N).
func (c *Catalog) At(i int) (Stage, bool) {
	if i < 0 || i >= len(c.stages) {
		return Stage{}, false
	}
	return c.stages[i], true
}

// Hint returns the hint for stage i, or CompletedHint when i ≥ N.
func (c *Catalog) Hint(i int) string {
	if s, ok := c.At(i); ok {
		return s.Hint
	}
	return CompletedHint
}
