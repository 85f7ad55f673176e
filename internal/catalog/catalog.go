// Package catalog holds the fixed set of chat models a session may select.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultModelsYAML []byte

var (
	ErrEmpty        = errors.New("model catalog is empty")
	ErrUnknownModel = errors.New("unknown model")
)

// Model is one selectable model identifier with a human readable description.
type Model struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
}

// Label renders the model the way the model picker shows it.
func (m Model) Label() string {
	if m.Description == "" {
		return m.ID
	}
	return m.ID + " - " + m.Description
}

// Catalog is an ordered, immutable list of models. The first entry is the default.
type Catalog struct {
	models []Model
	index  map[string]int
}

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultModelsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded model catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("model catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return New(f.Models)
}

// New validates models and builds a catalog. IDs must be non-empty and unique.
func New(models []Model) (*Catalog, error) {
	if len(models) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{
		models: make([]Model, 0, len(models)),
		index:  make(map[string]int, len(models)),
	}
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		m.Description = strings.TrimSpace(m.Description)
		if m.ID == "" {
			return nil, errors.New("model id must not be empty")
		}
		if _, dup := c.index[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.index[m.ID] = len(c.models)
		c.models = append(c.models, m)
	}
	return c, nil
}

func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

func (c *Catalog) DefaultModel() Model {
	return c.models[0]
}

func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

func (c *Catalog) Lookup(id string) (Model, error) {
	i, ok := c.index[id]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return c.models[i], nil
}
