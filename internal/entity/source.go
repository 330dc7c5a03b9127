package entity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceType hints how a source should be fetched and parsed.
type SourceType string

const (
	SourceTypeRSS  SourceType = "rss"
	SourceTypeHTML SourceType = "html"
)

// Source describes one ingestion source.
type Source struct {
	Name        string     `yaml:"name"`
	URL         string     `yaml:"url"`
	Type        SourceType `yaml:"type"`
	Category    string     `yaml:"-"`
	Subcategory string     `yaml:"-"`
}

// SourceRegistry is the read-only catalog of ingestion sources,
// grouped by category and subcategory.
type SourceRegistry struct {
	sources []Source
}

type sourceCatalog map[string]map[string][]Source

// LoadSourceRegistry reads the source catalog from a YAML file.
// Category keys are lower-cased.
func LoadSourceRegistry(path string) (*SourceRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var catalog sourceCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	reg := &SourceRegistry{}
	for category, subcats := range catalog {
		for subcategory, sources := range subcats {
			for _, src := range sources {
				src.Category = strings.ToLower(category)
				src.Subcategory = subcategory
				if src.Type == "" {
					src.Type = SourceTypeRSS
				}
				reg.sources = append(reg.sources, src)
			}
		}
	}
	return reg, nil
}

// NewSourceRegistry builds a registry from an in-memory source list.
func NewSourceRegistry(sources []Source) *SourceRegistry {
	normalized := make([]Source, len(sources))
	for i, src := range sources {
		src.Category = strings.ToLower(src.Category)
		normalized[i] = src
	}
	return &SourceRegistry{sources: normalized}
}

// All returns every registered source.
func (r *SourceRegistry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByCategories returns the sources belonging to the given categories.
// An empty category list means all sources.
func (r *SourceRegistry) ByCategories(categories []string) []Source {
	if len(categories) == 0 {
		return r.All()
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[strings.ToLower(c)] = true
	}
	var out []Source
	for _, src := range r.sources {
		if want[src.Category] {
			out = append(out, src)
		}
	}
	return out
}

// Lookup finds a source by name.
func (r *SourceRegistry) Lookup(name string) (Source, bool) {
	for _, src := range r.sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}
