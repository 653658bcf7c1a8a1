package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

//go:embed fallback.yaml
var embeddedFallback []byte

// Dataset holds raw rows per entity, header row first. It stands in for the
// store when a read fails and the sample fallback mode is active.
type Dataset map[domain.Entity][][]string

var defaultDataset = sync.OnceValues(func() (Dataset, error) {
	return LoadDataset(embeddedFallback)
})

// DefaultDataset returns the built-in sample dataset.
func DefaultDataset() (Dataset, error) {
	return defaultDataset()
}

// LoadDataset parses a YAML document mapping entity names to row lists.
func LoadDataset(data []byte) (Dataset, error) {
	var raw map[string][][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse fallback dataset: %w", err)
	}
	out := make(Dataset, len(raw))
	for name, rows := range raw {
		entity := domain.Entity(name)
		if _, ok := schemas[entity]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
		}
		out[entity] = rows
	}
	return out, nil
}

// LoadDatasetFile reads a dataset from path.
func LoadDatasetFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read fallback dataset: %w", err)
	}
	return LoadDataset(data)
}
