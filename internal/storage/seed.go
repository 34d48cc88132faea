package storage

import (
	_ "embed"
	"fmt"

	"github.com/ebbcash/ebb/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed seed_categories.yaml
var seedCategoriesYAML []byte

type seedCategory struct {
	Name string             `yaml:"name"`
	Kind model.CategoryKind `yaml:"kind"`
}

// defaultCategories parses the embedded catalogue that every new workspace
// starts out with.
func defaultCategories() ([]seedCategory, error) {
	var catalogue struct {
		Categories []seedCategory `yaml:"categories"`
	}
	if err := yaml.Unmarshal(seedCategoriesYAML, &catalogue); err != nil {
		return nil, fmt.Errorf("failed to parse seed categories: %w", err)
	}
	if len(catalogue.Categories) == 0 {
		return nil, fmt.Errorf("seed catalogue is empty")
	}
	return catalogue.Categories, nil
}
