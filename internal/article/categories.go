package article

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"contentops/internal/core"
)

//go:embed categories.yaml
var defaultCategoriesYAML []byte

// Categories maps a category to the keyword cluster used to seed topic resolution.
type Categories map[core.Category][]string

// DefaultCategories parses the embedded keyword table.
func DefaultCategories() (Categories, error) {
	return ParseCategories(defaultCategoriesYAML)
}

// ParseCategories reads a YAML document of category -> keyword list.
// Every known category must be present with at least one keyword.
func ParseCategories(data []byte) (Categories, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}

	cats := make(Categories, len(raw))
	for name, keywords := range raw {
		c := core.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		cats[c] = keywords
	}

	for _, c := range []core.Category{core.CategoryLogistics, core.CategoryAI, core.CategoryBoth} {
		if len(cats[c]) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", c)
		}
	}
	return cats, nil
}

// Keywords returns the cluster for c, falling back to CategoryBoth.
func (c Categories) Keywords(category core.Category) []string {
	if kw, ok := c[category]; ok {
		return kw
	}
	return c[core.CategoryBoth]
}
