// Package catalog holds the curated destinations shown on the home screen.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/foomo/travelguide-mcp/service/vo"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Greeting  string        `yaml:"greeting" json:"greeting"`
	Budgets   []string      `yaml:"budgets" json:"budgets"`
	Moods     []string      `yaml:"moods" json:"moods"`
	Divisions []vo.Category `yaml:"divisions" json:"divisions"`
	Types     []vo.Category `yaml:"types" json:"types"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Budgets) == 0 {
		return errors.New("catalog has no budget levels")
	}
	if len(c.Moods) == 0 {
		return errors.New("catalog has no travel moods")
	}
	for _, group := range [][]vo.Category{c.Divisions, c.Types} {
		for _, category := range group {
			if category.Name == "" {
				return errors.New("catalog category without name")
			}
			if len(category.Places) == 0 {
				return fmt.Errorf("catalog category %q has no places", category.Name)
			}
		}
	}
	return nil
}

// Tab returns the categories listed under a home screen tab.
func (c *Catalog) Tab(tab vo.Tab) ([]vo.Category, error) {
	switch tab {
	case vo.TabDivisions:
		return c.Divisions, nil
	case vo.TabTypes, "":
		return c.Types, nil
	default:
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
}

// Search returns the categories of tab whose places contain query,
// case-insensitively. Categories without a match are omitted.
func (c *Catalog) Search(tab vo.Tab, query string) ([]vo.Category, error) {
	categories, err := c.Tab(tab)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return categories, nil
	}
	var result []vo.Category
	for _, category := range categories {
		var places []string
		seen := map[string]bool{}
		for _, place := range category.Places {
			if seen[place] || !strings.Contains(strings.ToLower(place), query) {
				continue
			}
			seen[place] = true
			places = append(places, place)
		}
		if len(places) > 0 {
			result = append(result, vo.Category{Name: category.Name, Icon: category.Icon, Places: places})
		}
	}
	return result, nil
}

func (c *Catalog) IsBudget(s string) bool {
	return contains(c.Budgets, s)
}

func (c *Catalog) IsMood(s string) bool {
	return contains(c.Moods, s)
}

// DefaultPreferences mirrors the planner form defaults.
func (c *Catalog) DefaultPreferences() vo.TravelPreferences {
	prefs := vo.TravelPreferences{Mood: c.Moods[0], Duration: "3"}
	if len(c.Budgets) > 1 {
		prefs.Budget = c.Budgets[1]
	} else {
		prefs.Budget = c.Budgets[0]
	}
	return prefs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
