// Package registry holds the closed vocabularies the pipeline classifies
// against: the hiring category set and the accepted locales. Both ship with
// compiled-in defaults and can be overridden from YAML files.
package registry

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CategoryOther is the catch-all bucket. Oracle outputs that name a category
// outside the registry are coerced to it rather than rejected.
const CategoryOther = "other"

var defaultCategories = []string{
	"engineering",
	"sales",
	"marketing",
	"product",
	"design",
	"operations",
	"finance",
	"hr",
	"legal",
	"customer_success",
	"data",
	"executive",
	CategoryOther,
}

// Categories is the closed set of hiring categories.
type Categories struct {
	names map[string]struct{}
}

// DefaultCategories returns the compiled-in category set.
func DefaultCategories() *Categories {
	return newCategories(defaultCategories)
}

// LoadCategories reads a category set from a YAML file. The file holds a
// `categories:` list of names; "other" is always added if absent. An empty
// path returns the defaults.
func LoadCategories(path string) (*Categories, error) {
	if path == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read categories file")
	}

	var doc struct {
		Categories []string `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "registry: parse categories file")
	}
	if len(doc.Categories) == 0 {
		return nil, eris.New("registry: categories file lists no categories")
	}

	return newCategories(append(doc.Categories, CategoryOther)), nil
}

func newCategories(names []string) *Categories {
	c := &Categories{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			c.names[n] = struct{}{}
		}
	}
	return c
}

// Contains reports whether the name is a registered category.
func (c *Categories) Contains(name string) bool {
	_, ok := c.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Normalize maps an arbitrary oracle output onto the registry: a registered
// name comes back canonicalized, anything else becomes "other".
func (c *Categories) Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := c.names[n]; ok {
		return n
	}
	return CategoryOther
}

// Names returns the registered categories in sorted order, for prompts and
// CLI display.
func (c *Categories) Names() []string {
	out := make([]string, 0, len(c.names))
	for n := range c.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
