// Package templates provides the seed content for bootstrapped documents,
// loaded from YAML files embedded at build time.
package templates

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var templateFiles embed.FS

// documentTemplate is one renderable document: a title and a markdown body,
// both of which may reference the {collection} placeholder.
type documentTemplate struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Registry manages the embedded document templates
type Registry struct {
	templates map[string]*documentTemplate
	mu        sync.RWMutex
}

// NewRegistry creates a new template registry and loads the embedded YAML
// files. A missing or malformed template file fails construction.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		templates: make(map[string]*documentTemplate),
	}

	if err := r.loadTemplateFile("welcome"); err != nil {
		return nil, fmt.Errorf("failed to load welcome template: %w", err)
	}

	return r, nil
}

// loadTemplateFile loads one template's YAML file
func (r *Registry) loadTemplateFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := templateFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var tpl documentTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	if tpl.Title == "" || tpl.Body == "" {
		return fmt.Errorf("template %s must define both title and body", filename)
	}

	r.mu.Lock()
	r.templates[name] = &tpl
	r.mu.Unlock()

	return nil
}

// Welcome renders the welcome-document content for a collection, expanding
// the {collection} placeholder with the collection's name.
func (r *Registry) Welcome(collectionName string) (title, body string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl := r.templates["welcome"]
	return expand(tpl.Title, collectionName), expand(tpl.Body, collectionName)
}

func expand(s, collectionName string) string {
	return strings.ReplaceAll(s, "{collection}", collectionName)
}
