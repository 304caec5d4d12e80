package openapi

import (
	"fmt"
	"regexp"
)

// componentRegistry names one component per type tag. Tags that sanitize
// to the same name get a numeric suffix.
type componentRegistry struct {
	byTag     map[string]string
	schemas   map[string]map[string]any
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byTag:     map[string]string{},
		schemas:   map[string]map[string]any{},
		usedNames: map[string]struct{}{},
	}
}

// reserve returns the component name of tag and whether it was already
// known. A reserved name has no schema until define is called, which lets
// recursive types reference themselves.
func (r *componentRegistry) reserve(tag string) (string, bool) {
	if name, ok := r.byTag[tag]; ok {
		return name, true
	}
	name := r.uniqueName(tag)
	r.byTag[tag] = name
	return name, false
}

func (r *componentRegistry) define(name string, schema map[string]any) {
	r.schemas[name] = schema
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	out := make(map[string]any, len(r.schemas))
	for name, schema := range r.schemas {
		out[name] = schema
	}
	return out
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
