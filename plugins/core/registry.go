// ABOUTME: Plugin registry for registering and retrieving plugins.
// ABOUTME: Plugins register themselves in init() functions; listings are sorted by name.

package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Plugin)
	mu       sync.RWMutex
)

// Register adds a plugin to the registry
func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()

	name := p.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("plugin %q already registered", name))
	}
	registry[name] = p
}

// Get retrieves a plugin by name
func Get(name string) (Plugin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// All returns all registered plugins ordered by name
func All() []Plugin {
	mu.RLock()
	defer mu.RUnlock()

	plugins := make([]Plugin, 0, len(registry))
	for _, p := range registry {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// Names returns all registered plugin names
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindResource returns the resource with slug and the plugin serving it.
func FindResource(slug string) (Resource, Plugin, bool) {
	for _, p := range All() {
		for _, r := range p.Resources() {
			if r.Slug == slug {
				return r, p, true
			}
		}
	}
	return Resource{}, nil, false
}

// AllResources returns every resource of every plugin, in plugin name order.
func AllResources() []Resource {
	var out []Resource
	for _, p := range All() {
		out = append(out, p.Resources()...)
	}
	return out
}
