// Package toolregistry holds the process-wide set of tools. The registry
// is constructed once at startup and passed by reference into the chain
// executor and validators; there is no package-level mutable state.
package toolregistry

import (
	"sort"
	"strings"
	"sync"

	"courier/internal/assistant/ports"
	"courier/internal/shared/logging"
)

// Registry implements ports.ToolRegistry.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]ports.Tool
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]ports.Tool),
		logger: logging.OrNop(logger),
	}
}

// Register adds a tool by name. Re-registering a name overwrites the
// previous tool; registration happens at startup only, so last write
// wins is acceptable. Tools with invalid definitions are rejected with a
// log line rather than a panic.
func (r *Registry) Register(tool ports.Tool) {
	def := tool.Definition()
	if err := def.Validate(); err != nil {
		r.logger.Error("refusing to register tool: %v", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		r.logger.Warn("tool %s re-registered, previous registration replaced", def.Name)
	}
	r.tools[def.Name] = tool
}

// Get retrieves a tool by name. A missing tool is not an error; callers
// must check ok.
func (r *Registry) Get(name string) (ports.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tool definitions, sorted by name.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ports.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindByCapability returns tools whose name or description contains the
// text, case-insensitively. Used for introspection and debugging, never
// for planning.
func (r *Registry) FindByCapability(text string) []ports.ToolDefinition {
	needle := strings.ToLower(text)
	var matches []ports.ToolDefinition
	for _, def := range r.List() {
		if strings.Contains(strings.ToLower(def.Name), needle) ||
			strings.Contains(strings.ToLower(def.Description), needle) {
			matches = append(matches, def)
		}
	}
	return matches
}
