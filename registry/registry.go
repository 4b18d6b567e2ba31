// Package registry provides explicit name-to-constructor tables for agents
// and tools. A Registry is constructed and passed down by the composing
// application; there is no package-level global and no runtime type scanning.
package registry

import (
	"sort"
	"sync"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/manager"
)

// ToolConstructor builds a tool instance.
type ToolConstructor func() (core.Tool, error)

// Registry maps type names to agent and tool constructors. Safe for
// concurrent use.
type Registry struct {
	mu     sync.Mutex
	agents map[string]manager.Constructor
	tools  map[string]ToolConstructor
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]manager.Constructor),
		tools:  make(map[string]ToolConstructor),
	}
}

// RegisterAgentType binds an agent type name to its constructor, replacing
// any previous binding.
func (r *Registry) RegisterAgentType(typeName string, constructor manager.Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[typeName] = constructor
}

// RegisterToolType binds a tool type name to its constructor, replacing any
// previous binding.
func (r *Registry) RegisterToolType(typeName string, constructor ToolConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[typeName] = constructor
}

// AgentConstructor looks up the constructor for an agent type name. Unknown
// names fail with NotFound.
func (r *Registry) AgentConstructor(typeName string) (manager.Constructor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	constructor, ok := r.agents[typeName]
	if !ok {
		return nil, core.NewNotFoundError("agent type", typeName)
	}
	return constructor, nil
}

// CreateAgent constructs a new agent of the given type. Unknown type names
// fail with NotFound.
func (r *Registry) CreateAgent(typeName, name string) (core.Agent, error) {
	constructor, err := r.AgentConstructor(typeName)
	if err != nil {
		return nil, err
	}
	return constructor(name)
}

// CreateTool constructs a new tool of the given type. Unknown type names fail
// with NotFound.
func (r *Registry) CreateTool(typeName string) (core.Tool, error) {
	r.mu.Lock()
	constructor, ok := r.tools[typeName]
	r.mu.Unlock()

	if !ok {
		return nil, core.NewNotFoundError("tool type", typeName)
	}
	return constructor()
}

// AgentTypes returns the registered agent type names, sorted.
func (r *Registry) AgentTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.agents)
}

// ToolTypes returns the registered tool type names, sorted.
func (r *Registry) ToolTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.tools)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
