// Package catalog implements the Agent Catalog: an in-memory registry mapping
// agent ids to their definitions. It performs no execution. Definitions are
// cloned on the way in and on the way out, so registered entries are
// effectively immutable.
package catalog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/meshflow/core"
)

// Catalog is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	defs  map[string]core.AgentDefinition
	order []string // registration order
}

// New returns an empty catalog, optionally pre-populated. It panics on an
// invalid or duplicate definition, which makes it suitable for static setup.
func New(defs ...core.AgentDefinition) *Catalog {
	c := &Catalog{defs: make(map[string]core.AgentDefinition, len(defs))}
	for _, d := range defs {
		if err := c.Register(d); err != nil {
			panic(err)
		}
	}
	return c
}

// Register adds def. It fails with core.ErrDuplicateAgent if the id exists.
func (c *Catalog) Register(def core.AgentDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[def.ID]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateAgent, def.ID)
	}
	c.defs[def.ID] = def.Clone()
	c.order = append(c.order, def.ID)
	return nil
}

// Unregister removes id and reports whether it was present.
func (c *Catalog) Unregister(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[id]; !exists {
		return false
	}
	delete(c.defs, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
	return true
}

// Get returns the definition for id or an error wrapping core.ErrAgentNotFound.
func (c *Catalog) Get(id string) (core.AgentDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[id]
	if !ok {
		return core.AgentDefinition{}, fmt.Errorf("%w: %s", core.ErrAgentNotFound, id)
	}
	return def.Clone(), nil
}

// FindByCapability returns every definition carrying tag, in registration order.
func (c *Catalog) FindByCapability(tag string) []core.AgentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []core.AgentDefinition
	for _, id := range c.order {
		if def := c.defs[id]; def.HasCapability(tag) {
			out = append(out, def.Clone())
		}
	}
	return out
}

// List returns all definitions in registration order.
func (c *Catalog) List() []core.AgentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.AgentDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id].Clone())
	}
	return out
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// replaceAll swaps the full definition set atomically.
func (c *Catalog) replaceAll(defs []core.AgentDefinition) {
	m := make(map[string]core.AgentDefinition, len(defs))
	order := make([]string, 0, len(defs))
	for _, d := range defs {
		m[d.ID] = d.Clone()
		order = append(order, d.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs = m
	c.order = order
}
