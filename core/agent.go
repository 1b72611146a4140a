package core

import (
	"errors"
	"slices"
)

// AgentDefinition describes an agent that can be invoked against an
// ExecutionContext. Definitions are immutable once registered in a catalog;
// callers receive clones.
type AgentDefinition struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Instructions string   `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	Tools        []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// Validate checks the minimal structural requirements of a definition.
func (d AgentDefinition) Validate() error {
	if d.ID == "" {
		return errors.New("agent id is empty")
	}
	return nil
}

// DisplayName returns Name, falling back to ID.
func (d AgentDefinition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// HasCapability reports whether the agent declares the exact capability tag.
func (d AgentDefinition) HasCapability(tag string) bool {
	return slices.Contains(d.Capabilities, tag)
}

// Clone returns a deep copy so callers cannot mutate catalog-owned slices.
func (d AgentDefinition) Clone() AgentDefinition {
	cp := d
	cp.Tools = slices.Clone(d.Tools)
	cp.Capabilities = slices.Clone(d.Capabilities)
	return cp
}
