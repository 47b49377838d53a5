package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleInfo describes one installable module kind.
type ModuleInfo struct {
	Kind        string `yaml:"kind"`
	Name        string `yaml:"name"`
	PowerCost   int    `yaml:"power_cost"`   // drawn while active
	PowerOutput int    `yaml:"power_output"` // supplied while powered
	ShieldBonus int    `yaml:"shield_bonus"` // added to max shields while powered
	Hook        bool   `yaml:"hook"`         // has a Lua script under scripts/modules/
}

type moduleListFile struct {
	Modules []ModuleInfo `yaml:"modules"`
}

// ModuleTable holds the module catalog indexed by kind.
type ModuleTable struct {
	modules map[string]*ModuleInfo
}

// Get returns the catalog entry for a module kind, or nil if unknown.
func (t *ModuleTable) Get(kind string) *ModuleInfo {
	return t.modules[kind]
}

// Count returns the number of module kinds.
func (t *ModuleTable) Count() int {
	return len(t.modules)
}

// NewModuleTable builds a catalog from entries. Later entries win.
func NewModuleTable(entries []ModuleInfo) *ModuleTable {
	t := &ModuleTable{modules: make(map[string]*ModuleInfo, len(entries))}
	for i := range entries {
		e := entries[i]
		t.modules[e.Kind] = &e
	}
	return t
}

// LoadModuleTable loads the module catalog from a YAML file.
func LoadModuleTable(path string) (*ModuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modules: %w", err)
	}
	var f moduleListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse modules: %w", err)
	}
	for i, m := range f.Modules {
		if m.Kind == "" {
			return nil, fmt.Errorf("modules[%d]: missing kind", i)
		}
		if m.PowerCost < 0 || m.PowerOutput < 0 || m.ShieldBonus < 0 {
			return nil, fmt.Errorf("module %s: negative stat", m.Kind)
		}
	}
	return NewModuleTable(f.Modules), nil
}
