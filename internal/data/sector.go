package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Sector is a jump destination.
type Sector struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

type sectorListFile struct {
	Sectors []Sector `yaml:"sectors"`
}

// SectorTable holds sector names indexed by ID.
type SectorTable struct {
	sectors map[uint32]*Sector
}

func (t *SectorTable) Get(id uint32) *Sector {
	return t.sectors[id]
}

// Name returns the sector's display name, or its number when unknown.
// A nil table names every sector by number.
func (t *SectorTable) Name(id uint32) string {
	if t == nil {
		return fmt.Sprintf("sector %d", id)
	}
	if s := t.sectors[id]; s != nil {
		return s.Name
	}
	return fmt.Sprintf("sector %d", id)
}

func (t *SectorTable) Count() int {
	return len(t.sectors)
}

// IDs returns all sector IDs in ascending order.
func (t *SectorTable) IDs() []uint32 {
	ids := make([]uint32, 0, len(t.sectors))
	for id := range t.sectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func NewSectorTable(sectors []Sector) *SectorTable {
	t := &SectorTable{sectors: make(map[uint32]*Sector, len(sectors))}
	for i := range sectors {
		s := sectors[i]
		t.sectors[s.ID] = &s
	}
	return t
}

// LoadSectorTable loads sector names from a YAML file.
func LoadSectorTable(path string) (*SectorTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sectors: %w", err)
	}
	var f sectorListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sectors: %w", err)
	}
	t := &SectorTable{sectors: make(map[uint32]*Sector, len(f.Sectors))}
	for i := range f.Sectors {
		s := f.Sectors[i]
		if _, dup := t.sectors[s.ID]; dup {
			return nil, fmt.Errorf("sector %d listed twice", s.ID)
		}
		t.sectors[s.ID] = &s
	}
	return t, nil
}
