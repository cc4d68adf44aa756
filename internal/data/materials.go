package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/physync/internal/engine"
	"gopkg.in/yaml.v3"
)

// maxGroup is the highest usable collision group index.
const maxGroup = 29

// MaterialTable holds named surface materials and collision-group presets.
type MaterialTable struct {
	materials map[string]engine.Material
	groups    map[string]engine.CollisionGroups
}

// Material returns a material by name.
func (t *MaterialTable) Material(name string) (engine.Material, bool) {
	m, ok := t.materials[name]
	return m, ok
}

// Groups returns a collision-group preset by name.
func (t *MaterialTable) Groups(name string) (engine.CollisionGroups, bool) {
	g, ok := t.groups[name]
	return g, ok
}

// Count returns the number of materials loaded.
func (t *MaterialTable) Count() int { return len(t.materials) }

// GroupCount returns the number of group presets loaded.
func (t *MaterialTable) GroupCount() int { return len(t.groups) }

type materialYAML struct {
	Name        string  `yaml:"name"`
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
}

// groupYAML lists group indices. An omitted whitelist means "all groups".
type groupYAML struct {
	Name       string `yaml:"name"`
	Membership []int  `yaml:"membership"`
	Whitelist  []int  `yaml:"whitelist"`
	Blacklist  []int  `yaml:"blacklist"`
}

type materialFile struct {
	Materials []materialYAML `yaml:"materials"`
	Groups    []groupYAML    `yaml:"groups"`
}

// LoadMaterialTable loads materials and group presets from a YAML file.
func LoadMaterialTable(path string) (*MaterialTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read materials: %w", err)
	}
	return ParseMaterialTable(raw)
}

func ParseMaterialTable(raw []byte) (*MaterialTable, error) {
	var f materialFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse materials: %w", err)
	}

	t := &MaterialTable{
		materials: make(map[string]engine.Material, len(f.Materials)),
		groups:    make(map[string]engine.CollisionGroups, len(f.Groups)),
	}
	for _, m := range f.Materials {
		if m.Name == "" {
			return nil, fmt.Errorf("material without a name")
		}
		if _, dup := t.materials[m.Name]; dup {
			return nil, fmt.Errorf("duplicate material %q", m.Name)
		}
		if m.Friction < 0 || m.Restitution < 0 {
			return nil, fmt.Errorf("material %q: negative coefficient", m.Name)
		}
		t.materials[m.Name] = engine.Material{Friction: m.Friction, Restitution: m.Restitution}
	}
	for _, g := range f.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group preset without a name")
		}
		if _, dup := t.groups[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group preset %q", g.Name)
		}
		cg, err := g.toGroups()
		if err != nil {
			return nil, fmt.Errorf("group preset %q: %w", g.Name, err)
		}
		t.groups[g.Name] = cg
	}
	return t, nil
}

func (g groupYAML) toGroups() (engine.CollisionGroups, error) {
	cg := engine.AllGroups()
	var err error
	if g.Membership != nil {
		if cg.Membership, err = mask(g.Membership); err != nil {
			return cg, err
		}
	}
	if g.Whitelist != nil {
		if cg.Whitelist, err = mask(g.Whitelist); err != nil {
			return cg, err
		}
	}
	if cg.Blacklist, err = mask(g.Blacklist); err != nil {
		return cg, err
	}
	return cg, nil
}

func mask(groups []int) (uint32, error) {
	var m uint32
	for _, i := range groups {
		if i < 0 || i > maxGroup {
			return 0, fmt.Errorf("group %d out of range 0..%d", i, maxGroup)
		}
		m |= 1 << uint(i)
	}
	return m, nil
}
