package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnitTemplate holds the base stats of one unit config loaded from YAML.
type UnitTemplate struct {
	ConfigID  int32       `yaml:"config_id"`
	Name      string      `yaml:"name"`
	Kind      string      `yaml:"kind"` // player, enemy, npc, projectile, item, effect
	HP        int32       `yaml:"hp"`
	Attack    int32       `yaml:"attack"`
	Defense   int32       `yaml:"defense"`
	MoveSpeed float64     `yaml:"move_speed"`
	MaxLife   float64     `yaml:"max_life"` // seconds, 0 = unlimited
	AI        *AITemplate `yaml:"ai,omitempty"`
}

// AITemplate enables behavior control for units of this config.
type AITemplate struct {
	DetectRange   float64 `yaml:"detect_range"`
	AttackRange   float64 `yaml:"attack_range"`
	ChaseRange    float64 `yaml:"chase_range"`
	ThinkInterval float64 `yaml:"think_interval"` // 0 = engine default
	FleeHPRatio   float64 `yaml:"flee_hp_ratio"`
}

// DefaultUnit is used for config ids missing from the table.
var DefaultUnit = UnitTemplate{
	HP:        100,
	Attack:    10,
	Defense:   5,
	MoveSpeed: 3,
}

type unitListFile struct {
	Units []UnitTemplate `yaml:"units"`
}

// UnitTable holds all unit templates indexed by ConfigID.
type UnitTable struct {
	templates map[int32]*UnitTemplate
}

// LoadUnitTable loads unit templates from a YAML file.
func LoadUnitTable(path string) (*UnitTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit_list: %w", err)
	}
	return ParseUnitTable(data)
}

// ParseUnitTable parses unit templates from YAML bytes.
func ParseUnitTable(data []byte) (*UnitTable, error) {
	var f unitListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse unit_list: %w", err)
	}
	t := &UnitTable{templates: make(map[int32]*UnitTemplate, len(f.Units))}
	for i := range f.Units {
		u := &f.Units[i]
		if u.HP <= 0 {
			return nil, fmt.Errorf("unit %d: hp must be positive", u.ConfigID)
		}
		t.templates[u.ConfigID] = u
	}
	return t, nil
}

// Get returns a unit template by config id, or nil if not found.
func (t *UnitTable) Get(configID int32) *UnitTemplate {
	if t == nil {
		return nil
	}
	return t.templates[configID]
}

// Count returns the number of loaded templates.
func (t *UnitTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.templates)
}
