package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/battlesim/internal/system"
	"gopkg.in/yaml.v3"
)

// ErrUnknownName is returned for an effect or category name the buff system
// does not know.
var ErrUnknownName = errors.New("unknown name")

// BuffTemplate defines a buff config applied by the AddBuff command.
type BuffTemplate struct {
	ConfigID     int32   `yaml:"config_id"`
	Name         string  `yaml:"name"`
	Category     string  `yaml:"category"` // buff, debuff, control
	Effect       string  `yaml:"effect"`   // modify_attack, heal_over_time, stun, ...
	Value        float64 `yaml:"value"`
	Duration     float64 `yaml:"duration"`      // seconds, <= 0 = permanent
	TickInterval float64 `yaml:"tick_interval"` // seconds, 0 = no periodic effect
	MaxStack     int32   `yaml:"max_stack"`

	// Resolved from Effect and Category at load time.
	Kind  system.EffectKind   `yaml:"-"`
	Class system.BuffCategory `yaml:"-"`
}

type buffListFile struct {
	Buffs []BuffTemplate `yaml:"buffs"`
}

// BuffTable holds all buff templates indexed by ConfigID.
type BuffTable struct {
	templates map[int32]*BuffTemplate
}

// LoadBuffTable loads buff templates from a YAML file.
func LoadBuffTable(path string) (*BuffTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read buff_list: %w", err)
	}
	return ParseBuffTable(data)
}

// ParseBuffTable parses buff templates from YAML bytes. A missing category
// means "buff"; an unknown effect or category fails with ErrUnknownName.
func ParseBuffTable(data []byte) (*BuffTable, error) {
	var f buffListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse buff_list: %w", err)
	}
	t := &BuffTable{templates: make(map[int32]*BuffTemplate, len(f.Buffs))}
	for i := range f.Buffs {
		b := &f.Buffs[i]
		kind, ok := system.ParseEffectKind(b.Effect)
		if !ok {
			return nil, fmt.Errorf("buff %d effect %q: %w", b.ConfigID, b.Effect, ErrUnknownName)
		}
		if b.Category == "" {
			b.Category = "buff"
		}
		class, ok := system.ParseCategory(b.Category)
		if !ok {
			return nil, fmt.Errorf("buff %d category %q: %w", b.ConfigID, b.Category, ErrUnknownName)
		}
		b.Kind, b.Class = kind, class
		if b.MaxStack < 1 {
			b.MaxStack = 1
		}
		t.templates[b.ConfigID] = b
	}
	return t, nil
}

// Get returns a buff template by config id, or nil if not found.
func (t *BuffTable) Get(configID int32) *BuffTemplate {
	if t == nil {
		return nil
	}
	return t.templates[configID]
}

// Count returns the number of loaded templates.
func (t *BuffTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.templates)
}
