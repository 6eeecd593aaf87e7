package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a position in a YAML table.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// SpawnEntry places Count units of a config at the start of a battle. Units
// are laid out in a row along +X, Spacing apart.
type SpawnEntry struct {
	ConfigID int32   `yaml:"config_id"`
	Camp     int32   `yaml:"camp"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Count    int     `yaml:"count"`
	Spacing  float64 `yaml:"spacing"`
	Patrol   []Point `yaml:"patrol,omitempty"`
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads spawn entries from a YAML file.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Count <= 0 {
			f.Spawns[i].Count = 1
		}
	}
	return f.Spawns, nil
}
