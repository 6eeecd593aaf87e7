package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[world]
backend = "table"
capacity = 64
tick_rate = "100ms"

[combat]
crit_chance = 0.25

[battle]
auto_judge = true
time_limit = "2m"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.World.Backend != "table" || cfg.World.Capacity != 64 {
		t.Fatalf("world = %+v", cfg.World)
	}
	if cfg.World.TickRate != 100*time.Millisecond {
		t.Fatalf("tick_rate = %v", cfg.World.TickRate)
	}
	if cfg.Combat.CritChance != 0.25 {
		t.Fatalf("crit_chance = %v", cfg.Combat.CritChance)
	}
	// untouched keys keep their defaults
	if cfg.Combat.AttackRange != 2.0 || cfg.Combat.Cooldown != 1.0 {
		t.Fatalf("combat defaults lost: %+v", cfg.Combat)
	}
	if cfg.AI.SettleRadius != 0.5 || cfg.AI.Hysteresis != 1.2 {
		t.Fatalf("ai defaults lost: %+v", cfg.AI)
	}
	if !cfg.Battle.AutoJudge || cfg.Battle.TimeLimit != 2*time.Minute {
		t.Fatalf("battle = %+v", cfg.Battle)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battlesim.toml")
	if err := os.WriteFile(path, []byte("[server]\nname = \"arena\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "arena" {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Parse([]byte("[world\n")); err == nil {
		t.Fatal("expected parse error")
	}
}
