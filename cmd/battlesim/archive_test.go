package main

import (
	"context"
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/persist"
	"github.com/l1jgo/battlesim/internal/world"
	"go.uber.org/zap/zaptest"
)

type memRepo struct {
	rows       []persist.BattleRow
	casualties [][]persist.CasualtyRow
}

func (m *memRepo) Save(_ context.Context, b persist.BattleRow, cs []persist.CasualtyRow) (int64, error) {
	m.rows = append(m.rows, b)
	m.casualties = append(m.casualties, cs)
	return int64(len(m.rows)), nil
}

func TestArchiverStoresFinishedBattle(t *testing.T) {
	cfg := config.Defaults()
	cfg.World.Seed = 9
	cfg.World.Backend = "table"
	cfg.Battle.AutoJudge = true
	log := zaptest.NewLogger(t)

	w := world.New(world.Options{Logger: log})
	if err := w.Initialize(cfg); err != nil {
		t.Fatal(err)
	}
	repo := &memRepo{}
	arch := newArchiver(repo, cfg.World, log)
	arch.attach(w)

	hero, _ := w.SpawnEntity(ecs.SpawnInfo{Kind: ecs.KindPlayer, CampID: 1})
	foe, _ := w.SpawnEntity(ecs.SpawnInfo{Kind: ecs.KindEnemy, ConfigID: 101, CampID: 2})
	w.Tick(50 * time.Millisecond)
	w.DamageEntity(foe, 1000)
	w.Tick(50 * time.Millisecond)
	arch.wait()

	if !w.IsBattleEnded() || !w.IsEntityAlive(hero) {
		t.Fatalf("battle state: ended=%v", w.IsBattleEnded())
	}
	if len(repo.rows) != 1 {
		t.Fatalf("saved %d battles", len(repo.rows))
	}
	row := repo.rows[0]
	if row.ResultType != "victory" || row.Score != 100 || row.KillCount != 1 || row.Backend != "table" || row.Seed != 9 {
		t.Fatalf("row = %+v", row)
	}
	cs := repo.casualties[0]
	if len(cs) != 1 || cs[0].EntityID != uint64(foe) || cs[0].ConfigID != 101 || cs[0].Reason != "dead" || cs[0].Kind != "enemy" {
		t.Fatalf("casualties = %+v", cs)
	}
	if cs[0].GameTime != 0.1 {
		t.Fatalf("casualty time = %v", cs[0].GameTime)
	}
}
