package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"go.uber.org/zap/zaptest"
)

// Runs against a real PostgreSQL when BATTLESIM_TEST_DSN is set.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("BATTLESIM_TEST_DSN")
	if dsn == "" {
		t.Skip("BATTLESIM_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(db.Close)
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestBattleRepoRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewBattleRepo(db)
	ctx := context.Background()

	id, err := repo.Save(ctx, BattleRow{
		ResultType:      "victory",
		DurationSeconds: 12.5,
		Score:           250,
		KillCount:       3,
		DeathCount:      1,
		Backend:         "table",
		Seed:            42,
	}, []CasualtyRow{
		{EntityID: 7, ConfigID: 101, CampID: 2, Kind: "enemy", Reason: "dead", GameTime: 3.2},
		{EntityID: 2, ConfigID: 1, CampID: 1, Kind: "player", Reason: "dead", GameTime: 8},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), `DELETE FROM battle_results WHERE battle_id = $1`, id)
	})

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var found *BattleRow
	for i := range recent {
		if recent[i].BattleID == id {
			found = &recent[i]
		}
	}
	if found == nil || found.Score != 250 || found.ResultType != "victory" || found.Seed != 42 {
		t.Fatalf("archived row = %+v", found)
	}

	cs, err := repo.Casualties(ctx, id)
	if err != nil {
		t.Fatalf("Casualties: %v", err)
	}
	if len(cs) != 2 || cs[0].EntityID != 7 || cs[1].Kind != "player" {
		t.Fatalf("casualties = %+v", cs)
	}
}
