package persist

import (
	"context"
	"fmt"
	"time"
)

// BattleRow is one archived battle.
type BattleRow struct {
	BattleID        int64
	ResultType      string // victory, defeat, draw, timeout
	DurationSeconds float64
	Score           int64
	KillCount       int32
	DeathCount      int32
	Backend         string
	Seed            int64
	EndedAt         time.Time
}

// CasualtyRow is one entity reclaimed during an archived battle.
type CasualtyRow struct {
	EntityID uint64
	ConfigID int32
	CampID   int32
	Kind     string
	Reason   string // dead, destroyed
	GameTime float64
}

// BattleRepo archives finished battles.
type BattleRepo struct {
	db *DB
}

func NewBattleRepo(db *DB) *BattleRepo {
	return &BattleRepo{db: db}
}

// Save writes a battle and its casualties in a single transaction and
// returns the new battle id.
func (r *BattleRepo) Save(ctx context.Context, b BattleRow, casualties []CasualtyRow) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("battle begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO battle_results (result_type, duration_seconds, score, kill_count, death_count, backend, seed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING battle_id`,
		b.ResultType, b.DurationSeconds, b.Score, b.KillCount, b.DeathCount, b.Backend, b.Seed,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("battle insert: %w", err)
	}

	for _, c := range casualties {
		if _, err := tx.Exec(ctx,
			`INSERT INTO battle_casualties (battle_id, entity_id, config_id, camp_id, kind, reason, game_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, int64(c.EntityID), c.ConfigID, c.CampID, c.Kind, c.Reason, c.GameTime,
		); err != nil {
			return 0, fmt.Errorf("casualty insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("battle commit: %w", err)
	}
	return id, nil
}

// Recent loads the latest battles, newest first.
func (r *BattleRepo) Recent(ctx context.Context, limit int) ([]BattleRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT battle_id, result_type, duration_seconds, score, kill_count, death_count,
		        backend, seed, ended_at
		 FROM battle_results ORDER BY ended_at DESC, battle_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BattleRow
	for rows.Next() {
		var b BattleRow
		if err := rows.Scan(
			&b.BattleID, &b.ResultType, &b.DurationSeconds, &b.Score, &b.KillCount, &b.DeathCount,
			&b.Backend, &b.Seed, &b.EndedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Casualties loads the casualties of one battle in removal order.
func (r *BattleRepo) Casualties(ctx context.Context, battleID int64) ([]CasualtyRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, config_id, camp_id, kind, reason, game_time
		 FROM battle_casualties WHERE battle_id = $1 ORDER BY game_time, entity_id`, battleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CasualtyRow
	for rows.Next() {
		var c CasualtyRow
		var id int64
		if err := rows.Scan(&id, &c.ConfigID, &c.CampID, &c.Kind, &c.Reason, &c.GameTime); err != nil {
			return nil, err
		}
		c.EntityID = uint64(id)
		out = append(out, c)
	}
	return out, rows.Err()
}
