package main

import (
	"context"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"github.com/l1jgo/battlesim/internal/core/event"
	"github.com/l1jgo/battlesim/internal/persist"
	"github.com/l1jgo/battlesim/internal/world"
	"go.uber.org/zap"
)

// battleSaver is the part of persist.BattleRepo the archiver needs.
type battleSaver interface {
	Save(ctx context.Context, b persist.BattleRow, casualties []persist.CasualtyRow) (int64, error)
}

// archiver collects casualties during a battle and stores the battle once it
// ends. Event handlers run on the tick loop; the database write does not.
type archiver struct {
	repo       battleSaver
	backend    string
	seed       int64
	casualties []persist.CasualtyRow
	log        *zap.Logger
	done       chan struct{} // closed after each save finishes
}

func newArchiver(repo battleSaver, cfg config.WorldConfig, log *zap.Logger) *archiver {
	return &archiver{repo: repo, backend: cfg.Backend, seed: cfg.Seed, log: log}
}

func (a *archiver) attach(w *world.World) {
	world.Subscribe(w, func(e event.EntityRemoved) {
		a.casualties = append(a.casualties, persist.CasualtyRow{
			EntityID: uint64(e.EntityID),
			ConfigID: e.ConfigID,
			CampID:   e.CampID,
			Kind:     e.Kind.String(),
			Reason:   e.Reason.String(),
			GameTime: e.GameTime,
		})
	})
	world.Subscribe(w, func(e event.BattleEnded) {
		row := persist.BattleRow{
			ResultType:      world.ResultType(e.ResultType).String(),
			DurationSeconds: e.DurationSeconds,
			Score:           e.Score,
			KillCount:       e.KillCount,
			DeathCount:      e.DeathCount,
			Backend:         a.backend,
			Seed:            a.seed,
		}
		casualties := a.casualties
		a.casualties = nil
		done := make(chan struct{})
		a.done = done
		go func() {
			defer close(done)
			a.save(row, casualties)
		}()
	})
}

func (a *archiver) save(row persist.BattleRow, casualties []persist.CasualtyRow) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := a.repo.Save(ctx, row, casualties)
	if err != nil {
		a.log.Error("戰鬥紀錄儲存失敗", zap.Error(err))
		return
	}
	a.log.Info("戰鬥紀錄已儲存",
		zap.Int64("battle_id", id),
		zap.String("result", row.ResultType),
		zap.Int("casualties", len(casualties)))
}

// wait blocks until the last started save finishes.
func (a *archiver) wait() {
	if a.done != nil {
		<-a.done
	}
}
