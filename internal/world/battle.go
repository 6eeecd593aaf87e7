package world

import (
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	"go.uber.org/zap"
)

// ResultType is the outcome of a battle.
type ResultType uint8

const (
	ResultNone ResultType = iota
	ResultVictory
	ResultDefeat
	ResultDraw
	ResultTimeout
)

var resultNames = [...]string{"none", "victory", "defeat", "draw", "timeout"}

func (t ResultType) String() string {
	if int(t) < len(resultNames) {
		return resultNames[t]
	}
	return "unknown"
}

func (t ResultType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// BattleResult is the live or final battle summary. While Type is
// ResultNone the duration and counters reflect the battle so far.
type BattleResult struct {
	Type            ResultType `json:"result_type"`
	DurationSeconds float64    `json:"duration_seconds"`
	Score           int64      `json:"score"`
	KillCount       int32      `json:"kill_count"`
	DeathCount      int32      `json:"death_count"`
}

const (
	scorePerKill  = 100
	scorePerDeath = 50
)

// Score is kills*100 - deaths*50, never negative.
func Score(kills, deaths int32) int64 {
	s := int64(kills)*scorePerKill - int64(deaths)*scorePerDeath
	if s < 0 {
		return 0
	}
	return s
}

// GetBattleResult returns the final result once the battle has ended, and a
// live summary before that.
func (w *World) GetBattleResult() BattleResult {
	if w.result.Type != ResultNone {
		return w.result
	}
	kills, deaths := w.Counters()
	return BattleResult{
		DurationSeconds: w.GetGameTime(),
		Score:           Score(kills, deaths),
		KillCount:       kills,
		DeathCount:      deaths,
	}
}

// IsBattleEnded reports whether the result is terminal.
func (w *World) IsBattleEnded() bool {
	return w.result.Type != ResultNone
}

// EndBattle makes the result terminal. Later ticks are no-ops; queries stay
// valid. Returns false if the battle already ended or t is ResultNone.
func (w *World) EndBattle(t ResultType) bool {
	if w.ready() != nil || t == ResultNone || w.result.Type != ResultNone {
		return false
	}
	w.result = w.GetBattleResult()
	w.result.Type = t
	event.Emit(w.bus, event.BattleEnded{
		ResultType:      uint8(t),
		DurationSeconds: w.result.DurationSeconds,
		Score:           w.result.Score,
		KillCount:       w.result.KillCount,
		DeathCount:      w.result.DeathCount,
	})
	w.log.Info("戰鬥結束",
		zap.Stringer("result", t),
		zap.Float64("duration", w.result.DurationSeconds),
		zap.Int64("score", w.result.Score),
		zap.Int32("kills", w.result.KillCount),
		zap.Int32("deaths", w.result.DeathCount))
	w.flush()
	return true
}

// judge decides the battle at the end of a tick. Side checks only start once
// both sides have been seen alive, so an empty world is not a draw.
func (w *World) judge() {
	playerCamp := w.cfg.World.PlayerCamp
	players, hostiles := 0, 0
	for i, n := 0, w.store.Len(); i < n; i++ {
		r := w.store.At(i)
		if !r.IsActive() || !isCombatant(r.Kind) {
			continue
		}
		if r.CampID == playerCamp {
			players++
		} else {
			hostiles++
		}
	}
	w.seenPlayers = w.seenPlayers || players > 0
	w.seenHostiles = w.seenHostiles || hostiles > 0

	if w.seenPlayers && w.seenHostiles {
		switch {
		case players == 0 && hostiles == 0:
			w.EndBattle(ResultDraw)
			return
		case players == 0:
			w.EndBattle(ResultDefeat)
			return
		case hostiles == 0:
			w.EndBattle(ResultVictory)
			return
		}
	}
	if limit := w.cfg.Battle.TimeLimit; limit > 0 && w.gameTime >= limit {
		w.EndBattle(ResultTimeout)
	}
}

func isCombatant(k ecs.Kind) bool {
	return k == ecs.KindPlayer || k == ecs.KindEnemy || k == ecs.KindNpc
}
