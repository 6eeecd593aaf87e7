package world

import (
	"fmt"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	"github.com/l1jgo/battlesim/internal/data"
	"github.com/l1jgo/battlesim/internal/system"
	"go.uber.org/zap"
)

// SpawnEntity creates an Active entity. Zero stat fields in info are filled
// from the unit table entry for info.ConfigID, or from data.DefaultUnit when
// the config is unknown. Units whose config carries AI parameters get a
// behavior attached. Fails with ecs.ErrCapacityExceeded when the store is
// full; no id is consumed in that case.
func (w *World) SpawnEntity(info ecs.SpawnInfo) (ecs.EntityID, error) {
	if err := w.ready(); err != nil {
		return 0, err
	}
	tpl := w.units.Get(info.ConfigID)
	base := data.DefaultUnit
	if tpl != nil {
		base = *tpl
	}

	r := ecs.Record{
		Kind:      info.Kind,
		State:     ecs.StateActive,
		ConfigID:  info.ConfigID,
		CampID:    info.CampID,
		Position:  info.Position,
		Heading:   info.Heading,
		MoveSpeed: orFloat(info.MoveSpeed, base.MoveSpeed),
		MaxHP:     orInt(info.MaxHP, base.HP),
		Attack:    orInt(info.Attack, base.Attack),
		Defense:   orInt(info.Defense, base.Defense),
		CreatedAt: w.GameTime(),
		MaxLife:   orFloat(info.MaxLife, base.MaxLife),
	}
	r.HP = orInt(info.HP, r.MaxHP)
	if r.MaxHP < r.HP {
		r.MaxHP = r.HP
	}
	r.MoveTarget = r.Position
	r.Normalize()

	id, err := w.store.Insert(r)
	if err != nil {
		w.log.Debug("spawn rejected", zap.Int32("config", info.ConfigID), zap.Error(err))
		return 0, fmt.Errorf("spawn config %d: %w", info.ConfigID, err)
	}
	if tpl != nil && tpl.AI != nil {
		w.ai.Attach(id, system.AIParams{
			DetectRange:   tpl.AI.DetectRange,
			AttackRange:   tpl.AI.AttackRange,
			ChaseRange:    tpl.AI.ChaseRange,
			ThinkInterval: tpl.AI.ThinkInterval,
			FleeHPRatio:   tpl.AI.FleeHPRatio,
		})
	}
	return id, nil
}

func orInt(v, fallback int32) int32 {
	if v != 0 {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

// SpawnScenario spawns every entry of a spawn list, laying out Count units
// per entry along +X. Entries with patrol points get patrol behavior.
// Spawning stops at the first failure; ids spawned so far are returned.
func (w *World) SpawnScenario(entries []data.SpawnEntry) ([]ecs.EntityID, error) {
	var ids []ecs.EntityID
	for _, e := range entries {
		kind := ecs.KindEnemy
		if tpl := w.units.Get(e.ConfigID); tpl != nil {
			if k, ok := ecs.ParseKind(tpl.Kind); ok {
				kind = k
			}
		}
		for i := 0; i < e.Count; i++ {
			id, err := w.SpawnEntity(ecs.SpawnInfo{
				Kind:     kind,
				ConfigID: e.ConfigID,
				CampID:   e.Camp,
				Position: ecs.Vec2{X: e.X + float64(i)*e.Spacing, Y: e.Y},
			})
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
			if len(e.Patrol) > 0 {
				w.attachPatrol(id, e.Patrol)
			}
		}
	}
	return ids, nil
}

func (w *World) attachPatrol(id ecs.EntityID, points []data.Point) {
	tpl := w.units.Get(w.configOf(id))
	if tpl == nil || tpl.AI == nil {
		return
	}
	patrol := make([]ecs.Vec2, len(points))
	for i, p := range points {
		patrol[i] = ecs.Vec2{X: p.X, Y: p.Y}
	}
	w.ai.Attach(id, system.AIParams{
		DetectRange:   tpl.AI.DetectRange,
		AttackRange:   tpl.AI.AttackRange,
		ChaseRange:    tpl.AI.ChaseRange,
		ThinkInterval: tpl.AI.ThinkInterval,
		FleeHPRatio:   tpl.AI.FleeHPRatio,
		Patrol:        patrol,
	})
}

func (w *World) configOf(id ecs.EntityID) int32 {
	r, _ := w.store.TryGet(id)
	return r.ConfigID
}

// DestroyEntity flags an entity PendingDestroy. Unknown ids and repeated
// calls are no-ops; the record is removed by the next cleanup pass.
func (w *World) DestroyEntity(id ecs.EntityID) {
	if w.ready() != nil {
		return
	}
	w.store.Destroy(id)
}

// TryGetEntity returns a copy of the entity, including Dead and
// PendingDestroy records not yet cleaned up.
func (w *World) TryGetEntity(id ecs.EntityID) (ecs.Record, bool) {
	if w.store == nil {
		return ecs.Record{}, false
	}
	return w.store.TryGet(id)
}

// IsEntityAlive reports whether the entity exists and is Active.
func (w *World) IsEntityAlive(id ecs.EntityID) bool {
	r, ok := w.TryGetEntity(id)
	return ok && r.IsActive()
}

// MoveEntityTo sets an active entity's move target.
func (w *World) MoveEntityTo(id ecs.EntityID, pos ecs.Vec2) bool {
	if w.ready() != nil {
		return false
	}
	ok := false
	ecs.Modify(w.store, id, func(r *ecs.Record) {
		if !r.IsActive() {
			return
		}
		r.MoveTarget = pos
		r.IsMoving = true
		ok = true
	})
	return ok
}

// StopEntity clears an entity's move target.
func (w *World) StopEntity(id ecs.EntityID) bool {
	if w.ready() != nil {
		return false
	}
	ok := false
	ecs.Modify(w.store, id, func(r *ecs.Record) {
		r.MoveTarget = r.Position
		r.IsMoving = false
		ok = true
	})
	return ok
}

// DamageEntity applies damage through the shared damage path. Returns the
// amount actually dealt.
func (w *World) DamageEntity(id ecs.EntityID, amount int32) int32 {
	if w.ready() != nil {
		return 0
	}
	var dealt int32
	var killed bool
	ecs.Modify(w.store, id, func(r *ecs.Record) {
		dealt, killed = system.ApplyDamage(r, amount)
	})
	if dealt > 0 {
		event.Emit(w.bus, event.DamageDealt{TargetID: id, Rolled: amount, Amount: dealt, Killed: killed, Source: event.SourceDirect})
	}
	return dealt
}

// HealEntity restores hp of an active entity, clamped to MaxHP.
func (w *World) HealEntity(id ecs.EntityID, amount int32) int32 {
	if w.ready() != nil {
		return 0
	}
	var healed int32
	ecs.Modify(w.store, id, func(r *ecs.Record) {
		healed = system.ApplyHeal(r, amount)
	})
	if healed > 0 {
		event.Emit(w.bus, event.EntityHealed{TargetID: id, Amount: healed})
	}
	return healed
}

// AllEntities returns every record in storage order.
func (w *World) AllEntities() []ecs.Record {
	return w.AppendEntities(nil)
}

// AppendEntities appends every record in storage order to dst, letting a
// per-frame poller reuse its buffer.
func (w *World) AppendEntities(dst []ecs.Record) []ecs.Record {
	if w.store == nil {
		return dst
	}
	return w.store.AppendAll(dst)
}

// EntityCount returns the number of stored records.
func (w *World) EntityCount() int {
	if w.store == nil {
		return 0
	}
	return w.store.Len()
}

// UpdateEntity overwrites the entity with the given id. The id is preserved
// and hp is clamped into [0, MaxHP]; an active record with zero hp becomes
// Dead.
func (w *World) UpdateEntity(id ecs.EntityID, r ecs.Record) bool {
	if w.ready() != nil {
		return false
	}
	r.ID = id
	r.Normalize()
	return ecs.Update(w.store, id, r)
}

// UpdateEntityAt overwrites the record at a storage index obtained in the
// same frame. Out-of-range indices are ignored.
func (w *World) UpdateEntityAt(index int, r ecs.Record) bool {
	if w.ready() != nil || index < 0 || index >= w.store.Len() {
		return false
	}
	r.Normalize()
	w.store.UpdateAt(index, r)
	return true
}

// CleanupPendingDestroyEntities runs a cleanup pass outside the tick and
// returns the number of records removed. Notifications it emits are
// delivered immediately.
func (w *World) CleanupPendingDestroyEntities() int {
	if w.ready() != nil {
		return 0
	}
	n := w.cleanup.Run()
	w.flush()
	return n
}

// Counters returns the kill and death counts accumulated by cleanup.
func (w *World) Counters() (kills, deaths int32) {
	if w.cleanup == nil {
		return 0, 0
	}
	return w.cleanup.Counters()
}
