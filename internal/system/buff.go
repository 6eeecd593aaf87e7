package system

import (
	"math"
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"go.uber.org/zap"
)

// BuffCategory groups buffs for display and dispel rules.
type BuffCategory uint8

const (
	CategoryBuff BuffCategory = iota
	CategoryDebuff
	CategoryControl
)

// EffectKind selects what a buff does.
type EffectKind uint8

const (
	EffectModifyAttack EffectKind = iota
	EffectModifyDefense
	EffectModifyMoveSpeed // fraction of base speed, +0.2 = 20% faster
	EffectHealOverTime
	EffectDamageOverTime
	EffectStun
	EffectSlow // fraction of base speed removed
	EffectShield
)

var effectNames = [...]string{
	"modify_attack", "modify_defense", "modify_move_speed", "heal_over_time",
	"damage_over_time", "stun", "slow", "shield",
}

func (k EffectKind) String() string {
	if int(k) < len(effectNames) {
		return effectNames[k]
	}
	return "unknown"
}

// ParseEffectKind maps a data-table name to an EffectKind.
func ParseEffectKind(name string) (EffectKind, bool) {
	for i, n := range effectNames {
		if n == name {
			return EffectKind(i), true
		}
	}
	return 0, false
}

// ParseCategory maps a data-table name to a BuffCategory.
func ParseCategory(name string) (BuffCategory, bool) {
	switch name {
	case "buff":
		return CategoryBuff, true
	case "debuff":
		return CategoryDebuff, true
	case "control":
		return CategoryControl, true
	}
	return 0, false
}

type BuffID uint64

// BuffRecord is one applied effect instance. At most one live record exists
// per (OwnerID, ConfigID); re-application stacks or refreshes it.
type BuffRecord struct {
	ID              BuffID
	ConfigID        int32
	OwnerID         ecs.EntityID
	CasterID        ecs.EntityID
	Category        BuffCategory
	Effect          EffectKind
	Value           float64
	Elapsed         float64
	Duration        float64 // <= 0 means permanent
	TickInterval    float64 // <= 0 means no periodic effect
	LastTickElapsed float64
	StackCount      int32
	MaxStackCount   int32
	Expired         bool
}

// BuffParams describes a buff application.
type BuffParams struct {
	ConfigID      int32
	OwnerID       ecs.EntityID
	CasterID      ecs.EntityID
	Category      BuffCategory
	Effect        EffectKind
	Value         float64
	Duration      float64
	TickInterval  float64
	MaxStackCount int32
}

type buffKey struct {
	owner  ecs.EntityID
	config int32
}

// BuffSystem owns every timed effect. Priority 150.
//
// Records live in a dense slice with an id→index map (swap-remove on purge),
// plus a (owner, config)→id map enforcing the one-live-record rule.
type BuffSystem struct {
	host coresys.Host
	log  *zap.Logger

	buffs  []BuffRecord
	index  map[BuffID]int
	byKey  map[buffKey]BuffID
	owned  map[ecs.EntityID]int32 // live buff count per owner
	nextID BuffID
}

func NewBuffSystem() *BuffSystem {
	return &BuffSystem{
		buffs: make([]BuffRecord, 0, 256),
		index: make(map[BuffID]int, 256),
		byKey: make(map[buffKey]BuffID, 256),
		owned: make(map[ecs.EntityID]int32, 128),
		log:   zap.NewNop(),
	}
}

func (s *BuffSystem) Name() string               { return "buff" }
func (s *BuffSystem) Priority() coresys.Priority { return coresys.PriorityBuff }

func (s *BuffSystem) Init(h coresys.Host) error {
	s.host = h
	s.log = h.Logger().Named("buff")
	return nil
}

// AddBuff applies a buff to an active entity. A live buff with the same
// (owner, config) gains a stack (up to its max) and restarts its timer
// instead of being duplicated. Returns false when the owner is missing or
// inactive.
func (s *BuffSystem) AddBuff(p BuffParams) (BuffID, bool) {
	if s.host == nil {
		return 0, false
	}
	owner, ok := s.host.Store().TryGet(p.OwnerID)
	if !ok || !owner.IsActive() {
		s.log.Debug("buff rejected: owner unavailable", zap.Uint64("owner", uint64(p.OwnerID)), zap.Int32("config", p.ConfigID))
		return 0, false
	}

	key := buffKey{p.OwnerID, p.ConfigID}
	if id, ok := s.byKey[key]; ok {
		b := &s.buffs[s.index[id]]
		if !b.Expired {
			if b.StackCount < b.MaxStackCount {
				b.StackCount++
			}
			b.Elapsed = 0
			b.LastTickElapsed = 0
			event.Emit(s.host.Events(), event.BuffApplied{BuffID: uint64(b.ID), OwnerID: b.OwnerID, ConfigID: b.ConfigID, StackCount: b.StackCount})
			return b.ID, true
		}
	}

	maxStack := p.MaxStackCount
	if maxStack < 1 {
		maxStack = 1
	}
	s.nextID++
	b := BuffRecord{
		ID:            s.nextID,
		ConfigID:      p.ConfigID,
		OwnerID:       p.OwnerID,
		CasterID:      p.CasterID,
		Category:      p.Category,
		Effect:        p.Effect,
		Value:         p.Value,
		Duration:      p.Duration,
		TickInterval:  p.TickInterval,
		StackCount:    1,
		MaxStackCount: maxStack,
	}
	s.index[b.ID] = len(s.buffs)
	s.buffs = append(s.buffs, b)
	s.byKey[key] = b.ID
	s.owned[b.OwnerID]++
	event.Emit(s.host.Events(), event.BuffApplied{BuffID: uint64(b.ID), OwnerID: b.OwnerID, ConfigID: b.ConfigID, StackCount: 1})
	return b.ID, true
}

// RemoveBuff flags a buff expired; it is purged in the next buff phase.
// Idempotent.
func (s *BuffSystem) RemoveBuff(id BuffID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.expire(&s.buffs[i])
	return true
}

// RemoveBuffByConfig flags the live buff of the given config on owner.
func (s *BuffSystem) RemoveBuffByConfig(owner ecs.EntityID, configID int32) bool {
	id, ok := s.byKey[buffKey{owner, configID}]
	if !ok {
		return false
	}
	return s.RemoveBuff(id)
}

func (s *BuffSystem) expire(b *BuffRecord) {
	if b.Expired {
		return
	}
	b.Expired = true
	if s.owned[b.OwnerID]--; s.owned[b.OwnerID] <= 0 {
		delete(s.owned, b.OwnerID)
	}
}

// Get returns a copy of the buff with the given id.
func (s *BuffSystem) Get(id BuffID) (BuffRecord, bool) {
	i, ok := s.index[id]
	if !ok {
		return BuffRecord{}, false
	}
	return s.buffs[i], true
}

// Find returns the live buff of the given config on owner.
func (s *BuffSystem) Find(owner ecs.EntityID, configID int32) (BuffRecord, bool) {
	id, ok := s.byKey[buffKey{owner, configID}]
	if !ok {
		return BuffRecord{}, false
	}
	b := s.buffs[s.index[id]]
	if b.Expired {
		return BuffRecord{}, false
	}
	return b, true
}

// AppendBuffs appends every live buff on owner to dst.
func (s *BuffSystem) AppendBuffs(dst []BuffRecord, owner ecs.EntityID) []BuffRecord {
	if s.owned[owner] == 0 {
		return dst
	}
	for i := range s.buffs {
		if s.buffs[i].OwnerID == owner && !s.buffs[i].Expired {
			dst = append(dst, s.buffs[i])
		}
	}
	return dst
}

// Len returns the number of stored buff records, expired ones included until
// they are purged.
func (s *BuffSystem) Len() int { return len(s.buffs) }

// HasBuff reports whether entity has any live buff of the given effect.
func (s *BuffSystem) HasBuff(entity ecs.EntityID, kind EffectKind) bool {
	if s == nil || s.owned[entity] == 0 {
		return false
	}
	for i := range s.buffs {
		b := &s.buffs[i]
		if b.OwnerID == entity && b.Effect == kind && !b.Expired {
			return true
		}
	}
	return false
}

// AttributeModifier sums Value*StackCount over every live buff of the given
// effect on entity. Distinct buff instances stack additively.
func (s *BuffSystem) AttributeModifier(entity ecs.EntityID, kind EffectKind) float64 {
	if s == nil || s.owned[entity] == 0 {
		return 0
	}
	total := 0.0
	for i := range s.buffs {
		b := &s.buffs[i]
		if b.OwnerID == entity && b.Effect == kind && !b.Expired {
			total += b.Value * float64(b.StackCount)
		}
	}
	return total
}

// SpeedFactor is the movement multiplier buffs impose on entity: zero while
// stunned, otherwise max(0, 1 + ModifyMoveSpeed - Slow).
func (s *BuffSystem) SpeedFactor(entity ecs.EntityID) float64 {
	if s == nil || s.owned[entity] == 0 {
		return 1
	}
	if s.HasBuff(entity, EffectStun) {
		return 0
	}
	f := 1 + s.AttributeModifier(entity, EffectModifyMoveSpeed) - s.AttributeModifier(entity, EffectSlow)
	if f < 0 {
		return 0
	}
	return f
}

func (s *BuffSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	store := s.host.Store()
	for i := range s.buffs {
		b := &s.buffs[i]
		if b.Expired {
			continue
		}
		idx, ok := store.IndexOf(b.OwnerID)
		if !ok {
			s.expire(b)
			continue
		}
		b.Elapsed += sec

		// 週期效果先結算：跨越持續時間的那一 tick 仍會觸發
		if b.TickInterval > 0 && b.Elapsed-b.LastTickElapsed+timeEpsilon >= b.TickInterval {
			s.applyPeriodic(b, store, idx)
			b.LastTickElapsed = b.Elapsed
		}
		if b.Duration > 0 && b.Elapsed+timeEpsilon >= b.Duration {
			s.expire(b)
		}
	}
	s.purge()
}

func (s *BuffSystem) applyPeriodic(b *BuffRecord, store ecs.Store, idx int) {
	amount := int32(math.Round(b.Value * float64(b.StackCount)))
	if amount <= 0 {
		return
	}
	r := store.At(idx)
	if !r.IsActive() {
		return
	}
	switch b.Effect {
	case EffectHealOverTime:
		healed := ApplyHeal(&r, amount)
		if healed > 0 {
			store.UpdateAt(idx, r)
			event.Emit(s.host.Events(), event.EntityHealed{TargetID: r.ID, Amount: healed})
		}
	case EffectDamageOverTime:
		dealt, killed := ApplyDamage(&r, amount)
		store.UpdateAt(idx, r)
		event.Emit(s.host.Events(), event.DamageDealt{
			AttackerID: b.CasterID,
			TargetID:   r.ID,
			Rolled:     amount,
			Amount:     dealt,
			Killed:     killed,
			Source:     event.SourceBuff,
		})
	}
}

// purge swap-removes expired records.
func (s *BuffSystem) purge() {
	for i := len(s.buffs) - 1; i >= 0; i-- {
		b := s.buffs[i]
		if !b.Expired {
			continue
		}
		key := buffKey{b.OwnerID, b.ConfigID}
		if s.byKey[key] == b.ID {
			delete(s.byKey, key)
		}
		last := len(s.buffs) - 1
		if i != last {
			s.buffs[i] = s.buffs[last]
			s.index[s.buffs[i].ID] = i
		}
		s.buffs = s.buffs[:last]
		delete(s.index, b.ID)
		if s.host != nil {
			event.Emit(s.host.Events(), event.BuffExpired{BuffID: uint64(b.ID), OwnerID: b.OwnerID, ConfigID: b.ConfigID})
		}
	}
}

// RemoveOwner drops every buff on a reclaimed entity immediately.
func (s *BuffSystem) RemoveOwner(owner ecs.EntityID) {
	if _, ok := s.owned[owner]; !ok && !s.hasRecords(owner) {
		return
	}
	for i := range s.buffs {
		if s.buffs[i].OwnerID == owner {
			s.expire(&s.buffs[i])
		}
	}
	s.purge()
}

func (s *BuffSystem) hasRecords(owner ecs.EntityID) bool {
	for i := range s.buffs {
		if s.buffs[i].OwnerID == owner {
			return true
		}
	}
	return false
}

// Reset drops every buff without notifications.
func (s *BuffSystem) Reset() {
	s.buffs = s.buffs[:0]
	clear(s.index)
	clear(s.byKey)
	clear(s.owned)
}
