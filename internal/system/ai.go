package system

import (
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"go.uber.org/zap"
)

// AIState is a behavior state.
type AIState uint8

const (
	AIIdle AIState = iota
	AIPatrol
	AIChase
	AIAttack
	AIFlee
	AIReturn
)

var aiStateNames = [...]string{"idle", "patrol", "chase", "attack", "flee", "return"}

func (s AIState) String() string {
	if int(s) < len(aiStateNames) {
		return aiStateNames[s]
	}
	return "unknown"
}

// AIRecord is the behavior state of one entity.
type AIRecord struct {
	EntityID         ecs.EntityID
	State            AIState
	TargetID         ecs.EntityID // zero when none
	HomePosition     ecs.Vec2
	DetectRange      float64
	AttackRange      float64
	ChaseRange       float64
	StateTimer       float64
	ThinkInterval    float64
	LastThinkElapsed float64

	// AttackTimer accumulates toward the fixed attack cadence while in Attack.
	AttackTimer float64
	// FleeHPRatio: Chase/Attack switch to Flee below this hp fraction (0 = never).
	FleeHPRatio float64
	Patrol      []ecs.Vec2
	PatrolIndex int
}

// AIParams configures a newly attached behavior.
type AIParams struct {
	DetectRange   float64
	AttackRange   float64
	ChaseRange    float64
	ThinkInterval float64
	FleeHPRatio   float64
	Patrol        []ecs.Vec2
	Home          *ecs.Vec2 // nil = spawn position
}

// AISettings are the fixed behavior constants.
type AISettings struct {
	SettleRadius  float64
	AttackCadence float64
	Hysteresis    float64
	ThinkInterval float64
}

func DefaultAISettings() AISettings {
	return AISettings{SettleRadius: 0.5, AttackCadence: 1.0, Hysteresis: 1.2, ThinkInterval: 0.2}
}

// AISystem drives per-entity state machines. Priority 80.
//
// Transitions are evaluated only when an entity's think interval has passed,
// at most one per think. Intents (move, attack) execute every tick. Records
// are walked in store order so results are deterministic.
type AISystem struct {
	host     coresys.Host
	log      *zap.Logger
	settings AISettings
	combat   *CombatSystem
	buffs    *BuffSystem
	records  *ecs.SideTable[AIRecord]
	elapsed  float64
}

func NewAISystem(settings AISettings, combat *CombatSystem, buffs *BuffSystem) *AISystem {
	return &AISystem{
		log:      zap.NewNop(),
		settings: settings,
		combat:   combat,
		buffs:    buffs,
		records:  ecs.NewSideTable[AIRecord](256),
	}
}

func (s *AISystem) Name() string               { return "ai" }
func (s *AISystem) Priority() coresys.Priority { return coresys.PriorityAI }

func (s *AISystem) Init(h coresys.Host) error {
	s.host = h
	s.log = h.Logger().Named("ai")
	h.Registry().Register(s.records)
	return nil
}

// Attach gives an active entity a behavior, replacing any previous one. The
// entity thinks on the next update.
func (s *AISystem) Attach(id ecs.EntityID, p AIParams) bool {
	if s.host == nil {
		return false
	}
	r, ok := s.host.Store().TryGet(id)
	if !ok || !r.IsActive() {
		return false
	}
	think := p.ThinkInterval
	if think <= 0 {
		think = s.settings.ThinkInterval
	}
	home := r.Position
	if p.Home != nil {
		home = *p.Home
	}
	rec := &AIRecord{
		EntityID:         id,
		State:            AIIdle,
		HomePosition:     home,
		DetectRange:      p.DetectRange,
		AttackRange:      p.AttackRange,
		ChaseRange:       p.ChaseRange,
		ThinkInterval:    think,
		LastThinkElapsed: s.elapsed - think,
		FleeHPRatio:      p.FleeHPRatio,
	}
	if len(p.Patrol) > 0 {
		rec.Patrol = append([]ecs.Vec2(nil), p.Patrol...)
		rec.State = AIPatrol
	}
	s.records.Put(id, rec)
	return true
}

// Detach removes an entity's behavior.
func (s *AISystem) Detach(id ecs.EntityID) {
	s.records.Detach(id)
}

// Get returns a copy of an entity's behavior record.
func (s *AISystem) Get(id ecs.EntityID) (AIRecord, bool) {
	rec, ok := s.records.Get(id)
	if !ok {
		return AIRecord{}, false
	}
	return *rec, true
}

// Len returns the number of entities under AI control.
func (s *AISystem) Len() int { return s.records.Len() }

func (s *AISystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	s.elapsed += sec
	store := s.host.Store()
	n := store.Len()
	for i := 0; i < n; i++ {
		self := store.At(i)
		rec, ok := s.records.Get(self.ID)
		if !ok || !self.IsActive() {
			continue
		}
		rec.StateTimer += sec
		changed := false
		if s.elapsed-rec.LastThinkElapsed+timeEpsilon >= rec.ThinkInterval {
			rec.LastThinkElapsed = s.elapsed
			changed = s.think(&self, rec)
		}
		if !s.buffs.HasBuff(self.ID, EffectStun) && s.execute(&self, rec, sec) {
			changed = true
		}
		if changed {
			store.UpdateAt(i, self)
		}
	}
}

// targetOf resolves the current target and reports whether it is still a
// valid one: present, active, and hostile.
func (s *AISystem) targetOf(self *ecs.Record, rec *AIRecord) (ecs.Record, bool) {
	if rec.TargetID.IsZero() {
		return ecs.Record{}, false
	}
	t, ok := s.host.Store().TryGet(rec.TargetID)
	if !ok || !t.IsActive() || !Hostile(self, &t) {
		return ecs.Record{}, false
	}
	return t, true
}

// nearestHostile finds the closest active hostile within detectRange. Ties go
// to the first record found in store order.
func (s *AISystem) nearestHostile(self *ecs.Record, detectRange float64) (ecs.EntityID, bool) {
	store := s.host.Store()
	best := ecs.EntityID(0)
	bestDist := 0.0
	for i, n := 0, store.Len(); i < n; i++ {
		o := store.At(i)
		if o.ID == self.ID || !o.IsActive() || !Hostile(self, &o) {
			continue
		}
		d := self.Position.Dist(o.Position)
		if d > detectRange {
			continue
		}
		if best.IsZero() || d < bestDist {
			best, bestDist = o.ID, d
		}
	}
	return best, !best.IsZero()
}

func (s *AISystem) transition(rec *AIRecord, to AIState) {
	s.log.Debug("ai transition",
		zap.Uint64("entity", uint64(rec.EntityID)),
		zap.Stringer("from", rec.State),
		zap.Stringer("to", to))
	rec.State = to
	rec.StateTimer = 0
	if to == AIAttack {
		// 進入攻擊狀態時立即出手
		rec.AttackTimer = s.settings.AttackCadence
	}
}

func (s *AISystem) shouldFlee(self *ecs.Record, rec *AIRecord) bool {
	return rec.FleeHPRatio > 0 && self.MaxHP > 0 &&
		float64(self.HP)/float64(self.MaxHP) < rec.FleeHPRatio
}

// think applies at most one transition. Returns true when self was modified.
func (s *AISystem) think(self *ecs.Record, rec *AIRecord) bool {
	switch rec.State {
	case AIIdle, AIPatrol:
		if id, ok := s.nearestHostile(self, rec.DetectRange); ok {
			rec.TargetID = id
			s.transition(rec, AIChase)
		}

	case AIChase:
		target, ok := s.targetOf(self, rec)
		switch {
		case !ok:
			rec.TargetID = 0
			s.transition(rec, AIReturn)
		case self.Position.Dist(rec.HomePosition) > rec.ChaseRange:
			rec.TargetID = 0
			s.transition(rec, AIReturn)
		case s.shouldFlee(self, rec):
			s.transition(rec, AIFlee)
		case self.Position.Dist(target.Position) <= rec.AttackRange:
			s.transition(rec, AIAttack)
		}

	case AIAttack:
		target, ok := s.targetOf(self, rec)
		switch {
		case !ok:
			rec.TargetID = 0
			s.transition(rec, AIIdle)
		case s.shouldFlee(self, rec):
			s.transition(rec, AIFlee)
		case self.Position.Dist(target.Position) > rec.AttackRange*s.settings.Hysteresis:
			s.transition(rec, AIChase)
		}

	case AIFlee:
		target, ok := s.targetOf(self, rec)
		if !ok || self.Position.Dist(target.Position) > rec.DetectRange {
			rec.TargetID = 0
			s.transition(rec, AIReturn)
		}

	case AIReturn:
		if self.Position.Dist(rec.HomePosition) < s.settings.SettleRadius {
			s.transition(rec, AIIdle)
			self.IsMoving = false
			return true
		}
	}
	return false
}

// execute issues this tick's intent. Returns true when self was modified.
func (s *AISystem) execute(self *ecs.Record, rec *AIRecord, sec float64) bool {
	switch rec.State {
	case AIPatrol:
		if len(rec.Patrol) == 0 || self.IsMoving {
			return false
		}
		wp := rec.Patrol[rec.PatrolIndex]
		if self.Position.Dist(wp) < s.settings.SettleRadius {
			rec.PatrolIndex = (rec.PatrolIndex + 1) % len(rec.Patrol)
			wp = rec.Patrol[rec.PatrolIndex]
		}
		return moveTo(self, wp)

	case AIChase:
		target, ok := s.targetOf(self, rec)
		if !ok {
			return false
		}
		return moveTo(self, target.Position)

	case AIAttack:
		changed := self.IsMoving
		self.IsMoving = false
		rec.AttackTimer += sec
		if rec.AttackTimer+timeEpsilon >= s.settings.AttackCadence && s.combat != nil && !s.combat.OnCooldown(self.ID) {
			if _, ok := s.targetOf(self, rec); ok {
				s.combat.RequestAttackWithin(self.ID, rec.TargetID, 0, s.reach(rec))
				rec.AttackTimer = 0
			}
		}
		return changed

	case AIFlee:
		target, ok := s.targetOf(self, rec)
		if !ok {
			return false
		}
		away := self.Position.Sub(target.Position).Normalize()
		if away.IsNearZero() {
			away = ecs.Vec2{X: 1}
		}
		return moveTo(self, self.Position.Add(away.Scale(rec.DetectRange)))

	case AIReturn:
		return moveTo(self, rec.HomePosition)
	}
	return false
}

// reach is how far an Attack swing may land: the whole hysteresis band, and
// never less than the combat range.
func (s *AISystem) reach(rec *AIRecord) float64 {
	return max(rec.AttackRange*s.settings.Hysteresis, s.combat.settings.AttackRange)
}

func moveTo(r *ecs.Record, p ecs.Vec2) bool {
	if r.IsMoving && r.MoveTarget == p {
		return false
	}
	r.MoveTarget = p
	r.IsMoving = true
	return true
}

// Reset drops every behavior and restarts the think clock.
func (s *AISystem) Reset() {
	s.records.Clear()
	s.elapsed = 0
}
