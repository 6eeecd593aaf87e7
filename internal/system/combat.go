package system

import (
	"math"
	"math/rand"
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"go.uber.org/zap"
)

// CombatRequest is one queued attack attempt. Requests never survive the
// tick that drains them.
type CombatRequest struct {
	AttackerID  ecs.EntityID
	TargetID    ecs.EntityID
	SkillID     int32
	RequestedAt float64
	Reach       float64 // 0 = CombatSettings.AttackRange
}

// CombatSettings are the tunables of attack resolution.
type CombatSettings struct {
	AttackRange    float64
	Cooldown       float64 // seconds
	CritChance     float64
	CritMultiplier int32
}

// DefaultCombatSettings: 2.0 range, 1s cooldown, 10% crits doubling damage.
func DefaultCombatSettings() CombatSettings {
	return CombatSettings{AttackRange: 2.0, Cooldown: 1.0, CritChance: 0.1, CritMultiplier: 2}
}

// CombatSystem resolves queued attack requests (Priority 200).
// RequestAttack queues; Update drains the queue in FIFO order.
type CombatSystem struct {
	host     coresys.Host
	log      *zap.Logger
	settings CombatSettings
	formula  DamageFormula
	rng      *rand.Rand
	buffs    *BuffSystem

	requests   []CombatRequest
	nextAttack map[ecs.EntityID]float64
}

// NewCombatSystem creates the combat resolver. buffs may be nil, in which case
// no attribute modifiers apply.
func NewCombatSystem(settings CombatSettings, formula DamageFormula, rng *rand.Rand, buffs *BuffSystem) *CombatSystem {
	if formula == nil {
		formula = StandardFormula{SkillFactor: 0.1}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if settings.CritMultiplier < 1 {
		settings.CritMultiplier = 1
	}
	return &CombatSystem{
		log:        zap.NewNop(),
		settings:   settings,
		formula:    formula,
		rng:        rng,
		buffs:      buffs,
		requests:   make([]CombatRequest, 0, 64),
		nextAttack: make(map[ecs.EntityID]float64, 128),
	}
}

func (s *CombatSystem) Name() string               { return "combat" }
func (s *CombatSystem) Priority() coresys.Priority { return coresys.PriorityCombat }

func (s *CombatSystem) Init(h coresys.Host) error {
	s.host = h
	s.log = h.Logger().Named("combat")
	return nil
}

// SetFormula swaps the damage formula (e.g. to a scripted one).
func (s *CombatSystem) SetFormula(f DamageFormula) {
	if f != nil {
		s.formula = f
	}
}

// OnCooldown reports whether attacker may not attack yet.
func (s *CombatSystem) OnCooldown(attacker ecs.EntityID) bool {
	if s.host == nil {
		return false
	}
	next, ok := s.nextAttack[attacker]
	return ok && s.host.GameTime()+timeEpsilon < next
}

// NextAttackTime returns the game time at which attacker may attack again.
func (s *CombatSystem) NextAttackTime(attacker ecs.EntityID) (float64, bool) {
	t, ok := s.nextAttack[attacker]
	return t, ok
}

// RequestAttack queues an attack. A request from an attacker on cooldown is
// silently dropped and false is returned.
func (s *CombatSystem) RequestAttack(attacker, target ecs.EntityID, skillID int32) bool {
	return s.RequestAttackWithin(attacker, target, skillID, 0)
}

// RequestAttackWithin is RequestAttack validated against reach instead of the
// configured attack range. AI uses it so a swing lands anywhere it is allowed
// to stay in Attack.
func (s *CombatSystem) RequestAttackWithin(attacker, target ecs.EntityID, skillID int32, reach float64) bool {
	if s.host == nil {
		return false
	}
	if s.OnCooldown(attacker) {
		s.drop(attacker, target, event.DropOnCooldown)
		return false
	}
	s.requests = append(s.requests, CombatRequest{
		AttackerID:  attacker,
		TargetID:    target,
		SkillID:     skillID,
		RequestedAt: s.host.GameTime(),
		Reach:       reach,
	})
	return true
}

// Pending returns the number of queued requests.
func (s *CombatSystem) Pending() int { return len(s.requests) }

func (s *CombatSystem) Update(_ time.Duration) {
	for _, req := range s.requests {
		s.resolve(req)
	}
	clear(s.requests)
	s.requests = s.requests[:0]
}

func (s *CombatSystem) resolve(req CombatRequest) {
	store := s.host.Store()
	ai, okA := store.IndexOf(req.AttackerID)
	ti, okT := store.IndexOf(req.TargetID)
	if !okA || !okT {
		s.drop(req.AttackerID, req.TargetID, event.DropMissing)
		return
	}
	attacker := store.At(ai)
	target := store.At(ti)
	reach := req.Reach
	if reach <= 0 {
		reach = s.settings.AttackRange
	}
	switch {
	case !attacker.IsActive() || !target.IsActive():
		s.drop(req.AttackerID, req.TargetID, event.DropInactive)
		return
	case !Hostile(&attacker, &target):
		s.drop(req.AttackerID, req.TargetID, event.DropFriendly)
		return
	case attacker.Position.Dist(target.Position) > reach:
		s.drop(req.AttackerID, req.TargetID, event.DropOutOfRange)
		return
	case s.OnCooldown(req.AttackerID):
		s.drop(req.AttackerID, req.TargetID, event.DropOnCooldown)
		return
	case s.buffs.HasBuff(req.AttackerID, EffectStun):
		s.drop(req.AttackerID, req.TargetID, event.DropStunned)
		return
	}

	dmg := s.formula.BaseDamage(DamageInput{
		Attack:  attacker.Attack + s.modifier(attacker.ID, EffectModifyAttack),
		Defense: target.Defense + s.modifier(target.ID, EffectModifyDefense) + s.modifier(target.ID, EffectShield),
		SkillID: req.SkillID,
	})
	if dmg < 1 {
		dmg = 1
	}
	crit := s.rng.Float64() < s.settings.CritChance
	if crit {
		dmg *= s.settings.CritMultiplier
	}

	dealt, killed := ApplyDamage(&target, dmg)
	store.UpdateAt(ti, target)
	s.nextAttack[req.AttackerID] = s.host.GameTime() + s.settings.Cooldown

	event.Emit(s.host.Events(), event.DamageDealt{
		AttackerID: req.AttackerID,
		TargetID:   req.TargetID,
		Rolled:     dmg,
		Amount:     dealt,
		Critical:   crit,
		Killed:     killed,
		Source:     event.SourceCombat,
	})
}

func (s *CombatSystem) modifier(id ecs.EntityID, kind EffectKind) int32 {
	return int32(math.Round(s.buffs.AttributeModifier(id, kind)))
}

func (s *CombatSystem) drop(attacker, target ecs.EntityID, reason string) {
	s.log.Debug("attack dropped",
		zap.Uint64("attacker", uint64(attacker)),
		zap.Uint64("target", uint64(target)),
		zap.String("reason", reason))
	event.Emit(s.host.Events(), event.AttackDropped{AttackerID: attacker, TargetID: target, Reason: reason})
}

// RemoveOwner forgets the cooldown of a reclaimed entity. Queued requests
// naming it fail re-validation when drained.
func (s *CombatSystem) RemoveOwner(id ecs.EntityID) {
	delete(s.nextAttack, id)
}

// Reset drops the queue and every cooldown.
func (s *CombatSystem) Reset() {
	clear(s.requests)
	s.requests = s.requests[:0]
	clear(s.nextAttack)
}
