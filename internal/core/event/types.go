package event

import "github.com/l1jgo/battlesim/internal/core/ecs"

// DamageSource tells where a damage notification came from.
type DamageSource uint8

const (
	SourceCombat DamageSource = iota
	SourceBuff
	SourceDirect
)

func (s DamageSource) String() string {
	switch s {
	case SourceCombat:
		return "combat"
	case SourceBuff:
		return "buff"
	case SourceDirect:
		return "direct"
	}
	return "unknown"
}

// DamageDealt is emitted whenever hp is reduced by combat, a damage-over-time
// tick, or a direct damage call.
type DamageDealt struct {
	AttackerID ecs.EntityID // zero for direct damage
	TargetID   ecs.EntityID
	Rolled     int32 // resolved damage, crit included
	Amount     int32 // hp actually removed, at most Rolled
	Critical   bool
	Killed     bool
	Source     DamageSource
}

// EntityHealed is emitted for heal-over-time ticks and direct heals.
type EntityHealed struct {
	TargetID ecs.EntityID
	Amount   int32
}

// RemovalReason tells why the cleanup pass reclaimed a record.
type RemovalReason uint8

const (
	RemovedDead RemovalReason = iota
	RemovedDestroyed
)

func (r RemovalReason) String() string {
	if r == RemovedDead {
		return "dead"
	}
	return "destroyed"
}

// EntityRemoved is emitted by the cleanup pass for every reclaimed record.
type EntityRemoved struct {
	EntityID ecs.EntityID
	Kind     ecs.Kind
	ConfigID int32
	CampID   int32
	Reason   RemovalReason
	GameTime float64 // seconds, when the record was reclaimed
	// PlayerSide is true when the record belonged to the player camp, i.e. it
	// counted as a death rather than a kill.
	PlayerSide bool
}

// BuffApplied is emitted when a buff is created, stacked, or refreshed.
type BuffApplied struct {
	BuffID     uint64
	OwnerID    ecs.EntityID
	ConfigID   int32
	StackCount int32
}

// BuffExpired is emitted when an expired or removed buff is purged.
type BuffExpired struct {
	BuffID   uint64
	OwnerID  ecs.EntityID
	ConfigID int32
}

// BattleEnded is emitted once when the battle result becomes terminal.
type BattleEnded struct {
	ResultType      uint8
	DurationSeconds float64
	Score           int64
	KillCount       int32
	DeathCount      int32
}

// Reasons carried by AttackDropped.
const (
	DropOnCooldown = "on_cooldown"
	DropMissing    = "missing"
	DropInactive   = "inactive"
	DropFriendly   = "friendly"
	DropOutOfRange = "out_of_range"
	DropStunned    = "stunned"
)

// AttackDropped is emitted when an attack request is suppressed or discarded.
// It is not an error: AI and UI spam requests and expect most to be dropped.
type AttackDropped struct {
	AttackerID ecs.EntityID
	TargetID   ecs.EntityID
	Reason     string
}
