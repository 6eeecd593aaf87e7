package ecs

import "math"

// EntityID is a stable entity handle. IDs are assigned from a monotonically
// increasing counter starting at 1 and are never reused within a session.
// Zero is the null id.
type EntityID uint64

func (id EntityID) IsZero() bool { return id == 0 }

// Kind classifies an entity.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindEnemy
	KindNpc
	KindProjectile
	KindItem
	KindEffect
)

var kindNames = [...]string{"player", "enemy", "npc", "projectile", "item", "effect"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind maps a data-table name to a Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// State is the entity lifecycle state. Only the cleanup pass removes records
// that are Dead or PendingDestroy.
type State uint8

const (
	StateActive State = iota
	StateDead
	StatePendingDestroy
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDead:
		return "dead"
	case StatePendingDestroy:
		return "pending_destroy"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Vec2 is a 2D world position or direction.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }
func (v Vec2) IsNearZero() bool     { return v.Len() < 1e-6 }

func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l < 1e-6 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Record is one live unit. Time fields are in simulated seconds.
//
// Invariants: 0 <= HP <= MaxHP; State == StateDead iff HP == 0 and the record
// has not been cleaned up yet.
type Record struct {
	ID       EntityID `json:"id"`
	Kind     Kind     `json:"kind"`
	State    State    `json:"state"`
	ConfigID int32    `json:"config_id"`
	CampID   int32    `json:"camp_id"`

	Position   Vec2    `json:"position"`
	Heading    Vec2    `json:"heading"` // unit vector; zero until the entity first moves
	MoveTarget Vec2    `json:"move_target"`
	IsMoving   bool    `json:"is_moving"`
	MoveSpeed  float64 `json:"move_speed"`

	HP      int32 `json:"hp"`
	MaxHP   int32 `json:"max_hp"`
	Attack  int32 `json:"attack"`
	Defense int32 `json:"defense"`

	CreatedAt   float64 `json:"created_at"`
	ElapsedLife float64 `json:"elapsed_life"`
	MaxLife     float64 `json:"max_life"` // <= 0 means unlimited
}

// IsActive reports whether the record takes part in simulation.
func (r *Record) IsActive() bool { return r.State == StateActive }

// IsRemovable reports whether the cleanup pass should reclaim the record.
func (r *Record) IsRemovable() bool {
	return r.State == StateDead || r.State == StatePendingDestroy
}

// Normalize clamps HP into [0, MaxHP] and marks an active record with zero HP
// as Dead.
func (r *Record) Normalize() {
	if r.MaxHP < 0 {
		r.MaxHP = 0
	}
	if r.HP > r.MaxHP {
		r.HP = r.MaxHP
	}
	if r.HP < 0 {
		r.HP = 0
	}
	if r.HP == 0 && r.State == StateActive {
		r.State = StateDead
	}
}

// SpawnInfo describes an entity to create. Zero stat fields are filled from
// the configured stat provider (or built-in defaults) by the world.
type SpawnInfo struct {
	Kind      Kind
	ConfigID  int32
	CampID    int32
	Position  Vec2
	Heading   Vec2
	MoveSpeed float64
	HP        int32
	MaxHP     int32
	Attack    int32
	Defense   int32
	MaxLife   float64
}
