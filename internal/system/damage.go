package system

import "github.com/l1jgo/battlesim/internal/core/ecs"

// timeEpsilon absorbs float accumulation error when comparing summed tick
// deltas against durations (ten 0.1s ticks must reach 1.0s).
const timeEpsilon = 1e-9

// ApplyDamage is the single hp-reduction path shared by combat, damage over
// time, and direct damage. hp is floored at 0; reaching 0 marks the record
// Dead. Inactive records are not touched.
func ApplyDamage(r *ecs.Record, amount int32) (dealt int32, killed bool) {
	if !r.IsActive() || amount <= 0 {
		return 0, false
	}
	dealt = amount
	if dealt > r.HP {
		dealt = r.HP
	}
	r.HP -= dealt
	if r.HP <= 0 {
		r.HP = 0
		r.State = ecs.StateDead
		killed = true
	}
	return dealt, killed
}

// ApplyHeal raises hp of an active record, clamped to MaxHP. Returns the
// amount actually restored.
func ApplyHeal(r *ecs.Record, amount int32) int32 {
	if !r.IsActive() || amount <= 0 {
		return 0
	}
	room := r.MaxHP - r.HP
	if amount > room {
		amount = room
	}
	r.HP += amount
	return amount
}

// Hostile reports whether two records are in different camps.
func Hostile(a, b *ecs.Record) bool {
	return a.CampID != b.CampID
}
