package system

import (
	"math"
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
)

func near(a, b ecs.Vec2) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestStep(t *testing.T) {
	heading := ecs.Vec2{Y: 1}
	pos, h, moving := Step(ecs.Vec2{}, heading, ecs.Vec2{X: 10}, 2, 1)
	if !near(pos, ecs.Vec2{X: 2}) || !near(h, ecs.Vec2{X: 1}) || !moving {
		t.Fatalf("advance: pos=%v heading=%v moving=%v", pos, h, moving)
	}

	pos, h, moving = Step(ecs.Vec2{X: 9}, heading, ecs.Vec2{X: 10}, 2, 1)
	if pos != (ecs.Vec2{X: 10}) || moving || h != heading {
		t.Fatalf("snap: pos=%v heading=%v moving=%v", pos, h, moving)
	}

	pos, _, moving = Step(ecs.Vec2{X: 1}, heading, ecs.Vec2{X: 5}, 0, 1)
	if pos != (ecs.Vec2{X: 1}) || !moving {
		t.Fatalf("zero speed: pos=%v moving=%v", pos, moving)
	}
}

func TestMovementSkipsInactiveAndIdle(t *testing.T) {
	h := newTestHost(t, nil)
	ms := NewMovementSystem(nil, 1)
	ms.Init(h)

	mover := fighter(1, 0, 0)
	mover.MoveSpeed, mover.MoveTarget, mover.IsMoving = 1, ecs.Vec2{X: 5}, true
	moving := h.spawn(t, mover)

	idle := fighter(1, 0, 0)
	idle.MoveSpeed, idle.MoveTarget = 1, ecs.Vec2{X: 5}
	idleID := h.spawn(t, idle)

	dead := mover
	dead.HP, dead.State = 0, ecs.StateDead
	deadID := h.spawn(t, dead)

	ms.Update(500 * time.Millisecond)
	if p := h.get(t, moving).Position; !near(p, ecs.Vec2{X: 0.5}) {
		t.Fatalf("mover at %v", p)
	}
	if p := h.get(t, idleID).Position; p != (ecs.Vec2{}) {
		t.Fatalf("idle entity moved to %v", p)
	}
	if p := h.get(t, deadID).Position; p != (ecs.Vec2{}) {
		t.Fatalf("dead entity moved to %v", p)
	}
}

func TestMovementRespectsStun(t *testing.T) {
	h := newTestHost(t, nil)
	bs := newBuffs(t, h)
	ms := NewMovementSystem(bs, 1)
	ms.Init(h)

	r := fighter(1, 0, 0)
	r.MoveSpeed, r.MoveTarget, r.IsMoving = 1, ecs.Vec2{X: 5}, true
	id := h.spawn(t, r)
	bs.AddBuff(BuffParams{ConfigID: 1, OwnerID: id, Effect: EffectStun, Duration: 1, MaxStackCount: 1})

	ms.Update(time.Second)
	if got := h.get(t, id); got.Position != (ecs.Vec2{}) || !got.IsMoving {
		t.Fatalf("stunned entity: pos=%v moving=%v", got.Position, got.IsMoving)
	}
}

// The chunked column path must give the same result as the record path.
func TestMovementParallelMatchesSequential(t *testing.T) {
	const n = 600
	seq := newTestHost(t, ecs.NewArrayStore(n))
	par := newTestHost(t, ecs.NewTableStore(n))
	for i := 0; i < n; i++ {
		r := fighter(int32(i%3), float64(i), 0)
		r.MoveSpeed = float64(i%5) + 0.5
		r.MoveTarget = ecs.Vec2{X: float64(i), Y: float64(i % 7)}
		r.IsMoving = i%4 != 0
		seq.spawn(t, r)
		par.spawn(t, r)
	}
	ms := NewMovementSystem(nil, 1)
	ms.Init(seq)
	mp := NewMovementSystem(nil, 4)
	mp.Init(par)

	for step := 0; step < 10; step++ {
		ms.Update(tick)
		mp.Update(tick)
	}
	for i := 0; i < n; i++ {
		a, b := seq.store.At(i), par.store.At(i)
		if a != b {
			t.Fatalf("row %d differs:\n seq=%+v\n par=%+v", i, a, b)
		}
	}
}
