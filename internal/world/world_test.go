package world

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	"go.uber.org/zap/zaptest"
)

func TestUninitializedWorld(t *testing.T) {
	w := New(Options{Logger: zaptest.NewLogger(t)})
	w.Tick(frame)
	if w.Status() != StatusUninitialized || w.GetGameTime() != 0 {
		t.Fatalf("status=%v time=%v", w.Status(), w.GetGameTime())
	}
	if _, err := w.SpawnEntity(soldier(1, 0, 0)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("SpawnEntity err = %v", err)
	}
	if err := w.Reset(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Reset err = %v", err)
	}
	if w.EntityCount() != 0 || w.AllEntities() != nil {
		t.Fatal("queries on an uninitialized world returned data")
	}
	if w.IsEntityAlive(1) {
		t.Fatal("IsEntityAlive before init")
	}
}

func TestInitializeTwice(t *testing.T) {
	w := newWorld(t, "array", Options{}, nil)
	if err := w.Initialize(config.Defaults()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("err = %v", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	w := New(Options{Logger: zaptest.NewLogger(t)})
	cfg := config.Defaults()
	cfg.World.Backend = "btree"
	if err := w.Initialize(cfg); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err = %v", err)
	}
	if w.Status() != StatusUninitialized {
		t.Fatalf("status = %v", w.Status())
	}
}

func TestPauseResume(t *testing.T) {
	w := newWorld(t, "array", Options{}, nil)
	w.Tick(frame)
	w.Pause()
	if w.Status() != StatusPaused || w.Running() {
		t.Fatalf("status = %v", w.Status())
	}
	w.Tick(frame)
	if got := w.GetGameTime(); got != 0.05 {
		t.Fatalf("paused world advanced to %v", got)
	}
	id := spawn(t, w, soldier(1, 0, 0))
	if !w.IsEntityAlive(id) {
		t.Fatal("spawn while paused failed")
	}
	w.Resume()
	w.Tick(frame)
	if got := w.GetGameTime(); got != 0.1 {
		t.Fatalf("game time = %v, want 0.1", got)
	}
}

func TestShutdown(t *testing.T) {
	w := newWorld(t, "table", Options{}, nil)
	spawn(t, w, soldier(1, 0, 0))
	w.Shutdown()
	w.Shutdown()

	if w.Status() != StatusShutdown {
		t.Fatalf("status = %v", w.Status())
	}
	if _, err := w.SpawnEntity(soldier(1, 0, 0)); !errors.Is(err, ErrShutdown) {
		t.Fatalf("SpawnEntity err = %v", err)
	}
	if err := w.Initialize(config.Defaults()); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Initialize err = %v", err)
	}
	if err := w.Reset(); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Reset err = %v", err)
	}
	w.Tick(frame)
	if w.GetGameTime() != 0 {
		t.Fatal("shut down world ticked")
	}
}

func TestResetKeepsIDsCounting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		w := newWorld(t, backend, Options{}, nil)
		a := spawn(t, w, soldier(1, 0, 0))
		b := spawn(t, w, soldier(2, 1, 0))
		w.Combat().RequestAttack(a, b, 0)
		w.Tick(frame)
		w.DestroyEntity(b)
		w.Tick(frame)

		if err := w.Reset(); err != nil {
			t.Fatal(err)
		}
		if w.EntityCount() != 0 || w.GetGameTime() != 0 {
			t.Fatalf("count=%d time=%v", w.EntityCount(), w.GetGameTime())
		}
		if kills, deaths := w.Counters(); kills != 0 || deaths != 0 {
			t.Fatalf("counters survived reset: %d %d", kills, deaths)
		}
		if _, ok := w.Combat().NextAttackTime(a); ok {
			t.Fatal("cooldown survived reset")
		}
		if id := spawn(t, w, soldier(1, 0, 0)); id <= b {
			t.Fatalf("id %d reused after reset", id)
		}
	})
}

func TestSpawnFillsDefaults(t *testing.T) {
	w := newWorld(t, "array", Options{}, nil)
	id := spawn(t, w, ecs.SpawnInfo{Kind: ecs.KindPlayer, CampID: 1, Position: ecs.Vec2{X: 3, Y: 4}})
	r := mustGet(t, w, id)
	if r.HP != 100 || r.MaxHP != 100 || r.Attack != 10 || r.Defense != 5 || r.MoveSpeed != 3 {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if r.MoveTarget != r.Position || r.IsMoving {
		t.Fatalf("fresh entity is moving: %+v", r)
	}

	id = spawn(t, w, ecs.SpawnInfo{Kind: ecs.KindPlayer, CampID: 1, HP: 150, MaxHP: 120})
	if r := mustGet(t, w, id); r.HP != 150 || r.MaxHP != 150 {
		t.Fatalf("hp above max: hp=%d max=%d", r.HP, r.MaxHP)
	}
}

func TestMoveAndStop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		w := newWorld(t, backend, Options{}, nil)
		id := spawn(t, w, soldier(1, 0, 0))

		if !w.MoveEntityTo(id, ecs.Vec2{X: 10}) {
			t.Fatal("MoveEntityTo failed")
		}
		for i := 0; i < 10; i++ {
			w.Tick(100 * time.Millisecond)
		}
		r := mustGet(t, w, id)
		if r.Position.X < 2.99 || r.Position.X > 3.01 || !r.IsMoving {
			t.Fatalf("after 1s at speed 3: %+v", r)
		}
		w.StopEntity(id)
		w.Tick(100 * time.Millisecond)
		if r2 := mustGet(t, w, id); r2.Position != r.Position || r2.IsMoving {
			t.Fatalf("stopped entity moved: %+v", r2)
		}

		w.DamageEntity(id, 500)
		if w.MoveEntityTo(id, ecs.Vec2{X: 1}) {
			t.Fatal("dead entity accepted a move")
		}
	})
}

func TestHealEntity(t *testing.T) {
	w := newWorld(t, "array", Options{}, nil)
	id := spawn(t, w, soldier(1, 0, 0))
	var healed []event.EntityHealed
	Subscribe(w, func(e event.EntityHealed) { healed = append(healed, e) })

	w.DamageEntity(id, 30)
	if got := w.HealEntity(id, 50); got != 30 {
		t.Fatalf("healed %d, want 30", got)
	}
	if got := w.HealEntity(id, 10); got != 0 {
		t.Fatalf("healed %d at full hp", got)
	}
	w.Tick(frame)
	if len(healed) != 1 || healed[0].Amount != 30 {
		t.Fatalf("notifications = %+v", healed)
	}

	w.DamageEntity(id, 100)
	if got := w.HealEntity(id, 10); got != 0 {
		t.Fatal("dead entity healed")
	}
}

func TestUpdateEntityClamps(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		w := newWorld(t, backend, Options{}, nil)
		id := spawn(t, w, soldier(1, 0, 0))

		r := mustGet(t, w, id)
		r.ID = 999
		r.HP = 500
		if !w.UpdateEntity(id, r) {
			t.Fatal("UpdateEntity failed")
		}
		got := mustGet(t, w, id)
		if got.ID != id || got.HP != 100 {
			t.Fatalf("after update: %+v", got)
		}

		got.HP = -5
		if !w.UpdateEntityAt(0, got) {
			t.Fatal("UpdateEntityAt failed")
		}
		if got := mustGet(t, w, id); got.HP != 0 || got.State != ecs.StateDead {
			t.Fatalf("negative hp not clamped: %+v", got)
		}
		if w.UpdateEntityAt(5, got) || w.UpdateEntity(77, got) {
			t.Fatal("update of a missing record succeeded")
		}
	})
}

func TestAppendEntitiesReusesBuffer(t *testing.T) {
	w := newWorld(t, "table", Options{}, nil)
	for i := 0; i < 5; i++ {
		spawn(t, w, soldier(2, float64(i), 0))
	}
	buf := make([]ecs.Record, 0, 16)
	buf = w.AppendEntities(buf[:0])
	if len(buf) != 5 || cap(buf) != 16 {
		t.Fatalf("len=%d cap=%d", len(buf), cap(buf))
	}
	for i, r := range buf {
		if r.Position.X != float64(i) {
			t.Fatalf("record %d out of order: %+v", i, r)
		}
	}
}

func TestEventsDeliveredAtTickEnd(t *testing.T) {
	w := newWorld(t, "array", Options{}, nil)
	a := spawn(t, w, soldier(1, 0, 0))
	b := spawn(t, w, soldier(2, 1, 0))

	var order []string
	Subscribe(w, func(e event.DamageDealt) {
		order = append(order, "damage")
		if e.AttackerID.IsZero() {
			return
		}
		// A handler may act on the world; what it emits arrives in the same flush.
		w.DestroyEntity(e.TargetID)
		w.HealEntity(e.AttackerID, 1)
	})
	Subscribe(w, func(event.EntityHealed) { order = append(order, "heal") })

	w.DamageEntity(a, 10)
	w.Combat().RequestAttack(a, b, 0)
	if len(order) != 0 {
		t.Fatal("event delivered before the tick")
	}
	w.Tick(frame)
	if len(order) != 3 || order[0] != "damage" || order[1] != "damage" || order[2] != "heal" {
		t.Fatalf("order = %v", order)
	}
	if w.IsEntityAlive(b) {
		t.Fatal("handler destroy not applied")
	}
}
