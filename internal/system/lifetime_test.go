package system

import (
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
)

func TestLifetimeExpiresAfterMaxLife(t *testing.T) {
	h := newTestHost(t, nil)
	ls := NewLifetimeSystem()
	ls.Init(h)

	r := fighter(2, 0, 0)
	r.MaxLife = 2.0
	mortal := h.spawn(t, r)
	immortal := h.spawn(t, fighter(2, 1, 0))

	for i := 0; i < 19; i++ {
		ls.Update(100 * time.Millisecond)
	}
	if got := h.get(t, mortal); got.State != ecs.StateActive {
		t.Fatalf("state after 1.9s = %v, want active", got.State)
	}
	ls.Update(100 * time.Millisecond)
	if got := h.get(t, mortal); got.State != ecs.StatePendingDestroy {
		t.Fatalf("state after 2.0s = %v, want pending_destroy", got.State)
	}
	if got := h.get(t, immortal); got.State != ecs.StateActive || got.ElapsedLife != 0 {
		t.Fatalf("immortal entity aged: %+v", got)
	}
}

func TestCleanupCountsByCamp(t *testing.T) {
	h := newTestHost(t, nil)
	cs := NewCleanupSystem(1)
	cs.Init(h)

	var hooked []ecs.EntityID
	cs.AddHook(func(r ecs.Record) { hooked = append(hooked, r.ID) })
	var removed []event.EntityRemoved
	event.Subscribe(h.bus, func(e event.EntityRemoved) { removed = append(removed, e) })

	player := h.spawn(t, fighter(1, 0, 0))
	enemyA := h.spawn(t, fighter(2, 0, 0))
	enemyB := h.spawn(t, fighter(3, 0, 0))
	survivor := h.spawn(t, fighter(2, 0, 0))

	h.set(t, player, func(r *ecs.Record) { ApplyDamage(r, 1000) })
	h.store.Destroy(enemyA)
	h.set(t, enemyB, func(r *ecs.Record) { ApplyDamage(r, 1000) })

	if n := cs.Run(); n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
	kills, deaths := cs.Counters()
	if kills != 2 || deaths != 1 {
		t.Fatalf("kills=%d deaths=%d, want 2,1", kills, deaths)
	}
	if h.store.Len() != 1 {
		t.Fatalf("store len = %d, want 1", h.store.Len())
	}
	if _, ok := h.store.TryGet(survivor); !ok {
		t.Fatal("survivor removed")
	}
	if len(hooked) != 3 {
		t.Fatalf("hooks ran for %v", hooked)
	}

	h.bus.Flush()
	if len(removed) != 3 {
		t.Fatalf("removed events = %+v", removed)
	}
	for _, e := range removed {
		switch e.EntityID {
		case player:
			if !e.PlayerSide || e.Reason != event.RemovedDead {
				t.Errorf("player removal = %+v", e)
			}
		case enemyA:
			if e.PlayerSide || e.Reason != event.RemovedDestroyed {
				t.Errorf("destroyed removal = %+v", e)
			}
		}
	}

	cs.Reset()
	if k, d := cs.Counters(); k != 0 || d != 0 {
		t.Fatal("Reset kept counters")
	}
}
