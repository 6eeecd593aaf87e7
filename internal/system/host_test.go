package system

import (
	"testing"
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// testHost is a minimal world: a store, a bus and a clock the test advances.
type testHost struct {
	store ecs.Store
	reg   *ecs.Registry
	bus   *event.Bus
	log   *zap.Logger
	now   float64
}

func newTestHost(t *testing.T, store ecs.Store) *testHost {
	t.Helper()
	if store == nil {
		store = ecs.NewArrayStore(1024)
	}
	return &testHost{
		store: store,
		reg:   ecs.NewRegistry(),
		bus:   event.NewBus(),
		log:   zaptest.NewLogger(t),
	}
}

func (h *testHost) Store() ecs.Store        { return h.store }
func (h *testHost) Registry() *ecs.Registry { return h.reg }
func (h *testHost) Events() *event.Bus      { return h.bus }
func (h *testHost) Logger() *zap.Logger     { return h.log }
func (h *testHost) GameTime() float64       { return h.now }

func (h *testHost) advance(dt time.Duration) { h.now += dt.Seconds() }

func (h *testHost) spawn(t *testing.T, r ecs.Record) ecs.EntityID {
	t.Helper()
	id, err := h.store.Insert(r)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func (h *testHost) get(t *testing.T, id ecs.EntityID) ecs.Record {
	t.Helper()
	r, ok := h.store.TryGet(id)
	if !ok {
		t.Fatalf("entity %d not found", id)
	}
	return r
}

func (h *testHost) set(t *testing.T, id ecs.EntityID, fn func(r *ecs.Record)) {
	t.Helper()
	if !ecs.Modify(h.store, id, fn) {
		t.Fatalf("entity %d not found", id)
	}
}

func fighter(camp int32, x, y float64) ecs.Record {
	return ecs.Record{
		Kind:     ecs.KindEnemy,
		CampID:   camp,
		Position: ecs.Vec2{X: x, Y: y},
		HP:       100,
		MaxHP:    100,
		Attack:   10,
		Defense:  5,
	}
}
