package system

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recSystem struct {
	name  string
	prio  Priority
	log   *[]string
	panic bool
}

func (s *recSystem) Name() string       { return s.name }
func (s *recSystem) Priority() Priority { return s.prio }
func (s *recSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
	if s.panic {
		panic("boom")
	}
}

func TestRunnerOrdersByPriority(t *testing.T) {
	var order []string
	r := NewRunner(zaptest.NewLogger(t))
	r.Register(&recSystem{name: "cleanup", prio: PriorityCleanup, log: &order})
	r.Register(&recSystem{name: "combat", prio: PriorityCombat, log: &order})
	r.Register(&recSystem{name: "lifetime", prio: PriorityLifetime, log: &order})
	r.Register(&recSystem{name: "movement", prio: PriorityMovement, log: &order})
	r.Register(&recSystem{name: "ai", prio: PriorityAI, log: &order})
	r.Register(&recSystem{name: "buff", prio: PriorityBuff, log: &order})

	r.Tick(context.Background(), time.Second)
	want := []string{"lifetime", "ai", "movement", "buff", "combat", "cleanup"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunnerEqualPriorityKeepsRegistrationOrder(t *testing.T) {
	var order []string
	r := NewRunner(nil)
	r.Register(&recSystem{name: "a", prio: 10, log: &order})
	r.Register(&recSystem{name: "b", prio: 10, log: &order})
	r.Register(&recSystem{name: "c", prio: 5, log: &order})
	r.Tick(context.Background(), 0)
	if order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunnerIsolatesPanics(t *testing.T) {
	var order []string
	r := NewRunner(zaptest.NewLogger(t))
	r.Register(&recSystem{name: "bad", prio: 1, log: &order, panic: true})
	r.Register(&recSystem{name: "good", prio: 2, log: &order})

	failed := r.Tick(context.Background(), time.Millisecond)
	if len(failed) != 1 || failed[0] != "bad" {
		t.Fatalf("failed = %v", failed)
	}
	if len(order) != 2 || order[1] != "good" {
		t.Fatalf("later system did not run: %v", order)
	}
}

type otherSystem struct{ recSystem }

func TestGet(t *testing.T) {
	var order []string
	r := NewRunner(nil)
	rs := &recSystem{name: "rec", prio: 1, log: &order}
	r.Register(rs)
	got, ok := Get[*recSystem](r)
	if !ok || got != rs {
		t.Fatalf("Get = %v,%v", got, ok)
	}
	if _, ok := Get[*otherSystem](r); ok {
		t.Fatal("Get found unregistered type")
	}
}
