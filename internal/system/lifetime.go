package system

import (
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
)

// LifetimeSystem ages entities with a finite lifespan and flags them
// PendingDestroy once it runs out. Priority 50.
type LifetimeSystem struct {
	host coresys.Host
}

func NewLifetimeSystem() *LifetimeSystem {
	return &LifetimeSystem{}
}

func (s *LifetimeSystem) Name() string               { return "lifetime" }
func (s *LifetimeSystem) Priority() coresys.Priority { return coresys.PriorityLifetime }

func (s *LifetimeSystem) Init(h coresys.Host) error {
	s.host = h
	return nil
}

func (s *LifetimeSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	ecs.ForEach(s.host.Store(), func(_ int, r *ecs.Record) {
		if !r.IsActive() || r.MaxLife <= 0 {
			return
		}
		r.ElapsedLife += sec
		if r.ElapsedLife+timeEpsilon >= r.MaxLife {
			r.State = ecs.StatePendingDestroy
		}
	})
}
