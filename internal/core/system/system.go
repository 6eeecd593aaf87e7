package system

import (
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	"go.uber.org/zap"
)

// Priority defines execution ordering within a single tick. Lower runs first.
// The order is a correctness requirement: AI reads Combat cooldowns and both
// Buff and Combat write hp.
type Priority int

const (
	PriorityLifetime Priority = 50
	PriorityAI       Priority = 80
	PriorityMovement Priority = 100
	PriorityBuff     Priority = 150
	PriorityCombat   Priority = 200
	PriorityCleanup  Priority = 9999
)

// System is the interface every simulation subsystem implements.
type System interface {
	Name() string
	Priority() Priority
	Update(dt time.Duration)
}

// Host is what the world hands to systems on Init. The store is only reached
// through it; systems must not keep indices across ticks.
type Host interface {
	Store() ecs.Store
	Registry() *ecs.Registry
	Events() *event.Bus
	Logger() *zap.Logger
	// GameTime is the simulated time in seconds, already advanced for the
	// current tick.
	GameTime() float64
}

// Initializer is implemented by systems that need the host before their
// first update.
type Initializer interface {
	Init(h Host) error
}

// Resetter is implemented by systems that hold per-battle state.
type Resetter interface {
	Reset()
}

// Shutdowner is implemented by systems that release resources on shutdown.
type Shutdowner interface {
	Shutdown()
}
