package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/l1jgo/battlesim/internal/config"
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"github.com/l1jgo/battlesim/internal/data"
	"github.com/l1jgo/battlesim/internal/system"
	"go.uber.org/zap"
)

var (
	ErrNotInitialized     = errors.New("world not initialized")
	ErrAlreadyInitialized = errors.New("world already initialized")
	ErrShutdown           = errors.New("world shut down")
	ErrUnknownBackend     = errors.New("unknown store backend")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrUnknownBuff        = errors.New("unknown buff config")
	ErrBuffNotFound       = errors.New("buff not found")
)

// Status is the lifecycle state of a World.
type Status uint8

const (
	StatusUninitialized Status = iota
	StatusRunning
	StatusPaused
	StatusShutdown
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Options are the collaborators a World is built with. Every field is
// optional.
type Options struct {
	Logger  *zap.Logger
	Units   *data.UnitTable // per-config base stats; nil = built-in defaults
	Buffs   *data.BuffTable // buff configs for the AddBuff command
	Formula system.DamageFormula
	// Tracing context for per-system spans.
	Context context.Context
}

// World owns the entity store, the event bus and the ordered subsystem list,
// and is the only way callers touch simulation state.
//
// A World is driven from a single goroutine (the game loop): no locks.
type World struct {
	log     *zap.Logger
	ctx     context.Context
	units   *data.UnitTable
	buffTbl *data.BuffTable
	formula system.DamageFormula

	cfg      *config.Config
	status   Status
	store    ecs.Store
	registry *ecs.Registry
	bus      *event.Bus
	runner   *coresys.Runner

	gameTime  time.Duration
	timeScale float64

	lifetime *system.LifetimeSystem
	ai       *system.AISystem
	movement *system.MovementSystem
	buffs    *system.BuffSystem
	combat   *system.CombatSystem
	cleanup  *system.CleanupSystem

	result       BattleResult
	seenPlayers  bool
	seenHostiles bool
	selections   map[ecs.EntityID]ecs.EntityID
	flushing     bool
	pending      []coresys.System // registered before Initialize
}

// maxFlushRounds bounds delivery of events emitted by handlers.
const maxFlushRounds = 8

// New creates an uninitialized World.
func New(opts Options) *World {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &World{
		log:        log,
		ctx:        ctx,
		units:      opts.Units,
		buffTbl:    opts.Buffs,
		formula:    opts.Formula,
		bus:        event.NewBus(),
		registry:   ecs.NewRegistry(),
		timeScale:  1.0,
		selections: make(map[ecs.EntityID]ecs.EntityID),
	}
}

// Initialize builds the store and the built-in subsystems and starts the
// world in Running.
func (w *World) Initialize(cfg *config.Config) error {
	switch w.status {
	case StatusShutdown:
		return ErrShutdown
	case StatusRunning, StatusPaused:
		return ErrAlreadyInitialized
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	store, err := newStore(cfg.World.Backend, cfg.World.Capacity)
	if err != nil {
		return err
	}
	w.cfg = cfg
	w.store = store
	w.runner = coresys.NewRunner(w.log.Named("runner"))
	if cfg.World.TimeScale > 0 {
		w.timeScale = cfg.World.TimeScale
	}

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	formula := w.formula
	if formula == nil {
		formula = system.StandardFormula{SkillFactor: cfg.Combat.SkillFactor}
	}

	w.buffs = system.NewBuffSystem()
	w.combat = system.NewCombatSystem(system.CombatSettings{
		AttackRange:    cfg.Combat.AttackRange,
		Cooldown:       cfg.Combat.Cooldown,
		CritChance:     cfg.Combat.CritChance,
		CritMultiplier: cfg.Combat.CritMultiplier,
	}, formula, rng, w.buffs)
	w.ai = system.NewAISystem(system.AISettings{
		SettleRadius:  cfg.AI.SettleRadius,
		AttackCadence: cfg.AI.AttackCadence,
		Hysteresis:    cfg.AI.Hysteresis,
		ThinkInterval: cfg.AI.ThinkInterval,
	}, w.combat, w.buffs)
	w.lifetime = system.NewLifetimeSystem()
	w.movement = system.NewMovementSystem(w.buffs, cfg.World.Workers)
	w.cleanup = system.NewCleanupSystem(cfg.World.PlayerCamp)
	w.cleanup.AddHook(w.onRemoved)

	for _, s := range []coresys.System{w.lifetime, w.ai, w.movement, w.buffs, w.combat, w.cleanup} {
		if err := w.install(s); err != nil {
			return err
		}
	}
	for _, s := range w.pending {
		if err := w.install(s); err != nil {
			return err
		}
	}
	w.pending = nil

	w.gameTime = 0
	w.result = BattleResult{}
	w.status = StatusRunning
	w.log.Info("world initialized",
		zap.String("backend", cfg.World.Backend),
		zap.Int("capacity", store.Capacity()),
		zap.Int("systems", len(w.runner.Systems())))
	return nil
}

func newStore(backend string, capacity int) (ecs.Store, error) {
	switch backend {
	case "", "array":
		return ecs.NewArrayStore(capacity), nil
	case "table":
		return ecs.NewTableStore(capacity), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func (w *World) install(s coresys.System) error {
	if in, ok := s.(coresys.Initializer); ok {
		if err := in.Init(w); err != nil {
			return fmt.Errorf("init system %s: %w", s.Name(), err)
		}
	}
	w.runner.Register(s)
	return nil
}

// onRemoved is the cascade hook run by cleanup for every reclaimed record.
func (w *World) onRemoved(r ecs.Record) {
	w.registry.DetachAll(r.ID)
	w.buffs.RemoveOwner(r.ID)
	w.combat.RemoveOwner(r.ID)
	delete(w.selections, r.ID)
	for src, target := range w.selections {
		if target == r.ID {
			delete(w.selections, src)
		}
	}
}

// Tick advances the simulation by dt scaled by the time scale. It is a no-op
// unless the world is Running and the battle has not ended.
func (w *World) Tick(dt time.Duration) {
	if w.status != StatusRunning || w.result.Type != ResultNone {
		return
	}
	scaled := time.Duration(float64(dt) * w.timeScale)
	if scaled <= 0 {
		return
	}
	w.gameTime += scaled
	if failed := w.runner.Tick(w.ctx, scaled); len(failed) > 0 {
		w.log.Warn("tick 中有系統失敗", zap.Strings("systems", failed))
	}
	if w.cfg.Battle.AutoJudge {
		w.judge()
	}
	w.flush()
}

// flush delivers pending events, including those emitted by handlers, up to
// maxFlushRounds. Nested calls from handlers are no-ops.
func (w *World) flush() {
	if w.flushing {
		return
	}
	w.flushing = true
	for i := 0; i < maxFlushRounds && w.bus.Pending() > 0; i++ {
		w.bus.Flush()
	}
	w.flushing = false
}

// Pause stops ticking. Queries stay valid.
func (w *World) Pause() {
	if w.status == StatusRunning {
		w.status = StatusPaused
	}
}

// Resume restarts a paused world.
func (w *World) Resume() {
	if w.status == StatusPaused {
		w.status = StatusRunning
	}
}

// Reset drops every entity, per-entity system state, pending event and
// counter, and returns to Running. Ids keep counting up.
func (w *World) Reset() error {
	switch w.status {
	case StatusUninitialized:
		return ErrNotInitialized
	case StatusShutdown:
		return ErrShutdown
	}
	w.store.Clear()
	w.registry.ClearAll()
	for _, s := range w.runner.Systems() {
		if r, ok := s.(coresys.Resetter); ok {
			r.Reset()
		}
	}
	w.bus.Discard()
	clear(w.selections)
	w.gameTime = 0
	w.result = BattleResult{}
	w.seenPlayers, w.seenHostiles = false, false
	w.status = StatusRunning
	w.log.Info("world reset")
	return nil
}

// Shutdown releases system resources. The world cannot be restarted.
func (w *World) Shutdown() {
	if w.status == StatusShutdown {
		return
	}
	if w.runner != nil {
		for _, s := range w.runner.Systems() {
			if sd, ok := s.(coresys.Shutdowner); ok {
				sd.Shutdown()
			}
		}
	}
	w.bus.Discard()
	w.status = StatusShutdown
	w.log.Info("world shut down")
}

// Status returns the lifecycle state.
func (w *World) Status() Status { return w.status }

// Running reports whether Tick advances the simulation.
func (w *World) Running() bool {
	return w.status == StatusRunning && w.result.Type == ResultNone
}

// SetTimeScale sets the multiplier applied to every tick delta. Negative
// values are clamped to 0, which freezes simulated time.
func (w *World) SetTimeScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	w.timeScale = scale
}

func (w *World) TimeScale() float64 { return w.timeScale }

// GetGameTime returns the simulated time in seconds.
func (w *World) GetGameTime() float64 { return w.gameTime.Seconds() }

// Subscribe registers a handler on the world's event bus. Handlers run when
// the bus is flushed at the end of each tick.
func Subscribe[T any](w *World, fn func(T)) {
	event.Subscribe(w.bus, fn)
}

func (w *World) ready() error {
	switch w.status {
	case StatusUninitialized:
		return ErrNotInitialized
	case StatusShutdown:
		return ErrShutdown
	}
	return nil
}

// Host implementation handed to systems.

func (w *World) Store() ecs.Store        { return w.store }
func (w *World) Registry() *ecs.Registry { return w.registry }
func (w *World) Events() *event.Bus      { return w.bus }
func (w *World) Logger() *zap.Logger     { return w.log }
func (w *World) GameTime() float64       { return w.gameTime.Seconds() }
