package system

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/l1jgo/battlesim/internal/core/system"

// Runner executes systems in priority order each tick. A panic inside one
// system is recovered and logged; the remaining systems still run.
type Runner struct {
	systems []System
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		systems: make([]System, 0, 16),
		log:     log,
	}
}

// Register adds a system and re-sorts by priority. Systems with equal
// priority keep registration order.
func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Priority() < r.systems[j].Priority()
	})
}

// Systems returns the registered systems in execution order.
func (r *Runner) Systems() []System {
	return r.systems
}

// Tick runs every system once. Returns the names of systems that panicked.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) []string {
	tracer := otel.Tracer(tracerName)
	var failed []string
	for _, s := range r.systems {
		_, span := tracer.Start(ctx, s.Name())
		span.SetAttributes(attribute.Int("priority", int(s.Priority())))
		if err := r.run(s, dt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			failed = append(failed, s.Name())
		}
		span.End()
	}
	return failed
}

func (r *Runner) run(s System, dt time.Duration) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("system %s panicked: %v", s.Name(), p)
			r.log.Error("系統更新失敗，略過本 tick", zap.String("system", s.Name()), zap.Any("panic", p))
		}
	}()
	s.Update(dt)
	return nil
}

// Get returns the first registered system of type T.
func Get[T System](r *Runner) (T, bool) {
	for _, s := range r.systems {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
