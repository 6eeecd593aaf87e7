package world

import (
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"github.com/l1jgo/battlesim/internal/system"
)

// GetSystem returns the first registered system of type T.
//
//	combat, ok := world.GetSystem[*system.CombatSystem](w)
func GetSystem[T coresys.System](w *World) (T, bool) {
	if w.runner == nil {
		var zero T
		return zero, false
	}
	return coresys.Get[T](w.runner)
}

// RegisterSystem adds a system to the pipeline, re-sorting by priority. On an
// initialized world the system is initialized immediately; before that it is
// held and installed by Initialize after the built-in systems.
func (w *World) RegisterSystem(s coresys.System) error {
	switch w.status {
	case StatusShutdown:
		return ErrShutdown
	case StatusUninitialized:
		w.pending = append(w.pending, s)
		return nil
	}
	return w.install(s)
}

// Systems returns the pipeline in execution order.
func (w *World) Systems() []coresys.System {
	if w.runner == nil {
		return nil
	}
	return w.runner.Systems()
}

// Accessors for the built-in subsystems.

func (w *World) AI() *system.AISystem         { return w.ai }
func (w *World) Buffs() *system.BuffSystem    { return w.buffs }
func (w *World) Combat() *system.CombatSystem { return w.combat }
