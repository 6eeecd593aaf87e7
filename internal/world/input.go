package world

import (
	"github.com/l1jgo/battlesim/internal/core/ecs"
	"go.uber.org/zap"
)

// InputKind is the kind of a player input.
type InputKind uint8

const (
	InputMove InputKind = iota
	InputAttack
	InputSkill
	InputSelect
	InputCancel
)

var inputNames = [...]string{"move", "attack", "skill", "select", "cancel"}

func (k InputKind) String() string {
	if int(k) < len(inputNames) {
		return inputNames[k]
	}
	return "unknown"
}

// PlayerInput is one already-translated device action for the entity the
// player controls.
type PlayerInput struct {
	Kind     InputKind
	EntityID ecs.EntityID // acting entity
	TargetID ecs.EntityID // Attack/Skill/Select; zero = use current selection
	Position ecs.Vec2     // Move
	SkillID  int32        // Skill
}

// HandleInput applies a player input. Invalid inputs (inactive actor, no
// target) are dropped; the return value reports whether anything happened.
//
//	Move   - set move target
//	Attack - queue an attack on TargetID or the selection
//	Skill  - same, with SkillID
//	Select - remember TargetID as the actor's selection
//	Cancel - stop moving and clear the selection
func (w *World) HandleInput(in PlayerInput) bool {
	if !w.Running() || !w.IsEntityAlive(in.EntityID) {
		return false
	}
	switch in.Kind {
	case InputMove:
		return w.MoveEntityTo(in.EntityID, in.Position)

	case InputAttack, InputSkill:
		target := in.TargetID
		if target.IsZero() {
			target = w.selections[in.EntityID]
		}
		if target.IsZero() {
			return false
		}
		skill := int32(0)
		if in.Kind == InputSkill {
			skill = in.SkillID
		}
		return w.combat.RequestAttack(in.EntityID, target, skill)

	case InputSelect:
		if in.TargetID.IsZero() {
			delete(w.selections, in.EntityID)
			return true
		}
		if _, ok := w.store.TryGet(in.TargetID); !ok {
			return false
		}
		w.selections[in.EntityID] = in.TargetID
		return true

	case InputCancel:
		delete(w.selections, in.EntityID)
		return w.StopEntity(in.EntityID)
	}
	w.log.Debug("unknown input", zap.Uint8("kind", uint8(in.Kind)))
	return false
}

// Selection returns the entity's current selection.
func (w *World) Selection(id ecs.EntityID) (ecs.EntityID, bool) {
	t, ok := w.selections[id]
	return t, ok
}
