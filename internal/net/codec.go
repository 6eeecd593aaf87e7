package net

import (
	"encoding/json"
	"fmt"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/world"
)

// Snapshot is the frame broadcast to feed subscribers.
type Snapshot struct {
	Type     string             `json:"type"` // "snapshot"
	Tick     uint64             `json:"tick"`
	GameTime float64            `json:"game_time"`
	Result   world.BattleResult `json:"result"`
	Entities []ecs.Record       `json:"entities"`
}

// EncodeSnapshot marshals a snapshot frame.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Type = "snapshot"
	return json.Marshal(s)
}

// InputFrame is a player input sent by a subscriber.
//
//	{"kind":"attack","entity_id":3,"target_id":9}
type InputFrame struct {
	Kind     string  `json:"kind"`
	EntityID uint64  `json:"entity_id"`
	TargetID uint64  `json:"target_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	SkillID  int32   `json:"skill_id"`
}

// DecodeInput parses an input frame into a world input.
func DecodeInput(data []byte) (world.PlayerInput, error) {
	var f InputFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return world.PlayerInput{}, fmt.Errorf("decode input: %w", err)
	}
	kind, ok := parseInputKind(f.Kind)
	if !ok {
		return world.PlayerInput{}, fmt.Errorf("unknown input kind %q", f.Kind)
	}
	return world.PlayerInput{
		Kind:     kind,
		EntityID: ecs.EntityID(f.EntityID),
		TargetID: ecs.EntityID(f.TargetID),
		Position: ecs.Vec2{X: f.X, Y: f.Y},
		SkillID:  f.SkillID,
	}, nil
}

func parseInputKind(name string) (world.InputKind, bool) {
	for k := world.InputMove; k <= world.InputCancel; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
