package world

import (
	"fmt"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/system"
)

// CommandKind selects what a Command does.
type CommandKind uint8

const (
	CmdSpawnEntity CommandKind = iota
	CmdDestroyEntity
	CmdDamageEntity
	CmdHealEntity
	CmdAddBuff
	CmdRemoveBuff
	CmdMoveEntity
	CmdSetTimeScale
	CmdEndBattle
)

var commandNames = [...]string{
	"spawn_entity", "destroy_entity", "damage_entity", "heal_entity",
	"add_buff", "remove_buff", "move_entity", "set_time_scale", "end_battle",
}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Command is a scripted or administrative world mutation. Only the fields
// relevant to Kind are read.
type Command struct {
	Kind     CommandKind
	EntityID ecs.EntityID
	Spawn    ecs.SpawnInfo // SpawnEntity
	Amount   int32         // DamageEntity, HealEntity
	Position ecs.Vec2      // MoveEntity
	Scale    float64       // SetTimeScale
	Result   ResultType    // EndBattle

	// AddBuff applies BuffConfigID from the buff table to EntityID, cast by
	// CasterID. RemoveBuff removes BuffID, or BuffConfigID on EntityID when
	// BuffID is zero.
	BuffConfigID int32
	BuffID       system.BuffID
	CasterID     ecs.EntityID
}

// CommandResult carries what a command produced.
type CommandResult struct {
	EntityID ecs.EntityID  // SpawnEntity
	BuffID   system.BuffID // AddBuff
	Amount   int32         // DamageEntity, HealEntity: amount applied
}

// ExecuteCommand applies a command immediately.
func (w *World) ExecuteCommand(cmd Command) (CommandResult, error) {
	if err := w.ready(); err != nil {
		return CommandResult{}, err
	}
	switch cmd.Kind {
	case CmdSpawnEntity:
		id, err := w.SpawnEntity(cmd.Spawn)
		return CommandResult{EntityID: id}, err

	case CmdDestroyEntity:
		if _, ok := w.store.TryGet(cmd.EntityID); !ok {
			return CommandResult{}, fmt.Errorf("destroy %d: %w", cmd.EntityID, ErrEntityNotFound)
		}
		w.DestroyEntity(cmd.EntityID)
		return CommandResult{EntityID: cmd.EntityID}, nil

	case CmdDamageEntity:
		if _, ok := w.store.TryGet(cmd.EntityID); !ok {
			return CommandResult{}, fmt.Errorf("damage %d: %w", cmd.EntityID, ErrEntityNotFound)
		}
		return CommandResult{EntityID: cmd.EntityID, Amount: w.DamageEntity(cmd.EntityID, cmd.Amount)}, nil

	case CmdHealEntity:
		if _, ok := w.store.TryGet(cmd.EntityID); !ok {
			return CommandResult{}, fmt.Errorf("heal %d: %w", cmd.EntityID, ErrEntityNotFound)
		}
		return CommandResult{EntityID: cmd.EntityID, Amount: w.HealEntity(cmd.EntityID, cmd.Amount)}, nil

	case CmdAddBuff:
		id, err := w.AddBuff(cmd.EntityID, cmd.BuffConfigID, cmd.CasterID)
		return CommandResult{EntityID: cmd.EntityID, BuffID: id}, err

	case CmdRemoveBuff:
		ok := false
		if cmd.BuffID != 0 {
			ok = w.buffs.RemoveBuff(cmd.BuffID)
		} else {
			ok = w.buffs.RemoveBuffByConfig(cmd.EntityID, cmd.BuffConfigID)
		}
		if !ok {
			return CommandResult{}, fmt.Errorf("remove buff %d/%d: %w", cmd.BuffID, cmd.BuffConfigID, ErrBuffNotFound)
		}
		return CommandResult{EntityID: cmd.EntityID, BuffID: cmd.BuffID}, nil

	case CmdMoveEntity:
		if !w.MoveEntityTo(cmd.EntityID, cmd.Position) {
			return CommandResult{}, fmt.Errorf("move %d: %w", cmd.EntityID, ErrEntityNotFound)
		}
		return CommandResult{EntityID: cmd.EntityID}, nil

	case CmdSetTimeScale:
		w.SetTimeScale(cmd.Scale)
		return CommandResult{}, nil

	case CmdEndBattle:
		w.EndBattle(cmd.Result)
		return CommandResult{}, nil
	}
	return CommandResult{}, fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
}

// AddBuff applies a buff config from the buff table to owner.
func (w *World) AddBuff(owner ecs.EntityID, configID int32, caster ecs.EntityID) (system.BuffID, error) {
	if err := w.ready(); err != nil {
		return 0, err
	}
	tpl := w.buffTbl.Get(configID)
	if tpl == nil {
		return 0, fmt.Errorf("buff %d: %w", configID, ErrUnknownBuff)
	}
	id, ok := w.buffs.AddBuff(system.BuffParams{
		ConfigID:      configID,
		OwnerID:       owner,
		CasterID:      caster,
		Category:      tpl.Class,
		Effect:        tpl.Kind,
		Value:         tpl.Value,
		Duration:      tpl.Duration,
		TickInterval:  tpl.TickInterval,
		MaxStackCount: tpl.MaxStack,
	})
	if !ok {
		return 0, fmt.Errorf("add buff %d to %d: %w", configID, owner, ErrEntityNotFound)
	}
	return id, nil
}
