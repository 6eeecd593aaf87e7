package system

import (
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
	"golang.org/x/sync/errgroup"
)

// minParallelRows is the row count below which chunking is not worth it.
const minParallelRows = 256

// MovementSystem integrates positions toward move targets. Priority 100.
//
// With a column store and more than one worker, rows are split into
// contiguous chunks integrated concurrently; every row is written by exactly
// one goroutine and buff state is only read, so the result equals the
// sequential pass.
type MovementSystem struct {
	host    coresys.Host
	buffs   *BuffSystem
	workers int
}

func NewMovementSystem(buffs *BuffSystem, workers int) *MovementSystem {
	return &MovementSystem{buffs: buffs, workers: workers}
}

func (s *MovementSystem) Name() string               { return "movement" }
func (s *MovementSystem) Priority() coresys.Priority { return coresys.PriorityMovement }

func (s *MovementSystem) Init(h coresys.Host) error {
	s.host = h
	return nil
}

func (s *MovementSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	store := s.host.Store()
	if cs, ok := store.(ecs.ColumnStore); ok && s.workers > 1 && cs.Len() >= minParallelRows {
		s.integrateColumns(cs.MoveColumns(), sec)
		return
	}
	ecs.ForEach(store, func(_ int, r *ecs.Record) {
		if !r.IsActive() || !r.IsMoving {
			return
		}
		speed := r.MoveSpeed * s.buffs.SpeedFactor(r.ID)
		r.Position, r.Heading, r.IsMoving = Step(r.Position, r.Heading, r.MoveTarget, speed, sec)
	})
}

func (s *MovementSystem) integrateColumns(c ecs.MoveColumns, sec float64) {
	n := len(c.IDs)
	chunk := (n + s.workers - 1) / s.workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if c.States[i] != ecs.StateActive || !c.Moving[i] {
					continue
				}
				speed := c.Speeds[i] * s.buffs.SpeedFactor(c.IDs[i])
				c.Positions[i], c.Headings[i], c.Moving[i] = Step(c.Positions[i], c.Headings[i], c.MoveTargets[i], speed, sec)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Step advances pos toward target by speed*dt. It snaps to the target and
// stops when the step covers the remaining distance. Otherwise heading
// follows the direction of travel, unless that direction is degenerate.
func Step(pos, heading, target ecs.Vec2, speed, dt float64) (ecs.Vec2, ecs.Vec2, bool) {
	delta := target.Sub(pos)
	dist := delta.Len()
	step := speed * dt
	if step >= dist {
		return target, heading, false
	}
	if step <= 0 {
		return pos, heading, true
	}
	dir := delta.Normalize()
	if !dir.IsNearZero() {
		heading = dir
	}
	return pos.Add(dir.Scale(step)), heading, true
}
