package system

import (
	"time"

	"github.com/l1jgo/battlesim/internal/core/ecs"
	"github.com/l1jgo/battlesim/internal/core/event"
	coresys "github.com/l1jgo/battlesim/internal/core/system"
)

// RemovalHook is called for every record the cleanup pass reclaims, before
// its slot is reused. Hooks purge per-entity side state and must not touch
// the store.
type RemovalHook func(r ecs.Record)

// CleanupSystem reclaims Dead and PendingDestroy records at tick end and
// keeps the kill/death counters. It is the only place records leave the
// store. Priority 9999.
type CleanupSystem struct {
	host       coresys.Host
	playerCamp int32
	hooks      []RemovalHook

	kills  int32
	deaths int32
}

func NewCleanupSystem(playerCamp int32) *CleanupSystem {
	return &CleanupSystem{playerCamp: playerCamp}
}

func (s *CleanupSystem) Name() string               { return "cleanup" }
func (s *CleanupSystem) Priority() coresys.Priority { return coresys.PriorityCleanup }

func (s *CleanupSystem) Init(h coresys.Host) error {
	s.host = h
	return nil
}

// AddHook registers a cascade-removal hook.
func (s *CleanupSystem) AddHook(h RemovalHook) {
	s.hooks = append(s.hooks, h)
}

func (s *CleanupSystem) Update(_ time.Duration) {
	s.Run()
}

// Run performs one cleanup pass and returns the number of records removed.
func (s *CleanupSystem) Run() int {
	if s.host == nil {
		return 0
	}
	bus := s.host.Events()
	now := s.host.GameTime()
	return s.host.Store().RemovePending(func(r ecs.Record) {
		player := r.CampID == s.playerCamp
		if player {
			s.deaths++
		} else {
			s.kills++
		}
		reason := event.RemovedDestroyed
		if r.State == ecs.StateDead {
			reason = event.RemovedDead
		}
		for _, h := range s.hooks {
			h(r)
		}
		event.Emit(bus, event.EntityRemoved{
			EntityID:   r.ID,
			Kind:       r.Kind,
			ConfigID:   r.ConfigID,
			CampID:     r.CampID,
			Reason:     reason,
			GameTime:   now,
			PlayerSide: player,
		})
	})
}

// Counters returns the accumulated kill and death counts.
func (s *CleanupSystem) Counters() (kills, deaths int32) {
	return s.kills, s.deaths
}

// PlayerCamp returns the camp whose losses count as deaths.
func (s *CleanupSystem) PlayerCamp() int32 { return s.playerCamp }

func (s *CleanupSystem) Reset() {
	s.kills = 0
	s.deaths = 0
}
