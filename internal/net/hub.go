package net

import (
	"maps"
	"slices"

	"go.uber.org/zap"
)

// Hub tracks the live sessions of a Server on behalf of the tick loop. It is
// not safe for concurrent use; only the tick loop calls it.
type Hub struct {
	srv      *Server
	sessions map[uint64]*Session
	log      *zap.Logger
}

func NewHub(srv *Server, log *zap.Logger) *Hub {
	return &Hub{srv: srv, sessions: make(map[uint64]*Session), log: log}
}

// Poll registers new sessions and forgets dead ones.
func (h *Hub) Poll() {
	for {
		select {
		case sess := <-h.srv.NewSessions():
			h.sessions[sess.ID] = sess
			h.log.Debug("feed session joined", zap.Uint64("session", sess.ID))
		case id := <-h.srv.DeadSessions():
			delete(h.sessions, id)
			h.log.Debug("feed session left", zap.Uint64("session", id))
		default:
			return
		}
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int { return len(h.sessions) }

// Broadcast queues one frame to every live session.
func (h *Hub) Broadcast(frame []byte) {
	for id, sess := range h.sessions {
		if sess.IsClosed() {
			delete(h.sessions, id)
			continue
		}
		if !sess.Push(frame) {
			delete(h.sessions, id)
		}
	}
}

// DrainInputs hands every queued input frame to fn without blocking,
// session by session in id order.
func (h *Hub) DrainInputs(fn func(sessionID uint64, data []byte)) {
	for _, id := range slices.Sorted(maps.Keys(h.sessions)) {
		sess := h.sessions[id]
	drain:
		for {
			select {
			case data := <-sess.InQueue:
				fn(id, data)
			default:
				break drain
			}
		}
	}
}

// Close disconnects every session.
func (h *Hub) Close() {
	for id, sess := range h.sessions {
		sess.Close()
		delete(h.sessions, id)
	}
}
