package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	maxInputFrame = 1024
)

// Session is one feed subscriber. The reader and writer goroutines own the
// websocket; the tick loop only touches InQueue, Push and Close.
type Session struct {
	ID   uint64
	IP   string
	conn *websocket.Conn

	InQueue chan []byte // input frames, drained by the tick loop
	out     chan []byte // snapshot frames, written by writeLoop

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(id uint64)

	limit inputLimiter // readLoop only
	log   *zap.Logger
}

// inputLimiter counts frames per wall-clock second.
type inputLimiter struct {
	perSec int // 0 = unlimited
	count  int
	second int64
}

// allow records one frame at now and reports whether it is within budget.
func (l *inputLimiter) allow(now time.Time) bool {
	if l.perSec <= 0 {
		return true
	}
	if sec := now.Unix(); sec != l.second {
		l.second = sec
		l.count = 0
	}
	l.count++
	return l.count <= l.perSec
}

func NewSession(conn *websocket.Conn, id uint64, inSize, outSize, inputsPerSec int, onClose func(uint64), log *zap.Logger) *Session {
	return &Session{
		ID:      id,
		IP:      conn.RemoteAddr().String(),
		conn:    conn,
		InQueue: make(chan []byte, inSize),
		out:     make(chan []byte, outSize),
		done:    make(chan struct{}),
		onClose: onClose,
		limit:   inputLimiter{perSec: inputsPerSec},
		log:     log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Push queues a frame without blocking. A subscriber whose queue is full is
// too slow to follow the feed and is disconnected.
func (s *Session) Push(frame []byte) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
		return false
	}
}

// Close tears the session down once; onClose reports it to the server.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(maxInputFrame)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !s.limit.allow(time.Now()) {
			s.log.Warn("輸入速率超限，斷開連線", zap.Int("per_sec", s.limit.count))
			return
		}

		select {
		case s.InQueue <- payload:
		case <-s.done:
			return
		}
	}
}

func (s *Session) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.Close()
	}()

	for {
		select {
		case frame := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
