package dashboard

import (
	"sync"
	"time"

	"github.com/beshoynasry/estates/internal/diagnostics"
	"github.com/beshoynasry/estates/internal/listings"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type session struct {
	board    *Board
	lastSeen time.Time
}

// Sessions keeps one Board per browser session.
type Sessions struct {
	src    listings.Source
	report *diagnostics.Reporter
	log    logrus.FieldLogger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates an empty registry.
func NewSessions(src listings.Source, report *diagnostics.Reporter, log logrus.FieldLogger) *Sessions {
	return &Sessions{
		src:      src,
		report:   report,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the board for id, creating a session (with a fresh id) when
// id is unknown. The returned id is the one the caller should keep.
func (s *Sessions) Get(id string) (*Board, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = s.now()
		return sess.board, id
	}
	id = uuid.NewString()
	b := NewBoard(s.src, s.report, s.log.WithField("session", id))
	s.sessions[id] = &session{board: b, lastSeen: s.now()}
	return b, id
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and forgets sessions idle for longer than maxIdle. It
// returns how many were removed.
func (s *Sessions) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			sess.board.Close()
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
