package web

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/skumatch/internal/session"
)

// Session is the server-side state of one browser: its controller and the
// notifications waiting to be shown.
type Session struct {
	ID            string
	Controller    *session.Controller
	Notifications *session.Queue

	lastSeen time.Time
}

// Store keeps one Session per browser cookie. Sessions idle for longer than
// the TTL are removed by Sweep; a TTL of zero keeps them forever.
type Store struct {
	remote session.Collaborators
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(remote session.Collaborators, ttl time.Duration) *Store {
	return &Store{
		remote:   remote,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given id and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

// Create starts a new session in the Idle state.
func (s *Store) Create() *Session {
	id := uuid.New().String()
	queue := &session.Queue{}
	sess := &Session{
		ID:            id,
		Controller:    session.NewController(id, s.remote, queue),
		Notifications: queue,
	}

	s.mu.Lock()
	sess.lastSeen = s.now()
	s.sessions[id] = sess
	s.mu.Unlock()

	log.Printf("web: session %s created", id)
	return sess
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes idle sessions. It has the jobs.ProcessorFunc signature so it
// can run on a worker.
func (s *Store) Sweep(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		log.Printf("web: swept %d idle sessions", removed)
	}
	return nil
}
