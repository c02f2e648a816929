package mcpserver

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apresai/mimic/internal/session"
)

// Entry is one live persona session. Its mutex serializes initialization
// and chat for that session: the core Manager is single-threaded by
// contract, so concurrent tool calls must queue here.
type Entry struct {
	ID         string
	Subject    string
	VideosUsed int
	CreatedAt  time.Time

	mu  sync.Mutex
	mgr *session.Manager
}

// Lock takes the per-session lock and returns the manager plus an unlock
// function.
func (e *Entry) Lock() (*session.Manager, func()) {
	e.mu.Lock()
	return e.mgr, e.mu.Unlock
}

// Store holds all live sessions in memory. Nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Entry
	max      int
}

// NewStore creates a store capped at max sessions.
func NewStore(max int) *Store {
	return &Store{
		sessions: make(map[string]*Entry),
		max:      max,
	}
}

// NewSessionID generates a ULID for a new session.
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Create registers a new session entry.
func (s *Store) Create(mgr *session.Manager, subject string, videosUsed int) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.max {
		return nil, fmt.Errorf("session limit reached (%d): reset an existing session first", s.max)
	}

	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:         id,
		Subject:    subject,
		VideosUsed: videosUsed,
		CreatedAt:  time.Now().UTC(),
		mgr:        mgr,
	}
	s.sessions[id] = e
	return e, nil
}

// Get returns the session entry, or nil when unknown.
func (s *Store) Get(id string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// List returns all sessions, newest first. ULIDs sort by creation time.
func (s *Store) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Remove drops a session from the store.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
