package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownSession = errors.New("unknown session")

type entry struct {
	documentText string
	hasDocument  bool
}

// Store maps live connection ids to at most one extracted document text each.
// Entries exist only for the lifetime of their connection; there is no
// durability and no cross-session access.
type Store struct {
	lock     sync.RWMutex
	sessions map[uuid.UUID]*entry
}

func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*entry)}
}

// Create registers an empty session. Creating an id that already exists
// resets it to empty.
func (s *Store) Create(id uuid.UUID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sessions[id] = &entry{}
}

// Document returns a stable snapshot of the session's document text. The
// second return is false when the session has no document or does not exist.
func (s *Store) Document(id uuid.UUID) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.sessions[id]
	if !ok || !e.hasDocument {
		return "", false
	}
	return e.documentText, true
}

// SetDocument stores text against the session, overwriting any prior
// document. Uploads replace, never append.
func (s *Store) SetDocument(id uuid.UUID, text string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	e.documentText = text
	e.hasDocument = true
	return nil
}

func (s *Store) Exists(id uuid.UUID) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Remove drops the session and frees its document text. Removing an unknown
// id is a no-op.
func (s *Store) Remove(id uuid.UUID) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.sessions)
}
