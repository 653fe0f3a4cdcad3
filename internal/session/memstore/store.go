package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parley/internal/agent/ports"
	"parley/internal/utils/id"
)

// Store is an in-memory ports.SessionStore. It backs tests and ephemeral
// CLI chats; nothing survives process exit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*ports.Session
}

func New() *Store {
	return &Store{sessions: make(map[string]*ports.Session)}
}

func (s *Store) Create(ctx context.Context) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := &ports.Session{
		ID:        id.NewSessionID(),
		Messages:  []ports.Message{},
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*ports.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	return cloneSession(sess), nil
}

func (s *Store) Append(ctx context.Context, sessionID string, msgs ...ports.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetMeta(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	if value == "" {
		delete(sess.Metadata, key)
	} else {
		sess.Metadata[key] = value
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		ids = append(ids, sessionID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

func cloneSession(sess *ports.Session) *ports.Session {
	clone := *sess
	clone.Messages = append([]ports.Message(nil), sess.Messages...)
	clone.Metadata = make(map[string]string, len(sess.Metadata))
	for k, v := range sess.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}
