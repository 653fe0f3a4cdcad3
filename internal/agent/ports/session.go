package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Session metadata keys maintained by the history manager.
const (
	// MetaPendingCallID records the call id of an escalation awaiting a
	// human response. Its presence marks the session as suspended.
	MetaPendingCallID = "pending_call_id"
)

// SessionStore persists agent sessions. Message history is append-only:
// stores never rewrite or reorder previously appended messages.
type SessionStore interface {
	// Create creates a new session
	Create(ctx context.Context) (*Session, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*Session, error)

	// Append atomically appends messages to a session's history
	Append(ctx context.Context, id string, msgs ...Message) error

	// SetMeta sets a session metadata key. An empty value deletes the key.
	SetMeta(ctx context.Context, id, key, value string) error

	// List returns all session IDs
	List(ctx context.Context) ([]string, error)

	// Delete removes a session
	Delete(ctx context.Context, id string) error
}

// Session represents a conversation session
type Session struct {
	ID        string            `json:"id"`
	Messages  []Message         `json:"messages"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Suspended reports whether the session is waiting on a human response.
func (s *Session) Suspended() bool {
	return s.Metadata[MetaPendingCallID] != ""
}

// PendingCallID returns the escalation call id the session is waiting on.
func (s *Session) PendingCallID() string {
	return s.Metadata[MetaPendingCallID]
}
