package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"parley/internal/agent/ports"
	"parley/internal/logging"
	"parley/internal/utils/id"
)

// store persists one JSON file per session under a base directory. A small
// LRU keeps hot sessions out of the read path; writes go through the cache
// so it never serves stale history.
type store struct {
	baseDir string
	logger  logging.Logger
	mu      sync.Mutex
	cache   *lru.Cache[string, *ports.Session]
}

const defaultCacheSize = 128

func New(baseDir string, cacheSize int) (ports.SessionStore, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *ports.Session](cacheSize)
	if err != nil {
		return nil, err
	}
	return &store{
		baseDir: baseDir,
		logger:  logging.NewComponentLogger("SessionFileStore"),
		cache:   cache,
	}, nil
}

func (s *store) Create(ctx context.Context) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session := &ports.Session{
		ID:        id.NewSessionID(),
		Messages:  []ports.Message{},
		Metadata:  make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.writeNew(session); err != nil {
		return nil, err
	}
	s.cache.Add(session.ID, session)
	return clone(session), nil
}

func (s *store) Get(ctx context.Context, sessionID string) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	return clone(session), nil
}

func (s *store) Append(ctx context.Context, sessionID string, msgs ...ports.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(sessionID)
	if err != nil {
		return err
	}
	session.Messages = append(session.Messages, msgs...)
	session.UpdatedAt = time.Now().UTC()
	return s.write(session)
}

func (s *store) SetMeta(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(sessionID)
	if err != nil {
		return err
	}
	if session.Metadata == nil {
		session.Metadata = make(map[string]string)
	}
	if value == "" {
		delete(session.Metadata, key)
	} else {
		session.Metadata[key] = value
	}
	session.UpdatedAt = time.Now().UTC()
	return s.write(session)
}

func (s *store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (s *store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(sessionID)
	if err := os.Remove(s.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
		}
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *store) load(sessionID string) (*ports.Session, error) {
	if session, ok := s.cache.Get(sessionID); ok {
		return session, nil
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	var session ports.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Error("failed to decode session file %s: %v", sessionID, err)
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if session.Metadata == nil {
		session.Metadata = make(map[string]string)
	}
	s.cache.Add(sessionID, &session)
	return &session, nil
}

// writeNew creates the session file exclusively so an id collision fails
// loudly instead of clobbering an existing conversation.
func (s *store) writeNew(session *ports.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.path(session.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write session: %w", err)
	}
	return f.Close()
}

// write replaces the session file via rename so readers never observe a
// torn write.
func (s *store) write(session *ports.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path(session.ID)); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	s.cache.Add(session.ID, session)
	return nil
}

func (s *store) path(sessionID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.json", sessionID))
}

func clone(session *ports.Session) *ports.Session {
	out := *session
	out.Messages = append([]ports.Message(nil), session.Messages...)
	out.Metadata = make(map[string]string, len(session.Metadata))
	for k, v := range session.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
