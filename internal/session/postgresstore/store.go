package postgresstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"parley/internal/agent/ports"
	"parley/internal/logging"
	"parley/internal/utils/id"
)

// store persists sessions in Postgres. Message history lives in a JSONB
// column and is appended in place with the || operator, so concurrent
// appends to different sessions never contend and appends within a session
// are atomic.
type store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS agent_sessions (
	id         TEXT PRIMARY KEY,
	messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

func New(ctx context.Context, dsn string) (ports.SessionStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &store{
		pool:   pool,
		logger: logging.NewComponentLogger("SessionPgStore"),
	}, nil
}

func (s *store) Create(ctx context.Context) (*ports.Session, error) {
	now := time.Now().UTC()
	session := &ports.Session{
		ID:        id.NewSessionID(),
		Messages:  []ports.Message{},
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_sessions (id, messages, metadata, created_at, updated_at)
		 VALUES ($1, '[]'::jsonb, '{}'::jsonb, $2, $3)`,
		session.ID, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug("created session %s", session.ID)
	return session, nil
}

func (s *store) Get(ctx context.Context, sessionID string) (*ports.Session, error) {
	var (
		session      ports.Session
		messagesJSON []byte
		metadataJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, messages, metadata, created_at, updated_at
		 FROM agent_sessions WHERE id = $1`, sessionID).
		Scan(&session.ID, &messagesJSON, &metadataJSON, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	if err := json.Unmarshal(messagesJSON, &session.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for %s: %w", sessionID, err)
	}
	if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", sessionID, err)
	}
	return &session, nil
}

func (s *store) Append(ctx context.Context, sessionID string, msgs ...ports.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_sessions
		 SET messages = messages || $2::jsonb, updated_at = $3
		 WHERE id = $1`,
		sessionID, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append to session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	return nil
}

func (s *store) SetMeta(ctx context.Context, sessionID, key, value string) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if value == "" {
		tag, err = s.pool.Exec(ctx,
			`UPDATE agent_sessions
			 SET metadata = metadata - $2, updated_at = $3
			 WHERE id = $1`,
			sessionID, key, time.Now().UTC())
	} else {
		encoded, mErr := json.Marshal(value)
		if mErr != nil {
			return fmt.Errorf("encode metadata value: %w", mErr)
		}
		tag, err = s.pool.Exec(ctx,
			`UPDATE agent_sessions
			 SET metadata = jsonb_set(metadata, ARRAY[$2], $3::jsonb), updated_at = $4
			 WHERE id = $1`,
			sessionID, key, encoded, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("set metadata on session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	return nil
}

func (s *store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM agent_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, err
		}
		ids = append(ids, sessionID)
	}
	return ids, rows.Err()
}

func (s *store) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM agent_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, sessionID)
	}
	return nil
}

// Close releases the connection pool.
func (s *store) Close() {
	s.pool.Close()
}
