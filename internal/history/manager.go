package history

import (
	"context"
	"fmt"

	"parley/internal/agent/ports"
	"parley/internal/logging"
)

// Manager loads per-session message sequences, computes context windows,
// and persists newly produced messages as a turn progresses. Persistence is
// incremental per engine step, so a crash mid-turn loses at most the
// in-flight step and retries never duplicate already-persisted messages.
type Manager struct {
	store  ports.SessionStore
	window int
	logger logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithWindow overrides the context window size.
func WithWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		window: DefaultWindow,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load fetches the session or creates it on the first turn of a new
// conversation. An explicit unknown session id is an error only when the
// caller asked for one (empty id means "start fresh").
func (m *Manager) Load(ctx context.Context, sessionID string) (*ports.Session, error) {
	if sessionID == "" {
		sess, err := m.store.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		m.logger.Info("created session %s", sess.ID)
		return sess, nil
	}

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess, nil
}

// Window returns the bounded context window for the given history.
func (m *Manager) Window(msgs []ports.Message) []ports.Message {
	return Window(msgs, m.window)
}

// AppendStep persists the messages produced by one engine step.
func (m *Manager) AppendStep(ctx context.Context, sessionID string, msgs ...ports.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := m.store.Append(ctx, sessionID, msgs...); err != nil {
		return fmt.Errorf("append to session %s: %w", sessionID, err)
	}
	m.logger.Debug("appended %d message(s) to session %s", len(msgs), sessionID)
	return nil
}

// MarkSuspended records that the session is waiting on a human response to
// the given escalation call.
func (m *Manager) MarkSuspended(ctx context.Context, sessionID, callID string) error {
	if err := m.store.SetMeta(ctx, sessionID, ports.MetaPendingCallID, callID); err != nil {
		return fmt.Errorf("mark session %s suspended: %w", sessionID, err)
	}
	m.logger.Info("session %s suspended on call %s", sessionID, callID)
	return nil
}

// ClearSuspended removes the pending-escalation marker.
func (m *Manager) ClearSuspended(ctx context.Context, sessionID string) error {
	if err := m.store.SetMeta(ctx, sessionID, ports.MetaPendingCallID, ""); err != nil {
		return fmt.Errorf("clear suspension on session %s: %w", sessionID, err)
	}
	return nil
}

// PendingEscalation reports the escalation call the session is waiting on,
// if any. The session metadata marker is authoritative; when absent, the
// history tail is inspected so sessions written before the marker existed
// still resume correctly.
func PendingEscalation(sess *ports.Session) (ports.ToolCall, bool) {
	if sess == nil {
		return ports.ToolCall{}, false
	}

	if callID := sess.PendingCallID(); callID != "" {
		for i := len(sess.Messages) - 1; i >= 0; i-- {
			msg := sess.Messages[i]
			if msg.Role != ports.RoleAssistant {
				continue
			}
			for _, tc := range msg.ToolCalls {
				if tc.ID == callID && tc.Name == ports.EscalationTool {
					return tc, true
				}
			}
			break
		}
		// Marker without a matching tail call: treat the marker as stale.
		return ports.ToolCall{}, false
	}

	if len(sess.Messages) == 0 {
		return ports.ToolCall{}, false
	}
	tail := sess.Messages[len(sess.Messages)-1]
	if tail.Role != ports.RoleAssistant {
		return ports.ToolCall{}, false
	}
	if call, ok := tail.EscalationCall(); ok {
		return call, true
	}
	return ports.ToolCall{}, false
}
