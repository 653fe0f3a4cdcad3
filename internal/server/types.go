package server

import "parley/internal/agent/ports"

// APIResponse is the envelope for every JSON endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MessageRequest is one inbound turn.
type MessageRequest struct {
	SessionID    string             `json:"session_id"`
	Content      string             `json:"content"`
	Attachments  []ports.Attachment `json:"attachments,omitempty"`
	ResumeCallID string             `json:"resume_call_id,omitempty"`
}

// SessionSummary is the list-view shape of a session.
type SessionSummary struct {
	ID string `json:"id"`
}
