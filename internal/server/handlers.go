package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"parley/internal/agent"
	"parley/internal/agent/ports"
)

func (s *Server) handleCreateSession(c *gin.Context) {
	sess, err := s.store.Create(c.Request.Context())
	if err != nil {
		s.logger.Error("create session failed: %v", err)
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "failed to create session",
		})
		return
	}
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: sess})
}

func (s *Server) handleListSessions(c *gin.Context) {
	ids, err := s.store.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list sessions failed: %v", err)
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   "failed to list sessions",
		})
		return
	}
	summaries := make([]SessionSummary, 0, len(ids))
	for _, sessionID := range ids {
		summaries = append(summaries, SessionSummary{ID: sessionID})
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: summaries})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("session not found: %s", c.Param("id")),
		})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: sess})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("session not found: %s", c.Param("id")),
		})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true})
}

// handleSessionMessage processes a turn for the session named in the path.
func (s *Server) handleSessionMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		return
	}
	req.SessionID = c.Param("id")
	s.processTurn(c, req)
}

// handleMessage processes a turn; an empty session_id starts a new session.
func (s *Server) handleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		return
	}
	s.processTurn(c, req)
}

func (s *Server) processTurn(c *gin.Context, req MessageRequest) {
	result, err := s.coordinator.ProcessTurn(c.Request.Context(), agent.TurnRequest{
		SessionID:    req.SessionID,
		Input:        req.Content,
		Attachments:  req.Attachments,
		ResumeCallID: req.ResumeCallID,
	})
	if err != nil {
		status := http.StatusBadGateway
		message := "failed to process message"
		switch {
		case errors.Is(err, agent.ErrEmptyInput):
			status = http.StatusBadRequest
			message = "message content is required"
		case errors.Is(err, agent.ErrInvalidResume):
			status = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, ports.ErrNotFound):
			status = http.StatusNotFound
			message = fmt.Sprintf("session not found: %s", req.SessionID)
		default:
			s.logger.Error("turn failed: %v", err)
		}
		c.JSON(status, APIResponse{Success: false, Error: message})
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: result})
}
