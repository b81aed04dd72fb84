package server

import (
	"encoding/json"
	"net/http"

	"courier/internal/assistant/ports"
	"courier/internal/chain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// commandRequest is the single entry point payload: the raw command, the
// planner-produced chain and optionally the user's answer to an earlier
// clarification.
type commandRequest struct {
	UserID                string                       `json:"user_id"`
	Command               string                       `json:"command"`
	Chain                 json.RawMessage              `json:"chain"`
	AppContext            *ports.AppContext            `json:"app_context,omitempty"`
	ClarificationResponse *ports.ClarificationResponse `json:"clarification_response,omitempty"`
}

type commandResponse struct {
	RequestID string              `json:"request_id"`
	Valid     bool                `json:"valid"`
	Errors    []string            `json:"errors,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
	Results   []*ports.ToolResult `json:"results,omitempty"`
}

func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, commandResponse{Errors: []string{"invalid request body"}})
		return
	}
	requestID := uuid.NewString()
	if req.ClarificationResponse != nil {
		s.logger.Info("request %s resumes a clarification with option %s", requestID, req.ClarificationResponse.SelectedOptionID)
	}

	preflight := chain.ValidatePreFlight(req.Command, req.UserID, req.AppContext)
	if !preflight.Valid {
		c.JSON(http.StatusBadRequest, commandResponse{
			RequestID: requestID,
			Errors:    preflight.Errors,
			Warnings:  preflight.Warnings,
		})
		return
	}

	if len(req.Chain) == 0 {
		c.JSON(http.StatusBadRequest, commandResponse{
			RequestID: requestID,
			Errors:    []string{"chain is required"},
			Warnings:  preflight.Warnings,
		})
		return
	}
	steps, err := chain.ParseChain(string(req.Chain))
	if err != nil {
		s.logger.Warn("chain parse failed (request %s): %v", requestID, err)
		c.JSON(http.StatusBadRequest, commandResponse{
			RequestID: requestID,
			Errors:    []string{"chain is not valid JSON"},
			Warnings:  preflight.Warnings,
		})
		return
	}

	validation := chain.ValidateChain(steps, s.registry)
	for _, step := range steps {
		params := chain.ValidateToolParameters(step.Tool, step.Parameters)
		validation.Errors = append(validation.Errors, params.Errors...)
		validation.Warnings = append(validation.Warnings, params.Warnings...)
		if !params.Valid {
			validation.Valid = false
		}
	}
	warnings := append(preflight.Warnings, validation.Warnings...)
	if !validation.Valid {
		c.JSON(http.StatusUnprocessableEntity, commandResponse{
			RequestID: requestID,
			Errors:    validation.Errors,
			Warnings:  warnings,
		})
		return
	}

	tc := &ports.ToolContext{
		UserID:    req.UserID,
		RequestID: requestID,
		App:       req.AppContext,
	}
	results := s.executor.Execute(c.Request.Context(), steps, tc)

	c.JSON(http.StatusOK, commandResponse{
		RequestID: requestID,
		Valid:     true,
		Warnings:  warnings,
		Results:   results,
	})
}
