package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmap/classmap-api/internal/dto"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/response"
)

type sessionService interface {
	Open(ctx context.Context, instructorID string) (*dto.SessionState, error)
	AssignSeat(ctx context.Context, instructorID string, req dto.AssignSeatRequest) (*dto.SessionState, error)
	MoveSeat(ctx context.Context, instructorID string, req dto.MoveSeatRequest) (*dto.SessionState, error)
	RemoveSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error)
	SelectSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error)
	Deselect(ctx context.Context, instructorID string) (*dto.SessionState, error)
	ZoomIn(ctx context.Context, instructorID string) (*dto.SessionState, error)
	ZoomOut(ctx context.Context, instructorID string) (*dto.SessionState, error)
	Pan(ctx context.Context, instructorID string, req dto.PanRequest) (*dto.SessionState, error)
	ResetView(ctx context.Context, instructorID string) (*dto.SessionState, error)
	SetCompactMode(ctx context.Context, instructorID string, req dto.CompactModeRequest) (*dto.SessionState, error)
	Rename(ctx context.Context, instructorID string, req dto.RenameRequest) (*dto.SessionState, error)
	Clear(ctx context.Context, instructorID string) (*dto.SessionState, error)
}

type seatMetrics interface {
	ObserveSeatMutation(operation string, err error)
}

// SessionHandler exposes the live seating chart session.
type SessionHandler struct {
	service sessionService
	metrics seatMetrics
}

// NewSessionHandler constructs the handler. Metrics may be nil.
func NewSessionHandler(service sessionService, metrics seatMetrics) *SessionHandler {
	return &SessionHandler{service: service, metrics: metrics}
}

// Get returns the instructor's live session, resuming any saved draft.
func (h *SessionHandler) Get(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.Open(c.Request.Context(), instructorID)
	})
}

// Assign seats a roster student.
func (h *SessionHandler) Assign(c *gin.Context) {
	var req dto.AssignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid seat assignment payload"))
		return
	}
	h.respondMutation(c, "assign", func(instructorID string) (*dto.SessionState, error) {
		return h.service.AssignSeat(c.Request.Context(), instructorID, req)
	})
}

// Move relocates a seated student.
func (h *SessionHandler) Move(c *gin.Context) {
	var req dto.MoveSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid move payload"))
		return
	}
	h.respondMutation(c, "move", func(instructorID string) (*dto.SessionState, error) {
		return h.service.MoveSeat(c.Request.Context(), instructorID, req)
	})
}

// Remove returns a seat's occupant to the roster.
func (h *SessionHandler) Remove(c *gin.Context) {
	var req dto.SeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid seat payload"))
		return
	}
	h.respondMutation(c, "remove", func(instructorID string) (*dto.SessionState, error) {
		return h.service.RemoveSeat(c.Request.Context(), instructorID, req)
	})
}

// Select toggles the seat detail card.
func (h *SessionHandler) Select(c *gin.Context) {
	var req dto.SeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid seat payload"))
		return
	}
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.SelectSeat(c.Request.Context(), instructorID, req)
	})
}

// Deselect clears the seat selection.
func (h *SessionHandler) Deselect(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.Deselect(c.Request.Context(), instructorID)
	})
}

// ZoomIn steps the viewport zoom up.
func (h *SessionHandler) ZoomIn(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.ZoomIn(c.Request.Context(), instructorID)
	})
}

// ZoomOut steps the viewport zoom down.
func (h *SessionHandler) ZoomOut(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.ZoomOut(c.Request.Context(), instructorID)
	})
}

// Pan shifts the viewport offset.
func (h *SessionHandler) Pan(c *gin.Context) {
	var req dto.PanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid pan payload"))
		return
	}
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.Pan(c.Request.Context(), instructorID, req)
	})
}

// ResetView restores default zoom and offset.
func (h *SessionHandler) ResetView(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.ResetView(c.Request.Context(), instructorID)
	})
}

// SetCompactMode toggles the compact display preference.
func (h *SessionHandler) SetCompactMode(c *gin.Context) {
	var req dto.CompactModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid compact mode payload"))
		return
	}
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.SetCompactMode(c.Request.Context(), instructorID, req)
	})
}

// Rename updates the working layout name.
func (h *SessionHandler) Rename(c *gin.Context) {
	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rename payload"))
		return
	}
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.Rename(c.Request.Context(), instructorID, req)
	})
}

// Clear empties every seat.
func (h *SessionHandler) Clear(c *gin.Context) {
	h.respond(c, func(instructorID string) (*dto.SessionState, error) {
		return h.service.Clear(c.Request.Context(), instructorID)
	})
}

func (h *SessionHandler) respond(c *gin.Context, fn func(instructorID string) (*dto.SessionState, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := fn(claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// respondMutation is respond with the seat mutation counter attached.
func (h *SessionHandler) respondMutation(c *gin.Context, operation string, fn func(instructorID string) (*dto.SessionState, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := fn(claims.UserID)
	if h.metrics != nil {
		h.metrics.ObserveSeatMutation(operation, err)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}
