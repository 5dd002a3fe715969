package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmap/classmap-api/internal/dto"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/response"
)

type layoutService interface {
	SaveLayout(ctx context.Context, instructorID string, req dto.SaveLayoutRequest) (*dto.SaveLayoutResponse, error)
	ListLayouts(ctx context.Context, instructorID string) ([]dto.LayoutItem, error)
	LoadLayout(ctx context.Context, instructorID, layoutID string) (*dto.SessionState, error)
	DeleteLayout(ctx context.Context, instructorID, layoutID string) error
}

// LayoutHandler exposes the named layout store.
type LayoutHandler struct {
	service layoutService
}

// NewLayoutHandler constructs the handler.
func NewLayoutHandler(service layoutService) *LayoutHandler {
	return &LayoutHandler{service: service}
}

// List returns the instructor's saved layouts, newest first.
func (h *LayoutHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListLayouts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Save persists the live chart as a named layout.
func (h *LayoutHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SaveLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid save payload"))
		return
	}
	saved, err := h.service.SaveLayout(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if saved.Created {
		response.Created(c, saved)
		return
	}
	response.JSON(c, http.StatusOK, saved)
}

// Load replaces the live session with a saved layout.
func (h *LayoutHandler) Load(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.service.LoadLayout(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Delete removes a saved layout.
func (h *LayoutHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteLayout(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
