package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/response"
)

type rosterService interface {
	Available(ctx context.Context, instructorID string, filter models.RosterFilter) (*dto.RosterResponse, error)
	Profile(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error)
}

// RosterHandler exposes the available-students sidebar.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// List returns unseated students, filtered by search and major.
func (h *RosterHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.RosterFilter{
		Search: c.Query("search"),
		Major:  c.Query("major"),
	}
	roster, err := h.service.Available(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster)
}

// Get returns one student's full profile with the instructor's notes.
func (h *RosterHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.service.Profile(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}
