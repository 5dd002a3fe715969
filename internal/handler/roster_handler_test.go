package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/middleware"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
)

type rosterServiceMock struct {
	resp       *dto.RosterResponse
	err        error
	profile    *models.StudentProfile
	profileErr error
	filter     models.RosterFilter
}

func (m *rosterServiceMock) Available(ctx context.Context, instructorID string, filter models.RosterFilter) (*dto.RosterResponse, error) {
	m.filter = filter
	return m.resp, m.err
}

func (m *rosterServiceMock) Profile(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error) {
	return m.profile, m.profileErr
}

func TestRosterHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{resp: &dto.RosterResponse{
		Students:  []models.StudentProfile{{Student: models.Student{ID: "stu-1", FullName: "Ada Lovelace"}}},
		Available: 1,
		Seated:    2,
	}}
	h := NewRosterHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/roster?search=ada&major=Math", nil)
	c.Request.URL.RawQuery = "search=ada&major=Math"
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ada Lovelace")
	require.Equal(t, models.RosterFilter{Search: "ada", Major: "Math"}, mockSvc.filter)
}

func TestRosterHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &rosterServiceMock{profileErr: appErrors.ErrNotFound}
	h := NewRosterHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/roster/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
