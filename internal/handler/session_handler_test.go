package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/middleware"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
)

type sessionServiceMock struct {
	state *dto.SessionState
	err   error

	assignReq dto.AssignSeatRequest
	moveReq   dto.MoveSeatRequest
}

func (m *sessionServiceMock) Open(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) AssignSeat(ctx context.Context, instructorID string, req dto.AssignSeatRequest) (*dto.SessionState, error) {
	m.assignReq = req
	return m.state, m.err
}

func (m *sessionServiceMock) MoveSeat(ctx context.Context, instructorID string, req dto.MoveSeatRequest) (*dto.SessionState, error) {
	m.moveReq = req
	return m.state, m.err
}

func (m *sessionServiceMock) RemoveSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) SelectSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) Deselect(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) ZoomIn(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) ZoomOut(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) Pan(ctx context.Context, instructorID string, req dto.PanRequest) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) ResetView(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) SetCompactMode(ctx context.Context, instructorID string, req dto.CompactModeRequest) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) Rename(ctx context.Context, instructorID string, req dto.RenameRequest) (*dto.SessionState, error) {
	return m.state, m.err
}

func (m *sessionServiceMock) Clear(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return m.state, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func instructorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "instr-1", Role: models.RoleInstructor}
}

func TestSessionHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{state: &dto.SessionState{LayoutName: "Fall Seminar", TotalOccupied: 3}}
	h := NewSessionHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/session", nil)
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Fall Seminar")
}

func TestSessionHandlerGetUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSessionHandler(&sessionServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/session", nil)
	h.Get(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandlerAssign(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{state: &dto.SessionState{TotalOccupied: 1}}
	h := NewSessionHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.AssignSeatRequest{Row: 1, Seat: 4, StudentID: "stu-1"})
	c, w := newGinContext(http.MethodPost, "/session/seats/assign", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Assign(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, dto.AssignSeatRequest{Row: 1, Seat: 4, StudentID: "stu-1"}, mockSvc.assignReq)
}

func TestSessionHandlerAssignConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{err: appErrors.ErrSeatOccupied}
	h := NewSessionHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	c, w := newGinContext(http.MethodPost, "/session/seats/assign", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Assign(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "SEAT_OCCUPIED")
}

func TestSessionHandlerAssignBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSessionHandler(&sessionServiceMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/session/seats/assign", []byte("{not json"))
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Assign(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerMove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{state: &dto.SessionState{}}
	h := NewSessionHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.MoveSeatRequest{FromRow: 0, FromSeat: 1, ToRow: 2, ToSeat: 3})
	c, w := newGinContext(http.MethodPost, "/session/seats/move", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())

	h.Move(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, dto.MoveSeatRequest{FromRow: 0, FromSeat: 1, ToRow: 2, ToSeat: 3}, mockSvc.moveReq)
}

type seatMetricsStub struct {
	operations []string
	errs       []error
}

func (m *seatMetricsStub) ObserveSeatMutation(operation string, err error) {
	m.operations = append(m.operations, operation)
	m.errs = append(m.errs, err)
}

func TestSessionHandlerCountsSeatMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := &seatMetricsStub{}
	h := NewSessionHandler(&sessionServiceMock{state: &dto.SessionState{}}, metrics)

	payload, _ := json.Marshal(dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	c, _ := newGinContext(http.MethodPost, "/session/seats/assign", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())
	h.Assign(c)

	failing := NewSessionHandler(&sessionServiceMock{err: appErrors.ErrSeatOccupied}, metrics)
	payload, _ = json.Marshal(dto.MoveSeatRequest{FromRow: 0, FromSeat: 0, ToRow: 0, ToSeat: 1})
	c, _ = newGinContext(http.MethodPost, "/session/seats/move", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())
	failing.Move(c)

	require.Equal(t, []string{"assign", "move"}, metrics.operations)
	require.NoError(t, metrics.errs[0])
	require.True(t, appErrors.Is(metrics.errs[1], appErrors.ErrSeatOccupied))
}

func TestSessionHandlerViewport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sessionServiceMock{state: &dto.SessionState{}}
	h := NewSessionHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodPost, "/session/view/zoom-in", nil)
	c.Set(middleware.ContextUserKey, instructorClaims())
	h.ZoomIn(c)
	require.Equal(t, http.StatusOK, w.Code)

	payload, _ := json.Marshal(dto.PanRequest{DeltaX: -10, DeltaY: 20})
	c, w = newGinContext(http.MethodPost, "/session/view/pan", payload)
	c.Set(middleware.ContextUserKey, instructorClaims())
	h.Pan(c)
	require.Equal(t, http.StatusOK, w.Code)
}
