package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classmap/classmap-api/internal/chart"
	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/jobs"
)

type layoutStoreStub struct {
	layouts map[string]*models.RoomLayout
	nextID  int
}

func newLayoutStoreStub() *layoutStoreStub {
	return &layoutStoreStub{layouts: make(map[string]*models.RoomLayout)}
}

func (s *layoutStoreStub) ListByInstructor(ctx context.Context, instructorID string) ([]models.RoomLayout, error) {
	var result []models.RoomLayout
	for _, layout := range s.layouts {
		if layout.InstructorID == instructorID {
			result = append(result, *layout)
		}
	}
	return result, nil
}

func (s *layoutStoreStub) FindByID(ctx context.Context, id string) (*models.RoomLayout, error) {
	if layout, ok := s.layouts[id]; ok {
		copy := *layout
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *layoutStoreStub) Create(ctx context.Context, instructorID, name string, snapshot json.RawMessage) (*models.RoomLayout, error) {
	s.nextID++
	layout := &models.RoomLayout{
		ID:           fmt.Sprintf("layout-%d", s.nextID),
		InstructorID: instructorID,
		Name:         name,
		Snapshot:     snapshot,
	}
	s.layouts[layout.ID] = layout
	return layout, nil
}

func (s *layoutStoreStub) Update(ctx context.Context, id, name string, snapshot json.RawMessage) error {
	layout, ok := s.layouts[id]
	if !ok {
		return sql.ErrNoRows
	}
	layout.Name = name
	layout.Snapshot = snapshot
	return nil
}

func (s *layoutStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.layouts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.layouts, id)
	return nil
}

type draftStoreStub struct {
	drafts map[string][]byte
}

func newDraftStoreStub() *draftStoreStub {
	return &draftStoreStub{drafts: make(map[string][]byte)}
}

func (s *draftStoreStub) Get(ctx context.Context, instructorID string) ([]byte, error) {
	return s.drafts[instructorID], nil
}

func (s *draftStoreStub) Set(ctx context.Context, instructorID string, data []byte) error {
	s.drafts[instructorID] = data
	return nil
}

func (s *draftStoreStub) Clear(ctx context.Context, instructorID string) error {
	delete(s.drafts, instructorID)
	return nil
}

type profileReaderStub struct {
	profiles map[string]*models.StudentProfile
}

func newProfileReaderStub(ids ...string) *profileReaderStub {
	stub := &profileReaderStub{profiles: make(map[string]*models.StudentProfile)}
	for _, id := range ids {
		stub.profiles[id] = &models.StudentProfile{
			Student: models.Student{ID: id, FullName: "Student " + id, Major: "Biology"},
		}
	}
	return stub
}

func (s *profileReaderStub) FindByID(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error) {
	if profile, ok := s.profiles[studentID]; ok {
		return profile, nil
	}
	return nil, sql.ErrNoRows
}

type queueStub struct {
	jobs []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func newTestSessionService(t *testing.T) (*SessionService, *layoutStoreStub, *draftStoreStub, *queueStub) {
	t.Helper()
	layouts := newLayoutStoreStub()
	drafts := newDraftStoreStub()
	profiles := newProfileReaderStub("stu-1", "stu-2", "stu-3")
	queue := &queueStub{}
	svc := NewSessionService(layouts, drafts, profiles, queue, nil, SessionServiceConfig{
		Rows:        2,
		SeatsPerRow: 4,
		TableWidth:  600,
	})
	return svc, layouts, drafts, queue
}

func TestSessionOpenStartsEmpty(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)

	state, err := svc.Open(context.Background(), "instr-1")
	require.NoError(t, err)
	require.Len(t, state.Rows, 2)
	require.Len(t, state.Rows[0].Seats, 4)
	require.Equal(t, 0, state.TotalOccupied)
	require.Equal(t, chart.ZoomDefault, state.Viewport.ZoomPercent)
	require.Nil(t, state.CurrentLayoutID)
}

func TestSessionAssignAndConflicts(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	state, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 1, StudentID: "stu-1"})
	require.NoError(t, err)
	require.Equal(t, 1, state.TotalOccupied)
	require.Equal(t, "stu-1", state.Rows[0].Seats[1].Occupant.ID)

	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 1, StudentID: "stu-2"})
	require.True(t, appErrors.Is(err, appErrors.ErrSeatOccupied))

	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 1, Seat: 0, StudentID: "stu-1"})
	require.True(t, appErrors.Is(err, appErrors.ErrDuplicateSeat))

	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 9, Seat: 0, StudentID: "stu-2"})
	require.True(t, appErrors.Is(err, appErrors.ErrSeatOutOfRange))

	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 2, StudentID: "missing"})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSessionMoveRejectsOccupiedTarget(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 1, StudentID: "stu-2"})
	require.NoError(t, err)

	_, err = svc.MoveSeat(ctx, "instr-1", dto.MoveSeatRequest{FromRow: 0, FromSeat: 0, ToRow: 0, ToSeat: 1})
	require.True(t, appErrors.Is(err, appErrors.ErrSeatOccupied))

	state, err := svc.MoveSeat(ctx, "instr-1", dto.MoveSeatRequest{FromRow: 0, FromSeat: 0, ToRow: 1, ToSeat: 3})
	require.NoError(t, err)
	require.Nil(t, state.Rows[0].Seats[0].Occupant)
	require.Equal(t, "stu-1", state.Rows[1].Seats[3].Occupant.ID)
}

func TestSessionSelectToggles(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)

	state, err := svc.SelectSeat(ctx, "instr-1", dto.SeatRequest{Row: 0, Seat: 0})
	require.NoError(t, err)
	require.NotNil(t, state.SelectedSeat)
	require.Equal(t, chart.SeatAddress{Row: 0, Seat: 0}, *state.SelectedSeat)

	state, err = svc.SelectSeat(ctx, "instr-1", dto.SeatRequest{Row: 0, Seat: 0})
	require.NoError(t, err)
	require.Nil(t, state.SelectedSeat)

	state, err = svc.SelectSeat(ctx, "instr-1", dto.SeatRequest{Row: 1, Seat: 2})
	require.NoError(t, err)
	require.Nil(t, state.SelectedSeat)
}

func TestSessionAutosaveRoundTrip(t *testing.T) {
	svc, _, drafts, queue := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 2, StudentID: "stu-1"})
	require.NoError(t, err)
	require.NotEmpty(t, queue.jobs)

	last := queue.jobs[len(queue.jobs)-1]
	require.Equal(t, JobTypeDraftSave, last.Type)
	require.NoError(t, svc.HandleAutosave(ctx, last))
	require.NotEmpty(t, drafts.drafts["instr-1"])

	// A fresh service instance resumes from the draft tier.
	resumed := NewSessionService(newLayoutStoreStub(), drafts, newProfileReaderStub(), nil, nil, SessionServiceConfig{
		Rows:        2,
		SeatsPerRow: 4,
		TableWidth:  600,
	})
	state, err := resumed.Open(ctx, "instr-1")
	require.NoError(t, err)
	require.Equal(t, 1, state.TotalOccupied)
	require.Equal(t, "stu-1", state.Rows[0].Seats[2].Occupant.ID)
}

func TestSessionAutosaveDropsStaleRetry(t *testing.T) {
	svc, _, drafts, queue := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	_, err = svc.MoveSeat(ctx, "instr-1", dto.MoveSeatRequest{FromRow: 0, FromSeat: 0, ToRow: 1, ToSeat: 2})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 2)

	// The newer snapshot saves first; the older one lands afterwards, the
	// way a retried job would.
	require.NoError(t, svc.HandleAutosave(ctx, queue.jobs[1]))
	require.NoError(t, svc.HandleAutosave(ctx, queue.jobs[0]))

	newer := queue.jobs[1].Payload.(DraftSavePayload)
	require.Equal(t, newer.Snapshot, drafts.drafts["instr-1"])

	resumed := NewSessionService(newLayoutStoreStub(), drafts, newProfileReaderStub(), nil, nil, SessionServiceConfig{
		Rows:        2,
		SeatsPerRow: 4,
		TableWidth:  600,
	})
	state, err := resumed.Open(ctx, "instr-1")
	require.NoError(t, err)
	require.Nil(t, state.Rows[0].Seats[0].Occupant)
	require.Equal(t, "stu-1", state.Rows[1].Seats[2].Occupant.ID)
}

func TestSessionClearInvalidatesPendingAutosave(t *testing.T) {
	svc, _, drafts, queue := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)

	_, err = svc.Clear(ctx, "instr-1")
	require.NoError(t, err)

	// A snapshot still queued from before the clear must not re-create
	// the draft.
	require.NoError(t, svc.HandleAutosave(ctx, queue.jobs[0]))
	require.Empty(t, drafts.drafts["instr-1"])
}

func TestSessionSaveLayoutRequiresName(t *testing.T) {
	svc, layouts, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "   "})
	require.True(t, appErrors.Is(err, appErrors.ErrLayoutNameEmpty))
	require.Empty(t, layouts.layouts)
}

func TestSessionSaveCreatesThenUpdates(t *testing.T) {
	svc, layouts, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)

	saved, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "Fall Seminar"})
	require.NoError(t, err)
	require.True(t, saved.Created)
	require.Len(t, layouts.layouts, 1)

	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 1, StudentID: "stu-2"})
	require.NoError(t, err)

	again, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{})
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, saved.ID, again.ID)
	require.Len(t, layouts.layouts, 1)

	items, err := svc.ListLayouts(ctx, "instr-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Fall Seminar", items[0].Name)
	require.Equal(t, 2, items[0].StudentsSeated)
}

func TestSessionLoadLayoutAdoptsBinding(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 1, Seat: 1, StudentID: "stu-3"})
	require.NoError(t, err)
	saved, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "Lab Groups"})
	require.NoError(t, err)

	_, err = svc.Clear(ctx, "instr-1")
	require.NoError(t, err)

	state, err := svc.LoadLayout(ctx, "instr-1", saved.ID)
	require.NoError(t, err)
	require.Equal(t, 1, state.TotalOccupied)
	require.Equal(t, "stu-3", state.Rows[1].Seats[1].Occupant.ID)
	require.Equal(t, "Lab Groups", state.LayoutName)
	require.NotNil(t, state.CurrentLayoutID)
	require.Equal(t, saved.ID, *state.CurrentLayoutID)
}

func TestSessionLoadLayoutHidesForeign(t *testing.T) {
	svc, layouts, _, _ := newTestSessionService(t)
	ctx := context.Background()

	foreign, err := layouts.Create(ctx, "instr-2", "Theirs", json.RawMessage(`{"schemaVersion":2,"rows":[]}`))
	require.NoError(t, err)

	_, err = svc.LoadLayout(ctx, "instr-1", foreign.ID)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.LoadLayout(ctx, "instr-1", "missing")
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSessionLoadSwitchesBinding(t *testing.T) {
	svc, layouts, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	layoutA, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "A"})
	require.NoError(t, err)

	_, err = svc.Clear(ctx, "instr-1")
	require.NoError(t, err)
	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 1, Seat: 1, StudentID: "stu-2"})
	require.NoError(t, err)
	layoutB, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "B"})
	require.NoError(t, err)

	_, err = svc.LoadLayout(ctx, "instr-1", layoutA.ID)
	require.NoError(t, err)
	state, err := svc.LoadLayout(ctx, "instr-1", layoutB.ID)
	require.NoError(t, err)
	require.Equal(t, layoutB.ID, *state.CurrentLayoutID)

	// Saving after the second load updates B, never A.
	_, err = svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 3, StudentID: "stu-3"})
	require.NoError(t, err)
	saved, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{})
	require.NoError(t, err)
	require.Equal(t, layoutB.ID, saved.ID)
	require.False(t, saved.Created)
	require.Equal(t, "B", layouts.layouts[layoutB.ID].Name)
	require.Equal(t, "A", layouts.layouts[layoutA.ID].Name)
}

func TestSessionClearDiscardsEverything(t *testing.T) {
	svc, _, drafts, queue := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleAutosave(ctx, queue.jobs[len(queue.jobs)-1]))
	require.NotEmpty(t, drafts.drafts["instr-1"])

	_, err = svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "Doomed"})
	require.NoError(t, err)
	_, err = svc.ZoomIn(ctx, "instr-1")
	require.NoError(t, err)

	state, err := svc.Clear(ctx, "instr-1")
	require.NoError(t, err)
	require.Equal(t, 0, state.TotalOccupied)
	require.Equal(t, chart.ZoomDefault, state.Viewport.ZoomPercent)
	require.Empty(t, state.LayoutName)
	require.Nil(t, state.CurrentLayoutID)
	require.Empty(t, drafts.drafts["instr-1"])
}

func TestSessionDeleteLayoutClearsBinding(t *testing.T) {
	svc, layouts, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	saved, err := svc.SaveLayout(ctx, "instr-1", dto.SaveLayoutRequest{Name: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLayout(ctx, "instr-1", saved.ID))
	require.Empty(t, layouts.layouts)

	// Binding cleared, chart untouched.
	state, err := svc.Open(ctx, "instr-1")
	require.NoError(t, err)
	require.Nil(t, state.CurrentLayoutID)
	require.Equal(t, 1, state.TotalOccupied)
}

func TestSessionViewportControls(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	state, err := svc.ZoomIn(ctx, "instr-1")
	require.NoError(t, err)
	require.Equal(t, chart.ZoomDefault+chart.ZoomStep, state.Viewport.ZoomPercent)

	state, err = svc.Pan(ctx, "instr-1", dto.PanRequest{DeltaX: -512, DeltaY: 90})
	require.NoError(t, err)
	require.Equal(t, chart.Point{X: -512, Y: 90}, state.Viewport.Offset)

	state, err = svc.ResetView(ctx, "instr-1")
	require.NoError(t, err)
	require.Equal(t, chart.ZoomDefault, state.Viewport.ZoomPercent)
	require.Equal(t, chart.Point{}, state.Viewport.Offset)
}

func TestSessionRenameAndCompactMode(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	state, err := svc.Rename(ctx, "instr-1", dto.RenameRequest{Name: "  Morning Block  "})
	require.NoError(t, err)
	require.Equal(t, "Morning Block", state.LayoutName)

	state, err = svc.SetCompactMode(ctx, "instr-1", dto.CompactModeRequest{Enabled: true})
	require.NoError(t, err)
	require.True(t, state.CompactMode)
}

func TestSessionChartForExportDeselects(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()

	_, err := svc.AssignSeat(ctx, "instr-1", dto.AssignSeatRequest{Row: 0, Seat: 0, StudentID: "stu-1"})
	require.NoError(t, err)
	_, err = svc.SelectSeat(ctx, "instr-1", dto.SeatRequest{Row: 0, Seat: 0})
	require.NoError(t, err)

	configs, rows, _ := svc.ChartForExport(ctx, "instr-1")
	require.Len(t, configs, 2)
	require.Equal(t, "stu-1", rows[0][0].ID)

	state, err := svc.Open(ctx, "instr-1")
	require.NoError(t, err)
	require.Nil(t, state.SelectedSeat)
}
