package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classmap/classmap-api/internal/chart"
	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
	"github.com/classmap/classmap-api/pkg/jobs"
)

// JobTypeDraftSave labels autosave jobs on the background queue.
const JobTypeDraftSave = "draft.save"

type layoutStore interface {
	ListByInstructor(ctx context.Context, instructorID string) ([]models.RoomLayout, error)
	FindByID(ctx context.Context, id string) (*models.RoomLayout, error)
	Create(ctx context.Context, instructorID, name string, snapshot json.RawMessage) (*models.RoomLayout, error)
	Update(ctx context.Context, id, name string, snapshot json.RawMessage) error
	Delete(ctx context.Context, id string) error
}

type draftStore interface {
	Get(ctx context.Context, instructorID string) ([]byte, error)
	Set(ctx context.Context, instructorID string, data []byte) error
	Clear(ctx context.Context, instructorID string) error
}

type profileReader interface {
	FindByID(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error)
}

type autosaveEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// DraftSavePayload is what an autosave job carries onto the queue: the
// encoded snapshot captured at enqueue time, not a reference to live state.
// Seq orders snapshots per instructor; the handler drops anything at or
// below the last applied sequence so a retried job cannot roll the draft
// back to an older state.
type DraftSavePayload struct {
	InstructorID string
	Snapshot     []byte
	Seq          uint64
}

// SessionServiceConfig fixes the classroom shape and load behaviour.
type SessionServiceConfig struct {
	Rows          int
	SeatsPerRow   int
	TableWidth    float64
	RefreshOnLoad bool
}

// session is one instructor's live working state. It is the authoritative
// tier; Redis drafts and Postgres layouts are reconciled against it.
type session struct {
	chart           *chart.SeatingChart
	viewport        chart.Viewport
	layoutName      string
	currentLayoutID string
	compactMode     bool
	selectedSeat    *chart.SeatAddress
}

// SessionService owns per-instructor chart sessions and reconciles them
// across the three persistence tiers: the in-memory session, the Redis
// draft slot, and named Postgres layouts. Draft writes are fire-and-forget
// through the autosave queue; a draft failure never fails the mutation
// that triggered it.
type SessionService struct {
	layouts  layoutStore
	drafts   draftStore
	profiles profileReader
	queue    autosaveEnqueuer
	validate *validator.Validate
	logger   *zap.Logger
	cfg      SessionServiceConfig
	configs  []chart.RowConfig

	mu       sync.Mutex
	sessions map[string]*session
	seqs     map[string]uint64

	// draftMu serializes draft writes so the applied sequence and the
	// stored snapshot advance together.
	draftMu sync.Mutex
	applied map[string]uint64
}

// NewSessionService constructs the service with defaults.
func NewSessionService(layouts layoutStore, drafts draftStore, profiles profileReader, queue autosaveEnqueuer, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		layouts:  layouts,
		drafts:   drafts,
		profiles: profiles,
		queue:    queue,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
		configs:  chart.DefaultRowConfigs(cfg.Rows, cfg.SeatsPerRow, cfg.TableWidth),
		sessions: make(map[string]*session),
		seqs:     make(map[string]uint64),
		applied:  make(map[string]uint64),
	}
}

// Open returns the instructor's live session state, resuming the Redis
// draft when one exists and no session is in memory. A broken or
// unreadable draft falls back to an empty chart.
func (s *SessionService) Open(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[instructorID]
	if !ok {
		sess = s.resumeLocked(ctx, instructorID)
		s.sessions[instructorID] = sess
	}
	return s.stateLocked(sess), nil
}

func (s *SessionService) resumeLocked(ctx context.Context, instructorID string) *session {
	sess := &session{
		chart:    chart.NewSeatingChart(s.configs),
		viewport: chart.NewViewport(),
	}

	data, err := s.drafts.Get(ctx, instructorID)
	if err != nil {
		s.logger.Warn("draft read failed, starting empty", zap.String("instructor_id", instructorID), zap.Error(err))
		return sess
	}
	if data == nil {
		return sess
	}

	snapshot, err := chart.DecodeSnapshot(data)
	if err != nil {
		s.logger.Warn("draft snapshot invalid, starting empty", zap.String("instructor_id", instructorID), zap.Error(err))
		return sess
	}
	sess.chart, sess.viewport = snapshot.Restore(s.configs)
	sess.layoutName = snapshot.LayoutName
	sess.compactMode = snapshot.CompactMode
	return sess
}

// AssignSeat seats a roster student, freezing their profile into the chart.
func (s *SessionService) AssignSeat(ctx context.Context, instructorID string, req dto.AssignSeatRequest) (*dto.SessionState, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	profile, err := s.profiles.FindByID(ctx, instructorID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.FromError(err)
	}
	ref := freezeStudent(profile)

	return s.mutate(ctx, instructorID, func(sess *session) error {
		return sess.chart.Assign(req.Row, req.Seat, ref)
	})
}

// MoveSeat relocates a seated student. An occupied target rejects the move
// and leaves both seats untouched.
func (s *SessionService) MoveSeat(ctx context.Context, instructorID string, req dto.MoveSeatRequest) (*dto.SessionState, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return s.mutate(ctx, instructorID, func(sess *session) error {
		if err := sess.chart.Move(req.FromRow, req.FromSeat, req.ToRow, req.ToSeat); err != nil {
			return err
		}
		if sess.selectedSeat != nil && sess.selectedSeat.Row == req.FromRow && sess.selectedSeat.Seat == req.FromSeat {
			sess.selectedSeat = &chart.SeatAddress{Row: req.ToRow, Seat: req.ToSeat}
		}
		return nil
	})
}

// RemoveSeat returns a seat's occupant to the roster. Removing an empty
// seat is a no-op.
func (s *SessionService) RemoveSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.chart.Remove(req.Row, req.Seat)
		if sess.selectedSeat != nil && sess.selectedSeat.Row == req.Row && sess.selectedSeat.Seat == req.Seat {
			sess.selectedSeat = nil
		}
		return nil
	})
}

// SelectSeat toggles the detail card: selecting the selected seat again, or
// an empty seat, clears the selection.
func (s *SessionService) SelectSeat(ctx context.Context, instructorID string, req dto.SeatRequest) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		if sess.selectedSeat != nil && sess.selectedSeat.Row == req.Row && sess.selectedSeat.Seat == req.Seat {
			sess.selectedSeat = nil
			return nil
		}
		if sess.chart.Occupant(req.Row, req.Seat) == nil {
			sess.selectedSeat = nil
			return nil
		}
		sess.selectedSeat = &chart.SeatAddress{Row: req.Row, Seat: req.Seat}
		return nil
	})
}

// Deselect clears any seat selection.
func (s *SessionService) Deselect(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.selectedSeat = nil
		return nil
	})
}

// ZoomIn steps the viewport zoom up one notch.
func (s *SessionService) ZoomIn(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.viewport.ZoomIn()
		return nil
	})
}

// ZoomOut steps the viewport zoom down one notch.
func (s *SessionService) ZoomOut(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.viewport.ZoomOut()
		return nil
	})
}

// Pan shifts the viewport offset. The offset is unclamped.
func (s *SessionService) Pan(ctx context.Context, instructorID string, req dto.PanRequest) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.viewport.Pan(chart.Point{X: req.DeltaX, Y: req.DeltaY})
		return nil
	})
}

// ResetView restores the default zoom and origin offset.
func (s *SessionService) ResetView(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.viewport.Reset()
		return nil
	})
}

// SetCompactMode toggles the persistent compact display preference.
func (s *SessionService) SetCompactMode(ctx context.Context, instructorID string, req dto.CompactModeRequest) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.compactMode = req.Enabled
		return nil
	})
}

// Rename updates the working layout name without persisting a named layout.
func (s *SessionService) Rename(ctx context.Context, instructorID string, req dto.RenameRequest) (*dto.SessionState, error) {
	return s.mutate(ctx, instructorID, func(sess *session) error {
		sess.layoutName = strings.TrimSpace(req.Name)
		return nil
	})
}

// Clear discards the working session entirely: every seat emptied, the
// viewport reset, the name and layout binding dropped, and the draft slot
// removed. A draft delete failure is logged only.
func (s *SessionService) Clear(ctx context.Context, instructorID string) (*dto.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &session{
		chart:    chart.NewSeatingChart(s.configs),
		viewport: chart.NewViewport(),
	}
	s.sessions[instructorID] = sess

	// Any autosave still in flight carries pre-clear state and must not
	// re-create the draft.
	s.draftMu.Lock()
	s.applied[instructorID] = s.seqs[instructorID]
	if err := s.drafts.Clear(ctx, instructorID); err != nil {
		s.logger.Warn("draft clear failed", zap.String("instructor_id", instructorID), zap.Error(err))
	}
	s.draftMu.Unlock()
	return s.stateLocked(sess), nil
}

// SaveLayout persists the live chart as a named layout. A blank name fails
// before any store is touched. When the session is bound to an existing
// layout the save updates it in place; otherwise a new layout is created
// and adopted as current.
func (s *SessionService) SaveLayout(ctx context.Context, instructorID string, req dto.SaveLayoutRequest) (*dto.SaveLayoutResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(ctx, instructorID)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = sess.layoutName
	}
	if name == "" {
		return nil, appErrors.ErrLayoutNameEmpty
	}

	snapshot := chart.TakeSnapshot(sess.chart, sess.viewport, name, sess.compactMode)
	data, err := snapshot.Encode()
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	if sess.currentLayoutID != "" {
		if err := s.layouts.Update(ctx, sess.currentLayoutID, name, data); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// The bound layout was deleted elsewhere; fall through to create.
				sess.currentLayoutID = ""
			} else {
				return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not save layout")
			}
		} else {
			sess.layoutName = name
			s.enqueueAutosaveLocked(instructorID, sess)
			return &dto.SaveLayoutResponse{ID: sess.currentLayoutID, Name: name, Created: false}, nil
		}
	}

	created, err := s.layouts.Create(ctx, instructorID, name, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not save layout")
	}
	sess.currentLayoutID = created.ID
	sess.layoutName = name
	s.enqueueAutosaveLocked(instructorID, sess)
	return &dto.SaveLayoutResponse{ID: created.ID, Name: name, Created: true}, nil
}

// ListLayouts returns the instructor's saved layouts, newest first, with
// seat counts decoded from the stored snapshots.
func (s *SessionService) ListLayouts(ctx context.Context, instructorID string) ([]dto.LayoutItem, error) {
	layouts, err := s.layouts.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not list layouts")
	}

	items := make([]dto.LayoutItem, 0, len(layouts))
	for _, layout := range layouts {
		seated := 0
		if snapshot, err := chart.DecodeSnapshot(layout.Snapshot); err == nil {
			restored, _ := snapshot.Restore(s.configs)
			seated = restored.TotalOccupied()
		}
		items = append(items, dto.LayoutItem{
			ID:             layout.ID,
			Name:           layout.Name,
			StudentsSeated: seated,
			CreatedAt:      layout.CreatedAt,
			UpdatedAt:      layout.UpdatedAt,
		})
	}
	return items, nil
}

// LoadLayout replaces the live session with a saved layout and binds the
// session to it for in-place saves. Seat occupants stay frozen as saved
// unless refresh-on-load is configured.
func (s *SessionService) LoadLayout(ctx context.Context, instructorID, layoutID string) (*dto.SessionState, error) {
	layout, err := s.layouts.FindByID(ctx, layoutID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "layout not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not load layout")
	}
	if layout.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "layout not found")
	}

	snapshot, err := chart.DecodeSnapshot(layout.Snapshot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "layout snapshot unreadable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(ctx, instructorID)
	sess.chart, sess.viewport = snapshot.Restore(s.configs)
	sess.layoutName = layout.Name
	sess.currentLayoutID = layout.ID
	sess.compactMode = snapshot.CompactMode
	sess.selectedSeat = nil

	if s.cfg.RefreshOnLoad {
		s.refreshOccupantsLocked(ctx, instructorID, sess)
	}

	s.enqueueAutosaveLocked(instructorID, sess)
	return s.stateLocked(sess), nil
}

// DeleteLayout removes a saved layout. When the deleted layout is the
// session's current one the binding is cleared but the live chart is left
// untouched.
func (s *SessionService) DeleteLayout(ctx context.Context, instructorID, layoutID string) error {
	layout, err := s.layouts.FindByID(ctx, layoutID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "layout not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not delete layout")
	}
	if layout.InstructorID != instructorID {
		return appErrors.Clone(appErrors.ErrNotFound, "layout not found")
	}

	if err := s.layouts.Delete(ctx, layoutID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not delete layout")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[instructorID]; ok && sess.currentLayoutID == layoutID {
		sess.currentLayoutID = ""
		s.enqueueAutosaveLocked(instructorID, sess)
	}
	return nil
}

// SeatedIDs reports the ids of every seated student, for roster filtering.
func (s *SessionService) SeatedIDs(ctx context.Context, instructorID string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked(ctx, instructorID).chart.SeatedIDs()
}

// ChartForExport deselects any seat and returns what the exporter needs: the
// row configuration, the grid, and the working layout name.
func (s *SessionService) ChartForExport(ctx context.Context, instructorID string) ([]chart.RowConfig, [][]*chart.StudentRef, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(ctx, instructorID)
	sess.selectedSeat = nil
	return sess.chart.Configs(), sess.chart.Rows(), sess.layoutName
}

// HandleAutosave is the queue handler for draft.save jobs. Snapshots must
// only move the draft forward: a job carrying a sequence at or below the
// last applied one is dropped, which covers retried jobs landing after a
// newer snapshot already saved.
func (s *SessionService) HandleAutosave(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(DraftSavePayload)
	if !ok {
		s.logger.Warn("autosave job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	if payload.Seq != 0 && payload.Seq <= s.applied[payload.InstructorID] {
		s.logger.Debug("stale draft snapshot dropped",
			zap.String("instructor_id", payload.InstructorID), zap.Uint64("seq", payload.Seq))
		return nil
	}
	if err := s.drafts.Set(ctx, payload.InstructorID, payload.Snapshot); err != nil {
		return err
	}
	if payload.Seq != 0 {
		s.applied[payload.InstructorID] = payload.Seq
	}
	return nil
}

func (s *SessionService) mutate(ctx context.Context, instructorID string, fn func(*session) error) (*dto.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessionLocked(ctx, instructorID)
	if err := fn(sess); err != nil {
		return nil, mapChartError(err)
	}
	s.enqueueAutosaveLocked(instructorID, sess)
	return s.stateLocked(sess), nil
}

func (s *SessionService) sessionLocked(ctx context.Context, instructorID string) *session {
	sess, ok := s.sessions[instructorID]
	if !ok {
		sess = s.resumeLocked(ctx, instructorID)
		s.sessions[instructorID] = sess
	}
	return sess
}

// enqueueAutosaveLocked captures a snapshot and hands it to the background
// queue. Failures are logged and swallowed: the in-memory session remains
// authoritative and a later mutation will enqueue a fresh snapshot.
func (s *SessionService) enqueueAutosaveLocked(instructorID string, sess *session) {
	if s.queue == nil {
		return
	}
	snapshot := chart.TakeSnapshot(sess.chart, sess.viewport, sess.layoutName, sess.compactMode)
	data, err := snapshot.Encode()
	if err != nil {
		s.logger.Warn("autosave snapshot encode failed", zap.String("instructor_id", instructorID), zap.Error(err))
		return
	}
	s.seqs[instructorID]++
	err = s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeDraftSave,
		Payload: DraftSavePayload{InstructorID: instructorID, Snapshot: data, Seq: s.seqs[instructorID]},
	})
	if err != nil {
		s.logger.Warn("autosave enqueue failed", zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

func (s *SessionService) refreshOccupantsLocked(ctx context.Context, instructorID string, sess *session) {
	for _, addr := range sess.chart.Seated() {
		occupant := sess.chart.Occupant(addr.Row, addr.Seat)
		if occupant == nil {
			continue
		}
		profile, err := s.profiles.FindByID(ctx, instructorID, occupant.ID)
		if err != nil {
			// Keep the frozen reference when the live record is gone.
			continue
		}
		sess.chart.Remove(addr.Row, addr.Seat)
		if err := sess.chart.Assign(addr.Row, addr.Seat, freezeStudent(profile)); err != nil {
			s.logger.Warn("occupant refresh failed", zap.String("student_id", occupant.ID), zap.Error(err))
		}
	}
}

func (s *SessionService) stateLocked(sess *session) *dto.SessionState {
	configs := sess.chart.Configs()
	grid := sess.chart.Rows()

	rows := make([]dto.SessionRowItem, len(configs))
	for r, cfg := range configs {
		seats := make([]dto.SessionSeat, cfg.SeatCount)
		for i := range seats {
			seats[i] = dto.SessionSeat{
				Seat:     i,
				Position: chart.SeatPosition(r, i, cfg),
				Occupant: grid[r][i],
			}
		}
		rows[r] = dto.SessionRowItem{
			Label:      cfg.Label,
			TableWidth: cfg.TableWidth,
			Outline:    chart.TableOutline(r, cfg),
			Seats:      seats,
		}
	}

	state := &dto.SessionState{
		Rows:          rows,
		Viewport:      sess.viewport,
		LayoutName:    sess.layoutName,
		CompactMode:   sess.compactMode,
		TotalOccupied: sess.chart.TotalOccupied(),
	}
	if sess.currentLayoutID != "" {
		id := sess.currentLayoutID
		state.CurrentLayoutID = &id
	}
	if sess.selectedSeat != nil {
		addr := *sess.selectedSeat
		state.SelectedSeat = &addr
	}
	return state
}

func mapChartError(err error) error {
	switch {
	case errors.Is(err, chart.ErrSeatOccupied):
		return appErrors.ErrSeatOccupied
	case errors.Is(err, chart.ErrDuplicateOccupant):
		return appErrors.ErrDuplicateSeat
	case errors.Is(err, chart.ErrOutOfRange):
		return appErrors.ErrSeatOutOfRange
	case errors.Is(err, chart.ErrEmptySeat):
		return appErrors.Clone(appErrors.ErrValidation, "seat is empty")
	default:
		return appErrors.FromError(err)
	}
}

func freezeStudent(p *models.StudentProfile) *chart.StudentRef {
	ref := &chart.StudentRef{
		ID:         p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Pronoun:    p.Pronoun,
		Major:      p.Major,
		PictureURL: p.ProfilePictureURL,
		Bio:        p.AboutMe,
		Hobbies:    append([]string(nil), p.Hobbies...),
	}
	for _, m := range p.FavoriteMovies {
		ref.FavoriteMedia = append(ref.FavoriteMedia, chart.MediaRef{
			Title:  m.Title,
			Year:   m.Year,
			Kind:   m.Kind,
			Poster: m.Poster,
			Rating: m.Rating,
		})
	}
	for _, n := range p.Notes {
		ref.Notes = append(ref.Notes, chart.NoteRef{Text: n.Notes, CreatedAt: n.CreatedAt})
	}
	return ref
}
