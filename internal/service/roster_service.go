package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classmap/classmap-api/internal/dto"
	"github.com/classmap/classmap-api/internal/models"
	appErrors "github.com/classmap/classmap-api/pkg/errors"
)

type studentLister interface {
	List(ctx context.Context, instructorID string, filter models.RosterFilter) ([]models.StudentProfile, error)
	FindByID(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error)
}

type seatedLookup interface {
	SeatedIDs(ctx context.Context, instructorID string) map[string]struct{}
}

// RosterService serves the available-students sidebar: the full roster
// filtered by search terms with already-seated students removed.
type RosterService struct {
	students studentLister
	seated   seatedLookup
	logger   *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(students studentLister, seated seatedLookup, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, seated: seated, logger: logger}
}

// Available lists students matching the filter who are not currently seated
// in the instructor's live chart.
func (s *RosterService) Available(ctx context.Context, instructorID string, filter models.RosterFilter) (*dto.RosterResponse, error) {
	profiles, err := s.students.List(ctx, instructorID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not list roster")
	}

	seatedIDs := s.seated.SeatedIDs(ctx, instructorID)
	available := make([]models.StudentProfile, 0, len(profiles))
	seated := 0
	for _, profile := range profiles {
		if _, ok := seatedIDs[profile.ID]; ok {
			seated++
			continue
		}
		available = append(available, profile)
	}

	return &dto.RosterResponse{
		Students:  available,
		Available: len(available),
		Seated:    seated,
	}, nil
}

// Profile fetches a single student's full profile with the instructor's
// notes attached.
func (s *RosterService) Profile(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error) {
	profile, err := s.students.FindByID(ctx, instructorID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "could not load student")
	}
	return profile, nil
}
