package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/classmap/classmap-api/internal/models"
)

// StudentRepository exposes the read-only roster: student profiles joined
// with the requesting instructor's private notes.
type StudentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB, logger *zap.Logger) *StudentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentRepository{db: db, logger: logger}
}

type studentRow struct {
	models.Student
	Hobbies        []byte `db:"hobbies"`
	FavoriteMovies []byte `db:"favorite_movies"`
}

// List returns profiles matching the filter, with the instructor's notes
// attached. Search covers name, major and hobbies.
func (r *StudentRepository) List(ctx context.Context, instructorID string, filter models.RosterFilter) ([]models.StudentProfile, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT id, full_name, email, pronoun, major, profile_picture_url, about_me,
	hobbies, favorite_movies, created_at, updated_at
FROM students
WHERE 1=1`)

	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		fmt.Fprintf(&query, " AND (full_name ILIKE $%d OR major ILIKE $%d OR hobbies::text ILIKE $%d)", len(args), len(args), len(args))
	}
	if filter.Major != "" {
		args = append(args, filter.Major)
		fmt.Fprintf(&query, " AND major = $%d", len(args))
	}
	query.WriteString("\nORDER BY full_name ASC")

	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	notes, err := r.notesByStudent(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.StudentProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, r.toProfile(row, notes[row.ID]))
	}
	return profiles, nil
}

// FindByID fetches a single profile with the instructor's notes.
func (r *StudentRepository) FindByID(ctx context.Context, instructorID, studentID string) (*models.StudentProfile, error) {
	const query = `
SELECT id, full_name, email, pronoun, major, profile_picture_url, about_me,
	hobbies, favorite_movies, created_at, updated_at
FROM students
WHERE id = $1`

	var row studentRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}

	const notesQuery = `
SELECT id, student_id, notes, created_at
FROM instructor_notes
WHERE instructor_id = $1 AND student_id = $2
ORDER BY created_at DESC`

	var notes []models.InstructorNote
	if err := r.db.SelectContext(ctx, &notes, notesQuery, instructorID, studentID); err != nil {
		return nil, fmt.Errorf("list student notes: %w", err)
	}

	profile := r.toProfile(row, notes)
	return &profile, nil
}

func (r *StudentRepository) notesByStudent(ctx context.Context, instructorID string) (map[string][]models.InstructorNote, error) {
	const query = `
SELECT id, student_id, notes, created_at
FROM instructor_notes
WHERE instructor_id = $1
ORDER BY created_at DESC`

	var notes []models.InstructorNote
	if err := r.db.SelectContext(ctx, &notes, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor notes: %w", err)
	}

	grouped := make(map[string][]models.InstructorNote, len(notes))
	for _, note := range notes {
		grouped[note.StudentID] = append(grouped[note.StudentID], note)
	}
	return grouped, nil
}

// toProfile is tolerant of corrupt jsonb columns: the profile still loads
// with the broken field empty, and the row is logged for cleanup.
func (r *StudentRepository) toProfile(row studentRow, notes []models.InstructorNote) models.StudentProfile {
	profile := models.StudentProfile{
		Student: row.Student,
		Notes:   notes,
	}
	if len(row.Hobbies) > 0 {
		if err := json.Unmarshal(row.Hobbies, &profile.Hobbies); err != nil {
			r.logger.Warn("student hobbies column undecodable", zap.String("student_id", row.ID), zap.Error(err))
		}
	}
	if len(row.FavoriteMovies) > 0 {
		if err := json.Unmarshal(row.FavoriteMovies, &profile.FavoriteMovies); err != nil {
			r.logger.Warn("student favorite_movies column undecodable", zap.String("student_id", row.ID), zap.Error(err))
		}
	}
	return profile
}
