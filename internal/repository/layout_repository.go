package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classmap/classmap-api/internal/models"
)

// LayoutRepository persists named seating layouts in Postgres.
type LayoutRepository struct {
	db *sqlx.DB
}

// NewLayoutRepository constructs the repository.
func NewLayoutRepository(db *sqlx.DB) *LayoutRepository {
	return &LayoutRepository{db: db}
}

// ListByInstructor returns the instructor's layouts, newest first, including
// snapshots so the picker can show seat counts without a second round trip.
func (r *LayoutRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.RoomLayout, error) {
	const query = `
SELECT id, instructor_id, layout_name, snapshot, created_at, updated_at
FROM room_layouts
WHERE instructor_id = $1
ORDER BY created_at DESC`

	var layouts []models.RoomLayout
	if err := r.db.SelectContext(ctx, &layouts, query, instructorID); err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	return layouts, nil
}

// FindByID fetches a single layout.
func (r *LayoutRepository) FindByID(ctx context.Context, id string) (*models.RoomLayout, error) {
	const query = `
SELECT id, instructor_id, layout_name, snapshot, created_at, updated_at
FROM room_layouts
WHERE id = $1`

	var layout models.RoomLayout
	if err := r.db.GetContext(ctx, &layout, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find layout: %w", err)
	}
	return &layout, nil
}

// Create stores a new named layout and returns it.
func (r *LayoutRepository) Create(ctx context.Context, instructorID, name string, snapshot json.RawMessage) (*models.RoomLayout, error) {
	const query = `
INSERT INTO room_layouts (id, instructor_id, layout_name, snapshot, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`

	now := time.Now().UTC()
	layout := &models.RoomLayout{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		Name:         name,
		Snapshot:     snapshot,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.db.ExecContext(ctx, query, layout.ID, instructorID, name, []byte(snapshot), now); err != nil {
		return nil, fmt.Errorf("create layout: %w", err)
	}
	return layout, nil
}

// Update overwrites the name and snapshot of an existing layout in place.
func (r *LayoutRepository) Update(ctx context.Context, id, name string, snapshot json.RawMessage) error {
	const query = `
UPDATE room_layouts
SET layout_name = $2, snapshot = $3, updated_at = $4
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, name, []byte(snapshot), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update layout: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update layout: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the layout.
func (r *LayoutRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM room_layouts WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
