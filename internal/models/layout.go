package models

import (
	"encoding/json"
	"time"
)

// RoomLayout is a named, durably stored seating layout owned by one
// instructor. The snapshot column holds the serialized chart state as an
// opaque structured blob.
type RoomLayout struct {
	ID           string          `db:"id" json:"id"`
	InstructorID string          `db:"instructor_id" json:"instructor_id"`
	Name         string          `db:"layout_name" json:"layout_name"`
	Snapshot     json.RawMessage `db:"snapshot" json:"snapshot"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
