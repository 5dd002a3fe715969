package dto

import "github.com/classmap/classmap-api/internal/chart"

// SessionRowItem is one rendered table row: its configuration, the curved
// outline, and the seats with their computed positions.
type SessionRowItem struct {
	Label      string        `json:"label"`
	TableWidth float64       `json:"tableWidth"`
	Outline    []chart.Point `json:"outline"`
	Seats      []SessionSeat `json:"seats"`
}

// SessionSeat is a single cell with its chart-space position and occupant.
type SessionSeat struct {
	Seat     int               `json:"seat"`
	Position chart.Point       `json:"position"`
	Occupant *chart.StudentRef `json:"occupant,omitempty"`
}

// SessionState is the full interactive state returned to the client.
type SessionState struct {
	Rows            []SessionRowItem   `json:"rows"`
	Viewport        chart.Viewport     `json:"viewport"`
	LayoutName      string             `json:"layoutName"`
	CurrentLayoutID *string            `json:"currentLayoutId,omitempty"`
	CompactMode     bool               `json:"compactMode"`
	SelectedSeat    *chart.SeatAddress `json:"selectedSeat,omitempty"`
	TotalOccupied   int                `json:"totalOccupied"`
}

// AssignSeatRequest seats a roster student.
type AssignSeatRequest struct {
	Row       int    `json:"row" validate:"min=0"`
	Seat      int    `json:"seat" validate:"min=0"`
	StudentID string `json:"studentId" validate:"required"`
}

// MoveSeatRequest relocates a seated student.
type MoveSeatRequest struct {
	FromRow  int `json:"fromRow" validate:"min=0"`
	FromSeat int `json:"fromSeat" validate:"min=0"`
	ToRow    int `json:"toRow" validate:"min=0"`
	ToSeat   int `json:"toSeat" validate:"min=0"`
}

// SeatRequest addresses a single cell (remove, select).
type SeatRequest struct {
	Row  int `json:"row" validate:"min=0"`
	Seat int `json:"seat" validate:"min=0"`
}

// PanRequest shifts the viewport offset.
type PanRequest struct {
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
}

// CompactModeRequest toggles the persistent detail card display mode.
type CompactModeRequest struct {
	Enabled bool `json:"enabled"`
}

// RenameRequest updates the working layout name without saving.
type RenameRequest struct {
	Name string `json:"name"`
}
