package dto

import "time"

// SaveLayoutRequest persists the live chart as a named layout. The name may
// also come from the working session state, so it is validated in the
// service rather than by tag.
type SaveLayoutRequest struct {
	Name string `json:"name"`
}

// LayoutItem is one entry in the saved-layouts picker.
type LayoutItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	StudentsSeated int       `json:"studentsSeated"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SaveLayoutResponse reports the stored layout id, which becomes the
// session's current layout for subsequent in-place updates.
type SaveLayoutResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}
