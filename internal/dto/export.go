package dto

import "time"

// ExportResponse points at a generated chart PDF via a signed download URL.
type ExportResponse struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
