package dto

import "github.com/classmap/classmap-api/internal/models"

// RosterResponse is the sidebar listing: students not yet seated, after
// search and major filtering.
type RosterResponse struct {
	Students  []models.StudentProfile `json:"students"`
	Available int                     `json:"available"`
	Seated    int                     `json:"seated"`
}
