package models

import "time"

// Student is a learner profile submitted through the public intake form.
type Student struct {
	ID                string    `db:"id" json:"id"`
	FullName          string    `db:"full_name" json:"full_name"`
	Email             string    `db:"email" json:"email"`
	Pronoun           string    `db:"pronoun" json:"pronoun"`
	Major             string    `db:"major" json:"major"`
	ProfilePictureURL string    `db:"profile_picture_url" json:"profile_picture_url"`
	AboutMe           string    `db:"about_me" json:"about_me"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// FavoriteMedia is a movie or show picked on a student profile.
type FavoriteMedia struct {
	Title  string  `json:"title"`
	Year   string  `json:"year,omitempty"`
	Kind   string  `json:"kind,omitempty"`
	Poster string  `json:"poster,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

// InstructorNote is a private annotation an instructor keeps on a student.
type InstructorNote struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentProfile is the full roster read model: the student record joined
// with profile lists and the requesting instructor's notes.
type StudentProfile struct {
	Student
	Hobbies        []string         `json:"hobbies"`
	FavoriteMovies []FavoriteMedia  `json:"favorite_movies"`
	Notes          []InstructorNote `json:"notes"`
}

// RosterFilter narrows the roster listing.
type RosterFilter struct {
	Search string
	Major  string
}
