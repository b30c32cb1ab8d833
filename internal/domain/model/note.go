package model

import "time"

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedBy int64     `json:"created_by"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// NoteFilter drives the admin listing. Zero values mean "no filter".
type NoteFilter struct {
	Search    string
	Active    *bool
	SortField string
	SortOrder SortOrder
	Limit     int
	Page      int
}

type NotePage struct {
	TotalNotes   int    `json:"total_notes"`
	NumberOfPage int    `json:"number_of_page"`
	Page         int    `json:"page"`
	Notes        []Note `json:"notes"`
}
