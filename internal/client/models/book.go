package models

import "time"

// Book is a read-only catalog record owned by the remote store.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre"`
	ISBN            *string   `json:"isbn"`
	PageCount       int       `json:"page_count"`
	PublicationDate *string   `json:"publication_date"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`

	// UserNote is the caller's note on this book, embedded by the detail
	// endpoint. Nil means the caller has no note (or is anonymous).
	UserNote *NoteRef `json:"user_note"`
}
