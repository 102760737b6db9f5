package models

import "time"

// NoteRef is the compact note embedded in a book detail payload.
type NoteRef struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Note is a note as returned by the notes endpoints.
type Note struct {
	ID          int64     `json:"id"`
	Book        int64     `json:"book"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	BookDetails *Book     `json:"book_details,omitempty"`
}

// Ref returns the compact form of n.
func (n *Note) Ref() *NoteRef {
	return &NoteRef{ID: n.ID, Content: n.Content, UpdatedAt: n.UpdatedAt}
}
