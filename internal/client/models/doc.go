// Package models defines the client-side data models of Book Explorer:
// the persisted Session, the remote-owned Book and Note records, and the
// explicit list-or-page shape of collection responses.
package models
