// Package notes reconciles the user's note on one book with the remote
// store.
//
// A Flow is either Absent (no note for the book) or Loaded (a remote note
// tracked by its id). The draft is held apart from the state. Save creates
// while Absent and updates while Loaded; Delete returns to Absent and clears
// the draft. A failed remote call changes nothing: the state stays and the
// draft is kept for another attempt.
package notes
