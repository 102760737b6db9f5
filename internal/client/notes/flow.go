package notes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

const notesPath = "/notes/"

var (
	// ErrBusy is returned while a save or delete of the same flow is in flight.
	ErrBusy = errors.New("note operation already in progress")
	// ErrNoBook is returned by Save before a book was loaded.
	ErrNoBook = errors.New("no book loaded")
	// ErrMalformedResponse is returned when a created note comes back
	// without an id.
	ErrMalformedResponse = errors.New("malformed note response")
)

// State of a Flow.
type State int

const (
	StateAbsent State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "absent"
}

// Flow tracks the note of one book for the current user.
type Flow struct {
	gw  client.Gateway
	log logging.Logger

	mu       sync.Mutex
	bookID   int64
	note     *models.NoteRef
	draft    string
	inFlight bool
	// gen changes on every Load; a call started under another gen does not
	// touch the state.
	gen uint64
}

func NewFlow(gw client.Gateway, log logging.Logger) *Flow {
	return &Flow{gw: gw, log: log.With("component", "notes")}
}

// Load resets the flow from a fetched book: Loaded with the draft seeded
// when the book embeds the user's note, Absent with an empty draft otherwise.
func (f *Flow) Load(book *models.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.bookID = book.ID
	f.note = nil
	f.draft = ""
	if book.UserNote != nil {
		ref := *book.UserNote
		f.note = &ref
		f.draft = ref.Content
	}
	f.log.Debug(context.Background(), "note flow loaded", "book", book.ID, "state", f.stateLocked())
}

func (f *Flow) SetDraft(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = content
}

func (f *Flow) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Flow) stateLocked() State {
	if f.note != nil {
		return StateLoaded
	}
	return StateAbsent
}

// Note returns a copy of the tracked note, nil while Absent.
func (f *Flow) Note() *models.NoteRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.note == nil {
		return nil
	}
	ref := *f.note
	return &ref
}

// BookID is the book the flow was loaded with.
func (f *Flow) BookID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookID
}

// Dirty reports whether the draft differs from the stored note.
func (f *Flow) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.note == nil {
		return f.draft != ""
	}
	return f.draft != f.note.Content
}

// snapshot is what a save or delete started with.
type snapshot struct {
	gen    uint64
	bookID int64
	note   *models.NoteRef
	draft  string
}

// begin takes the in-flight latch and snapshots what the call needs.
func (f *Flow) begin() (snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight {
		return snapshot{}, ErrBusy
	}
	f.inFlight = true

	snap := snapshot{gen: f.gen, bookID: f.bookID, draft: f.draft}
	if f.note != nil {
		ref := *f.note
		snap.note = &ref
	}
	return snap, nil
}

// apply runs fn under the lock if no Load happened since snap was taken.
func (f *Flow) apply(ctx context.Context, snap snapshot, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gen != snap.gen {
		f.log.Debug(ctx, "dropping note result for a book no longer loaded", "book", snap.bookID, "current", f.bookID)
		return
	}
	fn()
}

func (f *Flow) end() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}

// Save creates the note while Absent and updates it while Loaded. On
// success the flow is Loaded with the remote answer; on failure nothing
// changes and the draft is kept. If another book was loaded while the call
// was in flight, the answer is returned but the flow is left alone.
func (f *Flow) Save(ctx context.Context) (*models.NoteRef, error) {
	snap, err := f.begin()
	if err != nil {
		return nil, err
	}
	defer f.end()

	bookID, current, draft := snap.bookID, snap.note, snap.draft

	var saved models.Note
	if current == nil {
		if bookID == 0 {
			return nil, ErrNoBook
		}
		body := map[string]any{"book": bookID, "content": draft}
		if err := f.gw.Post(ctx, notesPath, body, &saved); err != nil {
			f.log.Debug(ctx, "note create failed", "book", bookID, "err", client.Message(err))
			return nil, err
		}
		if saved.ID == 0 {
			return nil, fmt.Errorf("%w: create answer has no id", ErrMalformedResponse)
		}
		f.log.Debug(ctx, "note created", "book", bookID, "note", saved.ID)
	} else {
		body := map[string]string{"content": draft}
		if err := f.gw.Patch(ctx, notePath(current.ID), body, &saved); err != nil {
			f.log.Debug(ctx, "note update failed", "note", current.ID, "err", client.Message(err))
			return nil, err
		}
		// An update never moves the note to another id or book.
		saved.ID = current.ID
		f.log.Debug(ctx, "note updated", "note", current.ID)
	}

	ref := saved.Ref()
	f.apply(ctx, snap, func() { f.note = ref })

	out := *ref
	return &out, nil
}

// Delete removes the note while Loaded and returns the flow to Absent with
// an empty draft. While Absent it does nothing and issues no call. Asking
// the user for confirmation is up to the caller.
func (f *Flow) Delete(ctx context.Context) error {
	snap, err := f.begin()
	if err != nil {
		return err
	}
	defer f.end()

	current := snap.note

	if current == nil {
		return nil
	}

	if err := f.gw.Delete(ctx, notePath(current.ID)); err != nil {
		f.log.Debug(ctx, "note delete failed", "note", current.ID, "err", client.Message(err))
		return err
	}

	f.apply(ctx, snap, func() {
		f.note = nil
		f.draft = ""
	})

	f.log.Debug(ctx, "note deleted", "note", current.ID)
	return nil
}

func notePath(id int64) string {
	return fmt.Sprintf("%s%d/", notesPath, id)
}
