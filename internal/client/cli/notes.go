package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/bookexplorer/internal/client/notes"
)

var errNoBookOpened = errors.New("no book opened, use 'open <id>' first")

// ShowNote prints the note state of the opened book and the draft.
func (a *App) ShowNote(_ context.Context, _ []string) error {
	if a.opened == nil {
		return errNoBookOpened
	}

	switch a.flow.State() {
	case notes.StateLoaded:
		a.printf("Note #%d on %q\n", a.flow.Note().ID, a.opened.Title)
	default:
		a.printf("No note on %q yet\n", a.opened.Title)
	}

	if draft := a.flow.Draft(); draft != "" {
		a.printf("%s\n", draft)
	}
	if a.flow.Dirty() {
		a.printf("(unsaved changes, use 'save')\n")
	}
	return nil
}

// Edit replaces the draft with text typed by the user. Nothing is sent
// until Save.
func (a *App) Edit(_ context.Context, _ []string) error {
	if a.opened == nil {
		return errNoBookOpened
	}

	text, err := getMultiline(a.reader, "Enter note text", a.out)
	if err != nil {
		return err
	}
	a.flow.SetDraft(text)
	return nil
}

// Save creates or updates the note from the draft. On failure the draft
// is kept so the user can retry.
func (a *App) Save(ctx context.Context, _ []string) error {
	if a.opened == nil {
		return errNoBookOpened
	}

	created := a.flow.State() == notes.StateAbsent
	ref, err := a.flow.Save(ctx)
	if err != nil {
		return err
	}

	if created {
		a.printf("Note #%d created\n", ref.ID)
	} else {
		a.printf("Note #%d updated\n", ref.ID)
	}
	return nil
}

// Delete removes the note of the opened book after the user confirms.
func (a *App) Delete(ctx context.Context, _ []string) error {
	if a.opened == nil {
		return errNoBookOpened
	}
	if a.flow.State() == notes.StateAbsent {
		a.printf("Nothing to delete\n")
		return nil
	}

	ok, err := confirm(a.reader, "Delete your note on "+a.opened.Title+"?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled\n")
		return nil
	}

	if err := a.flow.Delete(ctx); err != nil {
		return err
	}
	a.printf("Note deleted\n")
	return nil
}

// MyNotes lists the user's notes across all books.
func (a *App) MyNotes(ctx context.Context, _ []string) error {
	list, err := a.notes.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("You have no notes\n")
		return nil
	}

	for _, n := range list {
		title := "book #" + itoa(n.Book)
		if n.BookDetails != nil {
			title = n.BookDetails.Title
		}
		a.printf("%5d  %s: %s\n", n.ID, title, firstLine(n.Content))
	}
	return nil
}
