package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/client/query"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// refetch issues a listing fetch for the current inputs and prints the
// outcome. On failure the previous listing is printed again below the
// error so the screen never goes blank.
func (a *App) refetch(ctx context.Context) error {
	applied, err := a.listing.Fetch(ctx, a.spec)
	if err != nil {
		if books := a.listing.Books(); books != nil {
			a.printf("Showing previous results:\n")
			a.printBooks(books)
		}
		return err
	}
	if applied {
		a.printBooks(a.listing.Books())
		if p := a.listing.Page(); p != nil && p.Paginated {
			a.printf("%d of %d books", len(p.Results), p.Count)
			if p.Next != nil {
				a.printf(", 'page %d' for more", max(a.spec.Page, 1)+1)
			}
			a.printf("\n")
		}
	}
	return nil
}

// Books re-fetches the listing with the current inputs.
func (a *App) Books(ctx context.Context, _ []string) error {
	return a.refetch(ctx)
}

// Search sets the search term (empty clears it) and re-fetches.
func (a *App) Search(ctx context.Context, args []string) error {
	a.spec.Search = strings.Join(args, " ")
	a.spec.Page = 0
	return a.refetch(ctx)
}

// Sort sets the sort key and re-fetches.
func (a *App) Sort(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("sort <" + sortKeysHelp() + ">")
	}
	key, err := query.ParseSortKey(args[0])
	if err != nil {
		return err
	}
	a.spec.Ordering = key
	a.spec.Page = 0
	return a.refetch(ctx)
}

// Author sets the author filter (empty clears it) and re-fetches.
func (a *App) Author(ctx context.Context, args []string) error {
	a.spec.Author = strings.Join(args, " ")
	a.spec.Page = 0
	return a.refetch(ctx)
}

// Authors prints the distinct authors of the displayed books.
func (a *App) Authors(_ context.Context, _ []string) error {
	authors := a.listing.Authors()
	if len(authors) == 0 {
		a.printf("No authors in the current listing\n")
		return nil
	}
	for _, name := range authors {
		a.printf("  %s\n", name)
	}
	return nil
}

// Page selects a page of a paginated listing and re-fetches.
func (a *App) Page(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("page <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return usage("page <n>, n >= 1")
	}
	a.spec.Page = n
	return a.refetch(ctx)
}

// Open fetches one book, shows it and loads its note into the note flow.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return usage("open <id>")
	}

	book, err := a.books.GetBook(ctx, id)
	if err != nil {
		return err
	}

	a.opened = book
	a.flow.Load(book)
	a.printBook(book)
	return nil
}

func (a *App) printBooks(books []models.Book) {
	if len(books) == 0 {
		a.printf("No books found\n")
		return
	}
	for _, b := range books {
		a.printf("%5d  %s, %s%s\n", b.ID, b.Title, b.Author, year(b.PublicationDate))
	}
}

func (a *App) printBook(b *models.Book) {
	a.printf("#%d %s\n", b.ID, b.Title)
	a.printf("Author: %s\n", b.Author)
	if b.Genre != "" {
		a.printf("Genre: %s\n", b.Genre)
	}
	if b.ISBN != nil && *b.ISBN != "" {
		a.printf("ISBN: %s\n", *b.ISBN)
	}
	if b.PageCount > 0 {
		a.printf("Pages: %d\n", b.PageCount)
	}
	if b.PublicationDate != nil && *b.PublicationDate != "" {
		a.printf("Published: %s\n", *b.PublicationDate)
	}
	if b.Description != "" {
		a.printf("\n%s\n", b.Description)
	}
	if b.UserNote != nil {
		a.printf("\nYour note:\n%s\n", b.UserNote.Content)
	}
}

func year(date *string) string {
	if date == nil || len(*date) < 4 {
		return ""
	}
	return " (" + (*date)[:4] + ")"
}

func sortKeysHelp() string {
	keys := make([]string, 0, len(query.SortKeys))
	for _, k := range query.SortKeys {
		keys = append(keys, string(k))
	}
	return strings.Join(keys, "|")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
