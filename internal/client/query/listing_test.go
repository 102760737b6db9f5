package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

type reply struct {
	page *models.BookPage
	err  error
}

type pendingCall struct {
	spec  Spec
	reply chan reply
}

// manualFetcher blocks every ListBooks until the test answers it.
type manualFetcher struct {
	calls chan pendingCall
}

func newManualFetcher() *manualFetcher {
	return &manualFetcher{calls: make(chan pendingCall, 8)}
}

func (f *manualFetcher) ListBooks(ctx context.Context, spec Spec) (*models.BookPage, error) {
	c := pendingCall{spec: spec, reply: make(chan reply, 1)}
	f.calls <- c
	r := <-c.reply
	return r.page, r.err
}

func (f *manualFetcher) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not issued")
		return pendingCall{}
	}
}

type outcome struct {
	applied bool
	err     error
}

func fetchAsync(l *Listing, spec Spec) <-chan outcome {
	done := make(chan outcome, 1)
	go func() {
		applied, err := l.Fetch(context.Background(), spec)
		done <- outcome{applied, err}
	}()
	return done
}

func wait(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not complete")
		return outcome{}
	}
}

func pageOf(titles ...string) *models.BookPage {
	p := &models.BookPage{Count: len(titles)}
	for i, title := range titles {
		p.Results = append(p.Results, models.Book{ID: int64(i + 1), Title: title, Author: "Author " + title})
	}
	return p
}

func titles(books []models.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestListing_LateEarlierResponseIsDropped(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	doneA := fetchAsync(l, Spec{Search: "a"})
	callA := f.next(t)
	doneB := fetchAsync(l, Spec{Search: "ab"})
	callB := f.next(t)

	assert.Equal(t, "a", callA.spec.Search)
	assert.Equal(t, "ab", callB.spec.Search)

	callB.reply <- reply{page: pageOf("about")}
	require.Equal(t, outcome{applied: true}, wait(t, doneB))

	callA.reply <- reply{page: pageOf("apple", "about")}
	require.Equal(t, outcome{applied: false}, wait(t, doneA))

	assert.Equal(t, []string{"about"}, titles(l.Books()))
	assert.Equal(t, "ab", l.Spec().Search)

	issued, applied := l.Sequence()
	assert.Equal(t, uint64(2), issued)
	assert.Equal(t, uint64(2), applied)
}

func TestListing_EarlierResponseArrivingFirstIsDroppedToo(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	doneA := fetchAsync(l, Spec{Search: "a"})
	callA := f.next(t)
	doneB := fetchAsync(l, Spec{Search: "ab"})
	callB := f.next(t)

	callA.reply <- reply{page: pageOf("apple")}
	require.Equal(t, outcome{applied: false}, wait(t, doneA))
	assert.Nil(t, l.Books())

	callB.reply <- reply{page: pageOf("about")}
	require.Equal(t, outcome{applied: true}, wait(t, doneB))
	assert.Equal(t, []string{"about"}, titles(l.Books()))
}

func TestListing_StaleFailureIsIgnored(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	doneA := fetchAsync(l, Spec{Search: "a"})
	callA := f.next(t)
	doneB := fetchAsync(l, Spec{Search: "ab"})
	callB := f.next(t)

	callB.reply <- reply{page: pageOf("about")}
	wait(t, doneB)

	callA.reply <- reply{err: errors.New("timeout")}
	assert.Equal(t, outcome{}, wait(t, doneA))
	assert.NoError(t, l.Err())
	assert.Equal(t, []string{"about"}, titles(l.Books()))
}

func TestListing_FailureRetainsPreviousBooks(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())
	boom := errors.New("network down")

	done := fetchAsync(l, Spec{Ordering: SortTitle})
	f.next(t).reply <- reply{page: pageOf("Dune", "Emma")}
	require.True(t, wait(t, done).applied)

	done = fetchAsync(l, Spec{Ordering: SortTitle, Search: "x"})
	f.next(t).reply <- reply{err: boom}
	o := wait(t, done)
	assert.False(t, o.applied)
	assert.ErrorIs(t, o.err, boom)

	assert.Equal(t, []string{"Dune", "Emma"}, titles(l.Books()))
	assert.Equal(t, "", l.Spec().Search, "spec of the displayed listing is unchanged")
	assert.ErrorIs(t, l.Err(), boom)

	done = fetchAsync(l, Spec{Ordering: SortTitle})
	f.next(t).reply <- reply{page: pageOf("Dune")}
	require.True(t, wait(t, done).applied)
	assert.NoError(t, l.Err())
}

func TestListing_InvalidSpecIssuesNothing(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	applied, err := l.Fetch(context.Background(), Spec{Ordering: "rating"})
	assert.False(t, applied)
	assert.ErrorIs(t, err, ErrInvalidSort)
	assert.Empty(t, f.calls)

	issued, _ := l.Sequence()
	assert.Zero(t, issued)
}

func TestListing_AuthorsDistinctInFirstSeenOrder(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	page := &models.BookPage{Results: []models.Book{
		{ID: 1, Title: "Emma", Author: "Jane Austen"},
		{ID: 2, Title: "Dune", Author: "Frank Herbert"},
		{ID: 3, Title: "Persuasion", Author: "Jane Austen"},
		{ID: 4, Title: "Anonymous", Author: ""},
	}}

	done := fetchAsync(l, Spec{})
	f.next(t).reply <- reply{page: page}
	wait(t, done)

	assert.Equal(t, []string{"Jane Austen", "Frank Herbert"}, l.Authors())
}

func TestListing_BooksReturnsCopy(t *testing.T) {
	f := newManualFetcher()
	l := NewListing(f, logging.Discard())

	done := fetchAsync(l, Spec{})
	f.next(t).reply <- reply{page: pageOf("Dune")}
	wait(t, done)

	books := l.Books()
	books[0].Title = "changed"
	assert.Equal(t, "Dune", l.Books()[0].Title)
	assert.Equal(t, "Dune", l.Page().Results[0].Title)
}
