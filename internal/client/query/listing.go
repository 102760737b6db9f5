package query

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

// Fetcher loads one listing from the remote store.
type Fetcher interface {
	ListBooks(ctx context.Context, spec Spec) (*models.BookPage, error)
}

// Listing is the displayed book listing.
//
// Every Fetch takes the next number of a monotonic sequence before calling
// the Fetcher. When the answer arrives it is applied only if no later Fetch
// has been issued meanwhile, so a slow earlier answer can never overwrite a
// newer one. In-flight calls are not cancelled; their answers are dropped.
//
// A failed fetch keeps the previously applied books visible and records the
// error, available from Err until the next successful fetch.
type Listing struct {
	fetcher Fetcher
	log     logging.Logger

	mu      sync.Mutex
	issued  uint64
	applied uint64
	spec    Spec
	page    *models.BookPage
	err     error
}

// NewListing returns an empty listing backed by f.
func NewListing(f Fetcher, log logging.Logger) *Listing {
	return &Listing{fetcher: f, log: log.With("component", "listing")}
}

// Fetch issues a full fetch for spec. applied reports whether the answer
// became the displayed listing. A superseded answer, successful or not,
// returns (false, nil). An invalid spec is rejected without a remote call.
func (l *Listing) Fetch(ctx context.Context, spec Spec) (applied bool, err error) {
	if err := spec.Validate(); err != nil {
		return false, err
	}

	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.mu.Unlock()

	page, fetchErr := l.fetcher.ListBooks(ctx, spec)

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.issued {
		l.log.Debug(ctx, "dropping superseded listing", "seq", seq, "latest", l.issued)
		return false, nil
	}

	if fetchErr != nil {
		l.err = fetchErr
		l.log.Warn(ctx, "listing fetch failed, keeping previous listing", "seq", seq, "err", fetchErr)
		return false, fetchErr
	}

	l.applied = seq
	l.spec = spec
	l.page = page
	l.err = nil
	l.log.Debug(ctx, "listing applied", "seq", seq, "books", len(page.Results))
	return true, nil
}

// Books returns a copy of the displayed books.
func (l *Listing) Books() []models.Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.page == nil {
		return nil
	}
	return append([]models.Book(nil), l.page.Results...)
}

// Page returns the displayed page metadata, nil before the first success.
func (l *Listing) Page() *models.BookPage {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.page == nil {
		return nil
	}
	p := *l.page
	p.Results = append([]models.Book(nil), l.page.Results...)
	return &p
}

// Spec returns the spec of the displayed listing.
func (l *Listing) Spec() Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spec
}

// Err returns the failure of the latest fetch, if it failed.
func (l *Listing) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Sequence returns the numbers of the last issued and last applied fetch.
func (l *Listing) Sequence() (issued, applied uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued, l.applied
}

// Authors returns the distinct authors of the displayed books in first-seen
// order, for an author filter picker.
func (l *Listing) Authors() []string {
	books := l.Books()

	seen := make(map[string]struct{}, len(books))
	authors := make([]string, 0, len(books))
	for _, b := range books {
		if _, ok := seen[b.Author]; ok || b.Author == "" {
			continue
		}
		seen[b.Author] = struct{}{}
		authors = append(authors, b.Author)
	}
	return authors
}
