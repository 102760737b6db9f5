// Package catalog reads books from the remote store.
package catalog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/client/query"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

const booksPath = "/books/"

// Service is a thin typed layer over the gateway's book endpoints.
type Service struct {
	gw  client.Gateway
	log logging.Logger
}

var _ query.Fetcher = (*Service)(nil)

func NewService(gw client.Gateway, log logging.Logger) *Service {
	return &Service{gw: gw, log: log.With("component", "catalog")}
}

// ListBooks fetches the listing described by spec. The remote may answer
// with a bare array or a paginated object; both decode into a BookPage.
// The spec is expected to be validated already, as query.Listing does.
func (s *Service) ListBooks(ctx context.Context, spec query.Spec) (*models.BookPage, error) {
	var page models.BookPage
	if err := s.gw.Get(ctx, booksPath, spec.Values(), &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []models.Book{}
	}

	s.log.Debug(ctx, "books listed", "count", len(page.Results), "paginated", page.Paginated)
	return &page, nil
}

// GetBook fetches one book. For an authenticated caller the answer embeds
// the caller's note, if any.
func (s *Service) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := s.gw.Get(ctx, bookPath(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func bookPath(id int64) string {
	return fmt.Sprintf("%s%d/", booksPath, id)
}
