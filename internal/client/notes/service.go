package notes

import (
	"context"

	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

// Service lists the current user's notes across books.
type Service struct {
	gw  client.Gateway
	log logging.Logger
}

func NewService(gw client.Gateway, log logging.Logger) *Service {
	return &Service{gw: gw, log: log.With("component", "notes")}
}

// List returns the user's notes, newest first as ordered by the remote.
func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	var page models.NotePage
	if err := s.gw.Get(ctx, notesPath, nil, &page); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "notes listed", "count", len(page.Results))
	return page.Results, nil
}
