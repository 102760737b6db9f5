package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/bookexplorer/internal/client/catalog"
	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/config"
	"github.com/dmitrijs2005/bookexplorer/internal/client/credentials"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/client/notes"
	"github.com/dmitrijs2005/bookexplorer/internal/client/query"
	"github.com/dmitrijs2005/bookexplorer/internal/client/session"
	"github.com/dmitrijs2005/bookexplorer/internal/client/storage"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

// SessionManager is the part of session.Manager the CLI drives.
type SessionManager interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, fields map[string]string) (*models.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context)
	CurrentUser(ctx context.Context) *models.User
	IsAuthenticated(ctx context.Context) bool
	AccessTokenExpiry(ctx context.Context) (time.Time, bool)
}

// BookReader fetches a single book.
type BookReader interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
}

// BookListing is the displayed, sequence-guarded listing.
type BookListing interface {
	Fetch(ctx context.Context, spec query.Spec) (bool, error)
	Books() []models.Book
	Page() *models.BookPage
	Authors() []string
}

// NoteFlow is the note state of the opened book.
type NoteFlow interface {
	Load(book *models.Book)
	SetDraft(content string)
	Draft() string
	State() notes.State
	Note() *models.NoteRef
	Dirty() bool
	Save(ctx context.Context) (*models.NoteRef, error)
	Delete(ctx context.Context) error
}

// NoteLister lists the user's notes.
type NoteLister interface {
	List(ctx context.Context) ([]models.Note, error)
}

type App struct {
	config  *config.Config
	session SessionManager
	books   BookReader
	listing BookListing
	flow    NoteFlow
	notes   NoteLister
	log     logging.Logger
	db      *sql.DB

	reader *bufio.Reader
	out    io.Writer

	// spec holds the current listing inputs; any change re-fetches.
	spec query.Spec
	// opened is the book shown in detail, nil until "open".
	opened *models.Book
}

// NewApp opens the local database and wires every client component.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "err", err)
		return nil, err
	}

	store := credentials.NewStore(db, log)
	gw, err := client.NewHTTPClient(client.Options{
		BaseURL:             c.ServerURL,
		Timeout:             c.RequestTimeout,
		RequestsPerSecond:   c.RequestsPerSecond,
		Burst:               c.RequestBurst,
		BreakerTimeout:      c.BreakerTimeout,
		BreakerMinRequests:  c.BreakerMinRequests,
		BreakerFailureRatio: c.BreakerFailureRatio,
	}, store, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cat := catalog.NewService(gw, log)

	a := &App{
		config:  c,
		session: session.NewManager(gw, store, log),
		books:   cat,
		listing: query.NewListing(cat, log),
		flow:    notes.NewFlow(gw, log),
		notes:   notes.NewService(gw, log),
		log:     log,
		db:      db,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		spec:    query.Spec{Ordering: query.DefaultSort},
	}
	return a, nil
}

// Close releases the local database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn(ctx, "closing database", "err", err)
		}
	}()

	a.printf("Welcome to Book Explorer CLI (type 'help' for commands)\n")
	if u := a.session.CurrentUser(ctx); u != nil {
		a.printf("Signed in as %s\n", u.Username)
	}

	runREPL(ctx, a, func() string { return a.getStatus(ctx) }, a.reader)
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.session.IsAuthenticated(ctx)
}

func (a *App) getStatus(ctx context.Context) string {
	s := "guest"
	if u := a.session.CurrentUser(ctx); u != nil {
		s = u.Username
	}
	if a.opened != nil {
		s = fmt.Sprintf("%s #%d", s, a.opened.ID)
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
