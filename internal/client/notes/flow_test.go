package notes

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bookexplorer/internal/client/catalog"
	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/credentials"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/client/session"
	"github.com/dmitrijs2005/bookexplorer/internal/client/storage"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
	"github.com/dmitrijs2005/bookexplorer/internal/testserver"
)

type fixture struct {
	srv     *testserver.Server
	catalog *catalog.Service
	flow    *Flow
	notes   *Service
}

// newFixture starts a fake store with book 7 and a logged in alice.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := testserver.New(t)
	srv.AddUser("alice", "pw")
	srv.AddBook(models.Book{ID: 7, Title: "Middlemarch", Author: "George Eliot"})

	store := credentials.NewStore(db, logging.Discard())
	gw, err := client.NewHTTPClient(client.Options{BaseURL: srv.URL(), Timeout: 5 * time.Second}, store, logging.Discard())
	require.NoError(t, err)

	_, err = session.NewManager(gw, store, logging.Discard()).Login(ctx, "alice", "pw")
	require.NoError(t, err)

	return &fixture{
		srv:     srv,
		catalog: catalog.NewService(gw, logging.Discard()),
		flow:    NewFlow(gw, logging.Discard()),
		notes:   NewService(gw, logging.Discard()),
	}
}

func (f *fixture) open(t *testing.T, id int64) {
	t.Helper()
	b, err := f.catalog.GetBook(context.Background(), id)
	require.NoError(t, err)
	f.flow.Load(b)
}

func TestFlow_Book7Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, 7)
	assert.Equal(t, StateAbsent, f.flow.State())
	assert.Nil(t, f.flow.Note())

	f.flow.SetDraft("ok")
	saved, err := f.flow.Save(ctx)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "ok", saved.Content)
	assert.Equal(t, StateLoaded, f.flow.State())
	assert.Equal(t, saved.ID, f.flow.Note().ID)

	req := f.srv.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"book":7,"content":"ok"}`, req.Body)

	require.NoError(t, f.flow.Delete(ctx))
	assert.Equal(t, StateAbsent, f.flow.State())
	assert.Empty(t, f.flow.Draft())
	assert.Zero(t, f.srv.NoteCount())
}

func TestFlow_RoundTripThroughDetailFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, 7)
	f.flow.SetDraft("X")
	created, err := f.flow.Save(ctx)
	require.NoError(t, err)

	f.open(t, 7)
	require.Equal(t, StateLoaded, f.flow.State())
	assert.Equal(t, "X", f.flow.Note().Content)
	assert.Equal(t, "X", f.flow.Draft())
	assert.False(t, f.flow.Dirty())

	f.flow.SetDraft("Y")
	assert.True(t, f.flow.Dirty())
	_, err = f.flow.Save(ctx)
	require.NoError(t, err)

	req := f.srv.LastRequest()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/notes/"+itoa(created.ID)+"/", req.Path)
	assert.JSONEq(t, `{"content":"Y"}`, req.Body)

	f.open(t, 7)
	require.Equal(t, StateLoaded, f.flow.State())
	assert.Equal(t, created.ID, f.flow.Note().ID)
	assert.Equal(t, "Y", f.flow.Note().Content)

	require.NoError(t, f.flow.Delete(ctx))

	f.open(t, 7)
	assert.Equal(t, StateAbsent, f.flow.State())
	assert.Empty(t, f.flow.Draft())
}

func TestFlow_FailedSaveKeepsStateAndDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, 7)
	f.flow.SetDraft("   ")

	_, err := f.flow.Save(ctx)
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "content: This field may not be blank.", client.Message(err))
	assert.Equal(t, StateAbsent, f.flow.State())
	assert.Equal(t, "   ", f.flow.Draft())

	f.flow.SetDraft("first")
	_, err = f.flow.Save(ctx)
	require.NoError(t, err)
	before := f.flow.Note()

	f.srv.FailNext(http.StatusServiceUnavailable, ``)
	f.flow.SetDraft("second")
	_, err = f.flow.Save(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, StateLoaded, f.flow.State())
	assert.Equal(t, before, f.flow.Note())
	assert.Equal(t, "second", f.flow.Draft())
}

func TestFlow_FailedDeleteKeepsLoaded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, 7)
	f.flow.SetDraft("keep me")
	_, err := f.flow.Save(ctx)
	require.NoError(t, err)

	f.srv.FailNext(http.StatusInternalServerError, `{"detail":"boom"}`)
	err = f.flow.Delete(ctx)
	require.ErrorIs(t, err, client.ErrServer)
	assert.Equal(t, StateLoaded, f.flow.State())
	assert.Equal(t, "keep me", f.flow.Draft())
	assert.Equal(t, 1, f.srv.NoteCount())
}

func TestFlow_DeleteWhileAbsentIssuesNothing(t *testing.T) {
	f := newFixture(t)

	f.open(t, 7)
	f.flow.SetDraft("unsaved")
	requests := len(f.srv.Requests())

	require.NoError(t, f.flow.Delete(context.Background()))
	assert.Len(t, f.srv.Requests(), requests)
	assert.Equal(t, "unsaved", f.flow.Draft())
}

func TestFlow_SaveBeforeLoad(t *testing.T) {
	f := newFixture(t)

	_, err := f.flow.Save(context.Background())
	require.ErrorIs(t, err, ErrNoBook)
}

func TestFlow_LoadIgnoresOtherUsersNotes(t *testing.T) {
	f := newFixture(t)
	bob := f.srv.AddUser("bob", "pw")
	f.srv.AddNote(bob.ID, 7, "bob's")

	f.open(t, 7)
	assert.Equal(t, StateAbsent, f.flow.State())
}

// blockingGateway holds every write until release is closed.
type blockingGateway struct {
	client.Gateway
	started chan struct{}
	release chan struct{}
	calls   int
}

func (g *blockingGateway) Post(ctx context.Context, path string, body, out any) error {
	g.calls++
	close(g.started)
	<-g.release
	if n, ok := out.(*models.Note); ok {
		*n = models.Note{ID: 99, Book: 7, Content: "ok"}
	}
	return nil
}

func (g *blockingGateway) Delete(context.Context, string) error {
	g.calls++
	close(g.started)
	<-g.release
	return nil
}

func (g *blockingGateway) Get(context.Context, string, url.Values, any) error { return nil }

func TestFlow_InFlightLatchRejectsDoubleSubmit(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	flow := NewFlow(gw, logging.Discard())
	flow.Load(&models.Book{ID: 7})
	flow.SetDraft("ok")

	done := make(chan error, 1)
	go func() {
		_, err := flow.Save(context.Background())
		done <- err
	}()
	<-gw.started

	_, err := flow.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, flow.Delete(context.Background()), ErrBusy)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, int64(99), flow.Note().ID)
}

func TestFlow_LateSaveDoesNotLeakIntoNextBook(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	flow := NewFlow(gw, logging.Discard())
	flow.Load(&models.Book{ID: 7})
	flow.SetDraft("ok")

	done := make(chan error, 1)
	var saved *models.NoteRef
	go func() {
		var err error
		saved, err = flow.Save(context.Background())
		done <- err
	}()
	<-gw.started

	flow.Load(&models.Book{ID: 8})
	flow.SetDraft("eight")

	close(gw.release)
	require.NoError(t, <-done)
	require.NotNil(t, saved)
	assert.Equal(t, int64(99), saved.ID)

	assert.Equal(t, int64(8), flow.BookID())
	assert.Equal(t, StateAbsent, flow.State())
	assert.Nil(t, flow.Note())
	assert.Equal(t, "eight", flow.Draft())
}

func TestFlow_LateDeleteDoesNotClearNextBook(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	flow := NewFlow(gw, logging.Discard())
	flow.Load(&models.Book{ID: 7, UserNote: &models.NoteRef{ID: 4, Content: "seven"}})

	done := make(chan error, 1)
	go func() { done <- flow.Delete(context.Background()) }()
	<-gw.started

	flow.Load(&models.Book{ID: 8, UserNote: &models.NoteRef{ID: 5, Content: "eight"}})

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.calls)

	assert.Equal(t, StateLoaded, flow.State())
	require.NotNil(t, flow.Note())
	assert.Equal(t, int64(5), flow.Note().ID)
	assert.Equal(t, "eight", flow.Draft())
}

// idlessGateway answers a create with a note that has no id.
type idlessGateway struct {
	client.Gateway
	calls int
}

func (g *idlessGateway) Post(_ context.Context, _ string, _, out any) error {
	g.calls++
	if n, ok := out.(*models.Note); ok {
		*n = models.Note{Book: 7, Content: "ok"}
	}
	return nil
}

func TestFlow_CreateWithoutIDStaysAbsent(t *testing.T) {
	gw := &idlessGateway{}
	flow := NewFlow(gw, logging.Discard())
	flow.Load(&models.Book{ID: 7})
	flow.SetDraft("ok")

	ref, err := flow.Save(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Nil(t, ref)
	assert.Equal(t, 1, gw.calls)

	assert.Equal(t, StateAbsent, flow.State())
	assert.Nil(t, flow.Note())
	assert.Equal(t, "ok", flow.Draft())
}

func TestService_ListOwnNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.AddBook(models.Book{ID: 8, Title: "Adam Bede", Author: "George Eliot"})

	f.open(t, 7)
	f.flow.SetDraft("seven")
	_, err := f.flow.Save(ctx)
	require.NoError(t, err)

	f.open(t, 8)
	f.flow.SetDraft("eight")
	_, err = f.flow.Save(ctx)
	require.NoError(t, err)

	for _, paginate := range []bool{false, true} {
		f.srv.Paginate = paginate

		list, err := f.notes.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "eight", list[0].Content)
		require.NotNil(t, list[0].BookDetails)
		assert.Equal(t, "Adam Bede", list[0].BookDetails.Title)
		assert.Equal(t, int64(7), list[1].Book)
	}
}

func TestService_ListRequiresLogin(t *testing.T) {
	srv := testserver.New(t)
	gw, err := client.NewHTTPClient(client.Options{BaseURL: srv.URL()}, nil, logging.Discard())
	require.NoError(t, err)

	_, err = NewService(gw, logging.Discard()).List(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "loaded", StateLoaded.String())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
