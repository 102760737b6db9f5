// Package testserver runs an in-process fake of the Book Explorer REST store
// for tests. It mimics the answers of the real service closely enough for
// the client core: bearer tokens, the one-note-per-user-and-book rule,
// field-error bodies, optional pagination and detail payloads embedding the
// caller's note.
package testserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
)

// Request is a recorded incoming call.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          string
}

type account struct {
	user     models.User
	password string
}

type note struct {
	models.Note
	owner int64
}

type injected struct {
	status int
	body   string
}

// Server is a running fake store. All methods are safe for concurrent use.
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account
	access     map[string]int64
	refresh    map[string]int64
	books      map[int64]models.Book
	notes      map[int64]*note
	nextUserID int64
	nextBookID int64
	nextNoteID int64
	tokenSeq   int
	requests   []Request
	failures   []injected

	// Paginate wraps collection answers in {count,next,previous,results}.
	Paginate bool
	// RotateRefresh makes /auth/refresh/ issue a new refresh token too.
	RotateRefresh bool
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts: make(map[string]*account),
		access:   make(map[string]int64),
		refresh:  make(map[string]int64),
		books:    make(map[int64]models.Book),
		notes:    make(map[int64]*note),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL (including the /api prefix).
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Close stops the server; later calls fail at the transport level.
func (s *Server) Close() { s.srv.Close() }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login/", s.login)
		r.Post("/auth/register/", s.register)
		r.Post("/auth/refresh/", s.refreshToken)

		r.Get("/books/", s.listBooks)
		r.Get("/books/{id}/", s.getBook)

		r.Get("/notes/", s.listNotes)
		r.Post("/notes/", s.createNote)
		r.Patch("/notes/{id}/", s.updateNote)
		r.Delete("/notes/{id}/", s.deleteNote)
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, "")
}

func (s *Server) addUserLocked(username, password, email string) models.User {
	s.nextUserID++
	u := models.User{ID: s.nextUserID, Username: username, Email: email}
	s.accounts[username] = &account{user: u, password: password}
	return u
}

// AddBook stores b, assigning an id when b.ID is zero.
func (s *Server) AddBook(b models.Book) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == 0 {
		s.nextBookID++
		b.ID = s.nextBookID
	} else if b.ID > s.nextBookID {
		s.nextBookID = b.ID
	}
	b.UserNote = nil
	s.books[b.ID] = b
	return b
}

// AddNote stores a note for the given user directly.
func (s *Server) AddNote(userID, bookID int64, content string) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNoteID++
	now := time.Now().UTC()
	n := &note{Note: models.Note{ID: s.nextNoteID, Book: bookID, Content: content, CreatedAt: now, UpdatedAt: now}, owner: userID}
	s.notes[n.ID] = n
	return n.Note
}

// NoteCount is the number of stored notes across all users.
func (s *Server) NoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// RevokeAccess invalidates every issued access token, as if they expired.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]int64)
}

// FailNext makes the next request answer with status and raw body.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, injected{status: status, body: body})
}

// Requests returns the recorded calls in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *injected
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller resolves the bearer token. ok is false when a token was presented
// but is not valid; uid is zero for anonymous calls.
func (s *Server) caller(r *http.Request) (uid int64, ok bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return 0, true
	}
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok = s.access[token]
	return uid, ok
}

// authenticate writes a 401 and returns false when the call is not allowed.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, required bool) (int64, bool) {
	uid, ok := s.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
		return 0, false
	}
	if required && uid == 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return 0, false
	}
	return uid, true
}

func (s *Server) issueLocked(uid int64) (string, string) {
	s.tokenSeq++
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(uid, 10),
		ID:        strconv.Itoa(s.tokenSeq),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	refresh := fmt.Sprintf("refresh-%d-%d", uid, s.tokenSeq)
	s.access[access] = uid
	s.refresh[refresh] = uid
	return access, refresh
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[in.Username]
	if !ok || acc.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid credentials"})
		return
	}

	access, refresh := s.issueLocked(acc.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"access": access, "refresh": refresh, "user": acc.user})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in map[string]string
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case in["username"] == "":
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"This field is required."}})
		return
	case in["password"] == "":
		writeJSON(w, http.StatusBadRequest, map[string]any{"password": []string{"This field is required."}})
		return
	case s.accounts[in["username"]] != nil:
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		return
	}

	u := s.addUserLocked(in["username"], in["password"], in["email"])
	access, refresh := s.issueLocked(u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"access": access, "refresh": refresh, "user": u})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.refresh[in.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, refresh := s.issueLocked(uid)
	out := map[string]any{"access": access}
	if s.RotateRefresh {
		delete(s.refresh, in.Refresh)
		out["refresh"] = refresh
	} else {
		delete(s.refresh, refresh)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r, false); !ok {
		return
	}

	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	author := strings.ToLower(q.Get("author"))

	s.mu.Lock()
	books := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) &&
			!strings.Contains(strings.ToLower(b.Description), search) {
			continue
		}
		if author != "" && strings.ToLower(b.Author) != author {
			continue
		}
		books = append(books, b)
	}
	paginate := s.Paginate
	s.mu.Unlock()

	orderBooks(books, q.Get("ordering"))

	if paginate {
		writeJSON(w, http.StatusOK, map[string]any{"count": len(books), "next": nil, "previous": nil, "results": books})
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func orderBooks(books []models.Book, ordering string) {
	field, desc := strings.TrimPrefix(ordering, "-"), strings.HasPrefix(ordering, "-")

	key := func(b models.Book) string {
		switch field {
		case "author":
			return b.Author
		case "publication_date":
			if b.PublicationDate == nil {
				return ""
			}
			return *b.PublicationDate
		default:
			return b.Title
		}
	}

	sort.SliceStable(books, func(i, j int) bool {
		ki, kj := key(books[i]), key(books[j])
		if ki == kj {
			return books[i].ID < books[j].ID
		}
		if desc {
			return ki > kj
		}
		return ki < kj
	})
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r, false)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}

	s.mu.Lock()
	b, found := s.books[id]
	if found && uid != 0 {
		for _, n := range s.notes {
			if n.owner == uid && n.Book == id {
				b.UserNote = n.Ref()
				break
			}
		}
	}
	s.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r, true)
	if !ok {
		return
	}

	s.mu.Lock()
	out := make([]models.Note, 0)
	for _, n := range s.notes {
		if n.owner != uid {
			continue
		}
		item := n.Note
		if b, ok := s.books[n.Book]; ok {
			item.BookDetails = &b
		}
		out = append(out, item)
	}
	paginate := s.Paginate
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if paginate {
		writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "next": nil, "previous": nil, "results": out})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r, true)
	if !ok {
		return
	}

	var in struct {
		Book    json.Number `json:"book"`
		Content string      `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	bookID, _ := in.Book.Int64()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"book": []string{fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", in.Book)}})
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"content": []string{"This field may not be blank."}})
		return
	}
	for _, n := range s.notes {
		if n.owner == uid && n.Book == bookID {
			writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"The fields user, book must make a unique set."}})
			return
		}
	}

	s.nextNoteID++
	now := time.Now().UTC()
	n := &note{Note: models.Note{ID: s.nextNoteID, Book: bookID, Content: in.Content, CreatedAt: now, UpdatedAt: now}, owner: uid}
	s.notes[n.ID] = n
	writeJSON(w, http.StatusCreated, n.Note)
}

// ownedNote resolves {id} to a note of uid, writing a 404 otherwise.
// Must be called with s.mu held.
func (s *Server) ownedNoteLocked(w http.ResponseWriter, r *http.Request, uid int64) *note {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err == nil {
		if n, ok := s.notes[id]; ok && n.owner == uid {
			return n
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
	return nil
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r, true)
	if !ok {
		return
	}

	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ownedNoteLocked(w, r, uid)
	if n == nil {
		return
	}

	if raw, present := in["content"]; present {
		content, _ := raw.(string)
		if strings.TrimSpace(content) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"content": []string{"This field may not be blank."}})
			return
		}
		n.Content = content
		n.UpdatedAt = time.Now().UTC()
	}
	writeJSON(w, http.StatusOK, n.Note)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.authenticate(w, r, true)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ownedNoteLocked(w, r, uid)
	if n == nil {
		return
	}
	delete(s.notes, n.ID)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
