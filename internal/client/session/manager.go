// Package session owns the authenticated/unauthenticated state of the
// client.
//
// There are two states. Unauthenticated is initial; a successful Login or
// Register moves to Authenticated; Logout moves back unconditionally. A
// failed Login or Register leaves the state and the stored credentials
// untouched. Token expiry is never acted on here: it surfaces as a request
// error from the gateway and the session stays as it is until the user
// refreshes or logs out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/bookexplorer/internal/client/client"
	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

// Remote paths of the credential-issuing endpoints.
const (
	LoginPath    = "/auth/login/"
	RegisterPath = "/auth/register/"
	RefreshPath  = "/auth/refresh/"
)

var (
	// ErrMalformedResponse is returned when the token payload lacks a part.
	ErrMalformedResponse = errors.New("malformed token response")
	// ErrNotAuthenticated is returned by Refresh without a stored session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// CredentialStore is the persistence the manager needs.
type CredentialStore interface {
	Save(ctx context.Context, sess models.Session) error
	UpdateTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context)
	Load(ctx context.Context) (*models.Session, error)
	HasAccessToken(ctx context.Context) bool
	RefreshToken(ctx context.Context) (string, bool)
	AccessTokenExpiry(ctx context.Context) (time.Time, bool)
}

// tokenResponse is the payload of the login and register endpoints.
type tokenResponse struct {
	Access  string       `json:"access" validate:"required"`
	Refresh string       `json:"refresh" validate:"required"`
	User    *models.User `json:"user" validate:"required"`
}

type refreshResponse struct {
	Access  string `json:"access" validate:"required"`
	Refresh string `json:"refresh"`
}

// Manager orchestrates login, registration, refresh and logout.
type Manager struct {
	gw       client.Gateway
	store    CredentialStore
	validate *validator.Validate
	log      logging.Logger
}

// NewManager wires a manager to the gateway and the credential store.
func NewManager(gw client.Gateway, store CredentialStore, log logging.Logger) *Manager {
	return &Manager{
		gw:       gw,
		store:    store,
		validate: validator.New(),
		log:      log.With("component", "session"),
	}
}

// Login exchanges username and password for a session. The remote error is
// returned unchanged so its message can be shown as is.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	body := map[string]string{"username": username, "password": password}

	user, err := m.authenticate(ctx, LoginPath, body)
	if err != nil {
		m.log.Info(ctx, "login failed", "username", username, "err", client.Message(err))
		return nil, err
	}
	m.log.Info(ctx, "logged in", "username", user.Username)
	return user, nil
}

// Register creates an account from an arbitrary field set and starts a
// session for it.
func (m *Manager) Register(ctx context.Context, fields map[string]string) (*models.User, error) {
	user, err := m.authenticate(ctx, RegisterPath, fields)
	if err != nil {
		m.log.Info(ctx, "registration failed", "username", fields["username"], "err", client.Message(err))
		return nil, err
	}
	m.log.Info(ctx, "registered", "username", user.Username)
	return user, nil
}

func (m *Manager) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	var resp tokenResponse
	if err := m.gw.Post(ctx, path, body, &resp); err != nil {
		return nil, err
	}

	if err := m.validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	sess := models.Session{User: *resp.User, AccessToken: resp.Access, RefreshToken: resp.Refresh}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	user := sess.User
	return &user, nil
}

// Refresh trades the stored refresh token for a new access token. On any
// failure the stored session is left as it was; the user is not logged out.
func (m *Manager) Refresh(ctx context.Context) error {
	refresh, ok := m.store.RefreshToken(ctx)
	if !ok {
		return ErrNotAuthenticated
	}

	var resp refreshResponse
	if err := m.gw.Post(ctx, RefreshPath, map[string]string{"refresh": refresh}, &resp); err != nil {
		m.log.Info(ctx, "token refresh failed", "err", client.Message(err))
		return err
	}
	if err := m.validate.Struct(resp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := m.store.UpdateTokens(ctx, resp.Access, resp.Refresh); err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	m.log.Info(ctx, "access token refreshed", "rotated", resp.Refresh != "")
	return nil
}

// Logout forgets the session. It has no remote call and cannot fail.
func (m *Manager) Logout(ctx context.Context) {
	m.store.Clear(ctx)
	m.log.Info(ctx, "logged out")
}

// CurrentUser returns the stored identity, or nil when logged out.
func (m *Manager) CurrentUser(ctx context.Context) *models.User {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil
	}
	return &sess.User
}

// IsAuthenticated reports whether an access token is stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.store.HasAccessToken(ctx)
}

// AccessTokenExpiry reports when the stored access token expires, if known.
func (m *Manager) AccessTokenExpiry(ctx context.Context) (time.Time, bool) {
	return m.store.AccessTokenExpiry(ctx)
}
