// Package credentials persists the client's session across restarts.
//
// The access token, refresh token and user identity are kept as three
// independent entries of the local metadata table. They are always written
// together inside one transaction and removed together on Clear, so a reader
// never observes a partial session.
package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/bookexplorer/internal/client/models"
	"github.com/dmitrijs2005/bookexplorer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bookexplorer/internal/client/storage"
	"github.com/dmitrijs2005/bookexplorer/internal/logging"
)

// Entry keys in the metadata table.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

var (
	// ErrNoSession is returned by Load when no usable identity is stored.
	ErrNoSession = errors.New("no session")
	// ErrIncompleteSession rejects saving a session with a missing part.
	ErrIncompleteSession = errors.New("incomplete session")
)

// Store is the SQLite-backed credential store.
type Store struct {
	db  *sql.DB
	log logging.Logger
}

// NewStore binds a Store to an opened and migrated database.
func NewStore(db *sql.DB, log logging.Logger) *Store {
	return &Store{db: db, log: log.With("component", "credentials")}
}

func (s *Store) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// Save writes all three session entries atomically.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	if !sess.Valid() {
		return ErrIncompleteSession
	}

	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return storage.WithTx(ctx, s.db, func(ctx context.Context, tx storage.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyAccessToken, []byte(sess.AccessToken)); err != nil {
			return err
		}
		if err := repo.Set(ctx, KeyRefreshToken, []byte(sess.RefreshToken)); err != nil {
			return err
		}
		return repo.Set(ctx, KeyUser, user)
	})
}

// UpdateTokens replaces the stored tokens of an existing session. An empty
// refresh keeps the current refresh token. Without a stored identity nothing
// is written and ErrNoSession is returned.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	if access == "" {
		return ErrIncompleteSession
	}

	return storage.WithTx(ctx, s.db, func(ctx context.Context, tx storage.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		user, err := repo.Get(ctx, KeyUser)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNoSession
		}

		if err := repo.Set(ctx, KeyAccessToken, []byte(access)); err != nil {
			return err
		}
		if refresh == "" {
			return nil
		}
		return repo.Set(ctx, KeyRefreshToken, []byte(refresh))
	})
}

// Clear removes all session entries. It is idempotent and never fails:
// storage errors are logged and swallowed.
func (s *Store) Clear(ctx context.Context) {
	if err := s.repo().Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		s.log.Error(ctx, "clear credentials", "err", err)
	}
}

// Load returns the stored session. A missing or unparseable identity, a
// missing token, or an unreadable store all yield ErrNoSession.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	repo := s.repo()

	raw, err := repo.Get(ctx, KeyUser)
	if err != nil {
		s.log.Warn(ctx, "read stored user", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if raw == nil {
		return nil, ErrNoSession
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		s.log.Warn(ctx, "stored user is corrupt", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	access, err := repo.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	refresh, err := repo.Get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	sess := &models.Session{User: user, AccessToken: string(access), RefreshToken: string(refresh)}
	if !sess.Valid() {
		s.log.Warn(ctx, "stored session is incomplete")
		return nil, ErrNoSession
	}
	return sess, nil
}

// HasAccessToken reports whether an access token entry exists without
// decoding the identity.
func (s *Store) HasAccessToken(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// AccessToken returns the stored access token, if any.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	v, err := s.repo().Get(ctx, KeyAccessToken)
	if err != nil {
		s.log.Warn(ctx, "read access token", "err", err)
		return "", false
	}
	if len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	v, err := s.repo().Get(ctx, KeyRefreshToken)
	if err != nil || len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// AccessTokenExpiry reads the exp claim of the stored access token. The
// signature is not verified: the client cannot, and only uses the value for
// display.
func (s *Store) AccessTokenExpiry(ctx context.Context) (time.Time, bool) {
	token, ok := s.AccessToken(ctx)
	if !ok {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}

// TokenExpiry extracts the exp claim of a JWT without verifying it.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
