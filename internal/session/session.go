// Package session holds the signed-in user and their bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/idilsaglam/tada/internal/model"
)

var ErrNotAuthenticated = errors.New("not logged in")

// Authenticator is the part of the API the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (model.User, error)
}

// Session is the single owner of the token and user identity. The token's
// presence is the only authentication signal; the server decides validity.
type Session struct {
	store *Store
	log   *slog.Logger

	mu      sync.RWMutex
	auth    Authenticator
	token   string
	user    *model.User
	source  string
	loading bool
	err     string
}

// New restores a session from the credentials store.
func New(store *Store, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{store: store, log: logger}
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	if creds != nil {
		s.token = creds.Token
		s.user = creds.User
		s.source = creds.Source
	}
	return s, nil
}

// SetAuthenticator wires the remote calls. The API client needs the session
// as its token source, so it is attached after construction.
func (s *Session) SetAuthenticator(a Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, or false when none is known.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsAuthenticated() bool { return s.Token() != "" }

func (s *Session) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.IsAdmin()
}

// UserName is the display name, "Guest" when nobody is signed in.
func (s *Session) UserName() string {
	if u, ok := s.User(); ok && u.Name != "" {
		return u.Name
	}
	return "Guest"
}

// Source reports where the token came from: "env", "file" or "".
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// ExpiresAt reads the exp claim when the token is a JWT. The signature is
// not checked; the result is informational only.
func (s *Session) ExpiresAt() (time.Time, bool) {
	tok := s.Token()
	if strings.Count(tok, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Claims decodes the token payload without verifying it.
func (s *Session) Claims() (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token(), claims); err != nil {
		return nil, false
	}
	return claims, true
}

func (s *Session) begin() (Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth == nil {
		return nil, errors.New("session: no authenticator configured")
	}
	s.loading = true
	s.err = ""
	return s.auth, nil
}

func (s *Session) settle(err error, fallback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		s.err = msg
	}
}

// Login exchanges credentials for a token and persists it.
func (s *Session) Login(ctx context.Context, creds model.LoginCredentials) (resp model.AuthResponse, err error) {
	auth, err := s.begin()
	if err != nil {
		return model.AuthResponse{}, err
	}
	defer func() { s.settle(err, "Login failed") }()

	resp, err = auth.Login(ctx, creds)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if err := s.adopt(resp); err != nil {
		return model.AuthResponse{}, err
	}
	return resp, nil
}

// Register creates an account and signs in as it.
func (s *Session) Register(ctx context.Context, data model.RegisterData) (resp model.AuthResponse, err error) {
	auth, err := s.begin()
	if err != nil {
		return model.AuthResponse{}, err
	}
	defer func() { s.settle(err, "Registration failed") }()

	resp, err = auth.Register(ctx, data)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if err := s.adopt(resp); err != nil {
		return model.AuthResponse{}, err
	}
	return resp, nil
}

func (s *Session) adopt(resp model.AuthResponse) error {
	if resp.AccessToken == "" {
		return errors.New("server returned no access token")
	}
	if err := s.store.Save(resp.AccessToken, resp.User); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	user := resp.User
	s.mu.Lock()
	s.token = resp.AccessToken
	s.user = &user
	s.source = SourceFile
	s.mu.Unlock()
	return nil
}

// Logout revokes the token server-side when possible and always forgets it
// locally. A token supplied through TADA_TOKEN is forgotten for this
// process but there is no file to delete.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	auth, hadToken, source := s.auth, s.token != "", s.source
	s.mu.Unlock()

	if auth != nil && hadToken {
		if err := auth.Logout(ctx); err != nil {
			s.log.Warn("remote logout failed", "error", err)
		}
	}

	var err error
	if source != SourceEnv {
		err = s.store.Delete()
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.source = ""
	s.loading = false
	s.mu.Unlock()
	return err
}

// Refresh reloads the user from GET /user and persists it alongside the
// token.
func (s *Session) Refresh(ctx context.Context) (user model.User, err error) {
	if !s.IsAuthenticated() {
		return model.User{}, ErrNotAuthenticated
	}
	auth, err := s.begin()
	if err != nil {
		return model.User{}, err
	}
	defer func() { s.settle(err, "Failed to load user") }()

	user, err = auth.CurrentUser(ctx)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	s.user = &user
	token, source := s.token, s.source
	s.mu.Unlock()

	if source == SourceFile {
		if err := s.store.Save(token, user); err != nil {
			s.log.Warn("persist refreshed user failed", "error", err)
		}
	}
	return user, nil
}

// UseToken adopts a token obtained elsewhere, such as one pasted by the
// user, and loads its owner. The token is only kept if the server accepts it.
func (s *Session) UseToken(ctx context.Context, token string) (model.User, error) {
	token = stripBearer(token)
	if token == "" {
		return model.User{}, ErrNotAuthenticated
	}

	s.mu.Lock()
	prevToken, prevUser, prevSource := s.token, s.user, s.source
	s.token, s.user, s.source = token, nil, SourceFile
	s.mu.Unlock()

	user, err := s.Refresh(ctx)
	if err != nil {
		s.mu.Lock()
		s.token, s.user, s.source = prevToken, prevUser, prevSource
		s.mu.Unlock()
		return model.User{}, err
	}
	return user, nil
}
