package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/idilsaglam/tada/internal/model"
)

const (
	credFileName = "credentials.json"
	tokenEnv     = "TADA_TOKEN"

	SourceEnv  = "env"
	SourceFile = "file"
)

// Credentials is what survives between runs: the bearer token and the user
// it belongs to.
type Credentials struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user,omitempty"`
	Source    string      `json:"source"`     // "env" | "file"
	CreatedAt time.Time   `json:"created_at"` // when we saved to file
}

// Store reads and writes the credentials file in a directory.
type Store struct {
	dir string
}

// NewStore keeps credentials under dir; an empty dir means ~/.tada.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home: %w", err)
		}
		dir = filepath.Join(home, ".tada")
	}
	return &Store{dir: dir}, nil
}

// Path is the credentials file location.
func (s *Store) Path() string { return filepath.Join(s.dir, credFileName) }

// Load returns the persisted credentials, nil when logged out. TADA_TOKEN
// overrides the file's token; the file's user is still used when present.
func (s *Store) Load() (*Credentials, error) {
	fromFile, err := s.readFile()
	if err != nil {
		return nil, err
	}

	if env := strings.TrimSpace(os.Getenv(tokenEnv)); env != "" {
		c := &Credentials{Token: stripBearer(env), Source: SourceEnv}
		if fromFile != nil {
			c.User = fromFile.User
		}
		return c, nil
	}
	return fromFile, nil
}

func (s *Store) readFile() (*Credentials, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	c.Token = stripBearer(c.Token)
	if c.Token == "" {
		return nil, nil
	}
	c.Source = SourceFile
	return &c, nil
}

// Save writes token and user with owner-only permissions.
func (s *Store) Save(token string, user model.User) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	c := Credentials{
		Token:     token,
		User:      &user,
		Source:    SourceFile,
		CreatedAt: time.Now(),
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.Path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the credentials file; a missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
