package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// sessionFormat is bumped whenever the stored layout changes. A file in any
// other format reads as signed out, so the user signs in again.
const sessionFormat = 1

type storedSession struct {
	Format  int           `json:"format"`
	SavedAt time.Time     `json:"savedAt"`
	Token   *oauth2.Token `json:"token"`
}

// SessionFile persists the signed-in session between runs. Writes replace
// the file atomically so a crash never leaves half a token behind.
type SessionFile struct {
	path string
}

// NewSessionFile returns a SessionFile stored at path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Load returns the stored token, or (nil, nil) when nobody is signed in.
func (f *SessionFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var s storedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", f.path, err)
	}
	if s.Format != sessionFormat || s.Token == nil || s.Token.AccessToken == "" {
		return nil, nil
	}
	return s.Token, nil
}

// Save replaces the stored session with token. The directory is created
// owner-only and the file is never readable by others.
func (f *SessionFile) Save(token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot save nil token")
	}
	data, err := json.Marshal(storedSession{
		Format:  sessionFormat,
		SavedAt: time.Now().UTC(),
		Token:   token,
	})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	// CreateTemp opens the file 0600.
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}

// Delete forgets the session. Deleting a missing file is not an error.
func (f *SessionFile) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
