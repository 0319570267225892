package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestSessionFile_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
	}{
		{
			name: "session with refresh token",
			token: &oauth2.Token{
				AccessToken:  "access-1",
				TokenType:    "Bearer",
				RefreshToken: "refresh-1",
				Expiry:       time.Now().Add(time.Hour),
			},
		},
		{
			name: "access token only",
			token: &oauth2.Token{
				AccessToken: "access-2",
				TokenType:   "Bearer",
				Expiry:      time.Now().Add(30 * time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))

			if err := f.Save(tt.token); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			loaded, err := f.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil token")
			}
			if loaded.AccessToken != tt.token.AccessToken || loaded.RefreshToken != tt.token.RefreshToken {
				t.Errorf("Load() = %+v, want %+v", loaded, tt.token)
			}
			if !loaded.Expiry.Equal(tt.token.Expiry.Round(0)) {
				t.Errorf("Expiry = %v, want %v", loaded.Expiry, tt.token.Expiry)
			}
		})
	}
}

func TestSessionFile_LoadSignedOut(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no file", ""},
		{"empty access token", `{"format":1,"token":{"access_token":""}}`},
		{"no token", `{"format":1}`},
		{"bare token from an older build", `{"access_token":"a","token_type":"Bearer"}`},
		{"newer format", `{"format":2,"token":{"access_token":"a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "session.json")
			if tt.content != "" {
				if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			token, err := NewSessionFile(path).Load()
			if err != nil {
				t.Fatalf("Load() error = %v, want nil", err)
			}
			if token != nil {
				t.Errorf("Load() = %v, want nil", token)
			}
		})
	}
}

func TestSessionFile_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSessionFile(path).Load(); err == nil {
		t.Error("Load() of corrupt file should return error")
	}
}

func TestSessionFile_SaveNilToken(t *testing.T) {
	f := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))
	if err := f.Save(nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}

func TestSessionFile_SaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	f := NewSessionFile(filepath.Join(dir, "session.json"))

	for _, access := range []string{"first", "second"} {
		if err := f.Save(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}); err != nil {
			t.Fatalf("Save(%s) error = %v", access, err)
		}
	}

	loaded, err := f.Load()
	if err != nil || loaded == nil || loaded.AccessToken != "second" {
		t.Fatalf("Load() = %v, %v, want the second token", loaded, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "session.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v, want only session.json", names)
	}
}

func TestSessionFile_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f := NewSessionFile(path)

	if err := f.Save(&oauth2.Token{AccessToken: "a", TokenType: "Bearer"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := f.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Delete() did not remove session file")
	}
	if err := f.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestSessionFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "session.json")

	if err := NewSessionFile(path).Save(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	for _, p := range []string{path, filepath.Dir(path)} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", p, err)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			t.Errorf("%s permissions = %o, want no group/other access", p, mode)
		}
	}
}
