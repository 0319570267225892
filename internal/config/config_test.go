package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"LUNARIA_CONFIG", "LUNARIA_DATA_DIR", "LUNARIA_DEVICE_SECRET", "DATABASE_URL",
	"LUNARIA_LISTEN_ADDR", "LUNARIA_AUTH_URL", "LUNARIA_AUTH_CLIENT_ID",
	"LUNARIA_AUTH_CLIENT_SECRET", "LUNARIA_JWT_SECRET", "LUNARIA_LOG_MODE",
	"LUNARIA_LOG_LEVEL", "VAPID_SUBJECT", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY",
	"LUNARIA_REMOTE_TIMEOUT", "LUNARIA_SYNC_COOLDOWN", "LUNARIA_REMINDER_INTERVAL",
}

// isolate clears every variable Load reads and points the data dir at a
// temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("LUNARIA_DATA_DIR", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr error
		failing bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{"LUNARIA_DEVICE_SECRET": "s3cret"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.ListenAddr != defaultListen {
					t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListen)
				}
				if cfg.Sync.RemoteTimeout != 10*time.Second || cfg.Sync.Cooldown != 30*time.Second {
					t.Errorf("sync = %+v", cfg.Sync)
				}
				if cfg.DatabaseURL != "" {
					t.Errorf("DatabaseURL = %q, want empty (offline)", cfg.DatabaseURL)
				}
			},
		},
		{
			name: "yaml overrides defaults",
			yaml: `
device_secret: from-file
listen_addr: 127.0.0.1:9999
auth:
  base_url: https://auth.example.com
sync:
  remote_timeout: 3s
  cooldown: 1m
log:
  mode: prod
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.DeviceSecret != "from-file" {
					t.Errorf("DeviceSecret = %q", cfg.DeviceSecret)
				}
				if cfg.ListenAddr != "127.0.0.1:9999" {
					t.Errorf("ListenAddr = %q", cfg.ListenAddr)
				}
				if cfg.Auth.BaseURL != "https://auth.example.com" {
					t.Errorf("Auth.BaseURL = %q", cfg.Auth.BaseURL)
				}
				if cfg.Sync.RemoteTimeout != 3*time.Second || cfg.Sync.Cooldown != time.Minute {
					t.Errorf("sync = %+v", cfg.Sync)
				}
				if cfg.Log.Mode != "prod" || cfg.Log.Level != "info" {
					t.Errorf("log = %+v", cfg.Log)
				}
			},
		},
		{
			name: "env overrides yaml",
			yaml: "device_secret: from-file\ndatabase_url: postgres://file\n",
			env: map[string]string{
				"LUNARIA_DEVICE_SECRET": "from-env",
				"DATABASE_URL":          "postgres://env",
				"LUNARIA_SYNC_COOLDOWN": "45s",
				"VAPID_PUBLIC_KEY":      "pub",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.DeviceSecret != "from-env" || cfg.DatabaseURL != "postgres://env" {
					t.Errorf("secret/url = %q, %q", cfg.DeviceSecret, cfg.DatabaseURL)
				}
				if cfg.Sync.Cooldown != 45*time.Second {
					t.Errorf("Cooldown = %v", cfg.Sync.Cooldown)
				}
				if cfg.VAPID.PublicKey != "pub" {
					t.Errorf("VAPID.PublicKey = %q", cfg.VAPID.PublicKey)
				}
			},
		},
		{
			name:    "missing secret",
			wantErr: ErrMissingSecret,
		},
		{
			name:    "bad duration",
			env:     map[string]string{"LUNARIA_DEVICE_SECRET": "x", "LUNARIA_REMOTE_TIMEOUT": "soon"},
			failing: true,
		},
		{
			name:    "bad yaml",
			yaml:    "sync: [",
			failing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(dir, "lunaria.yaml")
				writeFile(t, path, tt.yaml)
			}

			cfg, err := Load(path)
			if tt.failing {
				if err == nil {
					t.Error("Load() error = nil, want failure")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				if cfg == nil {
					t.Error("Load() should still return the config with ErrMissingSecret")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
			if cfg.DataDir != dir {
				t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
			}
		})
	}
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "device_secret: via-env-path\n")
	t.Setenv("LUNARIA_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeviceSecret != "via-env-path" {
		t.Errorf("DeviceSecret = %q", cfg.DeviceSecret)
	}
}

func TestInitSecret(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Load() error = %v, want ErrMissingSecret", err)
	}

	if err := InitSecret(cfg); err != nil {
		t.Fatalf("InitSecret() error = %v", err)
	}
	if len(cfg.DeviceSecret) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(cfg.DeviceSecret))
	}

	info, err := os.Stat(filepath.Join(dir, secretFile))
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		t.Errorf("key file permissions = %o", mode)
	}

	reloaded, err := Load("")
	if err != nil {
		t.Fatalf("Load() after InitSecret error = %v", err)
	}
	if reloaded.DeviceSecret != cfg.DeviceSecret {
		t.Error("Load() did not pick up the generated key")
	}

	first := cfg.DeviceSecret
	if err := InitSecret(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DeviceSecret != first {
		t.Error("InitSecret() replaced an existing key")
	}
}
