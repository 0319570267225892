// Package config loads runtime settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingSecret is returned when no device secret is configured and no
// key file exists in the data directory.
var ErrMissingSecret = errors.New("missing device secret: set LUNARIA_DEVICE_SECRET or run `lunaria init`")

const (
	appDirName    = "lunaria"
	secretFile    = "device.key"
	defaultListen = "127.0.0.1:8787"
)

// searchPaths are tried in order when no config path is given.
var searchPaths = []string{"lunaria.yaml", "lunaria.yml", ".lunaria.yaml"}

// Config holds every runtime setting.
type Config struct {
	DataDir      string `yaml:"data_dir"`
	DeviceSecret string `yaml:"device_secret"`
	DatabaseURL  string `yaml:"database_url"`
	ListenAddr   string `yaml:"listen_addr"`

	Auth struct {
		BaseURL      string `yaml:"base_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		JWTSecret    string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Log struct {
		Mode  string `yaml:"mode"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	VAPID struct {
		Subject    string `yaml:"subject"`
		PublicKey  string `yaml:"public_key"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"vapid"`

	Sync struct {
		RemoteTimeout time.Duration `yaml:"remote_timeout"`
		Cooldown      time.Duration `yaml:"cooldown"`
	} `yaml:"sync"`

	Reminders struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"reminders"`
}

// DatabasePath is the location of the local SQLite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "lunaria.db")
}

// SessionPath is the location of the cached auth session.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// SecretPath is the location of the generated device key.
func (c *Config) SecretPath() string {
	return filepath.Join(c.DataDir, secretFile)
}

// Defaults returns a Config with every default applied.
func Defaults() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}

	cfg := &Config{
		DataDir:    filepath.Join(configDir, appDirName),
		ListenAddr: defaultListen,
	}
	cfg.Log.Mode = "dev"
	cfg.Log.Level = "info"
	cfg.Sync.RemoteTimeout = 10 * time.Second
	cfg.Sync.Cooldown = 30 * time.Second
	cfg.Reminders.Interval = 30 * time.Second
	return cfg, nil
}

// Load builds the configuration. path may be empty, in which case
// LUNARIA_CONFIG and then the working directory are searched; a missing
// file is not an error. Returns ErrMissingSecret along with the otherwise
// complete config when no device secret can be found.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.DeviceSecret == "" {
		secret, err := readSecretFile(cfg.SecretPath())
		if err != nil {
			return nil, err
		}
		cfg.DeviceSecret = secret
	}
	if cfg.DeviceSecret == "" {
		return cfg, ErrMissingSecret
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv("LUNARIA_CONFIG"); p != "" {
		return p
	}
	for _, loc := range searchPaths {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"LUNARIA_DATA_DIR", &cfg.DataDir},
		{"LUNARIA_DEVICE_SECRET", &cfg.DeviceSecret},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"LUNARIA_LISTEN_ADDR", &cfg.ListenAddr},
		{"LUNARIA_AUTH_URL", &cfg.Auth.BaseURL},
		{"LUNARIA_AUTH_CLIENT_ID", &cfg.Auth.ClientID},
		{"LUNARIA_AUTH_CLIENT_SECRET", &cfg.Auth.ClientSecret},
		{"LUNARIA_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"LUNARIA_LOG_MODE", &cfg.Log.Mode},
		{"LUNARIA_LOG_LEVEL", &cfg.Log.Level},
		{"VAPID_SUBJECT", &cfg.VAPID.Subject},
		{"VAPID_PUBLIC_KEY", &cfg.VAPID.PublicKey},
		{"VAPID_PRIVATE_KEY", &cfg.VAPID.PrivateKey},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"LUNARIA_REMOTE_TIMEOUT", &cfg.Sync.RemoteTimeout},
		{"LUNARIA_SYNC_COOLDOWN", &cfg.Sync.Cooldown},
		{"LUNARIA_REMINDER_INTERVAL", &cfg.Reminders.Interval},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading device key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// InitSecret generates a random device secret, stores it in the data
// directory with owner-only permissions, and sets it on cfg. An existing
// key file is never overwritten.
func InitSecret(cfg *Config) error {
	if existing, err := readSecretFile(cfg.SecretPath()); err != nil {
		return err
	} else if existing != "" {
		cfg.DeviceSecret = existing
		return nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generating device key: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	f, err := os.OpenFile(cfg.SecretPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating device key: %w", err)
	}
	if _, err := f.WriteString(secret + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing device key: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing device key: %w", err)
	}

	cfg.DeviceSecret = secret
	return nil
}
