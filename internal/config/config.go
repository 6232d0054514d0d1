// Package config loads the dispatch client's configuration.
//
// The configuration is an explicit value: it is loaded once by the CLI and
// passed into constructors, never held in a package-level singleton. Files live
// in the XDG config dir (config.yaml, falling back to config.json); secrets do
// not belong here and go to the OS keychain instead.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adw/cli/internal/xdg"

	"gopkg.in/yaml.v3"
)

// Config holds non-sensitive client settings.
type Config struct {
	ServerURL          string    `json:"server_url" yaml:"server_url"`
	Models             Models    `json:"models" yaml:"models"`
	Timeout            int       `json:"timeout" yaml:"timeout"`
	LightweightTimeout int       `json:"lightweight_timeout" yaml:"lightweight_timeout"`
	MaxRetries         int       `json:"max_retries" yaml:"max_retries"`
	RetryBackoff       float64   `json:"retry_backoff" yaml:"retry_backoff"`
	ReuseSessions      bool      `json:"reuse_sessions" yaml:"reuse_sessions"`
	DeleteSessions     bool      `json:"delete_sessions" yaml:"delete_sessions"`
	LogLevel           string    `json:"log_level" yaml:"log_level"`
	LogFormat          string    `json:"log_format" yaml:"log_format"`
	LogDir             string    `json:"log_dir" yaml:"log_dir"`
	Audit              Audit     `json:"audit" yaml:"audit"`
	Endpoints          Endpoints `json:"endpoints" yaml:"endpoints"`
}

// Models names the model identifier of each routing tier.
type Models struct {
	HeavyLifting string `json:"heavy_lifting" yaml:"heavy_lifting"`
	Lightweight  string `json:"lightweight" yaml:"lightweight"`
}

// Audit configures the optional Postgres interaction-log sink.
type Audit struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// Endpoints holds the agent server's wire paths. Message must contain "{id}".
type Endpoints struct {
	Session string `json:"session" yaml:"session"`
	Message string `json:"message" yaml:"message"`
	Health  string `json:"health" yaml:"health"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerURL: "http://localhost:4096",
		Models: Models{
			HeavyLifting: "anthropic/claude-sonnet-4-5",
			Lightweight:  "anthropic/claude-haiku-4-5",
		},
		Timeout:            600,
		LightweightTimeout: 120,
		MaxRetries:         3,
		RetryBackoff:       1.0,
		LogLevel:           "info",
		LogFormat:          "text",
		Endpoints:          DefaultEndpoints(),
	}
}

// DefaultEndpoints returns the agent server's standard wire paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Session: "/session",
		Message: "/session/{id}/message",
		Health:  "/health",
	}
}

// HeavyTimeout is the per-attempt timeout for heavy-lifting requests.
func (c Config) HeavyTimeout() time.Duration { return time.Duration(c.Timeout) * time.Second }

// LightTimeout is the per-attempt timeout for lightweight requests.
func (c Config) LightTimeout() time.Duration {
	return time.Duration(c.LightweightTimeout) * time.Second
}

// InitialBackoff is the delay before the first retry.
func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.RetryBackoff * float64(time.Second))
}

// Validate rejects configurations the client cannot run with.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_url %q must be an absolute http(s) URL", c.ServerURL))
	}
	if strings.TrimSpace(c.Models.HeavyLifting) == "" {
		errs = append(errs, errors.New("models.heavy_lifting is required"))
	}
	if strings.TrimSpace(c.Models.Lightweight) == "" {
		errs = append(errs, errors.New("models.lightweight is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.LightweightTimeout <= 0 {
		errs = append(errs, errors.New("lightweight_timeout must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, errors.New("retry_backoff must not be negative"))
	}
	if !strings.Contains(c.Endpoints.Message, "{id}") {
		errs = append(errs, errors.New(`endpoints.message must contain "{id}"`))
	}
	return errors.Join(errs...)
}

// Path returns the first existing config file in the XDG config dir,
// preferring YAML. The YAML path is returned when neither exists.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	yamlPath := filepath.Join(dir, "config.yaml")
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return yamlPath, nil
}

// Load reads configuration from p (or the XDG default when p is empty),
// applies environment overrides and fills unset fields with defaults.
// A missing file yields defaults.
func Load(p string) (Config, error) {
	c := Defaults()
	if p == "" {
		var err error
		if p, err = Path(); err != nil {
			return c, err
		}
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := decode(p, data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	applyEnv(&c)
	fillDefaults(&c)
	return c, nil
}

func decode(p string, data []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return json.Unmarshal(data, c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("ADW_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("ADW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ADW_AUDIT_DSN"); v != "" {
		c.Audit.DSN = v
	}
}

// fillDefaults restores defaults for fields a partial file left blank.
func fillDefaults(c *Config) {
	d := Defaults()
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if c.ServerURL == "" {
		c.ServerURL = d.ServerURL
	}
	if c.Endpoints.Session == "" {
		c.Endpoints.Session = d.Endpoints.Session
	}
	if c.Endpoints.Message == "" {
		c.Endpoints.Message = d.Endpoints.Message
	}
	if c.Endpoints.Health == "" {
		c.Endpoints.Health = d.Endpoints.Health
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
}

// Save writes configuration as YAML with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	var b []byte
	if strings.EqualFold(filepath.Ext(p), ".json") {
		b, err = json.MarshalIndent(c, "", "  ")
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
