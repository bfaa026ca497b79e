package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "outletscraper.json5"

// File is the on-disk shape of the configuration. Durations are Go duration
// strings such as "10s". Unset fields keep their defaults.
type File struct {
	BaseURL         string   `json:"base_url"`
	ShowUI          bool     `json:"show_ui"`
	ProxyURL        string   `json:"proxy"`
	ChromeBin       string   `json:"chrome_bin"`
	ElementTimeout  string   `json:"element_timeout"`
	SettleDelay     string   `json:"settle_delay"`
	SettleMode      string   `json:"settle_mode"`
	MaxPages        *int     `json:"max_pages"`
	MaxRetries      *int     `json:"max_retries"`
	RetryBackoff    string   `json:"retry_backoff"`
	RetryBackoffMax string   `json:"retry_backoff_max"`
	Database        Database `json:"database"`
	OpenAI          OpenAI   `json:"openai"`
	ListenAddr      string   `json:"listen_addr"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

// Load builds a Config from defaults, the config file (plus its ".local"
// override) and environment variables, in increasing priority. A missing
// file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := DefaultConfig()
	f, err := ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := cfg.apply(f); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// ReadFile reads <name>.<ext> and merges <name>.local.<ext> over it.
// It returns os.ErrNotExist when neither file exists.
func ReadFile(name string) (File, error) {
	var out File
	allNotFound := true

	prefix, ext := splitExt(filepath.Base(name))
	localPath := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, err
		}
		allNotFound = false
	}

	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(local) > 0 {
		var override File
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, err
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

func (c *Config) apply(f File) error {
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	c.ShowUI = c.ShowUI || f.ShowUI
	if f.ProxyURL != "" {
		c.ProxyURL = f.ProxyURL
	}
	if f.ChromeBin != "" {
		c.ChromeBin = f.ChromeBin
	}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"element_timeout", f.ElementTimeout, &c.ElementTimeout},
		{"settle_delay", f.SettleDelay, &c.SettleDelay},
		{"retry_backoff", f.RetryBackoff, &c.RetryBackoff},
		{"retry_backoff_max", f.RetryBackoffMax, &c.RetryBackoffMax},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	if f.SettleMode != "" {
		c.SettleMode = f.SettleMode
	}
	if f.MaxPages != nil {
		c.MaxPages = *f.MaxPages
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if err := mergo.Merge(&c.Database, f.Database, mergo.WithOverride); err != nil {
		return err
	}
	if err := mergo.Merge(&c.OpenAI, f.OpenAI, mergo.WithOverride); err != nil {
		return err
	}
	if f.ListenAddr != "" {
		c.ListenAddr = f.ListenAddr
	}
	if len(f.AllowedOrigins) > 0 {
		c.AllowedOrigins = f.AllowedOrigins
	}
	return nil
}

func (c *Config) applyEnv() {
	env := []struct {
		key string
		dst *string
	}{
		{"OUTLETS_PROXY", &c.ProxyURL},
		{"OUTLETS_CHROME_BIN", &c.ChromeBin},
		{"OUTLETS_DB", &c.Database.File},
		{"OUTLETS_DB_URL", &c.Database.URL},
		{"OUTLETS_DB_TOKEN", &c.Database.AuthToken},
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"OPENAI_BASE_URL", &c.OpenAI.BaseURL},
	}
	for _, e := range env {
		if v := strings.TrimSpace(os.Getenv(e.key)); v != "" {
			*e.dst = v
		}
	}
}
