package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// FileName is the configuration file looked up at the root of a posts directory.
const FileName = "config.yaml"

// Config represents the site configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Date      DateConfig      `yaml:"date"`
	Highlight HighlightConfig `yaml:"highlight"`
	Build     BuildConfig     `yaml:"build"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	RSS       *RSSConfig      `yaml:"rss,omitempty"`
}

// DateConfig holds the strftime patterns used to read and print document dates.
type DateConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// HighlightConfig selects the syntax highlighting style.
type HighlightConfig struct {
	Style string `yaml:"style"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	// Workers bounds the number of documents processed concurrently.
	Workers int `yaml:"workers"`
}

// RefreshConfig configures the refresh broadcast service and its clients.
type RefreshConfig struct {
	Host           string        `yaml:"host"`
	SubscriberPort int           `yaml:"subscriber_port"`
	TriggerPort    int           `yaml:"trigger_port"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	NATSURL        string        `yaml:"nats_url,omitempty"`
	NATSSubject    string        `yaml:"nats_subject"`

	// Trigger retries apply to clients sending a trigger (build -t, watch,
	// trigger-refresh). Zero retries sends once.
	TriggerRetries    int           `yaml:"trigger_retries"`
	TriggerBackoff    string        `yaml:"trigger_backoff"`
	TriggerRetryDelay time.Duration `yaml:"trigger_retry_delay"`
}

// RSSConfig describes the feed channel written by `build --rss`.
type RSSConfig struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Author      string `yaml:"author,omitempty"`
}

const msgNotFound = "configuration file not found"

// ErrNotFound matches, via errors.Is, the error Load returns for a missing file.
var ErrNotFound = ferrors.ConfigError(msgNotFound).Build()

// Load reads configuration from path, loading .env files that sit next to it first.
// Environment variables referenced as ${VAR} are expanded before decoding.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError(msgNotFound).WithContext("path", path).Build()
		}
		return nil, ferrors.ConfigError("read configuration").WithCause(err).WithContext("path", path).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDir loads FileName from the root of dir.
func LoadDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Parse decodes, defaults and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.ConfigError("decode configuration").WithCause(err).Build()
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
