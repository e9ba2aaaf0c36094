package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the workspace.
const FileName = "taskboard.yml"

// Config models taskboard.yml.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Board  BoardConfig  `yaml:"board"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	BasePath     string        `yaml:"base_path"`
	Workspace    string        `yaml:"workspace"`
	JWTSecret    string        `yaml:"jwt_secret"`
	RecountEvery time.Duration `yaml:"recount_every"`
}

type BoardConfig struct {
	TogglePolicy string `yaml:"toggle_policy"`
	Language     string `yaml:"language"`
	PageSize     int    `yaml:"page_size"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tb init-config", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config is usable. Empty optional values are filled with defaults first.
func (c *Config) Validate() error {
	c.fill()
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.client.base_url must be an absolute URL, got %q", c.Client.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config.client.base_url must use http or https")
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("config.client.timeout must not be negative")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Server.RecountEvery < 0 {
		return fmt.Errorf("config.server.recount_every must not be negative")
	}
	if c.Server.RecountEvery > 0 && c.Server.RecountEvery < time.Second {
		return fmt.Errorf("config.server.recount_every must be at least 1s")
	}
	switch c.Board.TogglePolicy {
	case "refresh", "local":
	default:
		return fmt.Errorf("config.board.toggle_policy must be refresh or local, got %q", c.Board.TogglePolicy)
	}
	switch c.Board.Language {
	case "en", "fr":
	default:
		return fmt.Errorf("config.board.language must be en or fr, got %q", c.Board.Language)
	}
	if c.Board.PageSize <= 0 {
		return fmt.Errorf("config.board.page_size must be positive")
	}
	return nil
}

func (c *Config) fill() {
	d := Default()
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = d.Client.BaseURL
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = d.Client.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = d.Server.BasePath
	}
	if c.Server.Workspace == "" {
		c.Server.Workspace = d.Server.Workspace
	}
	if c.Board.TogglePolicy == "" {
		c.Board.TogglePolicy = d.Board.TogglePolicy
	}
	if c.Board.Language == "" {
		c.Board.Language = d.Board.Language
	}
	if c.Board.PageSize == 0 {
		c.Board.PageSize = d.Board.PageSize
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `client:
  base_url: http://127.0.0.1:8080/v0
  token: ""
  timeout: 10s

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  workspace: .
  jwt_secret: ""
  recount_every: 5m

board:
  # refresh reads the task from the backend before toggling; local trusts the board.
  toggle_policy: refresh
  language: en
  page_size: 50
`
