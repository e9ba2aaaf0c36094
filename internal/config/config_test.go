package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:8080/v0", cfg.Client.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.RecountEvery)
	assert.Equal(t, "refresh", cfg.Board.TogglePolicy)
	assert.Equal(t, 50, cfg.Board.PageSize)
}

func TestFromYAMLFillsMissingValues(t *testing.T) {
	cfg, err := config.FromYAML([]byte("board:\n  language: fr\n"))
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Board.Language)
	assert.Equal(t, "refresh", cfg.Board.TogglePolicy)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"relative url":   "client:\n  base_url: localhost/v0\n",
		"bad policy":     "board:\n  toggle_policy: optimistic\n",
		"bad language":   "board:\n  language: de\n",
		"bad base path":  "server:\n  base_path: v0\n",
		"tiny recount":   "server:\n  recount_every: 10ms\n",
		"negative pages": "board:\n  page_size: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndLoadOptional(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tb init-config")

	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	doc := "client:\n  base_url: https://board.example.com/v0\n  token: abc\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(doc), 0o644))
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://board.example.com/v0", cfg.Client.BaseURL)
	assert.Equal(t, "abc", cfg.Client.Token)
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
