package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/config"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d)

	d, err = parseDate("none")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDate("01/05/2024")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("#42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	_, err = parseID("0")
	assert.Error(t, err)
	_, err = parseID("abc")
	assert.Error(t, err)
}

func TestLoadConfigLayersEnvOverFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	doc := "client:\n  base_url: http://files.example:9000/v0\n  token: from-file\nboard:\n  language: fr\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(doc), 0o644))

	t.Setenv("TASKBOARD_CLIENT_TOKEN", "from-env")
	t.Setenv("TASKBOARD_BOARD_PAGE_SIZE", "10")
	initConfig()
	viper.Set("workspace", dir)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://files.example:9000/v0", cfg.Client.BaseURL)
	assert.Equal(t, "from-env", cfg.Client.Token)
	assert.Equal(t, "fr", cfg.Board.Language)
	assert.Equal(t, 10, cfg.Board.PageSize)
	assert.Equal(t, dir, cfg.Server.Workspace)
}

func TestSaveEnvValueKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"), 0o644))
	require.NoError(t, saveEnvValue(path, "TASKBOARD_CLIENT_TOKEN", "abc"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `OTHER=1`)
	assert.Contains(t, string(data), `TASKBOARD_CLIENT_TOKEN="abc"`)
}
