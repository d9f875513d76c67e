package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "edge.json", map[string]any{
		"http_addr":           ":7000",
		"database_dsn":        "sqlite3:edge.db",
		"session_ttl":         "6h",
		"api_origin":          "https://backend.example.com",
		"outbound_timeout":    3000000000,
		"github_oauth_id":     "client",
		"github_repo_private": true,
		"s3_bucket":           "site",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":7000", cfg.HTTPAddr)
		assert.Equal(t, "sqlite3:edge.db", cfg.DatabaseDSN)
		assert.Equal(t, 6*time.Hour, cfg.SessionTTL)
		assert.Equal(t, "https://backend.example.com", cfg.APIOrigin)
		assert.Equal(t, 3*time.Second, cfg.OutboundTimeout)
		assert.Equal(t, "client", cfg.GitHubOAuthID)
		assert.True(t, cfg.GitHubRepoPrivate)
		assert.Equal(t, "site", cfg.S3Bucket)
	})

	t.Run("absent fields keep previous values", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{GRPCAddr: ":9999", ContactUpstreamPath: "/leads"}
		parseJson(cfg)

		assert.Equal(t, ":9999", cfg.GRPCAddr)
		assert.Equal(t, "/leads", cfg.ContactUpstreamPath)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234"}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
