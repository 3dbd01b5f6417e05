package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Exclude)
	assert.Equal(t, filepath.Join(dir, ".nexus", "nexus.db"), cfg.DatabasePath(dir))
	assert.Empty(t, cfg.GraphDatabasePath(dir))
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nexus.yml"), []byte(`
workers: 3
exclude:
  - "**/*_test.go"
  - vendor/**
database: /var/lib/nexus.db
graph_database: .nexus/graph
log:
  level: debug
  json: true
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"**/*_test.go", "vendor/**"}, cfg.Exclude)
	assert.Equal(t, "/var/lib/nexus.db", cfg.DatabasePath(dir))
	assert.Equal(t, filepath.Join(dir, ".nexus", "graph"), cfg.GraphDatabasePath(dir))
	assert.Equal(t, LogConfig{Level: "debug", JSON: true}, cfg.Log)
}

func TestLoad_YAMLExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nexus.yaml"), []byte("workers: 2\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nexus.yml"), []byte("workers: [oops"), 0o644))
	_, err := Load(dir)
	assert.ErrorContains(t, err, "nexus.yml")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "nexus.yml"), []byte("workers: -1\n"), 0o644))
	_, err = Load(dir)
	assert.ErrorContains(t, err, "workers")
}
