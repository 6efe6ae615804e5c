package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "qwen2.5-coder:7b", cfg.Ollama.Model)
	assert.Equal(t, "llama3.1:8b", cfg.Ollama.FallbackModel)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbedModel)
	assert.Equal(t, 1000, cfg.Processing.ChunkSize)
	assert.Equal(t, 200, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 15, cfg.Processing.TopK)
	assert.Equal(t, 50, cfg.Processing.CheckpointEvery)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Ollama.Model, cfg.Ollama.Model)
}

func TestLoad_FromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".docmaster")
	require.NoError(t, os.MkdirAll(dir, 0755))
	yaml := "ollama:\n  model: mistral:7b\nprocessing:\n  chunk_size: 500\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mistral:7b", cfg.Ollama.Model)
	assert.Equal(t, 500, cfg.Processing.ChunkSize)
	assert.Equal(t, 200, cfg.Processing.ChunkOverlap, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCMASTER_MODEL", "phi3:mini")
	t.Setenv("DOCMASTER_DATA_DIR", "/var/lib/docmaster")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "phi3:mini", cfg.Ollama.Model)
	assert.Equal(t, "/var/lib/docmaster", cfg.Paths.DataDir)
	assert.Equal(t, "/var/lib/docmaster/docmaster_index.json", cfg.IndexPath())
	assert.Equal(t, "/var/lib/docmaster/batch_checkpoint.json", cfg.CheckpointPath())
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.Ollama.Model = "saved-model"
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-model", loaded.Ollama.Model)
}
