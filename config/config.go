package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Database struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"database"`
	Ollama struct {
		BaseURL       string `yaml:"base_url"`
		Model         string `yaml:"model"`
		FallbackModel string `yaml:"fallback_model"`
		EmbedModel    string `yaml:"embed_model"`
	} `yaml:"ollama"`
	Processing struct {
		ChunkSize        int `yaml:"chunk_size"`
		ChunkOverlap     int `yaml:"chunk_overlap"`
		TopK             int `yaml:"top_k"`
		AddBatchSize     int `yaml:"add_batch_size"`
		CheckpointEvery  int `yaml:"checkpoint_every"`
		MaxTrackedErrors int `yaml:"max_tracked_errors"`
	} `yaml:"processing"`
	Paths struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"paths"`
}

// Load loads configuration from file or returns defaults.
// Environment variables override file values in either case.
func Load() (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(os.Getenv("HOME"), ".docmaster", "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configDir := filepath.Join(os.Getenv("HOME"), ".docmaster")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.Model = "qwen2.5-coder:7b"
	cfg.Ollama.FallbackModel = "llama3.1:8b"
	cfg.Ollama.EmbedModel = "nomic-embed-text"
	cfg.Processing.ChunkSize = 1000
	cfg.Processing.ChunkOverlap = 200
	cfg.Processing.TopK = 15
	cfg.Processing.AddBatchSize = 100
	cfg.Processing.CheckpointEvery = 50
	cfg.Processing.MaxTrackedErrors = 20

	cfg.Paths.DataDir = filepath.Join(os.Getenv("HOME"), ".docmaster", "data")

	return cfg
}

// IndexPath is the location of the durable document index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.DataDir, "docmaster_index.json")
}

// CheckpointPath is the location of the durable batch checkpoint.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Paths.DataDir, "batch_checkpoint.json")
}

// applyEnv overlays environment variables on top of file/default values.
// A .env file in the working directory is honored if present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("DOCMASTER_DATABASE_URL"); v != "" {
		c.Database.ConnectionString = v
	}
	if v := os.Getenv("DOCMASTER_OLLAMA_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("DOCMASTER_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("DOCMASTER_EMBED_MODEL"); v != "" {
		c.Ollama.EmbedModel = v
	}
	if v := os.Getenv("DOCMASTER_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
}
