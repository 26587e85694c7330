// Package config provides configuration loading and structs for the Käbbel engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kabbel/internal/era"
)

// Config holds all configuration for the application.
type Config struct {
	Debug            bool            `yaml:"debug"`
	Server           ServerConfig    `yaml:"server"`
	Storage          StorageConfig   `yaml:"storage"`
	Embedding        EmbeddingConfig `yaml:"embedding"`
	LLM              LLMConfig       `yaml:"llm"`
	Ingest           IngestConfig    `yaml:"ingest"`
	Retrieval        RetrievalConfig `yaml:"retrieval"`
	Window           WindowConfig    `yaml:"window"`
	Parties          []PartyConfig   `yaml:"parties"`
	Eras             []era.Rule      `yaml:"eras"`
	Background       string          `yaml:"background"`
	DefaultStartYear int             `yaml:"default_start_year"`
	Watch            WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Admin enables destructive endpoints such as deleting records by metadata.
	Admin bool `yaml:"admin"`
}

// StorageConfig holds paths for the record database and keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Provider is "hashing" (offline, default) or "http" (OpenAI-compatible /embeddings).
	Provider   string        `yaml:"provider"`
	Dimensions int           `yaml:"dimensions"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
}

// LLMConfig configures the chat-completions endpoint used for classification and generation.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxRetries        int           `yaml:"max_retries"`
	Temperature       float64       `yaml:"temperature"`
}

// IngestConfig holds chunking, batching and source settings.
type IngestConfig struct {
	DebateFiles        []string `yaml:"debate_files"`
	ProgramDir         string   `yaml:"program_dir"`
	ProgramExtensions  []string `yaml:"program_extensions"`
	MinFragmentChars   int      `yaml:"min_fragment_chars"`
	MaxChunkChars      int      `yaml:"max_chunk_chars"`
	DebateBatchSize    int      `yaml:"debate_batch_size"`
	ProgramBatchSize   int      `yaml:"program_batch_size"`
	DefaultProgramYear string   `yaml:"default_program_year"`
}

// RetrievalConfig holds the passage budget and fusion weights.
type RetrievalConfig struct {
	TotalBudget     int     `yaml:"total_budget"`
	OverfillReserve int     `yaml:"overfill_reserve"`
	ProgramPerParty int     `yaml:"program_per_party"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	TopKCandidates  int     `yaml:"top_k_candidates"`
}

// WindowConfig bounds the final context payload.
type WindowConfig struct {
	MaxDebates      int `yaml:"max_debates"`
	KeepNewest      int `yaml:"keep_newest"`
	KeepOldest      int `yaml:"keep_oldest"`
	MaxPayloadChars int `yaml:"max_payload_chars"`
}

// PartyConfig is one entry of the closed party set.
type PartyConfig struct {
	Code  string `yaml:"code"`
	Color string `yaml:"color"`
}

// WatchConfig controls re-ingestion of the program directory on change.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// PartyCodes returns the configured party codes in order.
func (c *Config) PartyCodes() []string {
	codes := make([]string, len(c.Parties))
	for i, p := range c.Parties {
		codes[i] = p.Code
	}
	return codes
}

// PartyColors returns a code to color map.
func (c *Config) PartyColors() map[string]string {
	colors := make(map[string]string, len(c.Parties))
	for _, p := range c.Parties {
		colors[p.Code] = p.Color
	}
	return colors
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Ingest.ProgramDir = expandPath(cfg.Ingest.ProgramDir, configDir)
	for i := range cfg.Ingest.DebateFiles {
		cfg.Ingest.DebateFiles[i] = expandPath(cfg.Ingest.DebateFiles[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects settings that would make retrieval or chunking meaningless.
func Validate(cfg *Config) error {
	if cfg.Retrieval.OverfillReserve >= cfg.Retrieval.TotalBudget {
		return fmt.Errorf("retrieval.overfill_reserve (%d) must be below retrieval.total_budget (%d)",
			cfg.Retrieval.OverfillReserve, cfg.Retrieval.TotalBudget)
	}
	if cfg.Ingest.MinFragmentChars >= cfg.Ingest.MaxChunkChars {
		return fmt.Errorf("ingest.min_fragment_chars (%d) must be below ingest.max_chunk_chars (%d)",
			cfg.Ingest.MinFragmentChars, cfg.Ingest.MaxChunkChars)
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"window.max_debates", cfg.Window.MaxDebates},
		{"window.keep_newest", cfg.Window.KeepNewest},
		{"window.keep_oldest", cfg.Window.KeepOldest},
		{"window.max_payload_chars", cfg.Window.MaxPayloadChars},
	} {
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", f.name, f.value)
		}
	}
	if cfg.Embedding.Provider != "hashing" && cfg.Embedding.Provider != "http" {
		return fmt.Errorf("embedding.provider must be \"hashing\" or \"http\", got %q", cfg.Embedding.Provider)
	}
	for i, r := range cfg.Eras {
		if r.Label == "" {
			return fmt.Errorf("eras[%d]: label is required", i)
		}
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
