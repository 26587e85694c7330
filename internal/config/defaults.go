package config

import (
	"time"

	"github.com/hyperjump/kabbel/internal/era"
)

// DefaultBackground is the political background appended to the answer instructions.
const DefaultBackground = `BAKGRUND (2022-2026):
- Regering: M, KD, L (Tidöavtalet med SD).
- Opposition: S, V, MP, C.`

// DefaultParties is the closed set of parliamentary parties with their chart colors.
func DefaultParties() []PartyConfig {
	return []PartyConfig{
		{Code: "S", Color: "#E8112d"},
		{Code: "M", Color: "#52BDEC"},
		{Code: "SD", Color: "#FEDF09"},
		{Code: "C", Color: "#009933"},
		{Code: "V", Color: "#6D0700"},
		{Code: "KD", Color: "#000077"},
		{Code: "L", Color: "#006AB3"},
		{Code: "MP", Color: "#83CF39"},
	}
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kabbel/data/db/records.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kabbel/data/indices/bleve"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hashing"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 256
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.0-flash"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.LLM.RequestsPerSecond == 0 {
		cfg.LLM.RequestsPerSecond = 1
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Ingest.ProgramExtensions == nil {
		cfg.Ingest.ProgramExtensions = []string{".pdf", ".docx", ".odt", ".txt", ".md"}
	}
	if cfg.Ingest.MinFragmentChars == 0 {
		cfg.Ingest.MinFragmentChars = 40
	}
	if cfg.Ingest.MaxChunkChars == 0 {
		cfg.Ingest.MaxChunkChars = 1200
	}
	if cfg.Ingest.DebateBatchSize == 0 {
		cfg.Ingest.DebateBatchSize = 200
	}
	if cfg.Ingest.ProgramBatchSize == 0 {
		cfg.Ingest.ProgramBatchSize = 100
	}
	if cfg.Ingest.DefaultProgramYear == "" {
		cfg.Ingest.DefaultProgramYear = "2024"
	}

	if cfg.Retrieval.TotalBudget == 0 {
		cfg.Retrieval.TotalBudget = 60
	}
	if cfg.Retrieval.OverfillReserve == 0 {
		cfg.Retrieval.OverfillReserve = 10
	}
	if cfg.Retrieval.ProgramPerParty == 0 {
		cfg.Retrieval.ProgramPerParty = 2
	}
	if cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.5
		cfg.Retrieval.SemanticWeight = 0.5
	}
	if cfg.Retrieval.TopKCandidates == 0 {
		cfg.Retrieval.TopKCandidates = 200
	}

	if cfg.Window.MaxDebates == 0 {
		cfg.Window.MaxDebates = 60
	}
	if cfg.Window.KeepNewest == 0 {
		cfg.Window.KeepNewest = 30
	}
	if cfg.Window.KeepOldest == 0 {
		cfg.Window.KeepOldest = 30
	}
	if cfg.Window.MaxPayloadChars == 0 {
		cfg.Window.MaxPayloadChars = 55000
	}

	if len(cfg.Parties) == 0 {
		cfg.Parties = DefaultParties()
	}
	if cfg.Eras == nil {
		cfg.Eras = era.DefaultRules()
	}
	if cfg.Background == "" {
		cfg.Background = DefaultBackground
	}
	if cfg.DefaultStartYear == 0 {
		cfg.DefaultStartYear = 2022
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}
