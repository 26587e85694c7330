package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
llm:
  timeout: 45s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("llm timeout = %v, want 45s", cfg.LLM.Timeout)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/records.db"
ingest:
  program_dir: "./data/partiprogram"
  debate_files: ["./data/anforanden/riksdags_debatter.jsonl"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "records.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "partiprogram"); cfg.Ingest.ProgramDir != want {
		t.Errorf("program_dir = %s, want %s", cfg.Ingest.ProgramDir, want)
	}
	if len(cfg.Ingest.DebateFiles) != 1 {
		t.Fatalf("debate files: got %d", len(cfg.Ingest.DebateFiles))
	}
	if want := filepath.Join(dir, "data", "anforanden", "riksdags_debatter.jsonl"); cfg.Ingest.DebateFiles[0] != want {
		t.Errorf("debate file = %s, want %s", cfg.Ingest.DebateFiles[0], want)
	}
}

func TestLoad_customEras(t *testing.T) {
	path := writeConfig(t, `
eras:
  - description: "Test"
    start: "2000-01-01"
    end: "2001-01-01"
    parties: ["S"]
    label: "[Testeran]"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Eras) != 1 || cfg.Eras[0].Label != "[Testeran]" {
		t.Errorf("eras = %+v", cfg.Eras)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"reserve above budget", "retrieval:\n  total_budget: 10\n  overfill_reserve: 20\n", "overfill_reserve"},
		{"min above max chunk", "ingest:\n  min_fragment_chars: 2000\n", "min_fragment_chars"},
		{"unknown embedder", "embedding:\n  provider: onnx\n", "embedding.provider"},
		{"era without label", "eras:\n  - start: \"2000-01-01\"\n", "label"},
		{"negative keep_newest", "window:\n  keep_newest: -1\n", "window.keep_newest"},
		{"negative keep_oldest", "window:\n  keep_oldest: -5\n", "window.keep_oldest"},
		{"negative max_debates", "window:\n  max_debates: -60\n", "window.max_debates"},
		{"negative payload", "window:\n  max_payload_chars: -1\n", "window.max_payload_chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Ingest.MinFragmentChars != 40 || cfg.Ingest.MaxChunkChars != 1200 {
		t.Errorf("chunk defaults: got %d/%d", cfg.Ingest.MinFragmentChars, cfg.Ingest.MaxChunkChars)
	}
	if cfg.Ingest.DebateBatchSize != 200 || cfg.Ingest.ProgramBatchSize != 100 {
		t.Errorf("batch defaults: got %d/%d", cfg.Ingest.DebateBatchSize, cfg.Ingest.ProgramBatchSize)
	}
	if cfg.Retrieval.TotalBudget != 60 || cfg.Retrieval.OverfillReserve != 10 || cfg.Retrieval.ProgramPerParty != 2 {
		t.Errorf("retrieval defaults: got %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.KeywordWeight != 0.5 || cfg.Retrieval.SemanticWeight != 0.5 {
		t.Errorf("fusion weights: got %f/%f", cfg.Retrieval.KeywordWeight, cfg.Retrieval.SemanticWeight)
	}
	if cfg.Window.MaxDebates != 60 || cfg.Window.KeepNewest != 30 || cfg.Window.KeepOldest != 30 || cfg.Window.MaxPayloadChars != 55000 {
		t.Errorf("window defaults: got %+v", cfg.Window)
	}
	if got := strings.Join(cfg.PartyCodes(), ","); got != "S,M,SD,C,V,KD,L,MP" {
		t.Errorf("party codes: got %s", got)
	}
	if cfg.PartyColors()["V"] != "#6D0700" {
		t.Errorf("party color V: got %s", cfg.PartyColors()["V"])
	}
	if len(cfg.Eras) != 4 {
		t.Errorf("default eras: got %d", len(cfg.Eras))
	}
	if cfg.LLM.Model != "gemini-2.0-flash" || cfg.LLM.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("llm defaults: got %+v", cfg.LLM)
	}
	if cfg.Embedding.Provider != "hashing" {
		t.Errorf("embedding provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.DefaultStartYear != 2022 {
		t.Errorf("default start year: got %d", cfg.DefaultStartYear)
	}
}

func TestApplyDefaults_keepsExplicitWeights(t *testing.T) {
	cfg := &Config{Retrieval: RetrievalConfig{KeywordWeight: 1}}
	ApplyDefaults(cfg)
	if cfg.Retrieval.KeywordWeight != 1 || cfg.Retrieval.SemanticWeight != 0 {
		t.Errorf("explicit keyword-only weights overwritten: %+v", cfg.Retrieval)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Watch.Debounce != 400*time.Millisecond {
		t.Errorf("loaded debounce: got %v", loaded.Watch.Debounce)
	}
}
