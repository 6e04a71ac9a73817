package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"llm":{"openai":{"api_key":"sk-test"}}}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Fatalf("default provider: %q", cfg.LLM.Provider)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Fatalf("chunking defaults: %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != 5 || cfg.RAG.MinScore != 0.35 {
		t.Fatalf("retrieval defaults: %d/%v", cfg.RAG.TopK, cfg.RAG.MinScore)
	}
	if cfg.RAG.EmbeddingDimensions != 1536 {
		t.Fatalf("dimensions default: %d", cfg.RAG.EmbeddingDimensions)
	}
	if cfg.Server.Address != ":8000" {
		t.Fatalf("address default: %q", cfg.Server.Address)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `{
  "llm": {"provider": "gemini", "gemini": {"api_key": "g-key"}},
  "rag": {"chunk_size": 300, "chunk_overlap": 30, "index_backend": "memory", "snapshot_path": "/tmp/ix.json"}
}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.RAG.ChunkSize != 300 {
		t.Fatalf("overrides not applied: %+v", cfg.RAG)
	}
	if cfg.RAG.IndexBackend != "memory" || cfg.RAG.SnapshotPath != "/tmp/ix.json" {
		t.Fatalf("index backend override not applied: %+v", cfg.RAG)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing api key", `{}`},
		{"unknown provider", `{"llm":{"provider":"mystery"}}`},
		{"overlap too large", `{"llm":{"openai":{"api_key":"k"}},"rag":{"chunk_size":100,"chunk_overlap":100}}`},
		{"negative min score", `{"llm":{"openai":{"api_key":"k"}},"rag":{"min_score":-0.1}}`},
		{"min score of one", `{"llm":{"openai":{"api_key":"k"}},"rag":{"min_score":1}}`},
		{"bad backend", `{"llm":{"openai":{"api_key":"k"}},"rag":{"index_backend":"sqlite"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := LoadConfig(path)
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", DBName: "shopchat", User: "u", Password: "p"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if dsn != "postgres://u:p@db:5432/shopchat?sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}

	p = PostgresConfig{URL: "postgres://explicit"}
	dsn, _ = p.DSN()
	if dsn != "postgres://explicit" {
		t.Fatalf("url must win: %s", dsn)
	}

	if _, err := (PostgresConfig{}).DSN(); !errors.Is(err, rag.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
