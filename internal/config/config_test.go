package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryforge/schemafuse/internal/search"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "tfidf", cfg.Lexical.Backend)
	assert.Equal(t, 8180, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())

	rc, err := cfg.Retrieval()
	require.NoError(t, err)
	assert.Equal(t, search.DefaultRetrievalConfig(), rc)
}

func TestLoadProjectConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yaml := `
search:
  semantic_top_k: 10
  fuzzy_threshold: 85
  combine_policy: mean
  method_weights:
    fuzzy: 0.4
embeddings:
  provider: ollama
  model: nomic-embed-text
lexical:
  backend: bleve
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".schemafuse.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Search.SemanticTopK)
	assert.Equal(t, search.DefaultKeywordTopK, cfg.Search.KeywordTopK, "unset fields keep defaults")
	assert.Equal(t, 85, cfg.Search.FuzzyThreshold)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "bleve", cfg.Lexical.Backend)
	assert.Equal(t, 9000, cfg.Server.Port)

	rc, err := cfg.Retrieval()
	require.NoError(t, err)
	assert.Equal(t, search.PolicyMean, rc.CombinePolicy)
	assert.Equal(t, 0.4, rc.MethodWeights[search.MethodFuzzy])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SCHEMAFUSE_FUZZY_THRESHOLD", "90")
	t.Setenv("SCHEMAFUSE_TIMEOUT", "2s")
	t.Setenv("SCHEMAFUSE_LEXICAL_BACKEND", "bleve")
	t.Setenv("SCHEMAFUSE_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Search.FuzzyThreshold)
	assert.Equal(t, "bleve", cfg.Lexical.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)

	rc, err := cfg.Retrieval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, rc.Timeout)
}

func TestEnvOverridesBeatProjectConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".schemafuse.yml"),
		[]byte("search:\n  semantic_top_k: 3\n"), 0o644))
	t.Setenv("SCHEMAFUSE_SEMANTIC_TOP_K", "7")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.SemanticTopK)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad backend", "lexical:\n  backend: elasticsearch\n"},
		{"bad provider", "embeddings:\n  provider: openai\n"},
		{"bad threshold", "search:\n  fuzzy_threshold: 150\n"},
		{"bad timeout", "search:\n  timeout: soon\n"},
		{"bad policy", "search:\n  combine_policy: max\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ".schemafuse.yaml"), []byte(tt.yaml), 0o644))
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, ".schemafuse.yaml")

	cfg := NewConfig()
	cfg.Search.SemanticTopK = 8
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Search.SemanticTopK)
}
