// Package config loads schemafuse configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/queryforge/schemafuse/internal/search"
)

// Config is the complete schemafuse configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Catalog    CatalogConfig    `yaml:"catalog" json:"catalog"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// CatalogConfig selects the catalog backend.
type CatalogConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database path. Ignored for the memory driver.
	Path string `yaml:"path" json:"path"`
}

// SearchConfig holds the retrieval and fusion parameters.
type SearchConfig struct {
	SemanticTopK       int                `yaml:"semantic_top_k" json:"semantic_top_k"`
	KeywordTopK        int                `yaml:"keyword_top_k" json:"keyword_top_k"`
	FuzzyThreshold     int                `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`
	MaxCombinedResults int                `yaml:"max_combined_results" json:"max_combined_results"`
	Timeout            string             `yaml:"timeout" json:"timeout"`
	CombinePolicy      string             `yaml:"combine_policy" json:"combine_policy"`
	MethodWeights      map[string]float64 `yaml:"method_weights" json:"method_weights"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" or "ollama". Empty means static.
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the embedding LRU cache capacity. 0 disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LexicalConfig selects the keyword index backend.
type LexicalConfig struct {
	// Backend is "tfidf" (default) or "bleve".
	Backend string `yaml:"backend" json:"backend"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Catalog: CatalogConfig{
			Driver: "sqlite",
			Path:   defaultCatalogPath(),
		},
		Search: SearchConfig{
			SemanticTopK:       search.DefaultSemanticTopK,
			KeywordTopK:        search.DefaultKeywordTopK,
			FuzzyThreshold:     search.DefaultFuzzyThreshold,
			MaxCombinedResults: search.DefaultMaxCombinedResults,
			Timeout:            search.DefaultTimeout.String(),
			CombinePolicy:      string(search.PolicyEvidence),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "nomic-embed-text",
			Dimensions: 0, // auto-detect from the provider
			BatchSize:  32,
			OllamaHost: "", // empty uses http://localhost:11434
			CacheSize:  1000,
		},
		Lexical: LexicalConfig{
			Backend: "tfidf",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8180,
		},
		Logging: LoggingConfig{
			Level:     "info",
			FilePath:  "", // empty uses the default log path
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".schemafuse", "catalog.db")
	}
	return filepath.Join(home, ".schemafuse", "catalog.db")
}

// GetUserConfigPath returns the user-level configuration path,
// following the XDG base directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "schemafuse", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "schemafuse", "config.yaml")
	}
	return filepath.Join(home, ".config", "schemafuse", "config.yaml")
}

// Load builds the effective configuration for a project directory, in
// order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/schemafuse/config.yaml)
//  3. Project config (.schemafuse.yaml in dir)
//  4. Environment variables (SCHEMAFUSE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}
	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir loads .schemafuse.yaml or .schemafuse.yml from dir.
// A missing file is fine.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".schemafuse.yaml", ".schemafuse.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Catalog.Driver != "" {
		c.Catalog.Driver = other.Catalog.Driver
	}
	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}

	if other.Search.SemanticTopK != 0 {
		c.Search.SemanticTopK = other.Search.SemanticTopK
	}
	if other.Search.KeywordTopK != 0 {
		c.Search.KeywordTopK = other.Search.KeywordTopK
	}
	if other.Search.FuzzyThreshold != 0 {
		c.Search.FuzzyThreshold = other.Search.FuzzyThreshold
	}
	if other.Search.MaxCombinedResults != 0 {
		c.Search.MaxCombinedResults = other.Search.MaxCombinedResults
	}
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.CombinePolicy != "" {
		c.Search.CombinePolicy = other.Search.CombinePolicy
	}
	if len(other.Search.MethodWeights) > 0 {
		if c.Search.MethodWeights == nil {
			c.Search.MethodWeights = map[string]float64{}
		}
		for m, w := range other.Search.MethodWeights {
			c.Search.MethodWeights[m] = w
		}
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Lexical.Backend != "" {
		c.Lexical.Backend = other.Lexical.Backend
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies SCHEMAFUSE_* environment overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCHEMAFUSE_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("SCHEMAFUSE_CATALOG_DRIVER"); v != "" {
		c.Catalog.Driver = v
	}
	if v := os.Getenv("SCHEMAFUSE_SEMANTIC_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.SemanticTopK = n
		}
	}
	if v := os.Getenv("SCHEMAFUSE_KEYWORD_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.KeywordTopK = n
		}
	}
	if v := os.Getenv("SCHEMAFUSE_FUZZY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			c.Search.FuzzyThreshold = n
		}
	}
	if v := os.Getenv("SCHEMAFUSE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxCombinedResults = n
		}
	}
	if v := os.Getenv("SCHEMAFUSE_TIMEOUT"); v != "" {
		c.Search.Timeout = v
	}
	if v := os.Getenv("SCHEMAFUSE_COMBINE_POLICY"); v != "" {
		c.Search.CombinePolicy = v
	}
	if v := os.Getenv("SCHEMAFUSE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("SCHEMAFUSE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("SCHEMAFUSE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("SCHEMAFUSE_LEXICAL_BACKEND"); v != "" {
		c.Lexical.Backend = v
	}
	if v := os.Getenv("SCHEMAFUSE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SCHEMAFUSE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Catalog.Driver) {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("catalog.driver must be 'sqlite' or 'memory', got %s", c.Catalog.Driver)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "", "static", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %s", c.Embeddings.Provider)
	}

	switch strings.ToLower(c.Lexical.Backend) {
	case "", "tfidf", "bleve":
	default:
		return fmt.Errorf("lexical.backend must be 'tfidf' or 'bleve', got %s", c.Lexical.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	// Reuse the retrieval validation so the effective search section is
	// rejected the same way a per-request override would be.
	rc, err := c.Retrieval()
	if err != nil {
		return err
	}
	return rc.Validate()
}

// Retrieval converts the search section into a retrieval config.
func (c *Config) Retrieval() (search.RetrievalConfig, error) {
	rc := search.RetrievalConfig{
		SemanticTopK:       c.Search.SemanticTopK,
		KeywordTopK:        c.Search.KeywordTopK,
		FuzzyThreshold:     c.Search.FuzzyThreshold,
		MaxCombinedResults: c.Search.MaxCombinedResults,
		CombinePolicy:      search.CombinePolicy(c.Search.CombinePolicy),
	}

	if c.Search.Timeout != "" {
		d, err := time.ParseDuration(c.Search.Timeout)
		if err != nil {
			return rc, fmt.Errorf("search.timeout: %w", err)
		}
		rc.Timeout = d
	} else {
		rc.Timeout = search.DefaultTimeout
	}

	if len(c.Search.MethodWeights) > 0 {
		rc.MethodWeights = make(map[search.Method]float64, len(c.Search.MethodWeights))
		for m, w := range c.Search.MethodWeights {
			rc.MethodWeights[search.Method(m)] = w
		}
	}
	return rc, nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
