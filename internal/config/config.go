package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the on-disk YAML configuration sections plus
// environment overrides.
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Embed  EmbedConfig  `yaml:"embedding"`
	Store  StoreConfig  `yaml:"store"`
	Search SearchConfig `yaml:"search"`
	Server ServerConfig `yaml:"server"`
	Chain  ChainConfig  `yaml:"chain"`
	Log    LogConfig    `yaml:"log"`
}

// LogConfig configures log output. Stderr is always written; File adds a
// second sink.
type LogConfig struct {
	File string `yaml:"file"`
}

// LLMConfig configures the completion collaborator.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbedConfig configures the embedding client behind the vector store.
type EmbedConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// StoreConfig configures the document store and the vector index.
type StoreConfig struct {
	DBPath     string `yaml:"db_path"`
	VectorPath string `yaml:"vector_path"`
	Collection string `yaml:"collection"`
}

// SearchConfig holds the multi-conversation retrieval policy knobs.
type SearchConfig struct {
	CandidateLimit int           `yaml:"candidate_limit"` // semantic search cap
	TimeWindow     time.Duration `yaml:"time_window"`     // 0 = no limit
	MaxGroups      int           `yaml:"max_groups"`      // groups enriched/offered
	MaxAggregate   int           `yaml:"max_aggregate"`   // auto-aggregation cutoff
	MinSimilarity  float64       `yaml:"min_similarity"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// ChainConfig bounds chain execution.
type ChainConfig struct {
	MaxLength int `yaml:"max_length"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Embed: EmbedConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			CacheSize: 10000,
		},
		Store: StoreConfig{
			DBPath:     "courier.db",
			VectorPath: "",
			Collection: "messages",
		},
		Search: SearchConfig{
			CandidateLimit: 100,
			TimeWindow:     48 * time.Hour,
			MaxGroups:      5,
			MaxAggregate:   3,
			MinSimilarity:  0.3,
		},
		Server: ServerConfig{
			Addr: ":8089",
		},
		Chain: ChainConfig{
			MaxLength: 5,
		},
	}
}

// Load reads the YAML file at path (when it exists), applies it over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyFloors()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COURIER_API_KEY"); v != "" {
		c.LLM.APIKey = v
		if c.Embed.APIKey == "" {
			c.Embed.APIKey = v
		}
	}
	if v := os.Getenv("COURIER_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("COURIER_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("COURIER_EMBED_API_KEY"); v != "" {
		c.Embed.APIKey = v
	}
	if v := os.Getenv("COURIER_DB_PATH"); v != "" {
		c.Store.DBPath = v
	}
	if v := os.Getenv("COURIER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("COURIER_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("COURIER_MAX_CHAIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chain.MaxLength = n
		}
	}
}

// applyFloors clamps zero or negative knobs back to usable values. A zero
// TimeWindow is preserved: it means "no limit".
func (c *Config) applyFloors() {
	if c.Search.CandidateLimit <= 0 {
		c.Search.CandidateLimit = 100
	}
	if c.Search.MaxGroups <= 0 {
		c.Search.MaxGroups = 5
	}
	if c.Search.MaxAggregate <= 0 {
		c.Search.MaxAggregate = 3
	}
	if c.Chain.MaxLength <= 0 {
		c.Chain.MaxLength = 5
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Embed.CacheSize <= 0 {
		c.Embed.CacheSize = 10000
	}
}
