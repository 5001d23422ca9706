package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig configures the chat completion model used for answers.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// ChunkerConfig configures how documents are split into chunks.
// Overlap is a pointer so an explicit `overlap: 0` disables overlap
// instead of falling back to the default.
type ChunkerConfig struct {
	MaxChunkSize int  `yaml:"max_chunk_size"`
	Overlap      *int `yaml:"overlap"`
}

// OverlapChars returns the configured overlap, defaulting to 200.
func (c ChunkerConfig) OverlapChars() int {
	if c.Overlap == nil {
		return 200
	}
	return *c.Overlap
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig contains connection details for a pgvector store. The
// DSN itself lives in an environment variable so config files stay free
// of credentials.
type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type      string `yaml:"type"`
	MaxLength int    `yaml:"max_length"`
}

// RetrievalConfig tunes query-time behavior.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	ContextBudget int     `yaml:"context_budget"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// CrawlConfig tunes the documentation crawler.
type CrawlConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
	Concurrency int `yaml:"concurrency"`
}

// Framework describes one indexed documentation source along with its
// chat presentation.
type Framework struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	DocsURL     string `yaml:"docs_url"`
	SitemapURL  string `yaml:"sitemap_url"`
	BaseURL     string `yaml:"base_url"`
	Color       string `yaml:"color"`
	Emoji       string `yaml:"emoji"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Crawl       CrawlConfig       `yaml:"crawl"`
	Frameworks  []Framework       `yaml:"frameworks"`
}

// Framework returns the configured framework with the given name, or
// nil when none matches.
func (c *AppConfig) Framework(name string) *Framework {
	for i := range c.Frameworks {
		if c.Frameworks[i].Name == name {
			return &c.Frameworks[i]
		}
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docsrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/docsrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{
			Type: "openai",
			OpenAI: &OpenAIEmbedderConfig{
				Model:     "text-embedding-ada-002",
				Dimension: 1536,
			},
		},
		Generator:   GeneratorConfig{Model: "gpt-4", Temperature: 0.7},
		Chunker:     ChunkerConfig{MaxChunkSize: 1000},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "lead", MaxLength: 200},
		Retrieval:   RetrievalConfig{TopK: 5, ContextBudget: 6000},
		Crawl:       CrawlConfig{TimeoutSecs: 30, Concurrency: 8},
		Frameworks:  DefaultFrameworks(),
	}
	applyConfigDefaults(cfg)
	return cfg
}

// DefaultFrameworks lists the documentation sites indexed out of the box.
func DefaultFrameworks() []Framework {
	return []Framework{
		{
			Name:        "crawl4ai",
			Label:       "Crawl4AI",
			Description: "Web crawling and scraping for AI",
			DocsURL:     "https://docs.crawl4ai.com/",
			SitemapURL:  "https://docs.crawl4ai.com/sitemap.xml",
			BaseURL:     "https://docs.crawl4ai.com/",
			Color:       "#FF6B6B",
			Emoji:       "🕷️",
		},
		{
			Name:        "pydantic",
			Label:       "Pydantic AI",
			Description: "Agent framework with type-safe model outputs",
			DocsURL:     "https://ai.pydantic.dev/",
			SitemapURL:  "https://ai.pydantic.dev/sitemap.xml",
			BaseURL:     "https://ai.pydantic.dev/",
			Color:       "#4ECDC4",
			Emoji:       "🔷",
		},
		{
			Name:        "agno",
			Label:       "Agno",
			Description: "Lightweight multi-modal agent library",
			DocsURL:     "https://docs.agno.com/",
			SitemapURL:  "https://docs.agno.com/sitemap.xml",
			BaseURL:     "https://docs.agno.com/",
			Color:       "#95E77E",
			Emoji:       "⚡",
		},
		{
			Name:        "mcp",
			Label:       "Model Context Protocol",
			Description: "Open protocol for LLM tool integrations",
			DocsURL:     "https://modelcontextprotocol.io/",
			SitemapURL:  "https://modelcontextprotocol.io/sitemap.xml",
			BaseURL:     "https://modelcontextprotocol.io/",
			Color:       "#A8DADC",
			Emoji:       "🔌",
		},
		{
			Name:        "langchain",
			Label:       "LangChain",
			Description: "Composable LLM application framework",
			DocsURL:     "https://python.langchain.com/",
			SitemapURL:  "https://python.langchain.com/sitemap.xml",
			BaseURL:     "https://python.langchain.com/",
			Color:       "#FFE66D",
			Emoji:       "🦜",
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = 1000
	}
	if cfg.Chunker.Overlap == nil {
		overlap := 200
		cfg.Chunker.Overlap = &overlap
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-ada-002"
		}
		if o.Dimension == 0 {
			o.Dimension = 1536
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 3
		}
		if o.BatchSize == 0 {
			o.BatchSize = 50
		}
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4"
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.7
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "site_pages"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "postgres" {
		if cfg.VectorStore.Postgres == nil {
			cfg.VectorStore.Postgres = &PostgresConfig{}
		}
		if cfg.VectorStore.Postgres.DSNEnv == "" {
			cfg.VectorStore.Postgres.DSNEnv = "DATABASE_URL"
		}
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "lead"
	}
	if cfg.Summarizer.MaxLength == 0 {
		cfg.Summarizer.MaxLength = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = 6000
	}
	if cfg.Crawl.TimeoutSecs == 0 {
		cfg.Crawl.TimeoutSecs = 30
	}
	if cfg.Crawl.Concurrency == 0 {
		cfg.Crawl.Concurrency = 8
	}
	if len(cfg.Frameworks) == 0 {
		cfg.Frameworks = DefaultFrameworks()
	}
}
