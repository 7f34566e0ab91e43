// ABOUTME: Centralized configuration for the chapterize CLI and MCP server
// ABOUTME: Defaults, then an optional YAML file, then environment variables, then validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harper/chapterize/internal/charm"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/llm"
	"github.com/harper/chapterize/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a chapterize run
type Config struct {
	// Provider settings
	Provider       string        `yaml:"provider"`
	BaseURL        string        `yaml:"base_url"`
	OpenAIKey      string        `yaml:"-"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	LLMTimeout     time.Duration `yaml:"llm_timeout"`
	LLMMaxRetries  int           `yaml:"llm_max_retries"`
	TitleTimeout   time.Duration `yaml:"title_timeout"`
	TitleMaxTokens int           `yaml:"title_max_tokens"`

	// Embedding fan-out
	EmbedBatchSize   int           `yaml:"embed_batch_size"`
	EmbedConcurrency int           `yaml:"embed_concurrency"`
	EmbedMaxRetries  int           `yaml:"embed_max_retries"`
	EmbedRetryDelay  time.Duration `yaml:"embed_retry_delay"`
	TitleConcurrency int           `yaml:"title_concurrency"`

	// Segmentation
	ChunkMaxTokens           int     `yaml:"max_tokens"`
	ChunkOverlapTokens       int     `yaml:"overlap_tokens"`
	MergeGapToleranceSeconds float64 `yaml:"merge_gap_tolerance_seconds"`
	ParagraphMinWords        int     `yaml:"paragraph_min_words"`
	ParagraphMaxWords        int     `yaml:"paragraph_max_words"`
	TokenizerPath            string  `yaml:"tokenizer_path"`

	// Chaptering
	SimilarityThreshold       float64 `yaml:"similarity_threshold"`
	WindowSeconds             float64 `yaml:"window_seconds"`
	StrideSeconds             float64 `yaml:"stride_seconds"`
	MinChapterDurationSeconds float64 `yaml:"min_chapter_duration_seconds"`
	MergePolicy               string  `yaml:"merge_policy"`
	HeuristicTerms            int     `yaml:"heuristic_terms"`
	TitlePromptChars          int     `yaml:"title_prompt_chars"`

	// Embedding cache
	EmbeddingCache     string `yaml:"embedding_cache"`
	EmbeddingCachePath string `yaml:"embedding_cache_path"`
	CharmHost          string `yaml:"charm_host"`
	CharmDBName        string `yaml:"charm_db"`
	AutoSync           bool   `yaml:"charm_auto_sync"`
}

// Defaults returns a configuration with every default filled in
func Defaults() *Config {
	s := core.DefaultSettings()
	return &Config{
		Provider:       llm.ProviderLMStudio,
		BaseURL:        llm.DefaultBaseURL,
		ChatModel:      llm.DefaultChatModel,
		EmbeddingModel: llm.DefaultEmbeddingModel,
		LLMTimeout:     s.Embedding.Timeout,
		LLMMaxRetries:  2,
		TitleTimeout:   s.Titles.Timeout,
		TitleMaxTokens: 64,

		EmbedBatchSize:   s.Embedding.BatchSize,
		EmbedConcurrency: s.Embedding.Concurrency,
		EmbedMaxRetries:  s.Embedding.MaxRetries,
		EmbedRetryDelay:  s.Embedding.RetryDelay,
		TitleConcurrency: s.Titles.Concurrency,

		ChunkMaxTokens:           s.MaxTokens,
		ChunkOverlapTokens:       s.OverlapTokens,
		MergeGapToleranceSeconds: s.MergeGapToleranceSeconds,
		ParagraphMinWords:        s.ParagraphMinWords,
		ParagraphMaxWords:        s.ParagraphMaxWords,

		SimilarityThreshold:       s.SimilarityThreshold,
		WindowSeconds:             s.WindowSeconds,
		StrideSeconds:             s.StrideSeconds,
		MinChapterDurationSeconds: s.MinChapterDurationSeconds,
		MergePolicy:               string(s.MergePolicy),
		HeuristicTerms:            s.Titles.HeuristicTerms,
		TitlePromptChars:          s.Titles.PromptChars,

		EmbeddingCache: storage.BackendNone,
		CharmHost:      charm.DefaultHost,
		CharmDBName:    "chapterize",
		AutoSync:       true,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile overlays the YAML file at path (if non-empty) on the defaults,
// then applies environment variables, then validates.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyProviderDefaults()
	return cfg, cfg.Validate()
}

// applyProviderDefaults swaps the local LM Studio defaults for hosted ones
// when PROVIDER=openai. Values the user set explicitly are kept.
func (c *Config) applyProviderDefaults() {
	if c.Provider != llm.ProviderOpenAI {
		return
	}
	if c.BaseURL == "" || c.BaseURL == llm.DefaultBaseURL {
		c.BaseURL = llm.OpenAIBaseURL
	}
	if c.EmbeddingModel == "" || c.EmbeddingModel == llm.DefaultEmbeddingModel {
		c.EmbeddingModel = llm.DefaultOpenAIEmbeddingModel
	}
	if c.ChatModel == "" || c.ChatModel == llm.DefaultChatModel {
		c.ChatModel = llm.DefaultResponsesModel
	}
}

func (c *Config) applyEnv() {
	c.Provider = getEnv("PROVIDER", c.Provider)
	c.BaseURL = getEnv("LLM_BASE_URL", c.BaseURL)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.ChatModel = getEnv("CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.LLMTimeout = getEnvDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.LLMMaxRetries = getEnvInt("LLM_MAX_RETRIES", c.LLMMaxRetries)
	c.TitleTimeout = getEnvDuration("TITLE_TIMEOUT", c.TitleTimeout)
	c.TitleMaxTokens = getEnvInt("TITLE_MAX_TOKENS", c.TitleMaxTokens)

	c.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.EmbedConcurrency = getEnvInt("EMBED_CONCURRENCY", c.EmbedConcurrency)
	c.EmbedMaxRetries = getEnvInt("EMBED_MAX_RETRIES", c.EmbedMaxRetries)
	c.EmbedRetryDelay = getEnvDuration("EMBED_RETRY_DELAY", c.EmbedRetryDelay)
	c.TitleConcurrency = getEnvInt("TITLE_CONCURRENCY", c.TitleConcurrency)

	c.ChunkMaxTokens = getEnvInt("CHUNK_MAX_TOKENS", c.ChunkMaxTokens)
	c.ChunkOverlapTokens = getEnvInt("CHUNK_OVERLAP_TOKENS", c.ChunkOverlapTokens)
	c.MergeGapToleranceSeconds = getEnvFloat("MERGE_GAP_TOLERANCE_SECONDS", c.MergeGapToleranceSeconds)
	c.ParagraphMinWords = getEnvInt("PARAGRAPH_MIN_WORDS", c.ParagraphMinWords)
	c.ParagraphMaxWords = getEnvInt("PARAGRAPH_MAX_WORDS", c.ParagraphMaxWords)
	c.TokenizerPath = getEnv("TOKENIZER_PATH", c.TokenizerPath)

	c.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", c.SimilarityThreshold)
	c.WindowSeconds = getEnvFloat("WINDOW_SECONDS", c.WindowSeconds)
	c.StrideSeconds = getEnvFloat("STRIDE_SECONDS", c.StrideSeconds)
	c.MinChapterDurationSeconds = getEnvFloat("MIN_CHAPTER_DURATION_SECONDS", c.MinChapterDurationSeconds)
	c.MergePolicy = getEnv("MERGE_POLICY", c.MergePolicy)
	c.HeuristicTerms = getEnvInt("HEURISTIC_TERMS", c.HeuristicTerms)
	c.TitlePromptChars = getEnvInt("TITLE_PROMPT_CHARS", c.TitlePromptChars)

	c.EmbeddingCache = getEnv("EMBEDDING_CACHE", c.EmbeddingCache)
	c.EmbeddingCachePath = getEnv("EMBEDDING_CACHE_PATH", c.EmbeddingCachePath)
	c.CharmHost = getEnv("CHARM_HOST", c.CharmHost)
	c.CharmDBName = getEnv("CHARM_DB", c.CharmDBName)
	c.AutoSync = getEnvBool("CHARM_AUTO_SYNC", c.AutoSync)
}

// Validate checks provider and cache names, then every pipeline knob
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderLMStudio, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("PROVIDER must be %s or %s, got %q", llm.ProviderLMStudio, llm.ProviderOpenAI, c.Provider)
	}
	if c.Provider == llm.ProviderOpenAI && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for provider %s", llm.ProviderOpenAI)
	}
	switch strings.ToLower(c.EmbeddingCache) {
	case "", storage.BackendNone, storage.BackendSQLite, storage.BackendCharm:
	default:
		return fmt.Errorf("EMBEDDING_CACHE must be none, sqlite or charm, got %q", c.EmbeddingCache)
	}
	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 10 {
		return fmt.Errorf("LLM_MAX_RETRIES must be 0-10, got %d", c.LLMMaxRetries)
	}
	if c.TitleMaxTokens <= 0 {
		return fmt.Errorf("TITLE_MAX_TOKENS must be positive, got %d", c.TitleMaxTokens)
	}
	_, err := c.Settings()
	return err
}

// Settings converts the configuration into validated pipeline settings
func (c *Config) Settings() (core.Settings, error) {
	policy, err := core.ParseMergePolicy(c.MergePolicy)
	if err != nil {
		return core.Settings{}, err
	}

	s := core.Settings{
		MaxTokens:                 c.ChunkMaxTokens,
		OverlapTokens:             c.ChunkOverlapTokens,
		MergeGapToleranceSeconds:  c.MergeGapToleranceSeconds,
		ParagraphMinWords:         c.ParagraphMinWords,
		ParagraphMaxWords:         c.ParagraphMaxWords,
		SimilarityThreshold:       c.SimilarityThreshold,
		WindowSeconds:             c.WindowSeconds,
		StrideSeconds:             c.StrideSeconds,
		MinChapterDurationSeconds: c.MinChapterDurationSeconds,
		MergePolicy:               policy,
		Embedding: core.EmbeddingConfig{
			BatchSize:   c.EmbedBatchSize,
			Concurrency: c.EmbedConcurrency,
			MaxRetries:  c.EmbedMaxRetries,
			RetryDelay:  c.EmbedRetryDelay,
			Timeout:     c.LLMTimeout,
		},
		Titles: core.TitleConfig{
			Timeout:        c.TitleTimeout,
			Concurrency:    c.TitleConcurrency,
			PromptChars:    c.TitlePromptChars,
			HeuristicTerms: c.HeuristicTerms,
		},
	}
	return s, s.Validate()
}

// ClientConfig builds the LLM client configuration
func (c *Config) ClientConfig() *llm.ClientConfig {
	cc := llm.DefaultConfig(c.OpenAIKey)
	cc.BaseURL = c.BaseURL
	cc.ChatModel = c.ChatModel
	cc.EmbeddingModel = c.EmbeddingModel
	cc.MaxTokens = c.TitleMaxTokens
	cc.MaxRetries = c.LLMMaxRetries
	return cc
}

// CacheOptions builds the embedding cache options
func (c *Config) CacheOptions() storage.Options {
	return storage.Options{
		Backend: c.EmbeddingCache,
		Path:    c.EmbeddingCachePath,
		Charm: &charm.Config{
			Host:     c.CharmHost,
			DBName:   c.CharmDBName,
			AutoSync: c.AutoSync,
		},
	}
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
