package model

import "time"

// Config is the full runtime configuration, loadable from
// ~/.deedscope/config.yaml, DEEDSCOPE_* environment variables, or flags.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Extractor   ExtractorConfig   `yaml:"extractor" mapstructure:"extractor"`
	Agent       AgentConfig       `yaml:"agent" mapstructure:"agent"`
	Workflow    WorkflowConfig    `yaml:"workflow" mapstructure:"workflow"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Redis       RedisConfig       `yaml:"redis" mapstructure:"redis"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Demo        bool              `yaml:"demo" mapstructure:"demo"` // Deterministic demonstration data, explicit opt-in only
}

// ServerConfig covers the HTTP API listener
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// HTTPConfig covers outbound HTTP behavior shared by all fetchers
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// RetrievalConfig bounds the record retriever
type RetrievalConfig struct {
	DocumentCap     int           `yaml:"document_cap" mapstructure:"document_cap"`
	PDFLimit        int           `yaml:"pdf_limit" mapstructure:"pdf_limit"`
	PageLimit       int           `yaml:"page_limit" mapstructure:"page_limit"`
	MinTextChars    int           `yaml:"min_text_chars" mapstructure:"min_text_chars"`
	RequestsPerSec  float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst           int           `yaml:"burst" mapstructure:"burst"`
	PipelineCeiling time.Duration `yaml:"pipeline_ceiling" mapstructure:"pipeline_ceiling"`
}

// SearchConfig points at the web-search utility
type SearchConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ExtractorConfig points at the document optical-extraction service
type ExtractorConfig struct {
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// AgentConfig points at the browser automation sidecar
type AgentConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WorkflowConfig points at the durable workflow engine event endpoint
type WorkflowConfig struct {
	EventURL string        `yaml:"event_url" mapstructure:"event_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig configures the structured-generation provider
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "openai" or "" to disable
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RedisConfig enables the Redis-backed job store when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ConcurrencyConfig bounds parallel work inside one job
type ConcurrencyConfig struct {
	SearchWorkers int `yaml:"search_workers" mapstructure:"search_workers"`
	FetchWorkers  int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	BatchWorkers  int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Deedscope/0.1 (+https://github.com/deedscope/deedscope)",
			MaxBodyBytes: 2_000_000,
		},
		Retrieval: RetrievalConfig{
			DocumentCap:     15,
			PDFLimit:        10,
			PageLimit:       8,
			MinTextChars:    50,
			RequestsPerSec:  2,
			Burst:           5,
			PipelineCeiling: 10 * time.Minute,
		},
		Search: SearchConfig{
			Timeout: 20 * time.Second,
		},
		Extractor: ExtractorConfig{
			Timeout:  90 * time.Second,
			MaxBytes: 10_000_000,
		},
		Agent: AgentConfig{
			Timeout: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			Timeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Timeout:   60 * time.Second,
			MaxTokens: 4000,
		},
		Concurrency: ConcurrencyConfig{
			SearchWorkers: 6,
			FetchWorkers:  8,
			BatchWorkers:  4,
		},
	}
}
