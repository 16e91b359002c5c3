// Package config loads and validates moviemood's configuration.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file (--config, MOVIEMOOD_CONFIG, or ./moviemood.yaml)
//  3. environment variables, including those loaded from .env
//
// All secrets are checked once here so a missing key fails at startup with
// the name of the variable to set, not later as an authentication error.
package config

import (
	"time"
)

// ConfigPathEnvVar names the environment variable holding a config file path.
const ConfigPathEnvVar = "MOVIEMOOD_CONFIG"

// DefaultConfigPaths are searched when no path is given.
var DefaultConfigPaths = []string{"moviemood.yaml", "moviemood.yml"}

// Config is the fully resolved configuration.
type Config struct {
	OpenAI       OpenAIConfig       `koanf:"openai"`
	Availability AvailabilityConfig `koanf:"availability"`
	Tracing      TracingConfig      `koanf:"tracing"`
	Catalog      CatalogConfig      `koanf:"catalog"`
	Index        IndexConfig        `koanf:"index"`
	Retrieval    RetrievalConfig    `koanf:"retrieval"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Log          LogConfig          `koanf:"log"`
}

// OpenAIConfig covers both chat and embeddings.
type OpenAIConfig struct {
	APIKey         string  `koanf:"api_key" validate:"required"`
	BaseURL        string  `koanf:"base_url" validate:"omitempty,url"`
	ChatModel      string  `koanf:"chat_model" validate:"required"`
	EmbeddingModel string  `koanf:"embedding_model" validate:"required"`
	Temperature    float64 `koanf:"temperature" validate:"gte=0,lte=2"`
}

// AvailabilityConfig configures the streaming lookup API.
type AvailabilityConfig struct {
	APIKey            string        `koanf:"api_key" validate:"required"`
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Host              string        `koanf:"host" validate:"required,hostname_rfc1123"`
	Country           string        `koanf:"country" validate:"required,len=2"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	AggregateTimeout  time.Duration `koanf:"aggregate_timeout" validate:"gt=0"`
	Concurrency       int           `koanf:"concurrency" validate:"min=1,max=32"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
}

// TracingConfig configures optional run tracing. Tracing is on when APIKey is set.
type TracingConfig struct {
	APIKey   string `koanf:"api_key"`
	Endpoint string `koanf:"endpoint" validate:"required_with=APIKey,omitempty,url"`
	Project  string `koanf:"project"`
}

// Enabled reports whether tracing should be installed.
func (t TracingConfig) Enabled() bool {
	return t.APIKey != ""
}

// CatalogConfig lists the CSV files (glob patterns) to index.
type CatalogConfig struct {
	Paths []string `koanf:"paths" validate:"min=1,dive,required"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	// CacheDir holds the embedding cache; empty keeps it in memory.
	CacheDir string `koanf:"cache_dir"`
	TopK     int    `koanf:"top_k" validate:"min=1,max=50"`
}

// RetrievalConfig configures multi-query retrieval.
type RetrievalConfig struct {
	MultiQuery      bool `koanf:"multi_query"`
	QueryCount      int  `koanf:"query_count" validate:"min=1,max=10"`
	IncludeOriginal bool `koanf:"include_original"`
}

// Output modes for the recommendation parser.
const (
	OutputStructured = "structured"
	OutputText       = "text"
)

// RecommendConfig selects how model replies are parsed.
type RecommendConfig struct {
	Output string `koanf:"output" validate:"oneof=structured text"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-3.5-turbo",
			EmbeddingModel: "text-embedding-ada-002",
			Temperature:    0,
		},
		Availability: AvailabilityConfig{
			BaseURL:           "https://utelly-tv-shows-and-movies-availability-v1.p.rapidapi.com",
			Host:              "utelly-tv-shows-and-movies-availability-v1.p.rapidapi.com",
			Country:           "us",
			Timeout:           10 * time.Second,
			AggregateTimeout:  20 * time.Second,
			Concurrency:       4,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Tracing: TracingConfig{
			Endpoint: "https://api.smith.langchain.com",
			Project:  "moviemood",
		},
		Catalog: CatalogConfig{
			Paths: []string{"top250_movies_filtered.csv"},
		},
		Index: IndexConfig{
			TopK: 4,
		},
		Retrieval: RetrievalConfig{
			MultiQuery: true,
			QueryCount: 3,
		},
		Recommend: RecommendConfig{
			Output: OutputStructured,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
