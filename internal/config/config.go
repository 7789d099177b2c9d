// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the RECALL_ prefix (runtime override)
//  2. Config file (~/.recall/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Embedding: provider, embedder model, vector dimension, rate limit
//   - Vector: vector store backend selection (memory, pgvector, qdrant)
//   - Postgres: chunk row store connection (also backs the pgvector backend)
//   - Retrieval: top-K, score threshold, fusion and re-ranking tuning
//   - Trace: OTLP pipeline tracing
//
// Error handling uses sentinel errors so callers can branch with errors.Is.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model name is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension is out of range.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidVectorBackend indicates the vector store backend is unknown.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidQdrantURL indicates the Qdrant endpoint URL is invalid.
	ErrInvalidQdrantURL = errors.New("invalid Qdrant URL")

	// ErrInvalidThreshold indicates a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidTopK indicates a non-positive top-K.
	ErrInvalidTopK = errors.New("invalid top-K")

	// ErrInvalidChunkSize indicates chunk size/overlap settings are inconsistent.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Vector store backend identifiers used in Config.VectorBackend.
// The backend is resolved exactly once at startup; see vectorstore.New.
const (
	BackendMemory   = "memory"
	BackendPgvector = "pgvector"
	BackendQdrant   = "qdrant"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// text-embedding-004 outputs 768 dimensions, matching the vector(768)
	// columns in db/migrations.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultEmbedderDimension is the vector dimension the corpus is built with.
	DefaultEmbedderDimension = 768
)

// Config stores application configuration.
type Config struct {
	// Embedding provider configuration
	Provider          string  `mapstructure:"provider"`
	EmbedderModel     string  `mapstructure:"embedder_model"`
	EmbedderDimension int     `mapstructure:"embedder_dimension"`
	EmbedRPS          float64 `mapstructure:"embed_rps"` // 0 = unlimited

	// OllamaHost is the Ollama server address, used when Provider is "ollama".
	OllamaHost string `mapstructure:"ollama_host"`

	// Vector store backend: memory, pgvector, or qdrant
	VectorBackend string `mapstructure:"vector_backend"`

	// MemoryPath enables on-disk persistence for the memory backend.
	// Empty means purely in-process.
	MemoryPath string `mapstructure:"memory_path"`

	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Trace     TraceConfig     `mapstructure:"trace"`
}

// PostgresConfig holds the chunk row store connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnURL returns the postgres:// connection URL for pgx and golang-migrate.
func (p PostgresConfig) ConnURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   p.DBName,
	}
	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// QdrantConfig holds the managed vector index settings.
type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RetrievalConfig holds the retrieval pipeline tuning parameters.
//
// Defaults deliberately favor recall (TopK 20, threshold 0.25): the fusion,
// re-ranking, and synthesis stages downstream do the precision work.
type RetrievalConfig struct {
	TopK             int     `mapstructure:"top_k"`
	Threshold        float32 `mapstructure:"threshold"`
	RRFK             int     `mapstructure:"rrf_k"`
	SemanticWeight   float64 `mapstructure:"semantic_weight"`
	KeywordWeight    float64 `mapstructure:"keyword_weight"`
	RerankBlend      float64 `mapstructure:"rerank_blend"`
	MaxContextTokens int     `mapstructure:"max_context_tokens"`
	ChunkSize        int     `mapstructure:"chunk_size"`
	ChunkOverlap     int     `mapstructure:"chunk_overlap"`
	MinMessageLength int     `mapstructure:"min_message_length"`
}

// TraceConfig holds OTLP trace exporter settings.
type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"` // host:port of the OTLP HTTP receiver
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from defaults, the optional config file, and
// RECALL_-prefixed environment variables, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := configDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// No config file is fine; defaults + env apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	v.SetDefault("embed_rps", 0)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("vector_backend", BackendMemory)
	v.SetDefault("memory_path", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "recall")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "recall")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "recall_chunks")
	v.SetDefault("qdrant.timeout", 15*time.Second)

	v.SetDefault("retrieval.top_k", 20)
	v.SetDefault("retrieval.threshold", 0.25)
	v.SetDefault("retrieval.rrf_k", 60)
	v.SetDefault("retrieval.semantic_weight", 1.0)
	v.SetDefault("retrieval.keyword_weight", 1.0)
	v.SetDefault("retrieval.rerank_blend", 0.7)
	v.SetDefault("retrieval.max_context_tokens", 2000)
	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.chunk_overlap", 100)
	v.SetDefault("retrieval.min_message_length", 10)

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.endpoint", "localhost:4318")
	v.SetDefault("trace.service_name", "recall")
	v.SetDefault("trace.environment", "development")
}

// configDir returns ~/.recall, creating it with restricted permissions.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".recall")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
