package config

import "fmt"

// Validate checks the configuration for consistency.
// Returns a wrapped sentinel error for the first violation found.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, googleai, ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: empty model name", ErrInvalidEmbedderModel)
	}

	if c.EmbedderDimension <= 0 || c.EmbedderDimension > 8192 {
		return fmt.Errorf("%w: %d (must be in 1..8192)", ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	switch c.VectorBackend {
	case BackendMemory, BackendPgvector, BackendQdrant:
	default:
		return fmt.Errorf("%w: %q (must be one of: memory, pgvector, qdrant)",
			ErrInvalidVectorBackend, c.VectorBackend)
	}

	if c.VectorBackend == BackendPgvector {
		if err := c.Postgres.validate(); err != nil {
			return err
		}
	}

	if c.VectorBackend == BackendQdrant {
		if c.Qdrant.URL == "" || c.Qdrant.Collection == "" {
			return fmt.Errorf("%w: url and collection are required", ErrInvalidQdrantURL)
		}
	}

	return c.Retrieval.validate()
}

func (p PostgresConfig) validate() error {
	if p.Host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgresHost)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, p.Port)
	}
	if p.DBName == "" {
		return fmt.Errorf("%w: empty database name", ErrInvalidPostgresDBName)
	}
	return nil
}

func (r RetrievalConfig) validate() error {
	if r.TopK < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, r.TopK)
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidThreshold, r.Threshold)
	}
	if r.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunkSize, r.ChunkSize)
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk_size)", ErrInvalidChunkSize, r.ChunkOverlap)
	}
	return nil
}
