// Package provider builds the production embedding provider from
// configuration via Genkit plugins.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/recallhq/recall/internal/config"
)

// NewEmbedder initializes Genkit with the configured provider plugin and
// returns the embedder for cfg.EmbedderModel.
//
// The gemini/googleai providers require GEMINI_API_KEY in the environment;
// the plugin reads it itself. The ollama provider talks to cfg.OllamaHost.
func NewEmbedder(ctx context.Context, cfg *config.Config) (ai.Embedder, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	switch cfg.Provider {
	case config.ProviderGemini, config.ProviderGoogleAI, "":
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("failed to initialize genkit with googleai plugin")
		}
		embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		if embedder == nil {
			return nil, fmt.Errorf("embedder model %q not available", cfg.EmbedderModel)
		}
		return embedder, nil

	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("failed to initialize genkit with ollama plugin")
		}
		// Ollama has no auto-discovery; the embedder must be registered,
		// then looked up keyed by server address.
		plugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder := ollama.Embedder(g, cfg.OllamaHost)
		if embedder == nil {
			return nil, fmt.Errorf("embedder model %q not available", cfg.EmbedderModel)
		}
		return embedder, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}
