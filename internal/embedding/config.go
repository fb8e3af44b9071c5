package embedding

import "context"

// ConfigStore is the narrow slice of the store's Config operations the
// embedding subsystem needs. internal/store.Store implements it.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, bool, error)
}

const (
	configKeyProvider = "embed.provider"
	configKeyModel    = "embed.model"
	configKeyEndpoint = "embed.endpoint"

	// ProviderLiteLLM drives the OpenAI-compatible POST /embeddings
	// surface most gateways (LiteLLM, vLLM, and Ollama's own compat
	// layer) expose; it is the default since it needs no provider-
	// specific client behind it.
	ProviderLiteLLM = "litellm"
	// ProviderOllamaNative drives Ollama's own /api/embeddings route,
	// for operators running a bare Ollama instance with its OpenAI-
	// compat surface turned off.
	ProviderOllamaNative = "ollama"
	// ProviderOff disables embedding regardless of a repo's embed_enabled
	// flag, an operator-level kill switch independent of per-repo config.
	ProviderOff = "off"

	defaultProvider = ProviderLiteLLM
	defaultModel    = "nomic-embed-text"
	defaultEndpoint = "http://localhost:11434/v1"
)

// EmbedConfig holds the operator-visible embedding settings, persisted in
// the store's config table rather than a file or environment variable
// (operators interacting through an MCP host often have no env access).
type EmbedConfig struct {
	Provider string
	Model    string
	Endpoint string
}

// FromStore reads embed.provider/embed.model/embed.endpoint from the
// store, falling back to documented defaults for unset keys.
// store.SetConfig accepts only embed.model and embed.endpoint, so
// embed.provider takes a non-default value only when a row for it is
// written to the config table directly.
func FromStore(ctx context.Context, store ConfigStore) (EmbedConfig, error) {
	cfg := EmbedConfig{Provider: defaultProvider, Model: defaultModel, Endpoint: defaultEndpoint}

	if v, ok, err := store.GetConfig(ctx, configKeyProvider); err != nil {
		return EmbedConfig{}, err
	} else if ok && v != "" {
		cfg.Provider = v
	}

	if v, ok, err := store.GetConfig(ctx, configKeyModel); err != nil {
		return EmbedConfig{}, err
	} else if ok && v != "" {
		cfg.Model = v
	}

	if v, ok, err := store.GetConfig(ctx, configKeyEndpoint); err != nil {
		return EmbedConfig{}, err
	} else if ok && v != "" {
		cfg.Endpoint = v
	}

	return cfg, nil
}

// NewEmbedder builds the Embedder the rest of commitmux drives in
// production, pointed at cfg.Endpoint/cfg.Model. cfg.Provider selects
// between the OpenAI-compatible client (the default, used by every
// gateway in the pack's examples), Ollama's native /api/embeddings route
// for operators who haven't enabled Ollama's OpenAI-compat surface, and
// "off" as a global kill switch that overrides every repo's embed_enabled
// flag without having to flip each one back. Anything else falls back to
// the OpenAI-compatible client rather than erroring, since a typo'd
// provider value shouldn't brick backfill/search for an otherwise-
// reachable endpoint.
func (cfg EmbedConfig) NewEmbedder() Embedder {
	switch cfg.Provider {
	case ProviderOff:
		return &NullEmbedder{}
	case ProviderOllamaNative:
		return NewOllamaClient(
			WithBaseURL(cfg.Endpoint),
			WithModel(cfg.Model),
		)
	default:
		return NewLiteLLMClient(
			WithLiteLLMBaseURL(cfg.Endpoint),
			WithLiteLLMModel(cfg.Model),
		)
	}
}
