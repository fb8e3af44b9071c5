package embedding

import "context"

// Embedder turns commit documents (see BuildDocument) into vectors.
// commitmux's two production call sites, EmbedPending and the
// commitmux_search_semantic tool handler, always pass exactly one text
// per call; the slice-of-texts shape is kept because it's what both
// concrete providers' wire protocols already speak, not because
// commitmux batches.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Available reports whether the provider is reachable right now.
	// EmbedPending and the search tool do not call it; they find out from
	// the Embed call itself.
	Available() bool

	// ProviderID identifies the provider and model as "provider:model"
	// (e.g. "litellm:nomic-embed-text"). It is not stored with the
	// vectors.
	ProviderID() string

	// Dimensions returns the embedding vector size the provider reports.
	// store.CheckEmbeddingDimension checks the length of each actual
	// vector instead of calling this.
	Dimensions() int
}

// NullEmbedder backs EmbedConfig.Provider == ProviderOff: an operator-
// level kill switch that disables embedding everywhere without having to
// flip embed_enabled back on every repo. Embed returns no vector, so
// EmbedPending counts the commits of its first batch as Failed and then
// stops, rather than storing a zero-length vector.
type NullEmbedder struct{}

func (n *NullEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (n *NullEmbedder) Available() bool {
	return false
}

func (n *NullEmbedder) ProviderID() string {
	return "off"
}

func (n *NullEmbedder) Dimensions() int {
	return 0
}
