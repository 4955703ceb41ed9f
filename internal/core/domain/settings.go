package domain

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings controls how documents are split into chunks.
// Sizes are in bytes.
type ChunkingSettings struct {
	ChunkSize        int
	BlurbSize        int
	MiniChunkSize    int
	EnableMiniChunks bool

	// EnableLargeChunks adds merged chunks of LargeChunkRatio regular chunks.
	EnableLargeChunks bool
	LargeChunkRatio   int
}

// EmbeddingSettings holds embedding provider and model configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// Dimensions is the vector size of the model.
	Dimensions int

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Normalize enables L2 normalisation of vectors.
	Normalize bool

	// QueryPrefix and PassagePrefix support asymmetric models.
	QueryPrefix   *string
	PassagePrefix *string

	// BatchSize is the number of texts sent per embedding request.
	BatchSize int

	// RequestsPerSecond throttles embedding requests. Zero disables throttling.
	RequestsPerSecond float64

	// TitleCacheSize bounds the title embedding cache.
	TitleCacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ModelRecord returns the live model record described by these settings.
func (e EmbeddingSettings) ModelRecord() EmbeddingModel {
	return EmbeddingModel{
		ModelName:     e.Model,
		ModelDim:      e.Dimensions,
		Normalize:     e.Normalize,
		QueryPrefix:   cloneString(e.QueryPrefix),
		PassagePrefix: cloneString(e.PassagePrefix),
	}
}

// IndexingSettings holds indexing run configuration, including the default
// metadata applied to documents that have no stored metadata.
type IndexingSettings struct {
	Workers int

	DefaultDocumentSets []string
	DefaultBoost        int
	DefaultPublic       bool
}

// Settings is the full application configuration.
type Settings struct {
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	Indexing  IndexingSettings
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkingSettings{
			ChunkSize:       2048,
			BlurbSize:       128,
			MiniChunkSize:   150,
			LargeChunkRatio: 4,
		},
		Embedding: EmbeddingSettings{
			Provider:       AIProviderOllama,
			Normalize:      true,
			BatchSize:      8,
			TitleCacheSize: 512,
		},
		Indexing: IndexingSettings{
			Workers:       4,
			DefaultPublic: true,
		},
	}
}
