package driving

import "github.com/custodia-labs/sercha-index/internal/core/domain"

// SettingsService reads and writes application settings.
type SettingsService interface {
	// Get returns the settings, with defaults for anything not configured.
	Get() domain.Settings

	// SaveEmbedding persists the embedding provider settings.
	SaveEmbedding(e domain.EmbeddingSettings) error
}
