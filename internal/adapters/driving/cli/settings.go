package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

var (
	embedProvider   string
	embedModel      string
	embedDimensions int
	embedBaseURL    string
	embedAPIKey     string
	embedNormalize  bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View chunking, embedding and indexing settings.

Settings are stored in config.toml in the config directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the embedding provider used for indexing and search.

Available providers:
  ollama - local Ollama instance (default)
  openai - OpenAI API (requires --api-key)`,
	RunE: runSettingsEmbedding,
}

func init() {
	f := settingsEmbeddingCmd.Flags()
	f.StringVar(&embedProvider, "provider", string(domain.AIProviderOllama), "embedding provider (ollama, openai)")
	f.StringVar(&embedModel, "model", "", "model name (provider default if empty)")
	f.IntVar(&embedDimensions, "dimensions", 0, "embedding dimensions (model default if 0)")
	f.StringVar(&embedBaseURL, "base-url", "", "API base URL")
	f.StringVar(&embedAPIKey, "api-key", "", "API key")
	f.BoolVar(&embedNormalize, "normalize", true, "L2-normalise embeddings")

	settingsCmd.AddCommand(settingsShowCmd, settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	s := svc.Settings.Get()

	cmd.Println("Chunking:")
	cmd.Printf("  Chunk size:   %d bytes\n", s.Chunking.ChunkSize)
	cmd.Printf("  Blurb size:   %d bytes\n", s.Chunking.BlurbSize)
	cmd.Printf("  Mini chunks:  %s\n", enabled(s.Chunking.EnableMiniChunks, fmt.Sprintf("%d bytes", s.Chunking.MiniChunkSize)))
	cmd.Printf("  Large chunks: %s\n", enabled(s.Chunking.EnableLargeChunks, fmt.Sprintf("ratio %d", s.Chunking.LargeChunkRatio)))
	cmd.Println()

	cmd.Println("Embedding:")
	cmd.Printf("  Provider:   %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model:      %s\n", orDefault(s.Embedding.Model))
	if s.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", s.Embedding.Dimensions)
	}
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL:   %s\n", s.Embedding.BaseURL)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API key:    %s\n", maskAPIKey(s.Embedding.APIKey))
	}
	cmd.Printf("  Batch size: %d\n", s.Embedding.BatchSize)
	cmd.Println()

	cmd.Println("Indexing:")
	cmd.Printf("  Workers:        %d\n", s.Indexing.Workers)
	cmd.Printf("  Public default: %t\n", s.Indexing.DefaultPublic)
	if len(s.Indexing.DefaultDocumentSets) > 0 {
		cmd.Printf("  Document sets:  %s\n", strings.Join(s.Indexing.DefaultDocumentSets, ", "))
	}
	if s.Indexing.DefaultBoost != 0 {
		cmd.Printf("  Boost:          %d\n", s.Indexing.DefaultBoost)
	}

	if !s.Embedding.IsConfigured() {
		cmd.Println()
		cmd.Println("Embedding provider is not fully configured. Run 'sercha-index settings embedding'.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	e := svc.Settings.Get().Embedding
	flags := cmd.Flags()
	if flags.Changed("provider") && domain.AIProvider(embedProvider) != e.Provider {
		e.Provider = domain.AIProvider(embedProvider)
		e.Model = ""
		e.Dimensions = 0
		e.BaseURL = ""
	}
	if !e.Provider.IsValid() {
		return fmt.Errorf("unknown provider %q", embedProvider)
	}
	if flags.Changed("model") {
		e.Model = embedModel
	}
	if flags.Changed("dimensions") {
		e.Dimensions = embedDimensions
	}
	if flags.Changed("base-url") {
		e.BaseURL = embedBaseURL
	}
	if flags.Changed("normalize") {
		e.Normalize = embedNormalize
	}
	if embedAPIKey != "" {
		e.APIKey = embedAPIKey
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return fmt.Errorf("%s requires --api-key", e.Provider)
	}

	if err := svc.Settings.SaveEmbedding(e); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Embedding provider set to %s.\n", e.Provider.Description())
	cmd.Println("Register the model with 'sercha-index model register' if it differs from the indexed one.")
	return nil
}

func enabled(on bool, detail string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + detail + ")"
}

func orDefault(s string) string {
	if s == "" {
		return "(provider default)"
	}
	return s
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
