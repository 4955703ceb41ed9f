// Package cli implements the sercha-index command line interface with cobra.
//
// Commands reach the core through the Services set by the bootstrap
// function. Services are built lazily so that commands such as version
// work without a configured embedding provider.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

var version = "dev"

// Options are the global flags needed to build the services.
type Options struct {
	// ConfigDir holds config.toml. Empty means ~/.sercha-index.
	ConfigDir string

	// DataDir holds the index database. Empty means ~/.sercha-index/data.
	DataDir string

	Verbose bool
}

// Services are the core services driven by the commands.
type Services struct {
	Indexer     driving.Indexer
	Searcher    driving.Searcher
	Models      driving.EmbeddingModelService
	Settings    driving.SettingsService
	Normalisers driven.NormaliserRegistry

	// EmbeddingErr is set when the embedding provider could not be
	// configured. Indexer and Searcher are nil then.
	EmbeddingErr error

	// Close releases stores and clients. May be nil.
	Close func() error
}

// Bootstrap builds the services from the global options.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	opts      Options
	bootstrap Bootstrap
	loaded    *Services
)

var rootCmd = &cobra.Command{
	Use:   "sercha-index",
	Short: "Chunk, embed and search local documents",
	Long: `sercha-index turns local documents into searchable chunks.

Documents are split into chunks, embedded with the configured embedding
model and stored together with their access rules, document sets and boost.
Search embeds the query and ranks chunks by similarity.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(opts.Verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.sercha-index)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.sercha-index/data)")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds the services.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command and releases the services afterwards.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// loadServices builds the services on first use.
func loadServices(ctx context.Context) (*Services, error) {
	if loaded != nil {
		return loaded, nil
	}
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}
	s, err := bootstrap(ctx, opts)
	if err != nil {
		return nil, err
	}
	loaded = s
	return loaded, nil
}

// loadIndexServices is loadServices for commands that embed text.
func loadIndexServices(ctx context.Context) (*Services, error) {
	s, err := loadServices(ctx)
	if err != nil {
		return nil, err
	}
	if s.EmbeddingErr != nil {
		return nil, fmt.Errorf("embedding provider unavailable: %w\nRun 'sercha-index settings embedding' to configure it", s.EmbeddingErr)
	}
	return s, nil
}

func closeServices() {
	if loaded == nil || loaded.Close == nil {
		return
	}
	if err := loaded.Close(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
	loaded = nil
}
