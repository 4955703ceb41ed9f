package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

var (
	includePatterns []string
	excludePatterns []string
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Index documents in a directory",
	Long: `Reads every supported file under the directory, splits it into chunks,
embeds the chunks and stores them. Documents indexed before are replaced.
Hidden files and directories are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	addPatternFlags(indexCmd)
	rootCmd.AddCommand(indexCmd)
}

func addPatternFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&includePatterns, "include", nil, "only index files matching these glob patterns (e.g. '**/*.md')")
	cmd.Flags().StringSliceVar(&excludePatterns, "exclude", nil, "skip files matching these glob patterns")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := loadIndexServices(ctx)
	if err != nil {
		return err
	}
	conn, err := newConnector(ctx, args[0], svc.Normalisers)
	if err != nil {
		return err
	}
	defer conn.Close()

	return indexAll(ctx, cmd, svc, conn)
}

func newConnector(ctx context.Context, dir string, normalisers driven.NormaliserRegistry) (*filesystem.Connector, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	conn := filesystem.New(root,
		filesystem.WithInclude(includePatterns...),
		filesystem.WithExclude(excludePatterns...),
		filesystem.WithMIMEFilter(normalisers.Supports),
	)
	if err := conn.Validate(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// indexAll reads, normalises and indexes every document of the connector.
func indexAll(ctx context.Context, cmd *cobra.Command, svc *Services, conn driven.Connector) error {
	docs, err := readDocuments(ctx, conn, svc.Normalisers)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No supported documents found.")
		return nil
	}

	result, err := svc.Indexer.IndexBatch(ctx, docs)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	printBatch(cmd, result)
	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(failed), len(result.Documents))
	}
	return nil
}

func readDocuments(ctx context.Context, conn driven.Connector, normalisers driven.NormaliserRegistry) ([]*domain.Document, error) {
	raws, errs := conn.FullSync(ctx)

	var docs []*domain.Document
	for raw := range raws {
		doc, err := normalise(ctx, normalisers, &raw)
		if err != nil {
			logger.Warn("Skipping %s: %v", raw.URI, err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := <-errs; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Some files could not be read: %v", err)
	}
	return docs, nil
}

func normalise(ctx context.Context, normalisers driven.NormaliserRegistry, raw *domain.RawDocument) (*domain.Document, error) {
	res, err := normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	doc := res.Document
	return &doc, nil
}

func printBatch(cmd *cobra.Command, result *driving.BatchResult) {
	failed := result.Failed()
	cmd.Printf("Indexed %d documents (%d chunks) with %s\n",
		len(result.Documents)-len(failed), result.ChunkCount(), result.Model.ModelName)
	for _, f := range failed {
		cmd.Printf("  failed: %v\n", f.Err)
	}
}
