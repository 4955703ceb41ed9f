package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/logger"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Index a directory and keep the index up to date",
	Long: `Indexes the directory like 'index', then watches it for changes.
Created and modified files are re-indexed and deleted files are removed
from the index. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addPatternFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := loadIndexServices(ctx)
	if err != nil {
		return err
	}
	conn, err := newConnector(ctx, args[0], svc.Normalisers)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := indexAll(ctx, cmd, svc, conn); err != nil {
		cmd.PrintErrf("Initial index incomplete: %v\n", err)
	}

	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", conn.RootPath())
	for change := range changes {
		applyChange(ctx, cmd, svc, change)
	}
	return nil
}

func applyChange(ctx context.Context, cmd *cobra.Command, svc *Services, change domain.RawDocumentChange) {
	uri := change.Document.URI
	logger.Debug("Change %s: %s", change.Type, uri)

	if change.Type == domain.ChangeDeleted {
		id := normalisers.DocumentID(change.Document.Source, uri)
		if err := svc.Indexer.Delete(ctx, id); err != nil {
			cmd.PrintErrf("Failed to remove %s: %v\n", uri, err)
			return
		}
		cmd.Printf("Removed %s\n", uri)
		return
	}

	doc, err := normalise(ctx, svc.Normalisers, &change.Document)
	if err != nil {
		logger.Warn("Skipping %s: %v", uri, err)
		return
	}
	res, err := svc.Indexer.Index(ctx, doc)
	if err != nil {
		cmd.PrintErrf("Failed to index %s: %v\n", uri, err)
		return
	}
	cmd.Printf("Indexed %s (%d chunks)\n", uri, res.ChunkCount)
}
