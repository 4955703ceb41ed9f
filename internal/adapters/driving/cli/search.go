package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-index/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchSets   []string
	searchACL    []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and ranks indexed chunks by semantic similarity,
adjusted by each document's boost. Only public chunks are returned unless
--acl lists principals such as 'user_email:ann@example.com' or 'group:eng'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "skip this many results")
	searchCmd.Flags().StringSliceVar(&searchSets, "set", nil, "only return chunks in these document sets")
	searchCmd.Flags().StringSliceVar(&searchACL, "acl", nil, "principals of the caller")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the printed form of a search result.
type searchHit struct {
	Rank       int      `json:"rank"`
	DocumentID string   `json:"document_id"`
	ChunkID    int      `json:"chunk_id"`
	Title      string   `json:"title"`
	URI        string   `json:"uri"`
	Link       string   `json:"link,omitempty"`
	Score      float64  `json:"score"`
	Blurb      string   `json:"blurb,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := loadIndexServices(ctx)
	if err != nil {
		return err
	}

	results, err := svc.Searcher.Search(ctx, args[0], domain.SearchOptions{
		Limit:        searchLimit,
		Offset:       searchOffset,
		DocumentSets: searchSets,
		ACL:          searchACL,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = toHit(searchOffset+i+1, r)
	}
	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	outputSearchTable(cmd, hits)
	return nil
}

func toHit(rank int, r domain.SearchResult) searchHit {
	doc := r.Chunk.SourceDocument
	hit := searchHit{
		Rank:       rank,
		DocumentID: doc.ID,
		ChunkID:    r.Chunk.ChunkID,
		Title:      doc.IndexTitle(),
		URI:        doc.URI,
		Score:      r.Score,
		Blurb:      r.Chunk.Blurb,
		Highlights: r.Highlights,
	}
	if len(r.Chunk.SourceLinks) > 0 {
		first := slices.Min(slices.Collect(maps.Keys(r.Chunk.SourceLinks)))
		hit.Link = r.Chunk.SourceLinks[first]
	}
	return hit
}

func outputSearchJSON(cmd *cobra.Command, hits []searchHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []searchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, h := range hits {
		cmd.Printf("  [%d] %s (%.2f)\n", h.Rank, h.Title, h.Score)
		cmd.Printf("      %s\n", filesystem.ResolveWebURL(h.URI))
		snippet := h.Blurb
		if len(h.Highlights) > 0 {
			snippet = h.Highlights[0]
		}
		if snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}
