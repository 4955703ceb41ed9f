package domain

// SearchOptions configures a semantic search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Offset skips results for pagination.
	Offset int

	// DocumentSets restricts results to chunks in any of these sets.
	DocumentSets []string

	// ACL lists the caller's principals (see DocumentAccess.ToACL).
	// Empty means only public chunks are returned.
	ACL []string
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// Chunk is the matched chunk as it was indexed.
	Chunk DocMetadataAwareIndexChunk

	// Score is the similarity after boost is applied.
	Score float64

	// Highlights are content sentences containing query terms.
	Highlights []string
}

// Visible reports whether a chunk may be shown to a caller with the given ACL.
func Visible(chunk DocMetadataAwareIndexChunk, acl []string) bool {
	if chunk.access.IsPublic {
		return true
	}
	allowed := make(map[string]struct{}, len(acl))
	for _, entry := range acl {
		allowed[entry] = struct{}{}
	}
	for _, entry := range chunk.access.ToACL() {
		if _, ok := allowed[entry]; ok {
			return true
		}
	}
	return false
}

// InAnySet reports whether a chunk belongs to one of the sets.
// An empty filter matches every chunk.
func InAnySet(chunk DocMetadataAwareIndexChunk, sets []string) bool {
	if len(sets) == 0 {
		return true
	}
	for _, s := range sets {
		if chunk.documentSets.Has(s) {
			return true
		}
	}
	return false
}
