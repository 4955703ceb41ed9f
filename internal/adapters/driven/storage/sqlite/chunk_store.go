package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

type sectionRow struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

type accessRow struct {
	UserEmails           []string `json:"user_emails,omitempty"`
	UserGroups           []string `json:"user_groups,omitempty"`
	ExternalUserEmails   []string `json:"external_user_emails,omitempty"`
	ExternalUserGroupIDs []string `json:"external_user_group_ids,omitempty"`
	IsPublic             bool     `json:"is_public"`
}

func toAccessRow(a domain.DocumentAccess) accessRow {
	return accessRow(a)
}

func (r accessRow) toDomain() domain.DocumentAccess {
	return domain.DocumentAccess(r)
}

// Write replaces the stored chunks of every document in the batch.
// Each document is written in its own transaction.
func (s *chunkStore) Write(ctx context.Context, chunks []domain.DocMetadataAwareIndexChunk) ([]driven.InsertionRecord, error) {
	var order []string
	grouped := make(map[string][]domain.DocMetadataAwareIndexChunk)
	for _, c := range chunks {
		if c.SourceDocument == nil {
			return nil, fmt.Errorf("%w: chunk %d has no document", domain.ErrMissingRequiredField, c.ChunkID)
		}
		id := c.SourceDocument.ID
		if _, ok := grouped[id]; !ok {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], c)
	}

	records := make([]driven.InsertionRecord, 0, len(order))
	for _, id := range order {
		existed, err := s.writeDocument(ctx, grouped[id])
		if err != nil {
			return records, fmt.Errorf("writing document %s: %w", id, err)
		}
		records = append(records, driven.InsertionRecord{
			DocumentID:     id,
			AlreadyExisted: existed,
			ChunkCount:     len(grouped[id]),
		})
	}
	return records, nil
}

func (s *chunkStore) writeDocument(ctx context.Context, chunks []domain.DocMetadataAwareIndexChunk) (bool, error) {
	doc := chunks[0].SourceDocument

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existed bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM chunks WHERE document_id = ?)", doc.ID,
	).Scan(&existed); err != nil {
		return false, fmt.Errorf("checking existing chunks: %w", err)
	}

	if err := saveDocument(ctx, tx, doc); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return false, fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			document_id, chunk_id, blurb, semantic_text, keyword_text, source_links, section_continuation,
			title_prefix, metadata_suffix_semantic, metadata_suffix_keyword,
			mini_chunk_texts, large_chunk_reference_ids,
			full_embedding, mini_chunk_embeddings, title_embedding,
			access, document_sets, boost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		args, err := chunkArgs(c)
		if err != nil {
			return false, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return false, fmt.Errorf("saving chunk %d: %w", c.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return existed, nil
}

func saveDocument(ctx context.Context, tx *sql.Tx, doc *domain.Document) error {
	sections := make([]sectionRow, len(doc.Sections))
	for i, sec := range doc.Sections {
		sections[i] = sectionRow{Text: sec.Text, Link: sec.Link}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshalling sections: %w", err)
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string][]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	var updatedAt sql.NullString
	if !doc.UpdatedAt.IsZero() {
		updatedAt = sql.NullString{String: doc.UpdatedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source, uri, semantic_identifier, title, sections, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			uri = excluded.uri,
			semantic_identifier = excluded.semantic_identifier,
			title = excluded.title,
			sections = excluded.sections,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Source, doc.URI, doc.SemanticIdentifier, doc.Title,
		string(sectionsJSON), string(metadataJSON), updatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func chunkArgs(c domain.DocMetadataAwareIndexChunk) ([]any, error) {
	var links sql.NullString
	if c.SourceLinks != nil {
		byOffset := make(map[string]string, len(c.SourceLinks))
		for offset, link := range c.SourceLinks {
			byOffset[strconv.Itoa(offset)] = link
		}
		data, err := json.Marshal(byOffset)
		if err != nil {
			return nil, fmt.Errorf("marshalling source links: %w", err)
		}
		links = sql.NullString{String: string(data), Valid: true}
	}

	var minis sql.NullString
	if c.MiniChunkTexts != nil {
		data, err := json.Marshal(c.MiniChunkTexts)
		if err != nil {
			return nil, fmt.Errorf("marshalling mini-chunk texts: %w", err)
		}
		minis = sql.NullString{String: string(data), Valid: true}
	}

	refs := c.LargeChunkReferenceIDs
	if refs == nil {
		refs = []int{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return nil, fmt.Errorf("marshalling large chunk references: %w", err)
	}

	var miniVectors []byte
	for _, v := range c.Embeddings.MiniChunkEmbeddings {
		if len(v) != len(c.Embeddings.FullEmbedding) {
			return nil, fmt.Errorf("%w: mini-chunk embedding has %d dimensions, full has %d",
				domain.ErrInvalidInput, len(v), len(c.Embeddings.FullEmbedding))
		}
		miniVectors = append(miniVectors, float32SliceToBytes(v)...)
	}

	accessJSON, err := json.Marshal(toAccessRow(c.Access()))
	if err != nil {
		return nil, fmt.Errorf("marshalling access: %w", err)
	}
	names := c.DocumentSets().Names()
	if names == nil {
		names = []string{}
	}
	setsJSON, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("marshalling document sets: %w", err)
	}

	return []any{
		c.SourceDocument.ID, c.ChunkID, c.Blurb, c.SemanticText(), c.KeywordText(), links, c.SectionContinuation,
		c.TitlePrefix, c.MetadataSuffixSemantic, c.MetadataSuffixKeyword,
		minis, string(refsJSON),
		float32SliceToBytes(c.Embeddings.FullEmbedding), miniVectors, float32SliceToBytes(c.TitleEmbedding),
		string(accessJSON), string(setsJSON), c.Boost(),
	}, nil
}

// DeleteDocument removes a document and its chunks.
func (s *chunkStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

const chunkColumns = `
	document_id, chunk_id, blurb, semantic_text, keyword_text, source_links, section_continuation,
	title_prefix, metadata_suffix_semantic, metadata_suffix_keyword,
	mini_chunk_texts, large_chunk_reference_ids,
	full_embedding, mini_chunk_embeddings, title_embedding,
	access, document_sets, boost`

// GetChunk retrieves a chunk by its key.
func (s *chunkStore) GetChunk(ctx context.Context, chunkKey string) (*domain.DocMetadataAwareIndexChunk, error) {
	documentID, chunkID, err := parseChunkKey(chunkKey)
	if err != nil {
		return nil, err
	}
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? AND chunk_id = ?", documentID, chunkID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying chunk: %w", err)
		}
		return nil, domain.ErrNotFound
	}
	c, err := scanChunk(rows, doc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChunks retrieves all chunks of a document ordered by chunk id.
// Every returned chunk shares one Document value.
func (s *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.DocMetadataAwareIndexChunk, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY chunk_id", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.DocMetadataAwareIndexChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows, doc)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNotFound
	}
	return chunks, nil
}

func (s *chunkStore) getDocument(ctx context.Context, id string) (*domain.Document, error) {
	var (
		doc          domain.Document
		sectionsJSON string
		metadataJSON string
		updatedAt    sql.NullString
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, uri, semantic_identifier, title, sections, metadata, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.ID, &doc.Source, &doc.URI, &doc.SemanticIdentifier, &doc.Title,
		&sectionsJSON, &metadataJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	var sections []sectionRow
	if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
		return nil, fmt.Errorf("unmarshalling sections: %w", err)
	}
	doc.Sections = make([]domain.Section, len(sections))
	for i, sec := range sections {
		doc.Sections[i] = domain.Section{Text: sec.Text, Link: sec.Link}
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}
	if updatedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		doc.UpdatedAt = t
	}
	return &doc, nil
}

// scanChunk rebuilds a chunk from a row through the domain constructors.
// Content is recovered from the stored semantic text and must agree with
// the stored keyword text.
func scanChunk(rows *sql.Rows, doc *domain.Document) (domain.DocMetadataAwareIndexChunk, error) {
	var (
		documentID                       string
		chunkID                          int
		blurb                            string
		semanticText, keywordText        string
		continuation                     bool
		titlePrefix, semSuffix, kwSuffix string
		links, minis                     sql.NullString
		refsJSON                         string
		full, miniBlob, titleVec         []byte
		accessJSON, setsJSON             string
		boost                            int
	)
	if err := rows.Scan(&documentID, &chunkID, &blurb, &semanticText, &keywordText, &links, &continuation,
		&titlePrefix, &semSuffix, &kwSuffix,
		&minis, &refsJSON, &full, &miniBlob, &titleVec, &accessJSON, &setsJSON, &boost); err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("scanning chunk: %w", err)
	}
	key := domain.ChunkKey(documentID, chunkID)

	content, err := domain.StripAssembledText(semanticText, titlePrefix, semSuffix)
	if err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: semantic text: %w", key, err)
	}

	var sourceLinks map[int]string
	if links.Valid {
		var byOffset map[string]string
		if err := json.Unmarshal([]byte(links.String), &byOffset); err != nil {
			return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("unmarshalling source links: %w", err)
		}
		sourceLinks = make(map[int]string, len(byOffset))
		for k, v := range byOffset {
			offset, err := strconv.Atoi(k)
			if err != nil {
				return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("source link offset %q: %w", k, err)
			}
			sourceLinks[offset] = v
		}
	}
	var miniTexts []string
	if minis.Valid {
		if err := json.Unmarshal([]byte(minis.String), &miniTexts); err != nil {
			return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("unmarshalling mini-chunk texts: %w", err)
		}
		if miniTexts == nil {
			miniTexts = []string{}
		}
	}
	var refs []int
	if err := json.Unmarshal([]byte(refsJSON), &refs); err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("unmarshalling large chunk references: %w", err)
	}

	base, err := domain.NewBaseChunk(chunkID, blurb, content, sourceLinks, continuation)
	if err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: %w", key, err)
	}
	dac, err := domain.NewDocAwareChunk(base, doc, titlePrefix, semSuffix, kwSuffix, miniTexts)
	if err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: %w", key, err)
	}
	if refs != nil {
		dac = dac.WithLargeChunkReferences(refs)
	}
	if err := dac.VerifyText(domain.KeywordPath, keywordText); err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: keyword text: %w", key, err)
	}

	var emb domain.ChunkEmbedding
	emb.FullEmbedding = bytesToFloat32Slice(full)
	if dim := len(emb.FullEmbedding); dim > 0 && miniTexts != nil {
		flat := bytesToFloat32Slice(miniBlob)
		if len(flat)%dim != 0 {
			return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: %w: mini-chunk embeddings of %d values for %d dimensions",
				key, domain.ErrArityMismatch, len(flat), dim)
		}
		emb.MiniChunkEmbeddings = make([]domain.Embedding, 0, len(flat)/dim)
		for start := 0; start < len(flat); start += dim {
			emb.MiniChunkEmbeddings = append(emb.MiniChunkEmbeddings, flat[start:start+dim])
		}
	}
	ic, err := domain.NewIndexChunk(dac, emb, bytesToFloat32Slice(titleVec))
	if err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("chunk %s: %w", key, err)
	}

	var access accessRow
	if err := json.Unmarshal([]byte(accessJSON), &access); err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("unmarshalling access: %w", err)
	}
	var sets []string
	if err := json.Unmarshal([]byte(setsJSON), &sets); err != nil {
		return domain.DocMetadataAwareIndexChunk{}, fmt.Errorf("unmarshalling document sets: %w", err)
	}

	return domain.FromIndexChunk(ic, access.toDomain(), domain.NewDocumentSets(sets...), boost), nil
}

// parseChunkKey splits a key built by domain.ChunkKey. The document id may
// itself contain the separator, so the last one wins.
func parseChunkKey(key string) (string, int, error) {
	i := strings.LastIndex(key, "__")
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: chunk key %q", domain.ErrInvalidInput, key)
	}
	chunkID, err := strconv.Atoi(key[i+2:])
	if err != nil || chunkID < 0 {
		return "", 0, fmt.Errorf("%w: chunk key %q", domain.ErrInvalidInput, key)
	}
	return key[:i], chunkID, nil
}

// LoadVectors calls fn with the key and full embedding of every stored
// chunk, e.g. to rebuild an in-memory vector index at startup.
func (s *Store) LoadVectors(ctx context.Context, fn func(ctx context.Context, chunkKey string, embedding []float32) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT document_id, chunk_id, full_embedding FROM chunks")
	if err != nil {
		return fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			documentID string
			chunkID    int
			blob       []byte
		)
		if err := rows.Scan(&documentID, &chunkID, &blob); err != nil {
			return fmt.Errorf("scanning vector: %w", err)
		}
		if err := fn(ctx, domain.ChunkKey(documentID, chunkID), bytesToFloat32Slice(blob)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating vectors: %w", err)
	}
	return nil
}
