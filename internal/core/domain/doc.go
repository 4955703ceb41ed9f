// Package domain defines the core indexing entities for Sercha Index.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source document as produced by a connector and normaliser
//   - BaseChunk, DocAwareChunk, IndexChunk, DocMetadataAwareIndexChunk:
//     the progressive stages a chunk passes through on its way to the index
//   - DocumentAccess: Which principals may retrieve a document
//   - EmbeddingModel, EmbeddingModelDetail: Live model configuration and
//     the immutable snapshot attached to embedding and query requests
//
// # Chunk Stages
//
// Each stage embeds the previous one and can only be reached through a
// method on it, so the pipeline order Base -> DocAware -> Indexed ->
// MetadataAware is enforced by the type system. Every stage implements
// StagedChunk, which lets callers switch on Stage() exhaustively.
//
// # Optional Fields
//
// A nil map, slice or pointer means "absent". Construction functions
// validate cross-field consistency and return the errors in errors.go.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
