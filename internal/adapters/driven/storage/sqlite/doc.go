// Package sqlite provides a SQLite-based implementation of the index's
// driven ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database connection backs several store interfaces:
//
//   - ChunkStore: enriched chunks with their embeddings
//   - MetadataStore: per-document access, document sets and boost
//   - EmbeddingModelStore: embedding model configuration records
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-index/data/index.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. SQLite runs in WAL mode.
package sqlite
