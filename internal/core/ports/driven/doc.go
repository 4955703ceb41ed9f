// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser / NormaliserRegistry: Turn raw bytes into a Document
//   - PostProcessor / PostProcessorPipeline: Turn a Document into DocAwareChunks
//   - EmbeddingService: Generates vector embeddings
//   - MetadataResolver: Access, document sets and boost per document
//   - EmbeddingModelStore: Live embedding model configuration
//   - IndexWriter / ChunkReader: Persist and read back final chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector similarity search. Without it, search is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
