package postprocessors

import (
	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-index/internal/postprocessors/largechunk"
	"github.com/custodia-labs/sercha-index/internal/postprocessors/minichunk"
)

// Processor names.
const (
	NameChunker    = "chunker"
	NameMiniChunk  = "minichunk"
	NameLargeChunk = "largechunk"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register(NameChunker, buildChunker)
	r.Register(NameMiniChunk, buildMiniChunk)
	r.Register(NameLargeChunk, buildLargeChunk)
}

// NewPipelineFromSettings builds the chunking pipeline described by settings:
// the chunker, then mini-chunks and large chunks when enabled.
func NewPipelineFromSettings(r *Registry, s domain.ChunkingSettings) (*Pipeline, error) {
	type step struct {
		name string
		cfg  map[string]any
	}
	steps := []step{{NameChunker, map[string]any{"chunk_size": s.ChunkSize, "blurb_size": s.BlurbSize}}}
	if s.EnableMiniChunks {
		steps = append(steps, step{NameMiniChunk, map[string]any{"mini_chunk_size": s.MiniChunkSize}})
	}
	if s.EnableLargeChunks {
		steps = append(steps, step{NameLargeChunk, map[string]any{"large_chunk_ratio": s.LargeChunkRatio}})
	}

	pipeline := NewPipeline()
	for _, st := range steps {
		p, err := r.Build(st.name, st.cfg)
		if err != nil {
			return nil, err
		}
		pipeline.Add(p)
	}
	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Bytes per chunk (default: 2048)
//   - blurb_size (int): Maximum blurb bytes (default: 128)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if size := getIntFromConfig(cfg, "blurb_size"); size > 0 {
		opts = append(opts, chunker.WithBlurbSize(size))
	}
	return chunker.New(opts...), nil
}

// buildMiniChunk creates a mini-chunk processor.
// Supported config keys:
//   - mini_chunk_size (int): Bytes per mini-chunk (default: 150)
func buildMiniChunk(cfg map[string]any) (driven.PostProcessor, error) {
	return minichunk.New(minichunk.WithSize(getIntFromConfig(cfg, "mini_chunk_size"))), nil
}

// buildLargeChunk creates a large chunk processor.
// Supported config keys:
//   - large_chunk_ratio (int): Regular chunks per large chunk (default: 4)
func buildLargeChunk(cfg map[string]any) (driven.PostProcessor, error) {
	return largechunk.New(largechunk.WithRatio(getIntFromConfig(cfg, "large_chunk_ratio"))), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
