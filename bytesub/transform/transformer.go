package transform

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/bytesub/bytesub/chunk"
)

// DefaultChunkSize is the default number of bytes per unit of parallel work.
const DefaultChunkSize = chunk.DefaultChunkSize

// Config configures a Transformer.
type Config struct {
	ChunkSize int // bytes per chunk (default: 8196)
	Workers   int // number of worker goroutines (default: GOMAXPROCS)
}

// DefaultConfig returns the default chunk size and one worker per usable CPU.
func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

// Stats tracks work done by a Transformer across calls.
type Stats struct {
	Bytes          atomic.Int64
	FullChunks     atomic.Int64
	RemainderBytes atomic.Int64
	Substitutions  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Bytes          int64
	FullChunks     int64
	RemainderBytes int64
	Substitutions  int64
}

// Transformer applies a byte Table to every byte of a buffer in place,
// fanning full-size chunks out to a bounded set of goroutines.
type Transformer struct {
	table   Table
	chunker *chunk.Chunker
	workers int
	stats   Stats
}

// New creates a Transformer for the given table.
func New(table Table, config Config) *Transformer {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Transformer{
		table:   table,
		chunker: chunk.NewChunker(config.ChunkSize),
		workers: config.Workers,
	}
}

// ChunkSize returns the configured chunk size.
func (t *Transformer) ChunkSize() int { return t.chunker.ChunkSize() }

// Workers returns the maximum number of concurrent chunk workers.
func (t *Transformer) Workers() int { return t.workers }

// Transform rewrites buf in place. All full-size chunks are processed
// concurrently and joined before the remainder chunk is processed, so every
// byte has been rewritten exactly once when Transform returns. The length of
// buf never changes. The caller must not touch buf until Transform returns.
func (t *Transformer) Transform(buf []byte) error {
	t.stats.Bytes.Add(int64(len(buf)))

	full := t.chunker.Full(buf)
	if err := t.run(full); err != nil {
		return err
	}
	t.stats.FullChunks.Add(int64(len(full)))

	rem := t.chunker.Remainder(buf)
	if rem.Len() == 0 {
		return nil
	}
	if err := t.run([]chunk.Chunk{rem}); err != nil {
		return err
	}
	t.stats.RemainderBytes.Add(int64(rem.Len()))
	return nil
}

func (t *Transformer) run(chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(t.workers)
	for _, c := range chunks {
		g.Go(func() error {
			t.stats.Substitutions.Add(int64(t.apply(c.Data)))
			return nil
		})
	}
	return g.Wait()
}

// apply rewrites data and reports how many bytes changed.
func (t *Transformer) apply(data []byte) int {
	changed := 0
	for i, b := range data {
		if v := t.table[b]; v != b {
			data[i] = v
			changed++
		}
	}
	return changed
}

// Stats returns a snapshot of the accumulated counters.
func (t *Transformer) Stats() StatsSnapshot {
	return StatsSnapshot{
		Bytes:          t.stats.Bytes.Load(),
		FullChunks:     t.stats.FullChunks.Load(),
		RemainderBytes: t.stats.RemainderBytes.Load(),
		Substitutions:  t.stats.Substitutions.Load(),
	}
}

// Transform rewrites every ';' in buf to ':' using the default configuration.
func Transform(buf []byte) error {
	return New(SemicolonToColon, DefaultConfig()).Transform(buf)
}
