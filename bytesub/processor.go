package bytesub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/TheusHen/bytesub/bytesub/chunk"
	"github.com/TheusHen/bytesub/bytesub/compress"
	"github.com/TheusHen/bytesub/bytesub/erasure"
	"github.com/TheusHen/bytesub/bytesub/fileio"
	"github.com/TheusHen/bytesub/bytesub/transform"
)

var (
	ErrLoad      = errors.New("failed to load input")
	ErrTransform = errors.New("failed to process input")
	ErrWrite     = errors.New("failed to write output")

	ErrTextCodec      = errors.New("output codec requires an output file")
	ErrParityNoOutput = errors.New("parity sidecar requires an output file")
)

// Options configures a Processor.
type Options struct {
	Input  string // input file; empty reads from the stdin reader
	Output string // output file; empty prints text to the stdout writer

	InputCodec       compress.Codec
	OutputCodec      compress.Codec
	CompressionLevel compress.CompressionLevel

	// Table overrides the substitution rule. Nil means ';' -> ':'.
	Table *transform.Table

	Transform transform.Config

	Digest          bool
	DigestAlgorithm chunk.HashAlgorithm

	// ParityData and ParityShards enable a Reed-Solomon sidecar next to Output.
	ParityData   int
	ParityShards int
}

// DefaultOptions reads stdin, prints to stdout and uses the default transform configuration.
func DefaultOptions() Options {
	return Options{Transform: transform.DefaultConfig()}
}

// Result summarizes a completed run.
type Result struct {
	InputBytes    int
	OutputBytes   int
	FullChunks    int64
	RemainderLen  int64
	Substitutions int64
	Digest        string // hex Merkle root of the transformed buffer, if requested
	SidecarPath   string
	Elapsed       time.Duration
}

// Processor loads an input, rewrites it in place and writes it out.
type Processor struct {
	opts        Options
	logger      *slog.Logger
	transformer *transform.Transformer
	parity      *erasure.Codec
}

// NewProcessor validates opts and prepares a Processor. A nil logger discards
// all log output.
func NewProcessor(opts Options, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.OutputCodec != compress.None && opts.Output == "" {
		return nil, ErrTextCodec
	}

	p := &Processor{opts: opts, logger: logger}

	if opts.ParityData > 0 || opts.ParityShards > 0 {
		if opts.Output == "" {
			return nil, ErrParityNoOutput
		}
		codec, err := erasure.NewCodec(opts.ParityData, opts.ParityShards)
		if err != nil {
			return nil, fmt.Errorf("parity %d:%d: %w", opts.ParityData, opts.ParityShards, err)
		}
		p.parity = codec
	}

	table := transform.SemicolonToColon
	if opts.Table != nil {
		table = *opts.Table
	}
	p.transformer = transform.New(table, opts.Transform)
	return p, nil
}

// Run executes load, transform and write in order. Errors identify the stage
// that failed; nothing is retried. An output file may already be truncated
// when a late stage fails.
func (p *Processor) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) (Result, error) {
	start := time.Now()
	var res Result

	data, err := p.load(stdin)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	res.InputBytes = len(data)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	before := p.transformer.Stats()
	tStart := time.Now()
	if err := p.transformer.Transform(data); err != nil {
		return res, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	after := p.transformer.Stats()
	res.FullChunks = after.FullChunks - before.FullChunks
	res.RemainderLen = after.RemainderBytes - before.RemainderBytes
	res.Substitutions = after.Substitutions - before.Substitutions
	p.logger.Debug("Buffer transformed.",
		"bytes", len(data),
		"chunk_size", p.transformer.ChunkSize(),
		"workers", p.transformer.Workers(),
		"full_chunks", res.FullChunks,
		"remainder", res.RemainderLen,
		"substitutions", res.Substitutions,
		"elapsed", time.Since(tStart),
	)

	if p.opts.Digest {
		tree, err := chunk.Digest(data, p.transformer.ChunkSize(), p.opts.DigestAlgorithm)
		if err != nil {
			return res, fmt.Errorf("%w: digest: %w", ErrTransform, err)
		}
		res.Digest = tree.RootHex()
		p.logger.Info("Output digest computed.", "algorithm", p.opts.DigestAlgorithm.String(), "root", res.Digest)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	written, sidecar, err := p.write(data, stdout)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	res.OutputBytes = written
	res.SidecarPath = sidecar
	res.Elapsed = time.Since(start)
	return res, nil
}

func (p *Processor) load(stdin io.Reader) ([]byte, error) {
	source := p.opts.Input
	if source == "" {
		source = "stdin"
	}

	data, err := fileio.Load(p.opts.Input, stdin)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Input loaded.", "source", source, "bytes", len(data))

	if p.opts.InputCodec == compress.None {
		return data, nil
	}
	decoded, err := compress.Decode(p.opts.InputCodec, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s input: %w", p.opts.InputCodec, err)
	}
	p.logger.Debug("Input decoded.", "codec", p.opts.InputCodec.String(), "bytes", len(decoded))
	return decoded, nil
}

func (p *Processor) write(data []byte, stdout io.Writer) (int, string, error) {
	if p.opts.Output == "" {
		if err := fileio.WriteText(stdout, data); err != nil {
			return 0, "", err
		}
		return len(data), "", nil
	}

	out, err := compress.Encode(p.opts.OutputCodec, data, p.opts.CompressionLevel)
	if err != nil {
		return 0, "", fmt.Errorf("encode %s output: %w", p.opts.OutputCodec, err)
	}
	if err := fileio.WriteFile(p.opts.Output, out); err != nil {
		return 0, "", err
	}
	p.logger.Debug("Output written.", "path", p.opts.Output, "codec", p.opts.OutputCodec.String(), "bytes", len(out))

	if p.parity == nil {
		return len(out), "", nil
	}
	if len(out) == 0 {
		p.logger.Warn("Skipping parity sidecar for empty output.", "path", p.opts.Output)
		return 0, "", nil
	}

	sc, err := erasure.NewSidecar(p.parity, out)
	if err != nil {
		return len(out), "", fmt.Errorf("parity: %w", err)
	}
	var buf bytes.Buffer
	if _, err := sc.WriteTo(&buf); err != nil {
		return len(out), "", fmt.Errorf("parity: %w", err)
	}
	path := p.opts.Output + erasure.SidecarExt
	if err := fileio.WriteFile(path, buf.Bytes()); err != nil {
		return len(out), "", err
	}
	p.logger.Debug("Parity sidecar written.",
		"path", path,
		"data_shards", sc.DataShards,
		"parity_shards", sc.ParityShards,
		"bytes", buf.Len(),
	)
	return len(out), path, nil
}
