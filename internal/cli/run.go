package cli

import (
	"context"
	"io"

	"github.com/TheusHen/bytesub/bytesub"
	"github.com/TheusHen/bytesub/bytesub/compress"
	"github.com/TheusHen/bytesub/bytesub/transform"
)

// Options converts the parsed command line into processor options.
func (c *Config) Options() bytesub.Options {
	return bytesub.Options{
		Input:            c.Input,
		Output:           c.Output,
		InputCodec:       c.InputCodec,
		OutputCodec:      c.OutputCodec,
		CompressionLevel: compress.Default,
		Transform: transform.Config{
			ChunkSize: c.ChunkSize,
			Workers:   c.Workers,
		},
		Digest:          c.Digest,
		DigestAlgorithm: c.DigestAlgorithm,
		ParityData:      c.ParityData,
		ParityShards:    c.ParityShards,
	}
}

// Run parses args, processes the input and writes the result. Logs go to
// errW so that stdout only ever carries the transformed text.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, errW io.Writer) error {
	cfg, shouldExit, err := Parse(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	p, err := bytesub.NewProcessor(cfg.Options(), logger)
	if err != nil {
		return usageError("%s", err.Error())
	}

	res, err := p.Run(ctx, stdin, stdout)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	if cfg.Output != "" {
		logger.Info("Successfully wrote results to file.",
			"path", cfg.Output,
			"bytes", res.OutputBytes,
			"substitutions", res.Substitutions,
			"elapsed", res.Elapsed,
		)
	}
	if res.SidecarPath != "" {
		logger.Info("Parity sidecar written.", "path", res.SidecarPath)
	}
	return nil
}
