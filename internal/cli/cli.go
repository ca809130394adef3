package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/TheusHen/bytesub/bytesub/chunk"
	"github.com/TheusHen/bytesub/bytesub/compress"
	"github.com/TheusHen/bytesub/bytesub/transform"
	"github.com/TheusHen/bytesub/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Config is the validated result of command-line parsing.
type Config struct {
	Input  string
	Output string

	ChunkSize int
	Workers   int
	LogLevel  string
	LogFormat string

	InputCodec  compress.Codec
	OutputCodec compress.Codec

	Digest          bool
	DigestAlgorithm chunk.HashAlgorithm

	ParityData   int
	ParityShards int
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags and the optional positional input path may appear in any order.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bytesub", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
bytesub - Rewrite every ';' in the input to ':' using parallel in-place chunks.

Usage:
  bytesub [options] [FILE]

Arguments:
  FILE
    Input file. Overridden by --input. Standard input is read when neither is given.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := transform.DefaultConfig()
	inputFlag := flagSet.String("input", "", "Input file path. Overrides the positional FILE.")
	outputFlag := flagSet.String("output", "", "Output file path. The result is printed as text to stdout when empty.")
	configFlag := flagSet.String("config", "", "Optional HCL file with default settings.")
	chunkSizeFlag := flagSet.Int("chunk-size", defaults.ChunkSize, "Bytes per unit of parallel work.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Maximum number of concurrent chunk workers.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	inputCodecFlag := flagSet.String("input-codec", "none", "Decode the input before processing. Options: 'none' or 'lz4'.")
	outputCodecFlag := flagSet.String("output-codec", "none", "Encode the output file. Options: 'none' or 'lz4'.")
	digestFlag := flagSet.String("digest", "", "Log a Merkle root of the output. Options: 'sha256' or 'blake2b'.")
	parityFlag := flagSet.String("parity", "", "Write a Reed-Solomon sidecar next to the output, as DATA:PARITY shards (e.g. 10:4).")

	var positional []string
	rest := args
	for {
		terminated := endsAtTerminator(flagSet, rest)
		if err := flagSet.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return nil, true, nil
			}
			return nil, false, usageError("%s", err.Error())
		}
		if terminated {
			positional = append(positional, flagSet.Args()...)
			break
		}
		if flagSet.NArg() == 0 {
			break
		}
		positional = append(positional, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}
	slog.Debug("Arguments parsed successfully.", "positional", len(positional))

	if len(positional) > 1 {
		return nil, false, usageError("expected at most one input file, got %d: %s", len(positional), strings.Join(positional, " "))
	}

	set := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &Config{
		Output:    *outputFlag,
		ChunkSize: *chunkSizeFlag,
		Workers:   *workersFlag,
		LogLevel:  strings.ToLower(*logLevelFlag),
		LogFormat: strings.ToLower(*logFormatFlag),
	}
	switch {
	case *inputFlag != "":
		cfg.Input = *inputFlag
	case len(positional) == 1:
		cfg.Input = positional[0]
	}
	slog.Debug("Input path determined.", "path", cfg.Input)

	digest := *digestFlag
	if *configFlag != "" {
		file, err := config.Load(*configFlag)
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		applyFile(cfg, &digest, file, set)
		slog.Debug("Configuration file applied.", "path", *configFlag)
	}

	if err := validate(cfg, digest, *inputCodecFlag, *outputCodecFlag, *parityFlag); err != nil {
		return nil, false, err
	}
	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

// endsAtTerminator reports whether flag parsing of args will stop at a "--"
// terminator rather than at a positional argument or the end of args.
func endsAtTerminator(fs *flag.FlagSet, args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return true
		}
		if len(arg) < 2 || arg[0] != '-' {
			return false
		}
		name := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			return false
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		i++ // the next argument is the flag value
	}
	return false
}

// applyFile copies values from the configuration file for every setting that
// was not given on the command line.
func applyFile(cfg *Config, digest *string, file *config.File, set map[string]bool) {
	if file.ChunkSize != nil && !set["chunk-size"] {
		cfg.ChunkSize = *file.ChunkSize
	}
	if file.Workers != nil && !set["workers"] {
		cfg.Workers = *file.Workers
	}
	if file.LogLevel != nil && !set["log-level"] {
		cfg.LogLevel = strings.ToLower(*file.LogLevel)
	}
	if file.LogFormat != nil && !set["log-format"] {
		cfg.LogFormat = strings.ToLower(*file.LogFormat)
	}
	if file.Digest != nil && !set["digest"] {
		*digest = *file.Digest
	}
}

func validate(cfg *Config, digest, inputCodec, outputCodec, parity string) error {
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return usageError("invalid log-format: must be 'text' or 'json'")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if cfg.ChunkSize <= 0 {
		return usageError("invalid chunk-size: must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Workers <= 0 {
		return usageError("invalid workers: must be positive, got %d", cfg.Workers)
	}

	var err error
	if cfg.InputCodec, err = compress.ParseCodec(inputCodec); err != nil {
		return usageError("invalid input-codec: %v", err)
	}
	if cfg.OutputCodec, err = compress.ParseCodec(outputCodec); err != nil {
		return usageError("invalid output-codec: %v", err)
	}

	if digest != "" {
		if cfg.DigestAlgorithm, err = chunk.ParseHashAlgorithm(digest); err != nil {
			return usageError("invalid digest: %v", err)
		}
		cfg.Digest = true
	}

	if parity != "" {
		if cfg.ParityData, cfg.ParityShards, err = parseParity(parity); err != nil {
			return usageError("invalid parity: %v", err)
		}
	}
	slog.Debug("CLI parameter validation complete.")
	return nil
}

var errParityFormat = errors.New("expected DATA:PARITY with positive shard counts")

func parseParity(s string) (int, int, error) {
	d, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errParityFormat
	}
	data, err := strconv.Atoi(d)
	if err != nil || data <= 0 {
		return 0, 0, errParityFormat
	}
	parity, err := strconv.Atoi(p)
	if err != nil || parity <= 0 {
		return 0, 0, errParityFormat
	}
	return data, parity, nil
}
