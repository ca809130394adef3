// Package config loads optional defaults for the CLI from an HCL file.
//
// Example:
//
//	chunk_size = 16392
//	workers    = 8
//	log_level  = "debug"
//	log_format = "json"
//	digest     = "blake2b"
//
// Every attribute is optional; command-line flags take precedence.
package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

var ErrInvalid = errors.New("config: invalid value")

// File mirrors the attributes accepted in a configuration file.
type File struct {
	ChunkSize *int    `hcl:"chunk_size,optional"`
	Workers   *int    `hcl:"workers,optional"`
	LogLevel  *string `hcl:"log_level,optional"`
	LogFormat *string `hcl:"log_format,optional"`
	Digest    *string `hcl:"digest,optional"`
}

// Load parses and decodes the HCL file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(path, hclFile.Body)
}

// Parse decodes HCL source held in memory; filename is used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(filename, hclFile.Body)
}

func decode(name string, body hcl.Body) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.ChunkSize != nil && *f.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalid, *f.ChunkSize)
	}
	if f.Workers != nil && *f.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, *f.Workers)
	}
	return nil
}
