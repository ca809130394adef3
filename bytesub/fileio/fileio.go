// Package fileio loads a whole input into memory and writes a processed buffer
// back out, either verbatim to a file or as UTF-8 text to a stream.
package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var (
	ErrOpen        = errors.New("fileio: failed to open input file")
	ErrStat        = errors.New("fileio: failed to get input file metadata")
	ErrRead        = errors.New("fileio: failed to read input")
	ErrCreate      = errors.New("fileio: failed to create output file")
	ErrWrite       = errors.New("fileio: failed to write output")
	ErrInvalidUTF8 = errors.New("fileio: output is not valid UTF-8")
)

// LoadFile reads the entire file at path. The file's reported size is used as
// the initial buffer capacity.
func LoadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrStat, path, err)
	}

	// One extra byte lets ReadFrom observe EOF without growing the buffer.
	buf := bytes.NewBuffer(make([]byte, 0, int(info.Size())+1))
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrRead, path, err)
	}
	return buf.Bytes(), nil
}

// LoadReader reads r until end of stream.
func LoadReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return data, nil
}

// Load reads the file at path, or r when path is empty.
func Load(path string, r io.Reader) ([]byte, error) {
	if path != "" {
		return LoadFile(path)
	}
	return LoadReader(r)
}

// WriteFile creates or truncates the file at path and writes data verbatim.
func WriteFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCreate, path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w to %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrWrite, path, err)
	}
	return nil
}

// WriteText writes data to w as a line of text. It fails without writing
// anything if data is not valid UTF-8.
func WriteText(w io.Writer, data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: invalid sequence at offset %d", ErrInvalidUTF8, firstInvalid(data))
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
