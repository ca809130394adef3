// Package compress provides optional LZ4 framing for loaded input and written output.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("compress: compression failed")
	ErrDecompressionFailed = errors.New("compress: decompression failed")
	ErrUnknownCodec        = errors.New("compress: unknown codec")
)

// Codec names the framing applied to a byte stream.
type Codec int

const (
	None Codec = iota
	LZ4
)

// String returns the flag name of the codec.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", int(c))
	}
}

// ParseCodec maps a flag value to a Codec. The empty string means None.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	Fast    CompressionLevel = iota // Fastest, lower ratio
	Default                         // Balanced
	Best                            // Best ratio, slower
)

var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// Compress writes data as a single LZ4 frame.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)

	var opt lz4.Option
	switch level {
	case Fast:
		opt = lz4.CompressionLevelOption(lz4.Fast)
	case Best:
		opt = lz4.CompressionLevelOption(lz4.Level9)
	default:
		opt = lz4.CompressionLevelOption(lz4.Level4)
	}
	if err := w.Apply(opt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Decompress reads LZ4 frames until the end of data.
func Decompress(data []byte) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return buf.Bytes(), nil
}

// Encode applies codec to data. None returns data unchanged.
func Encode(codec Codec, data []byte, level CompressionLevel) ([]byte, error) {
	switch codec {
	case None:
		return data, nil
	case LZ4:
		return Compress(data, level)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}

// Decode reverses codec. None returns data unchanged.
func Decode(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case None:
		return data, nil
	case LZ4:
		return Decompress(data)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, codec)
	}
}
