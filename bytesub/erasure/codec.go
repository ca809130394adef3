package erasure

import (
	"errors"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrTooManyLost       = errors.New("erasure: too many shards lost, cannot recover")
	ErrInvalidConfig     = errors.New("erasure: invalid data/parity configuration")
	ErrShardSizeMismatch = errors.New("erasure: shard sizes do not match")
)

// maxTotalShards keeps reedsolomon on its GF(2^8) codec. Above it the library
// pads shards to 64 bytes, which the sidecar header cannot describe.
const maxTotalShards = 256

// Codec splits an output into data shards and computes the parity shards
// stored in a sidecar.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec returns a codec for dataShards:parityShards. Up to parityShards
// damaged data shards can be rebuilt from a sidecar.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 || parityShards <= 0 || dataShards+parityShards > maxTotalShards {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

// DataShards is the number of shards the output is split into.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards is the number of parity shards kept in the sidecar.
func (c *Codec) ParityShards() int { return c.parityShards }

// TotalShards is DataShards plus ParityShards.
func (c *Codec) TotalShards() int { return c.dataShards + c.parityShards }

// EncodeData lays data out on ShardSize(len(data)) sized data shards, zero
// padding the last one, and appends the parity shards.
func (c *Codec) EncodeData(data []byte) ([][]byte, error) {
	shards, err := c.enc.Split(data)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Verify reports whether the parity shards match the data shards.
func (c *Codec) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}

// Reconstruct rebuilds every nil entry of shards in place.
func (c *Codec) Reconstruct(shards [][]byte) error {
	err := c.enc.Reconstruct(shards)
	switch {
	case errors.Is(err, reedsolomon.ErrTooFewShards):
		return ErrTooManyLost
	case errors.Is(err, reedsolomon.ErrShardSize):
		return ErrShardSizeMismatch
	}
	return err
}

// Join concatenates the data shards and drops the padding past size.
func (c *Codec) Join(shards [][]byte, size int) []byte {
	out := make([]byte, size)
	off := 0
	for i := 0; i < c.dataShards && off < size; i++ {
		off += copy(out[off:], shards[i])
	}
	return out[:off]
}

// ShardSize is the length of every shard protecting size bytes.
func (c *Codec) ShardSize(size int) int {
	return shardSize(size, c.dataShards)
}

func shardSize(size, dataShards int) int {
	return (size + dataShards - 1) / dataShards
}

// Overhead is the ratio of output plus sidecar parity to output alone.
func (c *Codec) Overhead() float64 {
	return float64(c.TotalShards()) / float64(c.dataShards)
}
