package erasure

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/TheusHen/bytesub/bytesub/chunk"
)

var (
	ErrEmptyData       = errors.New("erasure: no data to protect")
	ErrInvalidSidecar  = errors.New("erasure: invalid sidecar")
	ErrSidecarMismatch = errors.New("erasure: sidecar does not match codec")
	ErrSidecarTooLarge = errors.New("erasure: sidecar exceeds maximum size")
	ErrRepairFailed    = errors.New("erasure: repaired data failed verification")
)

const (
	// SidecarMagic identifies a parity sidecar.
	SidecarMagic = uint32(0x42535253) // "BSRS"
	// SidecarExt is appended to the output path to name the sidecar file.
	SidecarExt = ".rs"
	// MaxShardSize bounds a single shard read from a sidecar (1 GB).
	MaxShardSize = 1 << 30

	hashLen = 32
)

// Sidecar holds the parity shards and data shard hashes needed to repair a
// damaged copy of a written output.
type Sidecar struct {
	DataShards   int
	ParityShards int
	Size         int      // length of the protected data
	ShardSize    int      // length of every shard
	Hashes       [][]byte // SHA-256 of each data shard
	Parity       [][]byte
}

// NewSidecar encodes data with codec and keeps only what is needed for repair.
func NewSidecar(codec *Codec, data []byte) (*Sidecar, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	shards, err := codec.EncodeData(data)
	if err != nil {
		return nil, err
	}

	sc := &Sidecar{
		DataShards:   codec.DataShards(),
		ParityShards: codec.ParityShards(),
		Size:         len(data),
		ShardSize:    len(shards[0]),
		Hashes:       make([][]byte, codec.DataShards()),
		Parity:       make([][]byte, codec.ParityShards()),
	}
	for i := 0; i < codec.DataShards(); i++ {
		sc.Hashes[i] = chunk.HashChunk(shards[i])
	}
	for i := 0; i < codec.ParityShards(); i++ {
		sc.Parity[i] = bytes.Clone(shards[codec.DataShards()+i])
	}
	return sc, nil
}

// WriteTo serializes the sidecar.
// Format:
//
//	4 bytes: magic
//	2 bytes: data shard count
//	2 bytes: parity shard count
//	8 bytes: protected size
//	4 bytes: shard size
//	32 bytes per data shard: SHA-256
//	shard size bytes per parity shard
func (s *Sidecar) WriteTo(w io.Writer) (int64, error) {
	var hdr [20]byte
	binary.BigEndian.PutUint32(hdr[0:], SidecarMagic)
	binary.BigEndian.PutUint16(hdr[4:], uint16(s.DataShards))
	binary.BigEndian.PutUint16(hdr[6:], uint16(s.ParityShards))
	binary.BigEndian.PutUint64(hdr[8:], uint64(s.Size))
	binary.BigEndian.PutUint32(hdr[16:], uint32(s.ShardSize))

	var total int64
	n, err := w.Write(hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, h := range s.Hashes {
		n, err = w.Write(h)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	for _, p := range s.Parity {
		n, err = w.Write(p)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadSidecar deserializes a sidecar written by WriteTo.
func ReadSidecar(r io.Reader) (*Sidecar, error) {
	var hdr [20]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSidecar, err)
	}
	if binary.BigEndian.Uint32(hdr[0:]) != SidecarMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSidecar)
	}

	size := binary.BigEndian.Uint64(hdr[8:])
	s := &Sidecar{
		DataShards:   int(binary.BigEndian.Uint16(hdr[4:])),
		ParityShards: int(binary.BigEndian.Uint16(hdr[6:])),
		ShardSize:    int(binary.BigEndian.Uint32(hdr[16:])),
	}
	if s.DataShards == 0 || s.ParityShards == 0 || s.ShardSize == 0 {
		return nil, fmt.Errorf("%w: empty shard layout", ErrInvalidSidecar)
	}
	if s.ShardSize > MaxShardSize {
		return nil, ErrSidecarTooLarge
	}
	if size == 0 || size > uint64(s.DataShards)*uint64(s.ShardSize) {
		return nil, fmt.Errorf("%w: size %d does not fit %d shards of %d bytes", ErrInvalidSidecar, size, s.DataShards, s.ShardSize)
	}
	s.Size = int(size)
	if want := shardSize(s.Size, s.DataShards); s.ShardSize != want {
		return nil, fmt.Errorf("%w: shard size %d, want %d for %d bytes", ErrInvalidSidecar, s.ShardSize, want, s.Size)
	}

	s.Hashes = make([][]byte, s.DataShards)
	for i := range s.Hashes {
		s.Hashes[i] = make([]byte, hashLen)
		if _, err := io.ReadFull(r, s.Hashes[i]); err != nil {
			return nil, fmt.Errorf("%w: hashes truncated", ErrInvalidSidecar)
		}
	}
	s.Parity = make([][]byte, s.ParityShards)
	for i := range s.Parity {
		s.Parity[i] = make([]byte, s.ShardSize)
		if _, err := io.ReadFull(r, s.Parity[i]); err != nil {
			return nil, fmt.Errorf("%w: parity truncated", ErrInvalidSidecar)
		}
	}
	return s, nil
}

// Recover repairs a corrupted or truncated copy of the protected data. Data
// shards whose hash does not match are treated as lost. It returns the
// repaired data and the indexes of the shards that were rebuilt.
func (s *Sidecar) Recover(codec *Codec, damaged []byte) ([]byte, []int, error) {
	if codec.DataShards() != s.DataShards || codec.ParityShards() != s.ParityShards {
		return nil, nil, ErrSidecarMismatch
	}
	if err := s.validate(codec); err != nil {
		return nil, nil, err
	}

	// Lay the damaged bytes out on the shard grid the sidecar was built on.
	padded := make([]byte, s.DataShards*s.ShardSize)
	copy(padded, damaged[:min(len(damaged), s.Size)])

	shards := make([][]byte, codec.TotalShards())
	var lost []int
	for i := 0; i < s.DataShards; i++ {
		shard := padded[i*s.ShardSize : (i+1)*s.ShardSize]
		if bytes.Equal(chunk.HashChunk(shard), s.Hashes[i]) {
			shards[i] = shard
		} else {
			lost = append(lost, i)
		}
	}
	for i, p := range s.Parity {
		shards[s.DataShards+i] = p
	}

	if len(lost) > 0 {
		if err := codec.Reconstruct(shards); err != nil {
			return nil, lost, err
		}
		ok, err := codec.Verify(shards)
		if err != nil {
			return nil, lost, err
		}
		if !ok {
			return nil, lost, fmt.Errorf("%w: parity inconsistent after rebuilding shards %v", ErrRepairFailed, lost)
		}
		for _, i := range lost {
			if !bytes.Equal(chunk.HashChunk(shards[i]), s.Hashes[i]) {
				return nil, lost, fmt.Errorf("%w: shard %d hash mismatch", ErrRepairFailed, i)
			}
		}
	}
	return codec.Join(shards, s.Size), lost, nil
}

// validate checks that a sidecar, including one built by hand, describes the
// shard grid codec produces for Size bytes.
func (s *Sidecar) validate(codec *Codec) error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidSidecar, s.Size)
	}
	if want := codec.ShardSize(s.Size); s.ShardSize != want {
		return fmt.Errorf("%w: shard size %d, want %d for %d bytes", ErrInvalidSidecar, s.ShardSize, want, s.Size)
	}
	if len(s.Hashes) != s.DataShards || len(s.Parity) != s.ParityShards {
		return fmt.Errorf("%w: %d hashes and %d parity shards", ErrInvalidSidecar, len(s.Hashes), len(s.Parity))
	}
	for _, p := range s.Parity {
		if len(p) != s.ShardSize {
			return fmt.Errorf("%w: parity shard of %d bytes", ErrInvalidSidecar, len(p))
		}
	}
	return nil
}
