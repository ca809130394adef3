package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrMerkleEmpty      = errors.New("chunk: no hashes provided")
	ErrUnknownAlgorithm = errors.New("chunk: unknown hash algorithm")
)

// HashAlgorithm selects the hash used for chunk leaves and interior nodes.
type HashAlgorithm int

const (
	SHA256 HashAlgorithm = iota
	BLAKE2b
)

// String returns the flag name of the algorithm.
func (a HashAlgorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case BLAKE2b:
		return "blake2b"
	default:
		return fmt.Sprintf("HashAlgorithm(%d)", int(a))
	}
}

// ParseHashAlgorithm maps a flag value to a HashAlgorithm.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch strings.ToLower(s) {
	case "sha256":
		return SHA256, nil
	case "blake2b":
		return BLAKE2b, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Sum hashes data with the algorithm. Both algorithms produce 32 bytes.
func (a HashAlgorithm) Sum(data []byte) []byte {
	if a == BLAKE2b {
		h := blake2b.Sum256(data)
		return h[:]
	}
	h := sha256.Sum256(data)
	return h[:]
}

// HashChunk computes the SHA-256 hash of a data chunk.
func HashChunk(data []byte) []byte {
	return SHA256.Sum(data)
}

// MerkleTree fingerprints chunked data by hashing chunk hashes pairwise up
// to a single root.
type MerkleTree struct {
	root []byte
}

// BuildMerkleTree constructs a Merkle tree from chunk hashes.
// Leaves are padded to a power of two with the hash of empty input.
func BuildMerkleTree(algo HashAlgorithm, chunkHashes [][]byte) (*MerkleTree, error) {
	if len(chunkHashes) == 0 {
		return nil, ErrMerkleEmpty
	}

	n := 1
	for n < len(chunkHashes) {
		n *= 2
	}
	empty := algo.Sum(nil)
	leaves := make([][]byte, n)
	for i := range leaves {
		if i < len(chunkHashes) {
			leaves[i] = chunkHashes[i]
		} else {
			leaves[i] = empty
		}
	}

	// Leaves are at positions [n-1, 2n-2]
	nodes := make([][]byte, 2*n-1)
	for i, leaf := range leaves {
		nodes[n-1+i] = leaf
	}
	for i := n - 2; i >= 0; i-- {
		nodes[i] = algo.Sum(concat(nodes[2*i+1], nodes[2*i+2]))
	}

	return &MerkleTree{root: nodes[0]}, nil
}

// Root returns the Merkle root hash.
func (m *MerkleTree) Root() []byte { return m.root }

// RootHex returns the Merkle root as a hex string.
func (m *MerkleTree) RootHex() string { return hex.EncodeToString(m.root) }

// Digest hashes each chunk of data and returns the Merkle tree over them.
// Empty input yields a tree with a single empty-input leaf.
func Digest(data []byte, chunkSize int, algo HashAlgorithm) (*MerkleTree, error) {
	chunks := NewChunker(chunkSize).Split(data)
	if len(chunks) == 0 {
		return BuildMerkleTree(algo, [][]byte{algo.Sum(nil)})
	}
	hashes := make([][]byte, len(chunks))
	for i, c := range chunks {
		hashes[i] = algo.Sum(c.Data)
	}
	return BuildMerkleTree(algo, hashes)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
