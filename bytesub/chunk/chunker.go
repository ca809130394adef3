package chunk

// DefaultChunkSize is the default chunk length in bytes.
const DefaultChunkSize = 8196

// Chunker partitions a buffer into fixed-size windows.
// A buffer of length n yields n/size full chunks followed by at most one
// remainder chunk of length n%size.
type Chunker struct {
	chunkSize int
}

// NewChunker creates a new chunker with the specified chunk size.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Chunk is a view into a region of the partitioned buffer.
// Data aliases the original buffer; writes through it are visible to the owner.
type Chunk struct {
	Index  int
	Offset int
	Data   []byte
}

// Len returns the chunk length.
func (c Chunk) Len() int { return len(c.Data) }

// Count returns the number of full chunks and the remainder length for a
// buffer of n bytes.
func (c *Chunker) Count(n int) (full, rem int) {
	if n <= 0 {
		return 0, 0
	}
	return n / c.chunkSize, n % c.chunkSize
}

// Full returns views over every full-size chunk of data, in order.
func (c *Chunker) Full(data []byte) []Chunk {
	full, _ := c.Count(len(data))
	chunks := make([]Chunk, 0, full)
	for i := 0; i < full; i++ {
		off := i * c.chunkSize
		chunks = append(chunks, Chunk{
			Index:  i,
			Offset: off,
			Data:   data[off : off+c.chunkSize : off+c.chunkSize],
		})
	}
	return chunks
}

// Remainder returns a view over the trailing partial chunk. Its Data is empty
// when len(data) is an exact multiple of the chunk size.
func (c *Chunker) Remainder(data []byte) Chunk {
	full, _ := c.Count(len(data))
	off := full * c.chunkSize
	return Chunk{
		Index:  full,
		Offset: off,
		Data:   data[off:len(data):len(data)],
	}
}

// Split returns views over every chunk, full-size chunks first and the
// remainder last. An empty remainder is omitted.
func (c *Chunker) Split(data []byte) []Chunk {
	chunks := c.Full(data)
	if rem := c.Remainder(data); rem.Len() > 0 {
		chunks = append(chunks, rem)
	}
	return chunks
}
