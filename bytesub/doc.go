// Package bytesub provides a parallel, in-place byte substitution pipeline.
//
// A Processor loads an entire input into memory, rewrites every ';' to ':'
// across the buffer in fixed-size chunks processed concurrently, and writes
// the result to a file or prints it as text. The building blocks live in
// subpackages: chunk partitions buffers and computes digests, transform holds
// the parallel rewriter, fileio loads and writes, compress and erasure add
// optional LZ4 framing and Reed-Solomon parity.
package bytesub
