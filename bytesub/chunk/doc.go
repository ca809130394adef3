// Package chunk partitions a byte buffer into fixed-size, disjoint views.
//
// Key features:
//   - Full-size chunks and a trailing remainder that together cover the buffer exactly
//   - Views alias the caller's buffer, so in-place edits need no copies
//   - Merkle digests over chunk hashes (SHA-256 or BLAKE2b) for output integrity checks
package chunk
