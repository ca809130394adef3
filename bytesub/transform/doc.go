// Package transform rewrites a byte buffer in place using a per-byte mapping.
//
// The buffer is split into fixed-size chunks (8196 bytes by default). Full
// chunks are rewritten concurrently on a bounded worker group; the trailing
// remainder is rewritten afterwards. Chunks are disjoint views of the same
// buffer, so workers share no mutable state and no copies are made.
//
// The mapping is position independent: a byte's new value depends only on its
// old value. The default rule replaces ';' with ':'.
package transform
