// Package erasure provides Reed-Solomon parity for written outputs.
//
// A Sidecar stores parity shards plus a hash of every data shard, so a later
// reader can tell which regions of a damaged output are corrupt and rebuild
// them. With 10 data shards and 4 parity shards, any 4 corrupt data shards can
// be repaired.
//
// This implementation uses the klauspost/reedsolomon library for high performance.
package erasure
