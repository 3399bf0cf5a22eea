// Package storage implements the single-file record store underneath the
// tree engine.
//
// File layout:
//
//	| superblock |  record  |  record  | ... |
//	|    4096B   | 8B + ... | 8B + ... |     |
//
// The first 8 bytes of the superblock hold the root record address as a
// big-endian uint64; the rest of the superblock is zero-filled. Everything
// after the superblock is a sequence of append-only records, each an 8-byte
// big-endian length prefix followed by that many payload bytes. Records are
// write-once; the only bytes ever rewritten are the 8 root-address bytes.
//
// Address 0 is never a record address (records start at the superblock
// boundary), so 0 doubles as the nil pointer on disk.
//
// Writers take an exclusive advisory flock on the whole file. Readers take
// no lock: records are immutable once their address has been handed out,
// and the root address is only advanced by a fully-synced commit, so a
// positional read can never observe a half-written tree.
package storage
