// Package blobstore provides immutable, write-once byte storage addressed by
// content pointers.
//
// A pointer is a CIDv1 (raw codec, sha2-256 multihash) over the frame
// writer||content, so it is a pure function of who wrote the bytes and what
// the bytes are. The same writer writing the same content gets the same
// pointer back; two writers storing identical content land at different
// pointers.
//
// Batch recipient lists are stored as packed 20-byte addresses. ReadSlice
// decodes a contiguous range of elements without materializing the whole
// blob, so cost scales with the slice rather than the list.
package blobstore
