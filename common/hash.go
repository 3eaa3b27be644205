package common

import (
	"encoding/binary"
	"hash/fnv"
)

// NameHash returns the stable 32-bit FNV-1a hash of a binding name.
// The value only has to be stable within a process; it is never persisted.
//
// Parameters:
//   - name: the declared resource name
//
// Returns:
//   - uint32: the hash of name
func NameHash(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

// ContentHash returns a 64-bit FNV-1a hash over a sequence of byte blobs.
// Each blob is prefixed with its length so that ("ab", "c") and ("a", "bc") hash differently,
// and a nil blob hashes differently from a missing one only through its position.
//
// Parameters:
//   - blobs: the byte blobs to hash, in order
//
// Returns:
//   - uint64: the combined hash
func ContentHash(blobs ...[]byte) uint64 {
	h := fnv.New64a()
	var lenBuf [8]byte
	for _, b := range blobs {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(b)
	}
	return h.Sum64()
}
