package common

import "fmt"

// Align8 rounds the given integer up to the nearest multiple of 8.
// Slot bitmaps on heap pages are padded with it so they can be viewed as []uint64.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// AlignedTo8 returns true if the integer is a multiple of 8.
func AlignedTo8(n int) bool {
	return n%8 == 0
}

// Assert checks a condition and panics if it is false.
//
// Assertions guard internal invariants only: a heap page whose header disagrees with its schema,
// a bitmap index past its end, a value of the wrong width. Anything a caller can get wrong
// (unknown table, bad field index, misuse of an iterator) is reported with a GoDBError instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

const (
	offset64 = 14695981039346656037
	prime64  = 1099511628211
)

// Hash computes the FNV-1a 64-bit hash of the provided byte slice without allocation. It is a
// non-cryptographic hash; table ids are derived from it, so distinct paths may collide.
func Hash(data []byte) uint64 {
	var h uint64 = offset64
	for _, b := range data {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}
