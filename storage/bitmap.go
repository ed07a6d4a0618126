package storage

import (
	"math/bits"
	"unsafe"

	"mit.edu/dsg/minidb/common"
)

// Bitmap provides a convenient interface for manipulating bits in a byte slice.
// It does not own the underlying bytes; instead, it provides a structured view over
// an existing buffer (the slot header of a heap page).
//
// Scans work a uint64 word at a time so that runs of empty or full slots are skipped quickly.
type Bitmap struct {
	words   []uint64
	numBits int
}

// AsBitmap creates a Bitmap view over the provided byte slice.
//
// Constraints:
// 1. data must be aligned to 8 bytes to allow safe casting to uint64.
// 2. data must be large enough to contain numBits (rounded up to the nearest 8-byte word).
func AsBitmap(data []byte, numBits int) Bitmap {
	numWords := (numBits + 63) / 64
	if numWords == 0 {
		return Bitmap{}
	}
	common.Assert(len(data) >= numWords*8, "bitmap buffer too small")
	common.Assert(uintptr(unsafe.Pointer(&data[0]))%8 == 0, "bitmap bytes must be 8-byte aligned")

	words := unsafe.Slice((*uint64)(unsafe.Pointer(&data[0])), numWords)
	return Bitmap{
		words:   words,
		numBits: numBits,
	}
}

// Len returns the number of bits in the bitmap.
func (b *Bitmap) Len() int {
	return b.numBits
}

// SetBit sets the bit at index i to the given value.
// Returns the previous value of the bit.
func (b *Bitmap) SetBit(i int, on bool) (originalValue bool) {
	common.Assert(i >= 0 && i < b.numBits, "index out of bounds")
	mask := uint64(1) << uint(i%64)
	ptr := &b.words[i/64]
	originalValue = (*ptr & mask) != 0
	if on {
		*ptr |= mask
	} else {
		*ptr &^= mask
	}
	return originalValue
}

// LoadBit returns the value of the bit at index i.
func (b *Bitmap) LoadBit(i int) bool {
	common.Assert(i >= 0 && i < b.numBits, "index out of bounds")
	return (b.words[i/64] & (1 << uint(i%64))) != 0
}

// FindFirstZero returns the index of the first bit at or after start that is 0, or -1 if there
// is none.
func (b *Bitmap) FindFirstZero(start int) int {
	for i := start; i < b.numBits; {
		word := b.words[i/64] >> uint(i%64)
		// Bits shifted in from the top are zero, so only trust the result below the word end
		if free := bits.TrailingZeros64(^word); free < 64-i%64 {
			if idx := i + free; idx < b.numBits {
				return idx
			}
			return -1
		}
		i += 64 - i%64
	}
	return -1
}

// NextSetBit returns the index of the first bit at or after start that is 1, or -1 if there is
// none.
func (b *Bitmap) NextSetBit(start int) int {
	for i := start; i < b.numBits; {
		word := b.words[i/64] >> uint(i%64)
		if word != 0 {
			if idx := i + bits.TrailingZeros64(word); idx < b.numBits {
				return idx
			}
			return -1
		}
		i += 64 - i%64
	}
	return -1
}
