package storage

import (
	"sync"

	"mit.edu/dsg/minidb/common"
)

// PageFrame holds the raw physical bytes of one page.
//
// A frame is filled exactly once when the page is read from its file and is never written
// afterwards, so a decoded HeapPage can be handed to any number of readers without latching.
type PageFrame struct {
	// Bytes holds the raw physical data of the page.
	Bytes [common.PageSize]byte
}

// isZero reports whether the frame has never been written (a freshly allocated page).
func (frame *PageFrame) isZero() bool {
	for _, b := range frame.Bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// bufferFrame is one slot of the BufferPool. It records which page currently occupies the slot
// and the clock reference bit used for eviction.
type bufferFrame struct {
	pageID common.PageID
	page   *HeapPage
	refBit bool
	sync.Mutex
}
