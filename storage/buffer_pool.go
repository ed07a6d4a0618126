package storage

import (
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"mit.edu/dsg/minidb/common"
)

// Permission is the access mode requested from a PageCache.
type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

func (p Permission) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}

// PageCache is the single path through which table pages are read during query execution.
// Implementations must be safe for concurrent use by independent iterator pipelines.
type PageCache interface {
	// GetPage returns the page identified by pageID on behalf of transaction tid.
	GetPage(tid common.TransactionID, pageID common.PageID, perm Permission) (*HeapPage, error)
}

// FileResolver maps a table id to the heap file that stores it. The catalog implements it.
type FileResolver interface {
	FileOf(oid common.ObjectID) (*HeapFile, error)
}

const maxScanSize = 64

// BufferPool is a fixed-capacity PageCache. It keeps "hot" pages in memory and selects victims
// with the clock (second-chance) policy when full.
//
// Cached pages are immutable, so callers never pin them: a page evicted while a cursor still
// holds it simply stays alive until the cursor drops it. Write access is not supported.
type BufferPool struct {
	files     FileResolver
	frames    []bufferFrame
	clockHand uint64
	pageTable *xsync.MapOf[common.PageID, *bufferFrame]

	hits   atomic.Uint64
	misses atomic.Uint64
	logger *slog.Logger
}

// BufferPoolStats is a snapshot of the cache counters.
type BufferPoolStats struct {
	Capacity int
	Hits     uint64
	Misses   uint64
}

// NewBufferPool creates a new BufferPool with a fixed capacity of numPages frames. Table ids are
// resolved to files through files.
func NewBufferPool(numPages int, files FileResolver, logger *slog.Logger) *BufferPool {
	common.Assert(numPages > 0, "buffer pool needs at least one frame")
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferPool{
		files:     files,
		frames:    make([]bufferFrame, numPages),
		clockHand: 0,
		pageTable: xsync.NewMapOf[common.PageID, *bufferFrame](),
		logger:    logger,
	}
}

// Stats returns the current hit and miss counts.
func (bp *BufferPool) Stats() BufferPoolStats {
	return BufferPoolStats{
		Capacity: len(bp.frames),
		Hits:     bp.hits.Load(),
		Misses:   bp.misses.Load(),
	}
}

func tryTouchPage(frame *bufferFrame, pageID common.PageID) *HeapPage {
	frame.Lock()
	defer frame.Unlock()
	// Must check if this is the page we are looking for! Another thread may have evicted the page after we grabbed
	// this page frame but before we locked it.
	if frame.pageID != pageID || frame.page == nil {
		return nil
	}
	frame.refBit = true
	return frame.page
}

// Amount of entries we loop through before yielding to avoid busy loop
const strideSize = 64

func (bp *BufferPool) findVictim() *bufferFrame {
	numFrames := uint64(len(bp.frames))
	numIters := 0
	for {
		for i := uint64(0); i < strideSize; i++ {
			idx := atomic.AddUint64(&bp.clockHand, 1) % numFrames

			frame := &bp.frames[idx]
			if !frame.TryLock() {
				// Someone is loading or touching this frame
				continue
			}

			// Stop respecting the ref bit if we have scanned for a while and couldn't find a victim
			if numIters >= maxScanSize || !frame.refBit {
				// Return it LOCKED so the caller can safely swap the contents.
				return frame
			}

			// Second chance: clear refBit, unlock, and move on
			frame.refBit = false
			frame.Unlock()
			numIters++
		}
		runtime.Gosched()
	}
}

// GetPage retrieves a page through the buffer pool. If the page is already cached, the cached page
// is returned. Otherwise a victim frame is chosen, its page is dropped, and the requested page is
// read from the table's heap file.
func (bp *BufferPool) GetPage(tid common.TransactionID, pageID common.PageID, perm Permission) (*HeapPage, error) {
	if perm != ReadOnly {
		return nil, common.Errorf(common.UnsupportedOperationError, "%s access to %s is not supported", perm, pageID.String())
	}

	for {
		if frame, ok := bp.pageTable.Load(pageID); ok {
			if page := tryTouchPage(frame, pageID); page != nil {
				bp.hits.Add(1)
				return page, nil
			}
			continue
		}

		file, err := bp.files.FileOf(pageID.Oid)
		if err != nil {
			return nil, err
		}

		victimFrame := bp.findVictim()
		// victimFrame is returned LOCKED

		// Others may be concurrently loading this page. Attempt to install our victim as the only "official" frame
		// for this PageID before loading. Only the winner loads the page
		actualFrame, loaded := bp.pageTable.LoadOrStore(pageID, victimFrame)
		if loaded {
			// Someone else declared an official frame. We should unlock and wait for them to load it
			victimFrame.Unlock()
			if page := tryTouchPage(actualFrame, pageID); page != nil {
				bp.hits.Add(1)
				return page, nil
			}
			continue
		}

		if !victimFrame.pageID.IsNil() {
			bp.logger.Debug("evicting page", "page", victimFrame.pageID.String(), "tid", tid)
			bp.pageTable.Delete(victimFrame.pageID)
		}
		victimFrame.pageID = common.PageID{}
		victimFrame.page = nil

		page, err := file.ReadPage(int(pageID.PageNum))
		if err != nil {
			victimFrame.Unlock()
			bp.pageTable.Delete(pageID)
			return nil, err
		}
		bp.misses.Add(1)

		victimFrame.pageID = pageID
		victimFrame.page = page
		// Do not initially set the ref bit -- only on second access do we consider it a true hot page
		victimFrame.refBit = false
		victimFrame.Unlock()
		return page, nil
	}
}

// DiscardPages drops every cached page of table oid. It is called after a table file has been
// rewritten so later scans observe the new contents.
func (bp *BufferPool) DiscardPages(oid common.ObjectID) {
	bp.pageTable.Range(func(pageID common.PageID, frame *bufferFrame) bool {
		if pageID.Oid != oid {
			return true
		}
		frame.Lock()
		if frame.pageID == pageID {
			bp.pageTable.Delete(pageID)
			frame.pageID = common.PageID{}
			frame.page = nil
			frame.refBit = false
		}
		frame.Unlock()
		return true
	})
}
