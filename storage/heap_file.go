package storage

import (
	"mit.edu/dsg/minidb/common"
)

// HeapFile stores the tuples of one table, unordered, in a sequence of fixed-size heap pages.
//
// The page count is taken from the file length when the HeapFile is created and is not
// revalidated; a file that grows afterwards must be reopened with a new HeapFile.
type HeapFile struct {
	file     DBFile
	path     string
	id       common.ObjectID
	desc     *TupleDesc
	numPages int
}

// TableIDForPath derives the table id from the canonical path of its file. Distinct paths can hash
// to the same id.
func TableIDForPath(canonicalPath string) common.ObjectID {
	h := common.Hash([]byte(canonicalPath))
	id := common.ObjectID(h ^ (h >> 32))
	if id == common.InvalidObjectID {
		id = 1
	}
	return id
}

// NewHeapFile opens the heap file at path, whose rows are described by desc.
func NewHeapFile(files DBFileManager, path string, desc *TupleDesc) (*HeapFile, error) {
	if desc == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "heap file %s needs a tuple descriptor", path)
	}
	if SlotsPerPage(desc.BytesPerTuple()) == 0 {
		return nil, common.Errorf(common.InvalidArgumentError, "rows of %d bytes do not fit on a page", desc.BytesPerTuple())
	}
	canonical, err := CanonicalPath(path)
	if err != nil {
		return nil, err
	}
	file, err := files.GetDBFile(canonical)
	if err != nil {
		return nil, err
	}
	numPages, err := file.NumPages()
	if err != nil {
		return nil, err
	}
	return &HeapFile{
		file:     file,
		path:     canonical,
		id:       TableIDForPath(canonical),
		desc:     desc,
		numPages: numPages,
	}, nil
}

// Descriptor returns the schema of the rows stored in the file.
func (hf *HeapFile) Descriptor() *TupleDesc {
	return hf.desc
}

// ID returns the table id of the file.
func (hf *HeapFile) ID() common.ObjectID {
	return hf.id
}

// Path returns the canonical path of the file.
func (hf *HeapFile) Path() string {
	return hf.path
}

// NumPages returns the number of pages the file had when it was opened.
func (hf *HeapFile) NumPages() int {
	return hf.numPages
}

// ReadPage reads and decodes page pageNum directly from disk. Query execution should go through a
// PageCache instead; this is the accessor the cache itself uses on a miss.
func (hf *HeapFile) ReadPage(pageNum int) (*HeapPage, error) {
	if pageNum < 0 || pageNum >= hf.numPages {
		return nil, common.Errorf(common.InvalidPageError, "page %d of table %d is outside [0, %d)",
			pageNum, hf.id, hf.numPages)
	}
	frame := new(PageFrame)
	if err := hf.file.ReadPage(pageNum, frame.Bytes[:]); err != nil {
		return nil, err
	}
	return frame.AsHeapPage(common.PageID{Oid: hf.id, PageNum: int32(pageNum)}, hf.desc)
}

// Iterator returns a closed cursor over every tuple in the file. Pages are fetched lazily through
// cache on behalf of tid.
func (hf *HeapFile) Iterator(tid common.TransactionID, cache PageCache) *HeapFileIterator {
	return &HeapFileIterator{
		file:  hf,
		tid:   tid,
		cache: cache,
		state: cursorClosed,
	}
}

type cursorState int

const (
	cursorClosed cursorState = iota
	cursorOpen
	cursorExhausted
)

// HeapFileIterator walks a HeapFile in (page, slot) order. At most one page worth of tuples is
// held at a time.
type HeapFileIterator struct {
	file  *HeapFile
	tid   common.TransactionID
	cache PageCache

	state   cursorState
	pageNum int
	tuples  []Tuple
	pos     int
}

// Open positions the cursor before the first tuple of page 0.
func (it *HeapFileIterator) Open() error {
	it.state = cursorOpen
	it.pageNum = 0
	it.tuples = nil
	it.pos = 0
	if it.file.numPages == 0 {
		it.state = cursorExhausted
		return nil
	}
	if err := it.loadPage(0); err != nil {
		it.state = cursorClosed
		return err
	}
	return nil
}

func (it *HeapFileIterator) loadPage(pageNum int) error {
	page, err := it.cache.GetPage(it.tid, common.PageID{Oid: it.file.id, PageNum: int32(pageNum)}, ReadOnly)
	if err != nil {
		return err
	}
	it.pageNum = pageNum
	it.tuples = page.Tuples()
	it.pos = 0
	return nil
}

// HasNext reports whether another tuple is available, fetching later pages as needed. Empty pages
// are checked and skipped. A closed cursor has no next tuple.
func (it *HeapFileIterator) HasNext() (bool, error) {
	for {
		switch it.state {
		case cursorClosed, cursorExhausted:
			return false, nil
		}
		if it.pos < len(it.tuples) {
			return true, nil
		}
		if it.pageNum+1 >= it.file.numPages {
			it.state = cursorExhausted
			it.tuples = nil
			return false, nil
		}
		if err := it.loadPage(it.pageNum + 1); err != nil {
			return false, err
		}
	}
}

// Next returns the next tuple. It fails with IteratorMisuseError when HasNext would return false.
func (it *HeapFileIterator) Next() (Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return Tuple{}, err
	}
	if !ok {
		return Tuple{}, common.Errorf(common.IteratorMisuseError, "no more tuples in table %d", it.file.id)
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

// Rewind restarts the cursor at the first tuple. The cursor must be open.
func (it *HeapFileIterator) Rewind() error {
	if it.state == cursorClosed {
		return common.Errorf(common.IteratorMisuseError, "rewind of a closed cursor on table %d", it.file.id)
	}
	return it.Open()
}

// Close releases the cursor's page. It is safe to call more than once.
func (it *HeapFileIterator) Close() error {
	it.state = cursorClosed
	it.tuples = nil
	it.pos = 0
	it.pageNum = 0
	return nil
}

// Descriptor returns the schema of the tuples produced.
func (it *HeapFileIterator) Descriptor() *TupleDesc {
	return it.file.desc
}
