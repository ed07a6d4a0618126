package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"mit.edu/dsg/minidb/common"
)

// heapPageWriter packs tuples into heap pages and appends each full page to a DBFile.
type heapPageWriter struct {
	file     DBFile
	desc     *TupleDesc
	frame    *PageFrame
	page     *HeapPage
	numPages int
}

func newHeapPageWriter(file DBFile, desc *TupleDesc) *heapPageWriter {
	return &heapPageWriter{file: file, desc: desc, frame: new(PageFrame)}
}

func (w *heapPageWriter) add(t *Tuple) error {
	for {
		if w.page == nil {
			InitializeHeapPage(w.desc, w.frame)
			page, err := w.frame.AsHeapPage(common.PageID{PageNum: int32(w.numPages)}, w.desc)
			if err != nil {
				return err
			}
			w.page = page
		}
		slot, err := w.page.InsertTuple(t)
		if err != nil {
			return err
		}
		if slot >= 0 {
			return nil
		}
		if err := w.flush(); err != nil {
			return err
		}
	}
}

// flush appends the page under construction, if it holds any tuple.
func (w *heapPageWriter) flush() error {
	if w.page == nil || w.page.NumUsed() == 0 {
		return nil
	}
	pageNum, err := w.file.AllocatePage(1)
	if err != nil {
		return err
	}
	if err := w.file.WritePage(pageNum, w.frame.Bytes[:]); err != nil {
		return err
	}
	w.numPages++
	w.page = nil
	return nil
}

func (w *heapPageWriter) finish() (int, error) {
	if err := w.flush(); err != nil {
		return 0, err
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync heap file: %w", err)
	}
	return w.numPages, nil
}

func recreateFile(files DBFileManager, path string) (DBFile, error) {
	if err := files.DeleteDBFile(path); err != nil {
		return nil, err
	}
	return files.GetDBFile(path)
}

// EncodeHeapFile replaces the file at path with a heap file holding tuples, packed page by page in
// order. It returns the number of pages written. Callers holding a HeapFile or cached pages for
// the old contents must reopen them.
func EncodeHeapFile(files DBFileManager, path string, desc *TupleDesc, tuples []Tuple) (int, error) {
	file, err := recreateFile(files, path)
	if err != nil {
		return 0, err
	}
	w := newHeapPageWriter(file, desc)
	for i := range tuples {
		if err := w.add(&tuples[i]); err != nil {
			return 0, fmt.Errorf("tuple %d: %w", i, err)
		}
	}
	return w.finish()
}

// EncodeCSV replaces the file at path with a heap file holding the rows of a comma separated
// stream. Each record must have exactly one column per field of desc. When hasHeader is set the
// first record is skipped.
func EncodeCSV(files DBFileManager, path string, desc *TupleDesc, r io.Reader, hasHeader bool) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = desc.NumFields()
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	file, err := recreateFile(files, path)
	if err != nil {
		return 0, err
	}
	w := newHeapPageWriter(file, desc)
	values := make([]common.Value, desc.NumFields())
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, common.Errorf(common.InvalidArgumentError, "csv: %v", err)
		}
		if line == 1 && hasHeader {
			continue
		}
		for i, field := range record {
			v, err := common.ParseValue(desc.FieldType(i), field)
			if err != nil {
				return 0, fmt.Errorf("line %d, column %d: %w", line, i+1, err)
			}
			values[i] = v
		}
		t, err := NewTuple(desc, values...)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if err := w.add(&t); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return w.finish()
}
