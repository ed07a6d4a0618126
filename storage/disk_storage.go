package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"mit.edu/dsg/minidb/common"
)

// DiskDBFile implements the DBFile interface using a standard OS file.
type DiskDBFile struct {
	file *os.File
	// numPages is a cached value of the file size (in pages) to avoid stat() syscalls on every read.
	// It is updated atomically after physical allocation.
	numPages atomic.Int32
	// allocMu serializes file expansion operations (Truncate) to ensure thread safety
	// during allocation.
	allocMu sync.Mutex
}

// NewDiskDBFile creates a new DiskDBFile wrapper around an already open OS file.
// The page count is floor(file length / PageSize); a trailing partial page is ignored.
func NewDiskDBFile(file *os.File) (*DiskDBFile, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", file.Name(), err)
	}

	numPages := int32(stat.Size() / int64(common.PageSize))

	dbFile := &DiskDBFile{
		file: file,
	}
	dbFile.numPages.Store(numPages)
	return dbFile, nil
}

// AllocatePage grows the underlying file by `numPages` pages.
func (f *DiskDBFile) AllocatePage(numPages int) (int, error) {
	common.Assert(numPages > 0, "cannot allocate negative number of pages")
	f.allocMu.Lock()
	defer f.allocMu.Unlock()

	currentPages := f.numPages.Load()
	newTotalPages := currentPages + int32(numPages)
	newSizeBytes := int64(newTotalPages) * int64(common.PageSize)

	// Reads from the new area will return zeros.
	if err := f.file.Truncate(newSizeBytes); err != nil {
		return 0, fmt.Errorf("failed to allocate pages: %w", err)
	}
	f.numPages.Store(newTotalPages)
	return int(currentPages), nil
}

// ReadPage reads the content of the page identified by `pageNum` into `frame`. Returns InvalidPageError if the page
// does not exist.
func (f *DiskDBFile) ReadPage(pageNum int, frame []byte) error {
	common.Assert(len(frame) == common.PageSize, "buffer size must match PageSize")
	if pageNum < 0 || int32(pageNum) >= f.numPages.Load() {
		return common.Errorf(common.InvalidPageError, "read out of bounds: page %d does not exist (file has %d pages)",
			pageNum, f.numPages.Load())
	}

	offset := int64(pageNum) * int64(common.PageSize)
	if _, err := f.file.ReadAt(frame, offset); err != nil {
		return fmt.Errorf("read page %d of %s: %w", pageNum, f.file.Name(), err)
	}
	return nil
}

// WritePage writes the content of `frame` to the page identified by `pageNum`. Returns InvalidPageError if the page
// does not exist.
func (f *DiskDBFile) WritePage(pageNum int, frame []byte) error {
	common.Assert(len(frame) == common.PageSize, "buffer size must match PageSize")

	if pageNum < 0 || int32(pageNum) >= f.numPages.Load() {
		return common.Errorf(common.InvalidPageError, "write out of bounds: page %d does not exist", pageNum)
	}

	offset := int64(pageNum) * int64(common.PageSize)
	if _, err := f.file.WriteAt(frame, offset); err != nil {
		return fmt.Errorf("write page %d of %s: %w", pageNum, f.file.Name(), err)
	}
	return nil
}

// Sync flushes writes to stable storage.
func (f *DiskDBFile) Sync() error {
	return f.file.Sync()
}

// Close closes the underlying OS file.
func (f *DiskDBFile) Close() error {
	return f.file.Close()
}

// NumPages returns the number of pages currently in the file.
func (f *DiskDBFile) NumPages() (int, error) {
	return int(f.numPages.Load()), nil
}

// CanonicalPath returns the absolute, cleaned form of path. Table identity is derived from it.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// DiskDBFileManager keeps one open DiskDBFile per canonical path.
type DiskDBFileManager struct {
	fileCache *xsync.MapOf[string, DBFile]
	logger    *slog.Logger
}

// NewDiskDBFileManager creates an empty manager. A nil logger means slog.Default().
func NewDiskDBFileManager(logger *slog.Logger) *DiskDBFileManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskDBFileManager{
		fileCache: xsync.NewMapOf[string, DBFile](),
		logger:    logger,
	}
}

// GetDBFile retrieves or creates the DBFile at path.
//
// It maintains a cache of open files to ensure only one instance of DiskDBFile
// exists per physical file.
func (dsm *DiskDBFileManager) GetDBFile(path string) (DBFile, error) {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return nil, err
	}
	if file, ok := dsm.fileCache.Load(canonical); ok {
		return file, nil
	}

	f, err := os.OpenFile(canonical, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	newDBFile, err := NewDiskDBFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	actualFile, loaded := dsm.fileCache.LoadOrStore(canonical, newDBFile)
	if loaded {
		// We lost the race. Another thread opened the file and inserted it first.
		// Close our unnecessary file handle and use theirs.
		_ = newDBFile.Close()
		return actualFile, nil
	}

	dsm.logger.Debug("opened table file", "path", canonical, "pages", newDBFile.numPages.Load())
	return newDBFile, nil
}

// DeleteDBFile permanently deletes the file at path.
//
// Warning: The caller must ensure that no other threads are currently using/getting the file.
func (dsm *DiskDBFileManager) DeleteDBFile(path string) error {
	canonical, err := CanonicalPath(path)
	if err != nil {
		return err
	}
	file, loaded := dsm.fileCache.LoadAndDelete(canonical)
	if loaded {
		if err := file.Close(); err != nil {
			// We continue even if close fails, to ensure physical deletion
			dsm.logger.Warn("failed to close table file before deletion", "path", canonical, "error", err)
		}
	}

	if err := os.Remove(canonical); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete table file: %w", err)
	}
	return nil
}

// Close closes every cached file handle. The manager remains usable; files are reopened on demand.
func (dsm *DiskDBFileManager) Close() error {
	var errs []error
	dsm.fileCache.Range(func(path string, file DBFile) bool {
		dsm.fileCache.Delete(path)
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		return true
	})
	return errors.Join(errs...)
}
