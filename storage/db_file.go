package storage

// DBFile abstracts the physical file on storage that stores a table.
// It handles page-level reads and writes, as well as space allocation.
//
// Implementation should be safe for concurrent use. Specifically, multiple threads
// should be able to ReadPage and WritePage to different pages simultaneously.
// AllocatePage should be thread-safe and atomic with respect to other allocations.
type DBFile interface {
	// AllocatePage reserves a sequential block of `numPages` pages in the file.
	// It returns the page number of the first page in the allocated block. The new pages
	// are filled with zeros.
	AllocatePage(numPages int) (int, error)
	// ReadPage reads the contents of the page identified by `pageNum` into the
	// provided byte slice. The slice `frame` must be exactly common.PageSize bytes.
	ReadPage(pageNum int, frame []byte) error
	// WritePage writes the content of `frame` to the page identified by `pageNum`.
	// The slice `frame` must be exactly common.PageSize bytes, and `pageNum` must be strictly less than the
	//  current NumPages(). This method cannot be used to extend the file; use AllocatePage instead.
	WritePage(pageNum int, frame []byte) error
	// Sync forces any buffered writes to stable storage.
	Sync() error
	// Close closes the underlying file handle and releases resources.
	Close() error
	// NumPages returns the number of whole pages in the file.
	NumPages() (int, error)
}

// DBFileManager manages the lifecycle and caching of DBFile instances.
// It acts as the registry for all open files in the system. Files are identified by path;
// two spellings of the same path refer to the same handle.
type DBFileManager interface {
	// GetDBFile retrieves the DBFile handle for the file at path. If the file is already open, the
	// existing handle is returned. If the file does not exist on disk, it is created empty.
	GetDBFile(path string) (DBFile, error)
	// DeleteDBFile closes and permanently removes the file at path. Removing a file that does not
	// exist is not an error.
	// The caller is responsible for ensuring that no other threads are currently accessing this DBFile.
	DeleteDBFile(path string) error
	// Close closes every open handle.
	Close() error
}
