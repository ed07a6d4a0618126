package minidb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	// Imports all sub-components
	"mit.edu/dsg/minidb/catalog"
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/config"
	"mit.edu/dsg/minidb/execution"
	"mit.edu/dsg/minidb/storage"
)

// Database is the top-level container for the database system.
//
// Catalog changes (LoadCSV) are serialized against lookups made through the Database. Iterators
// that are already open keep reading the pages they had access to; a table reloaded under them
// is picked up on their next Open.
type Database struct {
	Catalog    *catalog.Catalog
	BufferPool *storage.BufferPool
	Files      *storage.DiskDBFileManager

	mu     sync.RWMutex
	logger *slog.Logger
}

// lockedResolver resolves table files for the buffer pool under the database lock.
type lockedResolver struct {
	db *Database
}

func (r lockedResolver) FileOf(oid common.ObjectID) (*storage.HeapFile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.Catalog.FileOf(oid)
}

// Open creates a database from cfg. If cfg names a catalog file, its tables are registered.
// A nil logger means slog.Default().
func Open(cfg *config.Config, logger *slog.Logger) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	files := storage.NewDiskDBFileManager(logger)
	db := &Database{
		Catalog: catalog.NewCatalog(files, logger),
		Files:   files,
		logger:  logger,
	}
	db.BufferPool = storage.NewBufferPool(cfg.BufferPoolPages, lockedResolver{db: db}, logger)

	if cfg.CatalogFile != "" {
		if err := db.Catalog.LoadSchema(cfg.CatalogFile); err != nil {
			return nil, errors.Join(err, files.Close())
		}
	}
	logger.Info("database opened", "tables", db.Catalog.NumTables(), "buffer_pool_pages", cfg.BufferPoolPages)
	return db, nil
}

// Begin returns an execution context for one query under a fresh transaction id.
func (db *Database) Begin() *execution.ExecutorContext {
	return execution.NewExecutorContext(execution.NewTransactionID(), db.Catalog, db.BufferPool, db.logger)
}

// Scan returns a sequential scan of the table called name under ctx. An empty alias uses the
// table name.
func (db *Database) Scan(ctx *execution.ExecutorContext, name string, alias string) (*execution.SeqScan, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	oid, err := db.Catalog.GetTableID(name)
	if err != nil {
		return nil, err
	}
	if alias == "" {
		return execution.NewSeqScan(ctx, oid)
	}
	return execution.NewSeqScanWithAlias(ctx, oid, alias)
}

// Tables describes every registered table, sorted by name.
func (db *Database) Tables() []catalog.TableInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.Catalog.Tables()
}

// LoadCSV replaces the contents of the table called name with the rows read from r. The table
// keeps its name, schema and primary key. It returns the number of pages written.
//
// A malformed stream fails the load part way through, leaving the table with the rows that
// preceded the bad record.
func (db *Database) LoadCSV(name string, r io.Reader, hasHeader bool) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	oid, err := db.Catalog.GetTableID(name)
	if err != nil {
		return 0, err
	}
	old, err := db.Catalog.GetHeapFile(oid)
	if err != nil {
		return 0, err
	}
	pkey, err := db.Catalog.GetPrimaryKey(oid)
	if err != nil {
		return 0, err
	}

	db.BufferPool.DiscardPages(oid)
	numPages, loadErr := storage.EncodeCSV(db.Files, old.Path(), old.Descriptor(), r, hasHeader)
	if loadErr != nil {
		loadErr = fmt.Errorf("load %s: %w", name, loadErr)
	}

	// The encoder reopened the file, so the old HeapFile is stale either way
	file, err := storage.NewHeapFile(db.Files, old.Path(), old.Descriptor())
	if err != nil {
		return 0, errors.Join(loadErr, err)
	}
	if err := db.Catalog.DropTable(name); err != nil {
		return 0, errors.Join(loadErr, err)
	}
	if err := db.Catalog.AddTable(file, name, pkey); err != nil {
		return 0, errors.Join(loadErr, err)
	}
	// A miss that resolved the old file before we took the lock may have cached one of its pages
	db.BufferPool.DiscardPages(oid)
	if loadErr != nil {
		return 0, loadErr
	}
	db.logger.Info("table loaded", "name", name, "pages", numPages)
	return numPages, nil
}

// Close releases every open file.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Catalog.Clear()
	return db.Files.Close()
}
