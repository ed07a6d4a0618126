package execution

import (
	"log/slog"
	"sync/atomic"

	"mit.edu/dsg/minidb/catalog"
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// ExecutorContext holds all the state and resources required for query execution.
// It is passed to every operator during construction, in place of any process-wide catalog or
// page cache.
type ExecutorContext struct {
	tid     common.TransactionID
	catalog *catalog.Catalog
	cache   storage.PageCache
	logger  *slog.Logger
}

var lastTransactionID atomic.Uint64

// NewTransactionID hands out a fresh, process-unique transaction id.
func NewTransactionID() common.TransactionID {
	return common.TransactionID(lastTransactionID.Add(1))
}

// NewExecutorContext bundles the resources of one transaction. A nil logger means slog.Default().
func NewExecutorContext(tid common.TransactionID, cat *catalog.Catalog, cache storage.PageCache, logger *slog.Logger) *ExecutorContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutorContext{
		tid:     tid,
		catalog: cat,
		cache:   cache,
		logger:  logger.With("tid", tid),
	}
}

func (ctx *ExecutorContext) GetTransactionID() common.TransactionID {
	return ctx.tid
}

func (ctx *ExecutorContext) GetCatalog() *catalog.Catalog {
	return ctx.catalog
}

func (ctx *ExecutorContext) GetPageCache() storage.PageCache {
	return ctx.cache
}

func (ctx *ExecutorContext) Logger() *slog.Logger {
	return ctx.logger
}
