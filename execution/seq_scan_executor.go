package execution

import (
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// nullName stands in for a missing alias or field name in a scan's output schema.
const nullName = "null"

// SeqScan implements a sequential scan over a table. Output fields are named
// "<alias>.<field>", with the alias defaulting to the table's catalog name.
type SeqScan struct {
	ctx     *ExecutorContext
	tableID common.ObjectID
	alias   string

	file   *storage.HeapFile
	desc   *storage.TupleDesc
	cursor *storage.HeapFileIterator
	opened bool
}

// NewSeqScan creates a scan of tableID aliased by the table's own name.
func NewSeqScan(ctx *ExecutorContext, tableID common.ObjectID) (*SeqScan, error) {
	if ctx == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "scan needs an executor context")
	}
	name, err := ctx.GetCatalog().GetTableName(tableID)
	if err != nil {
		return nil, err
	}
	return NewSeqScanWithAlias(ctx, tableID, name)
}

// NewSeqScanWithAlias creates a scan of tableID whose output fields are prefixed by alias.
func NewSeqScanWithAlias(ctx *ExecutorContext, tableID common.ObjectID, alias string) (*SeqScan, error) {
	if ctx == nil {
		return nil, common.Errorf(common.InvalidArgumentError, "scan needs an executor context")
	}
	s := &SeqScan{ctx: ctx}
	if err := s.bind(tableID, alias); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SeqScan) bind(tableID common.ObjectID, alias string) error {
	file, err := s.ctx.GetCatalog().GetHeapFile(tableID)
	if err != nil {
		return err
	}
	s.tableID = tableID
	s.alias = alias
	s.file = file
	s.desc = aliasedDesc(file.Descriptor(), alias)
	s.cursor = file.Iterator(s.ctx.GetTransactionID(), s.ctx.GetPageCache())
	return nil
}

// aliasedDesc renames every field of desc to alias.field. Missing names become "null" instead of
// failing, so scans over partially named schemas still work.
func aliasedDesc(desc *storage.TupleDesc, alias string) *storage.TupleDesc {
	prefix := alias
	if prefix == "" {
		prefix = nullName
	}
	names := make([]string, desc.NumFields())
	for i := range names {
		field := desc.FieldName(i)
		if field == "" {
			field = nullName
		}
		names[i] = prefix + "." + field
	}
	return desc.WithNames(names)
}

// TableName returns the catalog name of the scanned table.
func (s *SeqScan) TableName() (string, error) {
	return s.ctx.GetCatalog().GetTableName(s.tableID)
}

// Alias returns the alias the scan was created with.
func (s *SeqScan) Alias() string {
	return s.alias
}

// TableID returns the id of the scanned table.
func (s *SeqScan) TableID() common.ObjectID {
	return s.tableID
}

// Reset points a closed scan at another table and alias.
func (s *SeqScan) Reset(tableID common.ObjectID, alias string) error {
	if s.opened {
		return common.Errorf(common.IteratorMisuseError, "cannot reset an open scan")
	}
	return s.bind(tableID, alias)
}

func (s *SeqScan) Open() error {
	if err := s.cursor.Open(); err != nil {
		return err
	}
	s.opened = true
	s.ctx.Logger().Debug("scan opened", "table", s.tableID, "alias", s.alias, "pages", s.file.NumPages())
	return nil
}

func (s *SeqScan) HasNext() (bool, error) {
	return s.cursor.HasNext()
}

func (s *SeqScan) Next() (storage.Tuple, error) {
	t, err := s.cursor.Next()
	if err != nil {
		return storage.Tuple{}, err
	}
	return t.WithDescriptor(s.desc), nil
}

func (s *SeqScan) Rewind() error {
	return s.cursor.Rewind()
}

func (s *SeqScan) Close() error {
	s.opened = false
	return s.cursor.Close()
}

func (s *SeqScan) Descriptor() *storage.TupleDesc {
	return s.desc
}
