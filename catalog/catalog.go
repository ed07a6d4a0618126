package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// Catalog keeps track of every table known to the database: its name, schema, primary key and the
// heap file that stores it.
//
// Tables are registered explicitly with AddTable or in bulk from a schema description with
// LoadSchema, and live until Clear. Entries are never modified in place; a table whose file has
// been rewritten is dropped and registered again.
//
// The catalog does no locking of its own. Registration and lookup must be serialized by the
// owner (see minidb.Database), while the heap files it hands out are safe to share.
type Catalog struct {
	files  storage.DBFileManager
	logger *slog.Logger

	// Indices, updated together
	names     map[common.ObjectID]string
	heapFiles map[common.ObjectID]*storage.HeapFile
	pkeys     map[common.ObjectID]string
	nameIndex btree.Map[string, common.ObjectID] // TableName -> Oid, kept sorted for listings
}

// Column is the JSON form of one field of a table schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo describes one registered table.
type TableInfo struct {
	Oid        common.ObjectID `json:"oid"`
	Name       string          `json:"name"`
	PrimaryKey string          `json:"primary_key,omitempty"`
	Path       string          `json:"path"`
	NumPages   int             `json:"num_pages"`
	Columns    []Column        `json:"columns"`
}

// NewCatalog creates an empty catalog. files opens the heap files of tables loaded by LoadSchema.
// A nil logger means slog.Default().
func NewCatalog(files storage.DBFileManager, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		files:     files,
		logger:    logger,
		names:     make(map[common.ObjectID]string),
		heapFiles: make(map[common.ObjectID]*storage.HeapFile),
		pkeys:     make(map[common.ObjectID]string),
	}
}

// AddTable registers file under name, with pkeyField (possibly empty) as its primary key.
// It returns DuplicateObjectError if the name is already taken, or if the same file is already
// registered under another name.
func (c *Catalog) AddTable(file *storage.HeapFile, name string, pkeyField string) error {
	if file == nil {
		return common.Errorf(common.InvalidArgumentError, "table '%s' has no heap file", name)
	}
	if name == "" {
		return common.Errorf(common.InvalidArgumentError, "table name must not be empty")
	}
	if _, exists := c.nameIndex.Get(name); exists {
		return common.Errorf(common.DuplicateObjectError, "table '%s' already exists", name)
	}
	oid := file.ID()
	if other, exists := c.names[oid]; exists {
		return common.Errorf(common.DuplicateObjectError, "file %s is already registered as table '%s' (id %d)",
			file.Path(), other, oid)
	}
	if pkeyField != "" {
		if _, err := file.Descriptor().FieldIndex(pkeyField); err != nil {
			return common.Errorf(common.InvalidArgumentError, "primary key of table '%s': %v", name, err)
		}
	}

	c.names[oid] = name
	c.heapFiles[oid] = file
	c.pkeys[oid] = pkeyField
	c.nameIndex.Set(name, oid)
	return nil
}

// AddTableUnnamed registers file under a freshly generated unique name, which is returned.
func (c *Catalog) AddTableUnnamed(file *storage.HeapFile) (string, error) {
	name := uuid.NewString()
	if err := c.AddTable(file, name, ""); err != nil {
		return "", err
	}
	return name, nil
}

// DropTable removes the table called name.
func (c *Catalog) DropTable(name string) error {
	oid, exists := c.nameIndex.Delete(name)
	if !exists {
		return common.Errorf(common.NoSuchObjectError, "table '%s' does not exist", name)
	}
	delete(c.names, oid)
	delete(c.heapFiles, oid)
	delete(c.pkeys, oid)
	return nil
}

// GetTableID returns the id of the table called name.
func (c *Catalog) GetTableID(name string) (common.ObjectID, error) {
	oid, exists := c.nameIndex.Get(name)
	if !exists {
		return common.InvalidObjectID, common.Errorf(common.NoSuchObjectError, "table '%s' does not exist", name)
	}
	return oid, nil
}

func noSuchTable(oid common.ObjectID) error {
	return common.Errorf(common.NoSuchObjectError, "no table with id %d", oid)
}

// GetTupleDesc returns the schema of table oid.
func (c *Catalog) GetTupleDesc(oid common.ObjectID) (*storage.TupleDesc, error) {
	file, err := c.GetHeapFile(oid)
	if err != nil {
		return nil, err
	}
	return file.Descriptor(), nil
}

// GetHeapFile returns the heap file that stores table oid.
func (c *Catalog) GetHeapFile(oid common.ObjectID) (*storage.HeapFile, error) {
	file, exists := c.heapFiles[oid]
	if !exists {
		return nil, noSuchTable(oid)
	}
	return file, nil
}

// FileOf implements storage.FileResolver.
func (c *Catalog) FileOf(oid common.ObjectID) (*storage.HeapFile, error) {
	return c.GetHeapFile(oid)
}

// GetPrimaryKey returns the primary key field of table oid, or "" if it has none.
func (c *Catalog) GetPrimaryKey(oid common.ObjectID) (string, error) {
	pkey, exists := c.pkeys[oid]
	if !exists {
		return "", noSuchTable(oid)
	}
	return pkey, nil
}

// GetTableName returns the name of table oid.
func (c *Catalog) GetTableName(oid common.ObjectID) (string, error) {
	name, exists := c.names[oid]
	if !exists {
		return "", noSuchTable(oid)
	}
	return name, nil
}

// TableIDs returns the ids of all registered tables in no particular order.
func (c *Catalog) TableIDs() []common.ObjectID {
	ids := make([]common.ObjectID, 0, len(c.names))
	for oid := range c.names {
		ids = append(ids, oid)
	}
	return ids
}

// TableNames returns the names of all registered tables in ascending order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, c.nameIndex.Len())
	c.nameIndex.Scan(func(name string, _ common.ObjectID) bool {
		names = append(names, name)
		return true
	})
	return names
}

// NumTables returns the number of registered tables.
func (c *Catalog) NumTables() int {
	return len(c.names)
}

// Tables describes every registered table, ordered by name.
func (c *Catalog) Tables() []TableInfo {
	result := make([]TableInfo, 0, c.nameIndex.Len())
	c.nameIndex.Scan(func(name string, oid common.ObjectID) bool {
		file := c.heapFiles[oid]
		desc := file.Descriptor()
		columns := make([]Column, desc.NumFields())
		for i := range columns {
			columns[i] = Column{Name: desc.FieldName(i), Type: desc.FieldType(i).String()}
		}
		result = append(result, TableInfo{
			Oid:        oid,
			Name:       name,
			PrimaryKey: c.pkeys[oid],
			Path:       file.Path(),
			NumPages:   file.NumPages(),
			Columns:    columns,
		})
		return true
	})
	return result
}

// Clear removes every table. Calling it on an empty catalog does nothing.
func (c *Catalog) Clear() {
	clear(c.names)
	clear(c.heapFiles)
	clear(c.pkeys)
	c.nameIndex = btree.Map[string, common.ObjectID]{}
}

func (c *Catalog) String() string {
	b, _ := json.MarshalIndent(c.Tables(), "", "  ")
	return string(b)
}

// tableSpec is one parsed line of a schema description.
type tableSpec struct {
	lineNo int
	line   string
	name   string
	types  []common.Type
	fields []string
	pkey   string
}

func schemaLoadError(lineNo int, line string, format string, args ...any) error {
	return common.Errorf(common.SchemaLoadError, "line %d %q: %s", lineNo, line, fmt.Sprintf(format, args...))
}

// parseTableLine parses `name (field type [pk], ...)`.
func parseTableLine(lineNo int, line string) (*tableSpec, error) {
	open := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if open < 0 || end < open {
		return nil, schemaLoadError(lineNo, line, "expected 'name (field type, ...)'")
	}
	if strings.TrimSpace(line[end+1:]) != "" {
		return nil, schemaLoadError(lineNo, line, "unexpected text after ')'")
	}
	name := strings.TrimSpace(line[:open])
	if name == "" || strings.ContainsAny(name, " \t") {
		return nil, schemaLoadError(lineNo, line, "invalid table name %q", name)
	}

	spec := &tableSpec{lineNo: lineNo, line: line, name: name}
	for _, clause := range strings.Split(line[open+1:end], ",") {
		tokens := strings.Fields(clause)
		if len(tokens) < 2 || len(tokens) > 3 {
			return nil, schemaLoadError(lineNo, line, "malformed field clause %q", strings.TrimSpace(clause))
		}
		t, err := common.ParseType(tokens[1])
		if err != nil {
			return nil, schemaLoadError(lineNo, line, "unknown type %q", tokens[1])
		}
		if len(tokens) == 3 {
			if tokens[2] != "pk" {
				return nil, schemaLoadError(lineNo, line, "unknown annotation %q", tokens[2])
			}
			if spec.pkey != "" {
				return nil, schemaLoadError(lineNo, line, "more than one primary key")
			}
			spec.pkey = tokens[0]
		}
		spec.fields = append(spec.fields, tokens[0])
		spec.types = append(spec.types, t)
	}
	return spec, nil
}

// LoadSchema reads a schema description and registers every table in it. Each non-blank line has
// the form
//
//	name (field type [pk], field type [pk], ...)
//
// where type is int or string (case-insensitive) and pk marks the primary key. The heap file of
// table name is <dir>/name.dat, where dir is the directory of the description file.
//
// Loading is all or nothing: on any malformed line, or if a table cannot be registered, the
// catalog is left as it was and SchemaLoadError is returned.
func (c *Catalog) LoadSchema(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return common.Errorf(common.SchemaLoadError, "open schema %s: %v", path, err)
	}
	defer f.Close()

	var specs []*tableSpec
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		spec, err := parseTableLine(lineNo, line)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return common.Errorf(common.SchemaLoadError, "read schema %s: %v", path, err)
	}

	dir := filepath.Dir(path)
	var added []string
	rollback := func() {
		for _, name := range added {
			_ = c.DropTable(name)
		}
	}
	for _, spec := range specs {
		desc, err := storage.NewTupleDesc(spec.types, spec.fields)
		if err != nil {
			rollback()
			return schemaLoadError(spec.lineNo, spec.line, "%v", err)
		}
		file, err := storage.NewHeapFile(c.files, filepath.Join(dir, spec.name+".dat"), desc)
		if err != nil {
			rollback()
			return schemaLoadError(spec.lineNo, spec.line, "%v", err)
		}
		if err := c.AddTable(file, spec.name, spec.pkey); err != nil {
			rollback()
			return schemaLoadError(spec.lineNo, spec.line, "%v", err)
		}
		added = append(added, spec.name)
		c.logger.Info("added table", "name", spec.name, "oid", file.ID(), "schema", desc.String(),
			"pages", file.NumPages())
	}
	return nil
}
