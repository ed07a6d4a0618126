package execution

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/minidb/catalog"
	"mit.edu/dsg/minidb/common"
	"mit.edu/dsg/minidb/storage"
)

// setupTestTable creates a table "test_table" with columns (id int, name string, grp int) holding
// n tuples (i, "row-i", i % 3) and returns a context to query it with.
func setupTestTable(t *testing.T, n int) (*ExecutorContext, common.ObjectID) {
	files := storage.NewDiskDBFileManager(nil)
	t.Cleanup(func() { _ = files.Close() })
	cat := catalog.NewCatalog(files, nil)

	desc, err := storage.NewTupleDesc(
		[]common.Type{common.IntType, common.StringType, common.IntType},
		[]string{"id", "name", "grp"})
	require.NoError(t, err)

	tuples := make([]storage.Tuple, n)
	for i := range tuples {
		tuples[i], err = storage.NewTuple(desc,
			common.NewIntValue(int64(i)),
			common.NewStringValue(fmt.Sprintf("row-%d", i)),
			common.NewIntValue(int64(i%3)))
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "test_table.dat")
	_, err = storage.EncodeHeapFile(files, path, desc, tuples)
	require.NoError(t, err)
	hf, err := storage.NewHeapFile(files, path, desc)
	require.NoError(t, err)
	require.NoError(t, cat.AddTable(hf, "test_table", "id"))

	bp := storage.NewBufferPool(8, cat, nil)
	return NewExecutorContext(NewTransactionID(), cat, bp, nil), hf.ID()
}

func collectIDs(t *testing.T, it DbIterator) []int64 {
	tuples, err := Collect(it)
	require.NoError(t, err)
	ids := make([]int64, len(tuples))
	for i, tup := range tuples {
		ids[i] = tup.GetValue(0).IntValue()
	}
	return ids
}

func seq(from, to int) []int64 {
	var out []int64
	for i := from; i < to; i++ {
		out = append(out, int64(i))
	}
	return out
}

func TestBasicExecutor_SeqScan(t *testing.T) {
	ctx, oid := setupTestTable(t, 500)

	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, "test_table", scan.Alias())
	name, err := scan.TableName()
	require.NoError(t, err)
	assert.Equal(t, "test_table", name)

	desc := scan.Descriptor()
	assert.Equal(t, "test_table.id", desc.FieldName(0))
	assert.Equal(t, "test_table.grp", desc.FieldName(2))

	require.NoError(t, scan.Open())
	tuples, err := Collect(scan)
	require.NoError(t, err)
	require.Len(t, tuples, 500)
	for i, tup := range tuples {
		assert.Equal(t, int64(i), tup.GetValue(0).IntValue())
		assert.Same(t, desc, tup.Descriptor(), "Scan output must carry the aliased schema")
		assert.Equal(t, oid, tup.RID().Oid)
	}

	_, err = scan.Next()
	assert.True(t, common.IsCode(err, common.IteratorMisuseError))
	require.NoError(t, scan.Close())
}

func TestBasicExecutor_SeqScanAlias(t *testing.T) {
	ctx, oid := setupTestTable(t, 3)

	scan, err := NewSeqScanWithAlias(ctx, oid, "t")
	require.NoError(t, err)
	assert.Equal(t, "t.name", scan.Descriptor().FieldName(1))

	noAlias, err := NewSeqScanWithAlias(ctx, oid, "")
	require.NoError(t, err)
	assert.Equal(t, "null.id", noAlias.Descriptor().FieldName(0))

	// Unnamed fields degrade to "null" instead of failing
	unnamed, err := storage.NewTupleDesc([]common.Type{common.IntType, common.IntType}, []string{"a", ""})
	require.NoError(t, err)
	aliased := aliasedDesc(unnamed, "x")
	assert.Equal(t, "x.a", aliased.FieldName(0))
	assert.Equal(t, "x.null", aliased.FieldName(1))
	assert.Equal(t, "null.null", aliasedDesc(unnamed, "").FieldName(1))

	_, err = NewSeqScan(ctx, oid+1)
	assert.True(t, common.IsCode(err, common.NoSuchObjectError))
	_, err = NewSeqScanWithAlias(nil, oid, "t")
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
}

func TestBasicExecutor_SeqScanLifecycle(t *testing.T) {
	ctx, oid := setupTestTable(t, 300)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)

	require.NoError(t, scan.Close(), "Close before Open is allowed")
	ok, err := scan.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, common.IsCode(scan.Rewind(), common.IteratorMisuseError))

	require.NoError(t, scan.Open())
	for i := 0; i < 150; i++ {
		_, err := scan.Next()
		require.NoError(t, err)
	}
	assert.True(t, common.IsCode(scan.Reset(oid, "other"), common.IteratorMisuseError))

	require.NoError(t, scan.Rewind())
	assert.Equal(t, seq(0, 300), collectIDs(t, scan))

	require.NoError(t, scan.Close())
	require.NoError(t, scan.Reset(oid, "other"))
	assert.Equal(t, "other.id", scan.Descriptor().FieldName(0))
	require.NoError(t, scan.Open())
	assert.Equal(t, seq(0, 300), collectIDs(t, scan))
	require.NoError(t, scan.Close())
}

func TestBasicExecutor_Filter(t *testing.T) {
	ctx, oid := setupTestTable(t, 400)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)

	pred := NewPredicate(0, common.GreaterThanOrEq, common.NewIntValue(390))
	filter, err := NewFilter(pred, scan)
	require.NoError(t, err)
	assert.Same(t, scan.Descriptor(), filter.Descriptor())

	require.NoError(t, filter.Open())
	_, err = filter.Next()
	require.NoError(t, err)
	require.NoError(t, filter.Rewind())
	assert.Equal(t, seq(390, 400), collectIDs(t, filter))

	// Rewind replays the buffer without touching the child
	require.NoError(t, scan.Close())
	require.NoError(t, filter.Rewind())
	assert.Equal(t, seq(390, 400), collectIDs(t, filter))

	require.NoError(t, filter.Close())
	ok, err := filter.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, common.IsCode(filter.Rewind(), common.IteratorMisuseError))
	_, err = filter.Next()
	assert.True(t, common.IsCode(err, common.IteratorMisuseError))

	// Reopening drains the child again
	require.NoError(t, filter.Open())
	assert.Equal(t, seq(390, 400), collectIDs(t, filter))
	require.NoError(t, filter.Close())
	require.NoError(t, filter.Close())
}

func TestBasicExecutor_FilterIsSoundSubset(t *testing.T) {
	ctx, oid := setupTestTable(t, 200)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)
	require.NoError(t, scan.Open())
	all, err := Collect(scan)
	require.NoError(t, err)
	require.NoError(t, scan.Close())

	preds := []Predicate{
		NewPredicate(2, common.Equals, common.NewIntValue(1)),
		NewPredicate(0, common.LessThan, common.NewIntValue(17)),
		NewPredicate(1, common.Like, common.NewStringValue("-1")),
		NewPredicate(0, common.NotEquals, common.NewIntValue(5)),
	}
	for _, pred := range preds {
		t.Run(pred.String(), func(t *testing.T) {
			filter, err := NewFilter(pred, scan)
			require.NoError(t, err)
			require.NoError(t, filter.Open())
			out, err := Collect(filter)
			require.NoError(t, err)
			require.NoError(t, filter.Close())

			kept := make(map[common.RecordID]bool)
			for _, tup := range out {
				ok, err := pred.Evaluate(&tup)
				require.NoError(t, err)
				assert.True(t, ok)
				kept[tup.RID()] = true
			}
			for _, tup := range all {
				if !kept[tup.RID()] {
					ok, err := pred.Evaluate(&tup)
					require.NoError(t, err)
					assert.False(t, ok)
				}
			}
			assert.LessOrEqual(t, len(out), len(all))
		})
	}
}

func TestBasicExecutor_FilterErrors(t *testing.T) {
	ctx, oid := setupTestTable(t, 5)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)

	_, err = NewFilter(NewPredicate(0, common.Equals, common.NewIntValue(1)), nil)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))

	mismatch, err := NewFilter(NewPredicate(1, common.Equals, common.NewIntValue(1)), scan)
	require.NoError(t, err)
	assert.True(t, common.IsCode(mismatch.Open(), common.TypeMismatchError))

	outOfRange, err := NewFilter(NewPredicate(7, common.Equals, common.NewIntValue(1)), scan)
	require.NoError(t, err)
	assert.True(t, common.IsCode(outOfRange.Open(), common.InvalidArgumentError))
}

func TestParsePredicate(t *testing.T) {
	ctx, oid := setupTestTable(t, 1)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)
	desc := scan.Descriptor()

	pred, err := ParsePredicate(desc, "id >= 30")
	require.NoError(t, err)
	assert.Equal(t, 0, pred.Field())
	assert.Equal(t, common.GreaterThanOrEq, pred.Op())
	assert.Equal(t, common.NewIntValue(30), pred.Operand())

	pred, err = ParsePredicate(desc, "test_table.name like 'row 1'")
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Field())
	assert.Equal(t, common.NewStringValue("row 1"), pred.Operand())

	_, err = ParsePredicate(desc, "id >=")
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = ParsePredicate(desc, "missing = 1")
	assert.True(t, common.IsCode(err, common.NoSuchObjectError))
	_, err = ParsePredicate(desc, "id ~ 1")
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = ParsePredicate(desc, "id = abc")
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
}

func TestTupleIterator(t *testing.T) {
	desc, err := storage.NewTupleDesc([]common.Type{common.IntType}, nil)
	require.NoError(t, err)
	var tuples []storage.Tuple
	for i := 0; i < 3; i++ {
		tup, err := storage.NewTuple(desc, common.NewIntValue(int64(i)))
		require.NoError(t, err)
		tuples = append(tuples, tup)
	}

	it := NewTupleIterator(desc, tuples)
	_, err = it.Next()
	assert.True(t, common.IsCode(err, common.IteratorMisuseError))

	require.NoError(t, it.Open())
	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = it.HasNext()
	require.NoError(t, err)
	assert.True(t, ok, "HasNext must not consume")
	assert.Equal(t, seq(0, 3), collectIDs(t, it))

	require.NoError(t, it.Rewind())
	assert.Equal(t, seq(0, 3), collectIDs(t, it))
	require.NoError(t, it.Close())
	assert.True(t, common.IsCode(it.Rewind(), common.IteratorMisuseError))
}
