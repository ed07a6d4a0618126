package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/minidb/common"
)

func TestLimit(t *testing.T) {
	ctx, oid := setupTestTable(t, 200)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)

	limit, err := NewLimit(scan, 5)
	require.NoError(t, err)
	assert.Same(t, scan.Descriptor(), limit.Descriptor())

	require.NoError(t, limit.Open())
	assert.Equal(t, seq(0, 5), collectIDs(t, limit))
	_, err = limit.Next()
	assert.True(t, common.IsCode(err, common.IteratorMisuseError))

	require.NoError(t, limit.Rewind())
	assert.Equal(t, seq(0, 5), collectIDs(t, limit))
	require.NoError(t, limit.Close())
	assert.True(t, common.IsCode(limit.Rewind(), common.IteratorMisuseError))

	over, err := NewLimit(scan, 1000)
	require.NoError(t, err)
	require.NoError(t, over.Open())
	assert.Equal(t, seq(0, 200), collectIDs(t, over))
	require.NoError(t, over.Close())

	zero, err := NewLimit(scan, 0)
	require.NoError(t, err)
	require.NoError(t, zero.Open())
	assert.Empty(t, collectIDs(t, zero))
	require.NoError(t, zero.Close())

	_, err = NewLimit(scan, -1)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewLimit(nil, 1)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
}

func TestProject(t *testing.T) {
	ctx, oid := setupTestTable(t, 10)
	scan, err := NewSeqScanWithAlias(ctx, oid, "t")
	require.NoError(t, err)

	proj, err := NewProject(scan, []int{2, 0})
	require.NoError(t, err)
	desc := proj.Descriptor()
	require.Equal(t, 2, desc.NumFields())
	assert.Equal(t, "t.grp", desc.FieldName(0))
	assert.Equal(t, "t.id", desc.FieldName(1))

	require.NoError(t, proj.Open())
	tuples, err := Collect(proj)
	require.NoError(t, err)
	require.Len(t, tuples, 10)
	for i, tup := range tuples {
		assert.Equal(t, int64(i%3), tup.GetValue(0).IntValue())
		assert.Equal(t, int64(i), tup.GetValue(1).IntValue())
		rid := tup.RID()
		assert.True(t, rid.IsNil())
	}

	require.NoError(t, proj.Rewind())
	again, err := Collect(proj)
	require.NoError(t, err)
	assert.Len(t, again, 10)
	require.NoError(t, proj.Close())

	_, err = NewProject(scan, nil)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewProject(scan, []int{3})
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
}

func TestOrderBy(t *testing.T) {
	ctx, oid := setupTestTable(t, 9)
	scan, err := NewSeqScan(ctx, oid)
	require.NoError(t, err)

	// ORDER BY grp DESC, id
	sorted, err := NewOrderBy(scan, []SortKey{{Field: 2, Descending: true}, {Field: 0}})
	require.NoError(t, err)
	require.NoError(t, sorted.Open())
	assert.Equal(t, []int64{2, 5, 8, 1, 4, 7, 0, 3, 6}, collectIDs(t, sorted))

	require.NoError(t, sorted.Rewind())
	assert.Equal(t, []int64{2, 5, 8, 1, 4, 7, 0, 3, 6}, collectIDs(t, sorted))
	require.NoError(t, sorted.Close())
	assert.True(t, common.IsCode(sorted.Rewind(), common.IteratorMisuseError))

	byName, err := NewOrderBy(scan, []SortKey{{Field: 1, Descending: true}})
	require.NoError(t, err)
	require.NoError(t, byName.Open())
	assert.Equal(t, []int64{8, 7, 6, 5, 4, 3, 2, 1, 0}, collectIDs(t, byName))
	require.NoError(t, byName.Close())

	_, err = NewOrderBy(scan, nil)
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
	_, err = NewOrderBy(scan, []SortKey{{Field: 4}})
	assert.True(t, common.IsCode(err, common.InvalidArgumentError))
}
