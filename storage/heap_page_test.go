package storage

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/minidb/common"
)

func pairDesc(t *testing.T) *TupleDesc {
	desc, err := NewTupleDesc([]common.Type{common.IntType, common.StringType}, []string{"id", "name"})
	require.NoError(t, err)
	return desc
}

func pairTuple(t *testing.T, desc *TupleDesc, i int) Tuple {
	tup, err := NewTuple(desc, common.NewIntValue(int64(i)), common.NewStringValue(fmt.Sprintf("row-%d", i)))
	require.NoError(t, err)
	return tup
}

func TestSlotsPerPage(t *testing.T) {
	for _, rowSize := range []int{8, 16, 40, 256, 4000} {
		numSlots := SlotsPerPage(rowSize)
		bitmapSize := common.Align8((numSlots + 7) / 8)
		used := heapPageHeaderSize + bitmapSize + numSlots*rowSize
		assert.LessOrEqual(t, used, common.PageSize, "row size %d overflows the page", rowSize)
		// One more slot must not fit
		more := numSlots + 1
		assert.Greater(t, heapPageHeaderSize+common.Align8((more+7)/8)+more*rowSize, common.PageSize,
			"row size %d leaves room for another slot", rowSize)
	}
	assert.Equal(t, 0, SlotsPerPage(4096))
}

func TestHeapPage_InsertAndDecode(t *testing.T) {
	desc := pairDesc(t)
	frame := new(PageFrame)
	InitializeHeapPage(desc, frame)
	pid := common.PageID{Oid: 9, PageNum: 2}
	page, err := frame.AsHeapPage(pid, desc)
	require.NoError(t, err)

	numSlots := page.NumSlots()
	require.Equal(t, SlotsPerPage(desc.BytesPerTuple()), numSlots)
	assert.Equal(t, desc.BytesPerTuple(), page.RowSize())
	assert.Equal(t, 0, page.NumUsed())
	assert.Empty(t, page.Tuples())

	for i := 0; i < numSlots; i++ {
		tup := pairTuple(t, desc, i)
		slot, err := page.InsertTuple(&tup)
		require.NoError(t, err)
		assert.Equal(t, i, slot)
	}
	tup := pairTuple(t, desc, numSlots)
	slot, err := page.InsertTuple(&tup)
	require.NoError(t, err)
	assert.Equal(t, -1, slot, "Full page should refuse the insert")
	assert.Equal(t, numSlots, page.NumUsed())

	// Decoding a copy of the bytes yields the same rows in slot order
	copied := new(PageFrame)
	copied.Bytes = frame.Bytes
	reread, err := copied.AsHeapPage(pid, desc)
	require.NoError(t, err)
	tuples := reread.Tuples()
	require.Len(t, tuples, numSlots)
	for i, tup := range tuples {
		assert.Equal(t, int64(i), tup.GetValue(0).IntValue())
		assert.Equal(t, fmt.Sprintf("row-%d", i), tup.GetValue(1).StringValue())
		assert.Equal(t, common.RecordID{PageID: pid, Slot: int32(i)}, tup.RID())
		assert.True(t, reread.IsAllocated(i))
	}
	assert.False(t, reread.IsAllocated(numSlots))
	assert.False(t, reread.IsAllocated(-1))
}

func TestHeapPage_SparseSlots(t *testing.T) {
	desc := pairDesc(t)
	frame := new(PageFrame)
	InitializeHeapPage(desc, frame)
	page, err := frame.AsHeapPage(common.PageID{Oid: 1}, desc)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		tup := pairTuple(t, desc, i)
		_, err := page.InsertTuple(&tup)
		require.NoError(t, err)
	}
	// Clear slots 1 and 3 behind the page's back, as a file written elsewhere might have
	page.allocationBitmap.SetBit(1, false)
	page.allocationBitmap.SetBit(3, false)
	page.setNumUsed(3)

	var ids []int64
	for _, tup := range page.Tuples() {
		ids = append(ids, tup.GetValue(0).IntValue())
	}
	assert.Equal(t, []int64{0, 2, 4}, ids)
	assert.Equal(t, 1, page.FindFreeSlot())
}

func TestHeapPage_ZeroPageIsEmpty(t *testing.T) {
	desc := pairDesc(t)
	page, err := new(PageFrame).AsHeapPage(common.PageID{Oid: 1}, desc)
	require.NoError(t, err)
	assert.Equal(t, 0, page.NumSlots())
	assert.Empty(t, page.Tuples())

	tup := pairTuple(t, desc, 0)
	_, err = page.InsertTuple(&tup)
	assert.True(t, common.IsCode(err, common.InvalidPageError))
}

func TestHeapPage_RejectsForeignLayout(t *testing.T) {
	desc := pairDesc(t)
	frame := new(PageFrame)
	InitializeHeapPage(desc, frame)

	narrow, err := NewTupleDesc([]common.Type{common.IntType}, nil)
	require.NoError(t, err)
	_, err = frame.AsHeapPage(common.PageID{Oid: 1}, narrow)
	assert.True(t, common.IsCode(err, common.InvalidPageError))

	binary.LittleEndian.PutUint16(frame.Bytes[heapPageOffsetNumSlots:], 0xFFFF)
	_, err = frame.AsHeapPage(common.PageID{Oid: 1}, desc)
	assert.True(t, common.IsCode(err, common.InvalidPageError))

	garbage := new(PageFrame)
	garbage.Bytes[100] = 1
	_, err = garbage.AsHeapPage(common.PageID{Oid: 1}, desc)
	assert.True(t, common.IsCode(err, common.InvalidPageError))
}

func TestHeapPage_InsertChecksSchema(t *testing.T) {
	desc := pairDesc(t)
	frame := new(PageFrame)
	InitializeHeapPage(desc, frame)
	page, err := frame.AsHeapPage(common.PageID{Oid: 1}, desc)
	require.NoError(t, err)

	swapped, err := NewTupleDesc([]common.Type{common.StringType, common.IntType}, nil)
	require.NoError(t, err)
	tup, err := NewTuple(swapped, common.NewStringValue("x"), common.NewIntValue(1))
	require.NoError(t, err)
	_, err = page.InsertTuple(&tup)
	assert.True(t, common.IsCode(err, common.TypeMismatchError))
	assert.Equal(t, 0, page.NumUsed())
}
