package storage

import (
	"encoding/binary"

	"mit.edu/dsg/minidb/common"
)

// HeapPage Layout:
// RowSize (2) | NumSlots (2) | NumUsed (2) | Padding (2) | allocation Bitmap (8-aligned) | rows
//
// A page of all zeroes (as produced by DBFile.AllocatePage) is a valid page with no slots.
type HeapPage struct {
	*PageFrame

	id   common.PageID
	desc *TupleDesc

	// Computed on creation for performance in repeated access
	allocationBitmap Bitmap
	rowDataStart     int
}

const (
	heapPageOffsetRowSize  = 0
	heapPageOffsetNumSlots = heapPageOffsetRowSize + 2
	heapPageOffsetNumUsed  = heapPageOffsetNumSlots + 2
)
const heapPageHeaderSize = heapPageOffsetNumUsed + 4

// SlotsPerPage returns how many rows of rowSize bytes fit on one heap page alongside the header
// and the allocation bitmap.
func SlotsPerPage(rowSize int) int {
	common.Assert(rowSize > 0 && common.AlignedTo8(rowSize), "tuple size %d should be aligned to 8", rowSize)
	// Utilization is full per 64 rows with aligned bitmaps
	blockSize := (64 * rowSize) + 8
	available := common.PageSize - heapPageHeaderSize
	fullBlocks, remainder := available/blockSize, available%blockSize
	numSlots := fullBlocks * 64
	if remainder > 8 {
		numSlots += (remainder - 8) / rowSize
	}
	return numSlots
}

// InitializeHeapPage formats frame as an empty heap page holding rows of desc.
func InitializeHeapPage(desc *TupleDesc, frame *PageFrame) {
	rowSize := desc.BytesPerTuple()
	numSlots := SlotsPerPage(rowSize)
	common.Assert(numSlots > 0, "row of %d bytes does not fit on a page", rowSize)
	frame.Bytes = [common.PageSize]byte{}
	binary.LittleEndian.PutUint16(frame.Bytes[heapPageOffsetRowSize:], uint16(rowSize))
	binary.LittleEndian.PutUint16(frame.Bytes[heapPageOffsetNumSlots:], uint16(numSlots))
}

// AsHeapPage interprets frame as the heap page id of a table with schema desc. Pages whose header
// does not agree with desc are rejected with InvalidPageError.
func (frame *PageFrame) AsHeapPage(id common.PageID, desc *TupleDesc) (*HeapPage, error) {
	result := &HeapPage{
		PageFrame: frame,
		id:        id,
		desc:      desc,
	}
	if result.NumSlots() == 0 && result.RowSize() == 0 {
		if !frame.isZero() {
			return nil, common.Errorf(common.InvalidPageError, "%s has no slots but is not empty", id.String())
		}
		return result, nil
	}

	numSlots := result.NumSlots()
	if result.RowSize() != desc.BytesPerTuple() {
		return nil, common.Errorf(common.InvalidPageError, "%s stores %d-byte rows, schema needs %d",
			id.String(), result.RowSize(), desc.BytesPerTuple())
	}
	if numSlots > SlotsPerPage(desc.BytesPerTuple()) || result.NumUsed() > numSlots {
		return nil, common.Errorf(common.InvalidPageError, "%s has a corrupt header", id.String())
	}

	result.allocationBitmap = AsBitmap(frame.Bytes[heapPageHeaderSize:], numSlots)
	bitmapSize := common.Align8((numSlots + 7) / 8)
	result.rowDataStart = heapPageHeaderSize + bitmapSize
	return result, nil
}

// ID returns the PageID the page was read from.
func (hp *HeapPage) ID() common.PageID {
	return hp.id
}

func (hp *HeapPage) NumUsed() int {
	return int(binary.LittleEndian.Uint16(hp.Bytes[heapPageOffsetNumUsed:]))
}

func (hp *HeapPage) setNumUsed(numUsed int) {
	binary.LittleEndian.PutUint16(hp.Bytes[heapPageOffsetNumUsed:], uint16(numUsed))
}

func (hp *HeapPage) NumSlots() int {
	return int(binary.LittleEndian.Uint16(hp.Bytes[heapPageOffsetNumSlots:]))
}

func (hp *HeapPage) RowSize() int {
	return int(binary.LittleEndian.Uint16(hp.Bytes[heapPageOffsetRowSize:]))
}

// IsAllocated checks the allocation bitmap to see if a slot holds a tuple.
func (hp *HeapPage) IsAllocated(slot int) bool {
	// We do not assert bounds here to allow safe iteration
	if slot < 0 || slot >= hp.NumSlots() {
		return false
	}
	return hp.allocationBitmap.LoadBit(slot)
}

// FindFreeSlot returns the first free slot, or -1 if the page is full.
func (hp *HeapPage) FindFreeSlot() int {
	numUsed := hp.NumUsed()
	if numUsed == hp.NumSlots() {
		return -1
	}
	return hp.allocationBitmap.FindFirstZero(0)
}

// InsertTuple writes t into the first free slot and returns that slot, or -1 if the page is full.
// Only pages that are being built (see HeapFileEncoder) may be modified; pages handed out by a
// PageCache are read-only.
func (hp *HeapPage) InsertTuple(t *Tuple) (int, error) {
	if hp.NumSlots() == 0 {
		return -1, common.Errorf(common.InvalidPageError, "%s is not initialized", hp.id.String())
	}
	if !t.Descriptor().Equals(hp.desc) {
		return -1, common.Errorf(common.TypeMismatchError, "tuple (%s) does not match page schema (%s)",
			t.Descriptor(), hp.desc)
	}
	slot := hp.FindFreeSlot()
	if slot < 0 {
		return -1, nil
	}
	t.WriteTo(hp.row(slot))
	hp.allocationBitmap.SetBit(slot, true)
	hp.setNumUsed(hp.NumUsed() + 1)
	return slot, nil
}

func (hp *HeapPage) row(slot int) []byte {
	rowSize := hp.RowSize()
	return hp.Bytes[hp.rowDataStart+slot*rowSize : hp.rowDataStart+(slot+1)*rowSize]
}

// Tuples decodes every allocated slot in ascending slot order. Each tuple carries its RecordID.
func (hp *HeapPage) Tuples() []Tuple {
	result := make([]Tuple, 0, hp.NumUsed())
	for slot := hp.allocationBitmap.NextSetBit(0); slot >= 0; slot = hp.allocationBitmap.NextSetBit(slot + 1) {
		rid := common.RecordID{PageID: hp.id, Slot: int32(slot)}
		result = append(result, FromRawTuple(hp.row(slot), hp.desc, rid))
	}
	return result
}
