// Package page implements the slotted page: a fixed-length array of
// slots, each either empty or holding a single dbtypes.RecordID. Unlike
// a conventional slotted page it stores no tuple bytes itself -- the
// heap segment above it is the one that owns record contents; a slot
// here is purely an indirection from a stable slot index to the
// RecordID the upper layer minted for it.
package page

import (
	"errors"

	"github.com/ariesdb/ariesdb/internal/bx"
	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

// ErrNoFreeSlot is returned by AllocateSlot when every slot is occupied.
// Callers that want the page-level PageFullError (e.g. the heap
// segment) translate this themselves, since a bare SlottedPage doesn't
// know its own PageID's surrounding context.
var ErrNoFreeSlot = errors.New("page: no free slot")

// SlottedPage is a fixed-size array of optional RecordIDs, addressed by
// stable slot index.
type SlottedPage struct {
	pageID dbtypes.PageID
	slots  []slotEntry
}

type slotEntry struct {
	occupied bool
	rid      dbtypes.RecordID
}

// NewSlottedPage allocates an empty page with numSlots slots, all free.
func NewSlottedPage(pageID dbtypes.PageID, numSlots int) *SlottedPage {
	return &SlottedPage{
		pageID: pageID,
		slots:  make([]slotEntry, numSlots),
	}
}

func (p *SlottedPage) PageID() dbtypes.PageID { return p.pageID }

func (p *SlottedPage) NumSlots() int { return len(p.slots) }

// AllocateSlot finds the first free slot, stores rid in it and returns
// its index. Returns ErrNoFreeSlot if the page has no room left.
func (p *SlottedPage) AllocateSlot(rid dbtypes.RecordID) (int, error) {
	for i := range p.slots {
		if !p.slots[i].occupied {
			p.slots[i] = slotEntry{occupied: true, rid: rid}
			return i, nil
		}
	}
	return 0, ErrNoFreeSlot
}

// DeallocateSlot frees the slot at index, regardless of whether it was
// occupied.
func (p *SlottedPage) DeallocateSlot(index int) error {
	if index < 0 || index >= len(p.slots) {
		return dberr.NewInvalidSlotIndex(index)
	}
	p.slots[index] = slotEntry{}
	return nil
}

// GetRecordID returns the RecordID stored at index.
func (p *SlottedPage) GetRecordID(index int) (dbtypes.RecordID, error) {
	if index < 0 || index >= len(p.slots) {
		return 0, dberr.NewInvalidSlotIndex(index)
	}
	slot := p.slots[index]
	if !slot.occupied {
		return 0, dberr.NewEmptySlot(index)
	}
	return slot.rid, nil
}

// Serialize produces a deterministic, fixed-format byte encoding:
//
//	offset 0:  pageID   u64 LE
//	offset 8:  numSlots u32 LE
//	offset 12: numSlots * (1-byte occupied flag + 8-byte RecordID LE)
func (p *SlottedPage) Serialize() []byte {
	out := make([]byte, 12+len(p.slots)*9)
	bx.PutU64At(out, 0, p.pageID.Uint64())
	bx.PutU32At(out, 8, uint32(len(p.slots)))
	for i, s := range p.slots {
		off := 12 + i*9
		if s.occupied {
			out[off] = 1
		}
		bx.PutU64At(out, off+1, s.rid.Uint64())
	}
	return out
}

// Deserialize parses the format written by Serialize.
func Deserialize(data []byte) (*SlottedPage, error) {
	if len(data) < 12 {
		return nil, dberr.ErrDeserialization
	}
	pageID := dbtypes.PageID(bx.U64At(data, 0))
	numSlots := int(bx.U32At(data, 8))
	want := 12 + numSlots*9
	if len(data) < want {
		return nil, dberr.ErrDeserialization
	}
	slots := make([]slotEntry, numSlots)
	for i := 0; i < numSlots; i++ {
		off := 12 + i*9
		occupied := data[off] == 1
		rid := dbtypes.RecordID(bx.U64At(data, off+1))
		slots[i] = slotEntry{occupied: occupied, rid: rid}
	}
	return &SlottedPage{pageID: pageID, slots: slots}, nil
}
