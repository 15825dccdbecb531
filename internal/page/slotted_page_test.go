package page

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

func TestAllocateAndReadSlot(t *testing.T) {
	p := NewSlottedPage(dbtypes.NewPageID(0, 1), 4)

	idx, err := p.AllocateSlot(dbtypes.RecordID(42))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	got, err := p.GetRecordID(idx)
	require.NoError(t, err)
	require.Equal(t, dbtypes.RecordID(42), got)
}

func TestAllocateSlotReusesFirstFree(t *testing.T) {
	p := NewSlottedPage(dbtypes.NewPageID(0, 1), 2)
	_, err := p.AllocateSlot(1)
	require.NoError(t, err)
	_, err = p.AllocateSlot(2)
	require.NoError(t, err)

	_, err = p.AllocateSlot(3)
	require.ErrorIs(t, err, ErrNoFreeSlot)

	require.NoError(t, p.DeallocateSlot(0))
	idx, err := p.AllocateSlot(3)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
}

func TestGetRecordIDOnEmptySlot(t *testing.T) {
	p := NewSlottedPage(dbtypes.NewPageID(0, 1), 1)
	_, err := p.GetRecordID(0)
	var empty *dberr.EmptySlotError
	require.ErrorAs(t, err, &empty)
}

func TestInvalidSlotIndex(t *testing.T) {
	p := NewSlottedPage(dbtypes.NewPageID(0, 1), 1)

	_, err := p.GetRecordID(5)
	var invalid *dberr.InvalidSlotIndexError
	require.ErrorAs(t, err, &invalid)

	require.Error(t, p.DeallocateSlot(-1))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := NewSlottedPage(dbtypes.NewPageID(3, 7), 5)
	_, err := p.AllocateSlot(100)
	require.NoError(t, err)
	_, err = p.AllocateSlot(200)
	require.NoError(t, err)
	require.NoError(t, p.DeallocateSlot(0))

	data := p.Serialize()
	got, err := Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, p.PageID(), got.PageID())
	require.Equal(t, p.NumSlots(), got.NumSlots())

	_, err = got.GetRecordID(0)
	require.True(t, errors.As(err, new(*dberr.EmptySlotError)))

	rid, err := got.GetRecordID(1)
	require.NoError(t, err)
	require.Equal(t, dbtypes.RecordID(200), rid)
}

func TestDeserializeTruncatedBuffer(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	require.ErrorIs(t, err, dberr.ErrDeserialization)
}
