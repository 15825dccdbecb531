package walmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ariesdb/ariesdb/internal/bufferpool"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
	"github.com/ariesdb/ariesdb/internal/storagefile"
)

const testPageSize = 16

// fakeSegment is a minimal PageSource backed by an in-memory map of
// pages, enough to exercise redo/undo without pulling in internal/heap.
type fakeSegment struct {
	pages map[dbtypes.PageID][]byte
}

func newFakeSegment() *fakeSegment {
	return &fakeSegment{pages: make(map[dbtypes.PageID][]byte)}
}

func (f *fakeSegment) put(pageID dbtypes.PageID, data []byte) {
	cp := make([]byte, testPageSize)
	copy(cp, data)
	f.pages[pageID] = cp
}

func (f *fakeSegment) ReadPageBytes(pageID dbtypes.PageID) ([]byte, error) {
	data, ok := f.pages[pageID]
	if !ok {
		data = make([]byte, testPageSize)
	}
	cp := make([]byte, testPageSize)
	copy(cp, data)
	return cp, nil
}

func (f *fakeSegment) WritePage(pageID dbtypes.PageID, data []byte) error {
	f.put(pageID, data)
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return Open(storagefile.NewMemoryFile(storagefile.ModeWrite))
}

func TestLogTxnBeginReturnsPreWriteOffset(t *testing.T) {
	m := newTestManager(t)
	lsn1, err := m.LogTxnBegin(dbtypes.TransactionID(1))
	require.NoError(t, err)
	require.Equal(t, dbtypes.LSN(0), lsn1)

	lsn2, err := m.LogTxnBegin(dbtypes.TransactionID(2))
	require.NoError(t, err)
	require.Equal(t, dbtypes.LSN(fixedHeaderSize), lsn2)
}

func TestLogUpdateRejectsMismatchedImages(t *testing.T) {
	m := newTestManager(t)
	err := m.LogUpdate(dbtypes.TransactionID(1), dbtypes.NewPageID(0, 1), 0, []byte{1, 2}, []byte{1})
	require.ErrorIs(t, err, errMismatchedImageLengths)
}

func TestTotalLogRecordsCountsByType(t *testing.T) {
	m := newTestManager(t)
	txn := dbtypes.TransactionID(1)
	_, err := m.LogTxnBegin(txn)
	require.NoError(t, err)
	require.NoError(t, m.LogUpdate(txn, dbtypes.NewPageID(0, 1), 0, []byte{0}, []byte{9}))
	require.NoError(t, m.LogCommit(txn))

	require.Equal(t, uint64(3), m.TotalLogRecords())
	require.Equal(t, uint64(1), m.TotalLogRecordsOfType(RecordUpdate))
}

func TestRecoverRedoesCommittedUpdates(t *testing.T) {
	m := newTestManager(t)
	seg := newFakeSegment()
	pageID := dbtypes.NewPageID(0, 1)
	seg.put(pageID, make([]byte, testPageSize))

	txn := dbtypes.TransactionID(1)
	_, err := m.LogTxnBegin(txn)
	require.NoError(t, err)
	require.NoError(t, m.LogUpdate(txn, pageID, 0, []byte{0, 0}, []byte{7, 7}))
	require.NoError(t, m.LogCommit(txn))

	// Simulate a crash: the in-memory page never actually got the
	// update applied before the process died.
	pool := bufferpool.NewBufferPool(testPageSize, 4, seg)
	require.NoError(t, m.Recover(pool, seg))

	got, err := seg.ReadPageBytes(pageID)
	require.NoError(t, err)
	require.Equal(t, byte(7), got[0])
	require.Equal(t, byte(7), got[1])
}

func TestRecoverUndoesLoserTransactions(t *testing.T) {
	m := newTestManager(t)
	seg := newFakeSegment()
	pageID := dbtypes.NewPageID(0, 1)
	seg.put(pageID, []byte{5, 5})

	txn := dbtypes.TransactionID(1)
	_, err := m.LogTxnBegin(txn)
	require.NoError(t, err)
	require.NoError(t, m.LogUpdate(txn, pageID, 0, []byte{5, 5}, []byte{9, 9}))
	// No commit/abort record: txn is a loser at "crash" time.

	pool := bufferpool.NewBufferPool(testPageSize, 4, seg)
	require.NoError(t, m.Recover(pool, seg))

	got, err := seg.ReadPageBytes(pageID)
	require.NoError(t, err)
	require.Equal(t, byte(5), got[0])
	require.Equal(t, byte(5), got[1])
}

func TestLogAbortRollsBackChanges(t *testing.T) {
	m := newTestManager(t)
	seg := newFakeSegment()
	pageID := dbtypes.NewPageID(0, 1)
	seg.put(pageID, []byte{1, 1})

	pool := bufferpool.NewBufferPool(testPageSize, 4, seg)
	txn := dbtypes.TransactionID(1)
	_, err := m.LogTxnBegin(txn)
	require.NoError(t, err)
	require.NoError(t, m.LogUpdate(txn, pageID, 0, []byte{1, 1}, []byte{2, 2}))
	// The caller applies the after-image to the live page itself; the
	// log only journals that it happened.
	seg.put(pageID, []byte{2, 2})

	require.NoError(t, m.LogAbort(txn, pool, seg))

	got, err := seg.ReadPageBytes(pageID)
	require.NoError(t, err)
	require.Equal(t, byte(1), got[0])
}
