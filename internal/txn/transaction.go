// Package txn implements the transaction manager: assigning
// transaction ids, tracking which pages each transaction has touched,
// and enforcing the single-writer-per-page locking discipline used
// throughout the engine. There is no deadlock detection and no
// wait-queue -- a conflicting write fails immediately rather than
// blocking, and locks are held until commit or abort, never released
// early.
package txn

import (
	"sync"

	"github.com/ariesdb/ariesdb/internal/bufferpool"
	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
	"github.com/ariesdb/ariesdb/internal/walmgr"
)

// Transaction tracks one in-flight transaction's footprint: the pages
// it has modified (and must flush on commit, or discard on abort) and
// the pages it currently holds the write lock for.
type Transaction struct {
	ID            dbtypes.TransactionID
	modifiedPages map[dbtypes.PageID]struct{}
	lockedPages   map[dbtypes.PageID]struct{}
}

func newTransaction(id dbtypes.TransactionID) *Transaction {
	return &Transaction{
		ID:            id,
		modifiedPages: make(map[dbtypes.PageID]struct{}),
		lockedPages:   make(map[dbtypes.PageID]struct{}),
	}
}

func (t *Transaction) addModifiedPage(pageID dbtypes.PageID) { t.modifiedPages[pageID] = struct{}{} }
func (t *Transaction) addLockedPage(pageID dbtypes.PageID)   { t.lockedPages[pageID] = struct{}{} }

// Manager is the transaction manager. Its lock is always acquired
// before the log manager's or buffer pool's own locks, per the engine's
// fixed lock hierarchy (transaction manager -> log manager -> buffer
// pool -> individual frame), to avoid lock-order inversions across
// components.
type Manager struct {
	mu         sync.Mutex
	nextTxnID  uint64
	active     map[dbtypes.TransactionID]*Transaction
	pageLocks  map[dbtypes.PageID]dbtypes.TransactionID
	log        *walmgr.Manager
	pool       *bufferpool.BufferPool
	pageSource walmgr.PageSource
}

// NewManager creates a transaction manager wired to log for durability
// and pool/pageSource for applying commit-time flushes and abort-time
// rollbacks.
func NewManager(log *walmgr.Manager, pool *bufferpool.BufferPool, pageSource walmgr.PageSource) *Manager {
	return &Manager{
		nextTxnID:  1,
		active:     make(map[dbtypes.TransactionID]*Transaction),
		pageLocks:  make(map[dbtypes.PageID]dbtypes.TransactionID),
		log:        log,
		pool:       pool,
		pageSource: pageSource,
	}
}

// StartTxn begins a new transaction and journals a Begin record for
// it before returning its id.
func (m *Manager) StartTxn() (dbtypes.TransactionID, error) {
	m.mu.Lock()
	id := dbtypes.TransactionID(m.nextTxnID)
	m.nextTxnID++
	m.active[id] = newTransaction(id)
	m.mu.Unlock()

	if _, err := m.log.LogTxnBegin(id); err != nil {
		return 0, err
	}
	return id, nil
}

// AddModifiedPage records that txn has touched pageID, acquiring the
// page's write lock on txn's behalf. Fails with a PageLockedError if a
// different transaction already holds it -- this is the engine's
// entire concurrency-control story: no waiting, no deadlock detection,
// just fail fast.
func (m *Manager) AddModifiedPage(id dbtypes.TransactionID, pageID dbtypes.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if holder, locked := m.pageLocks[pageID]; locked && holder != id {
		return dberr.NewPageLocked(pageID, holder)
	}

	t, ok := m.active[id]
	if !ok {
		return dberr.NewTransactionNotFound(id)
	}
	m.pageLocks[pageID] = id
	t.addLockedPage(pageID)
	t.addModifiedPage(pageID)
	return nil
}

// CommitTxn flushes every page txn modified, releases its locks, and
// only then journals the Commit record -- the WAL-before-commit
// ordering guarantee that makes crash recovery possible: by the time a
// Commit record exists, every byte it promises is already durable.
func (m *Manager) CommitTxn(id dbtypes.TransactionID) error {
	m.mu.Lock()
	t, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return dberr.NewTransactionNotFound(id)
	}
	delete(m.active, id)
	for pageID := range t.lockedPages {
		delete(m.pageLocks, pageID)
	}
	m.mu.Unlock()

	for pageID := range t.modifiedPages {
		if err := m.pool.FlushPage(pageID); err != nil {
			return err
		}
	}
	return m.log.LogCommit(id)
}

// AbortTxn discards every page txn modified (so its in-memory changes
// never reach disk) and releases its locks; LogAbort itself drives the
// log-based rollback of any changes that did make it to a durable page
// before the abort.
func (m *Manager) AbortTxn(id dbtypes.TransactionID) error {
	m.mu.Lock()
	t, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return dberr.NewTransactionNotFound(id)
	}
	delete(m.active, id)
	for pageID := range t.lockedPages {
		delete(m.pageLocks, pageID)
	}
	m.mu.Unlock()

	for pageID := range t.modifiedPages {
		if err := m.pool.DiscardPage(pageID); err != nil {
			return err
		}
	}
	return m.log.LogAbort(id, m.pool, m.pageSource)
}

// IsActive reports whether id currently refers to an in-flight
// transaction.
func (m *Manager) IsActive(id dbtypes.TransactionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}
