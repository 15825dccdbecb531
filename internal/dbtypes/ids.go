// Package dbtypes defines the opaque identifier types shared by every
// storage-engine component: pages, transactions, records and log
// sequence numbers.
package dbtypes

import "fmt"

// PageID identifies a page across the whole database. The high 16 bits
// hold the owning segment, the low 48 bits the page's offset within
// that segment.
type PageID uint64

const segmentShift = 48
const localMask = (uint64(1) << segmentShift) - 1

// NewPageID packs a segment id and a segment-local page number into a
// single PageID.
func NewPageID(segmentID uint16, localID uint64) PageID {
	return PageID(uint64(segmentID)<<segmentShift | (localID & localMask))
}

// Segment returns the segment component of the page id.
func (p PageID) Segment() uint16 {
	return uint16(uint64(p) >> segmentShift)
}

// Local returns the segment-local page number component of the page id.
func (p PageID) Local() uint64 {
	return uint64(p) & localMask
}

func (p PageID) Uint64() uint64 { return uint64(p) }

func (p PageID) String() string {
	return fmt.Sprintf("page(seg=%d,local=%d)", p.Segment(), p.Local())
}

// TransactionID identifies a single transaction for its entire lifetime.
type TransactionID uint64

func (t TransactionID) Uint64() uint64 { return uint64(t) }

func (t TransactionID) String() string { return fmt.Sprintf("txn(%d)", uint64(t)) }

// RecordID identifies a record stored behind a slotted-page slot. It is
// opaque to the storage engine: callers mint and interpret its value.
type RecordID uint64

func (r RecordID) Uint64() uint64 { return uint64(r) }

// LSN is a log sequence number: the byte offset of a record within the
// write-ahead log file.
type LSN uint64

func (l LSN) Uint64() uint64 { return uint64(l) }
