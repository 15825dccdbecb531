// Package dberr collects the typed error kinds shared by the storage
// engine's components, so callers can branch on kind with
// errors.As/errors.Is. Two package-local sentinels are not kinds from
// this package: internal/page's ErrNoFreeSlot (which the heap segment
// translates to PageFullError) and internal/walmgr's error for
// before/after images of different lengths.
package dberr

import (
	"errors"
	"fmt"

	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

// Sentinel kinds that carry no payload.
var (
	ErrNotImplemented  = errors.New("dberr: not implemented")
	ErrBufferFull      = errors.New("dberr: buffer pool is full")
	ErrDeserialization = errors.New("dberr: deserialization error")
	ErrUnpinUnderflow  = errors.New("dberr: cannot unpin a page with pin count 0")
)

// IOError wraps an underlying I/O failure (short read, short write,
// failed seek, ...).
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("dberr: io error: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

func NewIOError(err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Err: err}
}

// InvalidSlotIndexError reports an out-of-range slot index.
type InvalidSlotIndexError struct {
	Index int
}

func (e *InvalidSlotIndexError) Error() string {
	return fmt.Sprintf("dberr: invalid slot index %d", e.Index)
}

func NewInvalidSlotIndex(idx int) error { return &InvalidSlotIndexError{Index: idx} }

// EmptySlotError reports a read of a slot that holds no record.
type EmptySlotError struct {
	Index int
}

func (e *EmptySlotError) Error() string {
	return fmt.Sprintf("dberr: slot %d is empty", e.Index)
}

func NewEmptySlot(idx int) error { return &EmptySlotError{Index: idx} }

// PageFullError reports that a page has no free slot left.
type PageFullError struct {
	Page dbtypes.PageID
}

func (e *PageFullError) Error() string {
	return fmt.Sprintf("dberr: page %s is full", e.Page)
}

func NewPageFull(page dbtypes.PageID) error { return &PageFullError{Page: page} }

// PageNotFoundError reports a page that does not exist on disk.
type PageNotFoundError struct {
	Page dbtypes.PageID
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("dberr: page %s not found", e.Page)
}

func NewPageNotFound(page dbtypes.PageID) error { return &PageNotFoundError{Page: page} }

// PageSizeExceededError reports a serialized page larger than the
// configured page size.
type PageSizeExceededError struct {
	Got, Max int
}

func (e *PageSizeExceededError) Error() string {
	return fmt.Sprintf("dberr: serialized page size %d exceeds max %d", e.Got, e.Max)
}

func NewPageSizeExceeded(got, max int) error { return &PageSizeExceededError{Got: got, Max: max} }

// OtherError is a catch-all for conditions that don't warrant their own
// kind, mirroring the source implementation's Other(String) variant.
type OtherError struct {
	Msg string
}

func (e *OtherError) Error() string { return "dberr: " + e.Msg }

func NewOther(format string, args ...any) error {
	return &OtherError{Msg: fmt.Sprintf(format, args...)}
}

// PageLockedError reports that a page is already owned by a different
// in-flight transaction (the §9 design note's suggested promotion of
// the source's "page is locked by transaction N" Other() message).
type PageLockedError struct {
	Page   dbtypes.PageID
	Holder dbtypes.TransactionID
}

func (e *PageLockedError) Error() string {
	return fmt.Sprintf("dberr: page %s is locked by %s", e.Page, e.Holder)
}

func NewPageLocked(page dbtypes.PageID, holder dbtypes.TransactionID) error {
	return &PageLockedError{Page: page, Holder: holder}
}

// TransactionNotFoundError reports an operation against an unknown or
// already-terminated transaction id.
type TransactionNotFoundError struct {
	ID dbtypes.TransactionID
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("dberr: transaction %s not found", e.ID)
}

func NewTransactionNotFound(id dbtypes.TransactionID) error {
	return &TransactionNotFoundError{ID: id}
}
