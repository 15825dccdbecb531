package walmgr

import (
	"github.com/ariesdb/ariesdb/internal/bx"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

// RecordType tags a log record. Deliberately no checksum and no magic
// number prefix the stream: the wire format is exactly the bytes
// described below, nothing more.
type RecordType uint8

const (
	RecordBegin RecordType = iota
	RecordCommit
	RecordAbort
	RecordUpdate
	RecordCheckpoint
)

func (t RecordType) String() string {
	switch t {
	case RecordBegin:
		return "Begin"
	case RecordCommit:
		return "Commit"
	case RecordAbort:
		return "Abort"
	case RecordUpdate:
		return "Update"
	case RecordCheckpoint:
		return "Checkpoint"
	default:
		return "Unknown"
	}
}

// record is the in-memory decoding of one on-disk log entry.
//
// On-disk framing (little-endian throughout):
//
//	type:u8  txn_id:u64                                    -- Begin/Commit/Abort/Checkpoint, 9 bytes
//	type:u8  txn_id:u64  page_id:u64  length:u64  offset:u64  before[length]  after[length]  -- Update
type record struct {
	Type     RecordType
	TxnID    dbtypes.TransactionID
	PageID   dbtypes.PageID
	Length   uint64
	Offset   uint64
	Before   []byte
	After    []byte
	LogOff   int64 // byte offset this record starts at
	ByteSize int64 // total bytes this record occupies on disk
}

const fixedHeaderSize = 1 + 8 // type + txn_id

func encodeFixed(t RecordType, txn dbtypes.TransactionID) []byte {
	buf := make([]byte, fixedHeaderSize)
	buf[0] = byte(t)
	bx.PutU64At(buf, 1, txn.Uint64())
	return buf
}

func encodeUpdate(txn dbtypes.TransactionID, pageID dbtypes.PageID, length, offset uint64, before, after []byte) []byte {
	buf := make([]byte, fixedHeaderSize+8+8+8+len(before)+len(after))
	buf[0] = byte(RecordUpdate)
	bx.PutU64At(buf, 1, txn.Uint64())
	bx.PutU64At(buf, 9, pageID.Uint64())
	bx.PutU64At(buf, 17, length)
	bx.PutU64At(buf, 25, offset)
	copy(buf[33:33+len(before)], before)
	copy(buf[33+len(before):], after)
	return buf
}
