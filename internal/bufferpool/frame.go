package bufferpool

import (
	"sync"
	"sync/atomic"

	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

// frame is one slot of the buffer pool's fixed-size frame array. Its
// own mutex guards data/dirty mutation; pinCount is managed with
// atomics so Pin/Unpin never has to take the frame lock just to bump a
// counter, matching the source tree's BufferFrame pin_count semantics.
type frame struct {
	mu       sync.Mutex
	pageID   dbtypes.PageID
	data     []byte
	dirty    bool
	pinCount int32
	occupied bool
}

func (f *frame) pin() {
	atomic.AddInt32(&f.pinCount, 1)
}

// unpin decrements the pin count, returning dberr.ErrUnpinUnderflow if
// it was already zero rather than panicking -- callers are expected to
// recover from a caller bug here, not crash the process.
func (f *frame) unpin() error {
	for {
		cur := atomic.LoadInt32(&f.pinCount)
		if cur == 0 {
			return dberr.ErrUnpinUnderflow
		}
		if atomic.CompareAndSwapInt32(&f.pinCount, cur, cur-1) {
			return nil
		}
	}
}

func (f *frame) pins() int32 { return atomic.LoadInt32(&f.pinCount) }

// FrameHandle is the caller-facing reference returned by FixPage. It
// is only valid until the matching UnfixPage call.
type FrameHandle struct {
	pool  *BufferPool
	index int
}

// PageID returns the id of the page backing this frame.
func (h *FrameHandle) PageID() dbtypes.PageID {
	return h.pool.frames[h.index].pageID
}

// Data returns the frame's page-sized byte buffer. Callers holding an
// exclusive (write) fix may mutate it in place.
func (h *FrameHandle) Data() []byte {
	return h.pool.frames[h.index].data
}
