// Package bufferpool implements the fixed-capacity buffer pool that
// sits in front of the write-ahead log and recovery paths: fix_page
// pins a page's frame in memory (loading and, if necessary, evicting
// to make room), unfix_page releases it, and flush_page/flush_all_pages
// persist dirty frames.
//
// The source tree's flush_page is a deliberate no-op ("for now we're
// just pretending it worked") -- §9's first open question. We resolve
// it by making write-through an injected capability: a BufferPool
// constructed with a nil PageWriter behaves exactly like the source
// (flush just clears the dirty bit), while one constructed with a real
// writer persists the frame's bytes before clearing it. Recovery and
// the log manager, which care about durability, always supply one.
package bufferpool

import (
	"sync"

	"github.com/ariesdb/ariesdb/internal/dberr"
	"github.com/ariesdb/ariesdb/internal/dbtypes"
)

// PageWriter is the minimal write-through capability a BufferPool
// needs; internal/heap.HeapSegment and internal/storagefile.File both
// satisfy shapes that can be adapted to it.
type PageWriter interface {
	WritePage(pageID dbtypes.PageID, data []byte) error
}

// BufferPool is a fixed-size array of frames addressed by PageID,
// with an evictable-frame replacement policy deciding which frame to
// reuse once the array is full.
type BufferPool struct {
	mu       sync.Mutex
	pageSize int
	frames   []*frame
	pageIdx  map[dbtypes.PageID]int
	free     []int
	repl     Replacer
	writer   PageWriter
}

// NewBufferPool creates a pool with room for capacity frames of
// pageSize bytes each. writer may be nil, in which case flushes are a
// no-op beyond clearing the dirty bit.
func NewBufferPool(pageSize, capacity int, writer PageWriter) *BufferPool {
	frames := make([]*frame, capacity)
	free := make([]int, capacity)
	for i := range frames {
		frames[i] = &frame{}
		free[i] = capacity - 1 - i // pop from the back == ascending order
	}
	return &BufferPool{
		pageSize: pageSize,
		frames:   frames,
		pageIdx:  make(map[dbtypes.PageID]int),
		free:     free,
		repl:     newClockReplacer(capacity),
		writer:   writer,
	}
}

// FixPage pins pageID's frame, loading it via initial (the bytes to
// install if the page isn't resident, typically read from disk by the
// caller) when it's not already cached. If exclusive is true the frame
// is marked dirty immediately, matching the source's "fix_page(id,
// is_exclusive)" contract where callers that intend to mutate a page
// pre-declare it dirty at fix time.
func (bp *BufferPool) FixPage(pageID dbtypes.PageID, exclusive bool, initial func() ([]byte, error)) (*FrameHandle, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageIdx[pageID]; ok {
		f := bp.frames[idx]
		f.pin()
		if exclusive {
			f.mu.Lock()
			f.dirty = true
			f.mu.Unlock()
		}
		bp.repl.RecordAccess(idx)
		bp.repl.SetEvictable(idx, false)
		return &FrameHandle{pool: bp, index: idx}, nil
	}

	idx, err := bp.reserveFrameLocked()
	if err != nil {
		return nil, err
	}

	data, err := initial()
	if err != nil {
		bp.free = append(bp.free, idx)
		return nil, err
	}
	if len(data) != bp.pageSize {
		padded := make([]byte, bp.pageSize)
		copy(padded, data)
		data = padded
	}

	f := bp.frames[idx]
	f.pageID = pageID
	f.data = data
	f.dirty = exclusive
	f.pinCount = 1
	f.occupied = true
	bp.pageIdx[pageID] = idx
	bp.repl.RecordAccess(idx)
	bp.repl.SetEvictable(idx, false)

	return &FrameHandle{pool: bp, index: idx}, nil
}

// reserveFrameLocked returns an index ready to host a new page, either
// from the free list or by evicting a victim. Caller holds bp.mu.
func (bp *BufferPool) reserveFrameLocked() (int, error) {
	if n := len(bp.free); n > 0 {
		idx := bp.free[n-1]
		bp.free = bp.free[:n-1]
		return idx, nil
	}

	victim, ok := bp.repl.Evict()
	if !ok {
		return 0, dberr.ErrBufferFull
	}
	f := bp.frames[victim]
	if f.dirty {
		if err := bp.flushFrameLocked(f); err != nil {
			return 0, err
		}
	}
	delete(bp.pageIdx, f.pageID)
	*f = frame{}
	return victim, nil
}

// UnfixPage releases a pin acquired by FixPage. isDirty, if true, marks
// the frame dirty regardless of how it was fixed.
func (bp *BufferPool) UnfixPage(h *FrameHandle, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	f := bp.frames[h.index]
	f.mu.Lock()
	if isDirty {
		f.dirty = true
	}
	f.mu.Unlock()

	if err := f.unpin(); err != nil {
		return err
	}
	if f.pins() == 0 {
		bp.repl.SetEvictable(h.index, true)
	}
	return nil
}

func (bp *BufferPool) flushFrameLocked(f *frame) error {
	if !f.dirty {
		return nil
	}
	if bp.writer != nil {
		if err := bp.writer.WritePage(f.pageID, f.data); err != nil {
			return err
		}
	}
	f.dirty = false
	return nil
}

// FlushPage persists pageID's frame (if resident and dirty) and clears
// its dirty bit. A miss is not an error: a page that was never loaded
// has nothing to flush.
func (bp *BufferPool) FlushPage(pageID dbtypes.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	idx, ok := bp.pageIdx[pageID]
	if !ok {
		return nil
	}
	return bp.flushFrameLocked(bp.frames[idx])
}

// FlushAllPages flushes every dirty resident frame.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, f := range bp.frames {
		if f.occupied {
			if err := bp.flushFrameLocked(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// DiscardPage evicts pageID without flushing it, used by transaction
// abort to throw away a page's in-memory changes. Fails if the page is
// still pinned.
func (bp *BufferPool) DiscardPage(pageID dbtypes.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	idx, ok := bp.pageIdx[pageID]
	if !ok {
		return nil
	}
	f := bp.frames[idx]
	if f.pins() > 0 {
		return dberr.NewOther("cannot discard page %s: still pinned", pageID)
	}
	delete(bp.pageIdx, pageID)
	bp.repl.Remove(idx)
	*f = frame{}
	bp.free = append(bp.free, idx)
	return nil
}

// DiscardAllPages discards every unpinned resident page, silently
// skipping any still pinned.
func (bp *BufferPool) DiscardAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for idx, f := range bp.frames {
		if !f.occupied || f.pins() > 0 {
			continue
		}
		pageID := f.pageID
		delete(bp.pageIdx, pageID)
		bp.repl.Remove(idx)
		*f = frame{}
		bp.free = append(bp.free, idx)
	}
	return nil
}

// Capacity returns the pool's fixed frame count.
func (bp *BufferPool) Capacity() int { return len(bp.frames) }
