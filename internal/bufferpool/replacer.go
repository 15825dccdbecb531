package bufferpool

import "github.com/ariesdb/ariesdb/pkg/clockx"

// Replacer selects an eviction victim among frames marked evictable.
// The buffer pool's correctness (never evicting a pinned frame,
// always flushing dirty data first) does not depend on which
// replacement policy is plugged in here -- CLOCK, true LRU and
// first-unpinned-found are all valid implementations.
type Replacer interface {
	RecordAccess(frameIndex int)
	SetEvictable(frameIndex int, evictable bool)
	Evict() (frameIndex int, ok bool)
	Remove(frameIndex int)
	Size() int
}

// clockReplacer adapts pkg/clockx.Clock, a generic second-chance
// replacement structure, to the Replacer interface.
type clockReplacer struct {
	clock *clockx.Clock
}

func newClockReplacer(capacity int) Replacer {
	return &clockReplacer{clock: clockx.New(capacity)}
}

func (c *clockReplacer) RecordAccess(frameIndex int)          { c.clock.Touch(frameIndex) }
func (c *clockReplacer) SetEvictable(frameIndex int, ok bool) { c.clock.SetEvictable(frameIndex, ok) }
func (c *clockReplacer) Evict() (int, bool)                   { return c.clock.Evict() }
func (c *clockReplacer) Remove(frameIndex int)                { c.clock.Remove(frameIndex) }
func (c *clockReplacer) Size() int                            { return c.clock.Size() }
