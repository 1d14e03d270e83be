package store

import "github.com/google/uuid"

// IDAllocator hands out EntityIds that are never reused, even across
// aborted transactions (SPEC_FULL.md §D.2 / spec.md §9 Open Question 2).
// This replaces nornicdb's timestamp-prefixed string ids
// ("tx-"+time.Now().Format(...)) with github.com/google/uuid, carried over
// from the evalgo-org-eve example repo's go.mod, since timestamp strings
// collide under concurrent sub-millisecond allocation and the kernel's
// single-writer model still allocates ids faster than millisecond
// resolution during bulk SPAWN.
type IDAllocator struct{}

// NewIDAllocator constructs an allocator. It carries no state: uniqueness
// comes from uuid.NewString, not from a counter, so aborted allocations
// need no bookkeeping to "return" — they are simply never looked up again.
func NewIDAllocator() *IDAllocator { return &IDAllocator{} }

// Next returns a fresh EntityId.
func (a *IDAllocator) Next() EntityId {
	return EntityId(uuid.NewString())
}
