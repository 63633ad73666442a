package planner

import "sync/atomic"

// RingBuffer is a fixed-capacity, single-producer/single-consumer queue
// of *Block. The planner (producer) advances head after a block is fully
// written; the executor (consumer) advances tail after a block
// completes. Capacity must be a power of two so index wraparound is a
// plain mask, and head/tail are read across goroutines only via
// sync/atomic, never a mutex — a lock here would be able to stall the
// stepper executor.
type RingBuffer struct {
	blocks []*Block
	mask   uint32
	head   atomic.Uint32 // next write index
	tail   atomic.Uint32 // next read index
}

// NewRingBuffer creates a ring buffer of the given power-of-two capacity.
// It panics if capacity is not a power of two, matching the contract
// config.Validate already enforces before this is ever constructed.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("planner: ring buffer capacity must be a power of two")
	}
	blocks := make([]*Block, capacity)
	for i := range blocks {
		blocks[i] = &Block{}
	}
	return &RingBuffer{blocks: blocks, mask: uint32(capacity - 1)}
}

// Capacity returns the number of slots in the ring.
func (r *RingBuffer) Capacity() int { return len(r.blocks) }

// TailIndex returns the raw tail counter, a free-running identifier for
// the block currently at the consumer end of the ring. Unlike Current,
// it stays meaningful even when the ring is empty (it then names the
// next block the producer will publish into).
func (r *RingBuffer) TailIndex() uint32 { return r.tail.Load() }

// Len returns the number of blocks currently queued (not yet discarded
// by the consumer). Safe to call from either side.
func (r *RingBuffer) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Empty reports whether the consumer has nothing left to execute.
func (r *RingBuffer) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Full reports whether the producer has no space to write a new block.
// Capacity is left at one less than the slot count so Empty and Full are
// distinguishable without a separate counter.
func (r *RingBuffer) Full() bool {
	return r.Len() >= len(r.blocks)-1
}

// ReserveNext returns the slot the producer should fill next, without
// publishing it. The caller must call Publish after the block's fields
// are fully written.
func (r *RingBuffer) ReserveNext() *Block {
	idx := r.head.Load() & r.mask
	return r.blocks[idx]
}

// Publish makes the most recently reserved block visible to the
// consumer by advancing head. Must be called only after every field of
// the reserved block has been written.
func (r *RingBuffer) Publish() {
	r.head.Add(1)
}

// Peek returns the block at the given offset from the tail (0 = the
// block the executor is currently running or about to run) without
// consuming it, or nil if the offset is beyond what's queued.
func (r *RingBuffer) Peek(offsetFromTail int) *Block {
	if offsetFromTail < 0 || offsetFromTail >= r.Len() {
		return nil
	}
	idx := (r.tail.Load() + uint32(offsetFromTail)) & r.mask
	return r.blocks[idx]
}

// Newest returns the most recently published block (the one the planner
// just appended), or nil if the ring is empty.
func (r *RingBuffer) Newest() *Block {
	n := r.Len()
	if n == 0 {
		return nil
	}
	return r.Peek(n - 1)
}

// Current returns the block the consumer should be executing (the block
// at tail), or nil if nothing is queued.
func (r *RingBuffer) Current() *Block {
	if r.Empty() {
		return nil
	}
	idx := r.tail.Load() & r.mask
	return r.blocks[idx]
}

// DiscardCurrent advances tail, releasing the block the consumer just
// finished executing back to the producer.
func (r *RingBuffer) DiscardCurrent() {
	r.tail.Add(1)
}

// DiscardAll advances tail to match head, used by quick_stop to flush
// the entire queue without completing any in-flight block's remaining
// steps.
func (r *RingBuffer) DiscardAll() {
	r.tail.Store(r.head.Load())
}
