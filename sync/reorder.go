// reorder.go reassembles the transaction-fetch stage's out-of-order
// arrivals (fetches run concurrently up to max_get_txns_requests, so
// completion order does not match request order) into the strictly
// ascending order the commit stage requires.
//
// Grounded on gopkg.in/karalabe/cookiejar.v2/collections/prque, the same
// float-priority heap klaytn's own fetcher dependency tree carries for its
// block-announcement queue; height is pushed as a negated priority so Pop
// always yields the lowest pending height first.
package sync

import (
	"gopkg.in/karalabe/cookiejar.v2/collections/prque"
)

// reorderBuffer holds SealedBlocks that arrived ahead of the height the
// commit stage is currently waiting for.
type reorderBuffer struct {
	pending *prque.Prque
	expect  uint64
}

func newReorderBuffer(expect uint64) *reorderBuffer {
	return &reorderBuffer{pending: prque.New(), expect: expect}
}

// Push stages a block; Drain then releases whatever blocks have become
// releasable, in ascending order.
func (b *reorderBuffer) Push(block SealedBlock) {
	b.pending.Push(block, -float32(block.Header.Height))
}

// Drain pops every buffered block whose height is the next expected one,
// in ascending order, advancing expect past each released block.
func (b *reorderBuffer) Drain() []SealedBlock {
	var ready []SealedBlock
	for !b.pending.Empty() {
		item, priority := b.pending.Pop()
		height := uint64(-priority)
		if height != b.expect {
			// Not next; put it back and stop.
			b.pending.Push(item, priority)
			break
		}
		ready = append(ready, item.(SealedBlock))
		b.expect++
	}
	return ready
}
