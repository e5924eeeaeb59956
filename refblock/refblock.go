// Package refblock provides ReferenceBlockManager, a reference
// implementation of scheduler.BlockManager: an in-memory, two-tier
// (device/host) KV-cache block pool with free-list LRU eviction and
// reference-counted copy-on-write sharing. Adapted from the teacher's
// KVCacheState (sim/kvcache.go) — free list, ref counts, content hashing —
// generalized to a second host-memory tier for swap support, grounded on
// the teacher's two-tier TieredKVCache design (sim/kv/register.go).
//
// One deliberate simplification: scheduler.Sequence tracks token counts,
// not token content (the scheduler's view of a request is length-only).
// Genuine cross-request prefix-cache hits require comparing real token
// content, which isn't available at this layer, so the content hash used
// here is derived from (request ID, block index) rather than real tokens —
// it preserves the teacher's hashing/eviction machinery but only ever
// "hits" within a single request's own re-allocation, not across
// independently submitted requests with identical prompts. Genuine content
// sharing still happens, correctly, through Fork's explicit block-ID
// sharing for beam search and parallel sampling.
package refblock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	sched "github.com/rlsu9/mlfq-scheduler/scheduler"
)

// kvBlock is one fixed-capacity unit of KV-cache storage, tracked by a
// content hash once assigned and linked into its tier's free list when idle.
type kvBlock struct {
	id       int
	refCount int
	inUse    bool
	hash     string
	prev     *kvBlock
	next     *kvBlock
}

// tier is one memory pool (device or host): a fixed set of blocks plus a
// free list ordered oldest-freed-first (approximate LRU) and a content-hash
// index for cache-hit lookups.
type tier struct {
	blocks      []*kvBlock
	hashToBlock map[string]int
	freeHead    *kvBlock
	freeTail    *kvBlock
	usedCount   int
}

func newTier(n int) *tier {
	t := &tier{
		blocks:      make([]*kvBlock, n),
		hashToBlock: make(map[string]int, n),
	}
	for i := 0; i < n; i++ {
		b := &kvBlock{id: i}
		t.blocks[i] = b
		t.appendToList(b)
	}
	return t
}

func (t *tier) freeCount() int { return len(t.blocks) - t.usedCount }

func (t *tier) appendToList(b *kvBlock) {
	b.next = nil
	if t.freeTail != nil {
		t.freeTail.next = b
		b.prev = t.freeTail
		t.freeTail = b
	} else {
		t.freeHead = b
		t.freeTail = b
		b.prev = nil
	}
}

func (t *tier) removeFromList(b *kvBlock) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		t.freeHead = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		t.freeTail = b.prev
	}
	b.next, b.prev = nil, nil
}

// pushFree returns b to the tail of the free list, releasing its content
// identity.
func (t *tier) pushFree(b *kvBlock) {
	b.inUse = false
	t.usedCount--
	if b.hash != "" {
		delete(t.hashToBlock, b.hash)
		b.hash = ""
	}
	t.appendToList(b)
}

// popFree evicts the oldest-freed block and marks it in use. Returns nil if
// the tier has no free blocks.
func (t *tier) popFree() *kvBlock {
	head := t.freeHead
	if head == nil {
		return nil
	}
	t.removeFromList(head)
	t.usedCount++
	head.inUse = true
	return head
}

// release decrements b's reference count, returning it to the free list
// once no sequence references it.
func (t *tier) release(id int) {
	b := t.blocks[id]
	b.refCount--
	if b.refCount <= 0 {
		t.pushFree(b)
	}
}

// ReferenceBlockManager is the reference scheduler.BlockManager
// implementation: a device tier and a host tier, each blockSize tokens per
// block, with per-sequence block tables tracked by sequence ID.
type ReferenceBlockManager struct {
	blockSize int
	device    *tier
	host      *tier

	deviceTable map[string][]int // seq ID -> device block IDs, in order
	hostTable   map[string][]int // seq ID -> host block IDs, in order
}

// NewReferenceBlockManager builds a block manager with the given device
// (GPU) and host (CPU) block counts, each block holding blockSize tokens.
func NewReferenceBlockManager(numDeviceBlocks, numHostBlocks, blockSize int) *ReferenceBlockManager {
	return &ReferenceBlockManager{
		blockSize:   blockSize,
		device:      newTier(numDeviceBlocks),
		host:        newTier(numHostBlocks),
		deviceTable: make(map[string][]int),
		hostTable:   make(map[string][]int),
	}
}

func (m *ReferenceBlockManager) numBlocksFor(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return (tokens + m.blockSize - 1) / m.blockSize
}

func contentHash(requestID string, blockIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", requestID, blockIndex)))
	return hex.EncodeToString(sum[:])
}

// CanAllocate reports whether r's prompt can be given device blocks now,
// later, or never, per scheduler.BlockManager.
func (m *ReferenceBlockManager) CanAllocate(r *sched.Request) sched.AllocStatus {
	waiting := r.WaitingSeqs()
	if len(waiting) == 0 {
		return sched.AllocOK
	}
	need := m.numBlocksFor(waiting[0].PromptLen)
	if need > len(m.device.blocks) {
		return sched.AllocNever
	}
	if need > m.device.freeCount() {
		return sched.AllocLater
	}
	return sched.AllocOK
}

// Allocate reserves device blocks for r's prompt sequence. Only valid after
// CanAllocate returned AllocOK.
func (m *ReferenceBlockManager) Allocate(r *sched.Request) {
	waiting := r.WaitingSeqs()
	if len(waiting) == 0 {
		return
	}
	prompt := waiting[0]
	need := m.numBlocksFor(prompt.PromptLen)
	ids := make([]int, 0, need)
	for i := 0; i < need; i++ {
		h := contentHash(r.ID, i)
		if bid, ok := m.device.hashToBlock[h]; ok && m.device.blocks[bid].inUse {
			m.device.blocks[bid].refCount++
			ids = append(ids, bid)
			continue
		}
		b := m.device.popFree()
		if b == nil {
			panic("refblock: allocate called without capacity (CanAllocate contract violated)")
		}
		b.refCount = 1
		b.hash = h
		m.device.hashToBlock[h] = b.id
		ids = append(ids, b.id)
	}
	m.deviceTable[prompt.ID] = ids
}

func (m *ReferenceBlockManager) needsNewBlock(seq *sched.Sequence) bool {
	ids := m.deviceTable[seq.ID]
	return len(ids)*m.blockSize <= seq.Len()
}

// CanAppendSlot reports whether every RUNNING sequence of r can be given
// one more token slot without exceeding device capacity.
func (m *ReferenceBlockManager) CanAppendSlot(r *sched.Request) bool {
	needed := 0
	for _, seq := range r.RunningSeqs() {
		ids := m.deviceTable[seq.ID]
		sharedLast := len(ids) > 0 && m.device.blocks[ids[len(ids)-1]].refCount > 1
		if m.needsNewBlock(seq) || sharedLast {
			needed++
		}
	}
	return needed <= m.device.freeCount()
}

// AppendSlot reserves the next token slot for seq: reuses room in the last
// block if available (copying it first if shared with a forked sibling),
// otherwise allocates a fresh block.
func (m *ReferenceBlockManager) AppendSlot(seq *sched.Sequence) (sched.CopyDirective, bool) {
	ids := m.deviceTable[seq.ID]

	if !m.needsNewBlock(seq) && len(ids) > 0 {
		lastID := ids[len(ids)-1]
		last := m.device.blocks[lastID]
		if last.refCount <= 1 {
			return sched.CopyDirective{}, false
		}
		nb := m.device.popFree()
		if nb == nil {
			panic("refblock: append_slot copy-on-write called without capacity")
		}
		nb.refCount = 1
		last.refCount--
		ids[len(ids)-1] = nb.id
		m.deviceTable[seq.ID] = ids
		return sched.CopyDirective{SrcBlock: lastID, DstBlock: nb.id}, true
	}

	nb := m.device.popFree()
	if nb == nil {
		panic("refblock: append_slot called without capacity (CanAppendSlot contract violated)")
	}
	nb.refCount = 1
	m.deviceTable[seq.ID] = append(ids, nb.id)
	return sched.CopyDirective{}, false
}

// CanSwapOut reports whether r's device blocks fit in the host tier.
func (m *ReferenceBlockManager) CanSwapOut(r *sched.Request) bool {
	needed := 0
	for _, seq := range r.RunningSeqs() {
		needed += len(m.deviceTable[seq.ID])
	}
	return needed <= m.host.freeCount()
}

// SwapOut moves r's device blocks to host memory.
func (m *ReferenceBlockManager) SwapOut(r *sched.Request) map[int]int {
	mapping := make(map[int]int)
	for _, seq := range r.RunningSeqs() {
		devIDs := m.deviceTable[seq.ID]
		hostIDs := make([]int, 0, len(devIDs))
		for _, did := range devIDs {
			hb := m.host.popFree()
			if hb == nil {
				panic("refblock: swap_out called without host capacity (CanSwapOut contract violated)")
			}
			hb.refCount = 1
			mapping[did] = hb.id
			hostIDs = append(hostIDs, hb.id)
			m.device.release(did)
		}
		m.hostTable[seq.ID] = hostIDs
		delete(m.deviceTable, seq.ID)
	}
	return mapping
}

// CanSwapIn reports whether r's host-resident blocks fit back on device.
func (m *ReferenceBlockManager) CanSwapIn(r *sched.Request) bool {
	needed := 0
	for _, seq := range r.SwappedSeqs() {
		needed += len(m.hostTable[seq.ID])
	}
	return needed <= m.device.freeCount()
}

// SwapIn moves r's host blocks back to device memory.
func (m *ReferenceBlockManager) SwapIn(r *sched.Request) map[int]int {
	mapping := make(map[int]int)
	for _, seq := range r.SwappedSeqs() {
		hostIDs := m.hostTable[seq.ID]
		devIDs := make([]int, 0, len(hostIDs))
		for _, hid := range hostIDs {
			db := m.device.popFree()
			if db == nil {
				panic("refblock: swap_in called without device capacity (CanSwapIn contract violated)")
			}
			db.refCount = 1
			mapping[hid] = db.id
			devIDs = append(devIDs, db.id)
			m.host.release(hid)
		}
		m.deviceTable[seq.ID] = devIDs
		delete(m.hostTable, seq.ID)
	}
	return mapping
}

// Free releases seq's blocks, wherever they currently reside, in reverse
// allocation order (mirroring the teacher's ReleaseKVBlocks: the last block
// of a sequence is the least likely to be shared, so it's evicted first).
func (m *ReferenceBlockManager) Free(seq *sched.Sequence) {
	if ids, ok := m.deviceTable[seq.ID]; ok {
		for i := len(ids) - 1; i >= 0; i-- {
			m.device.release(ids[i])
		}
		delete(m.deviceTable, seq.ID)
	}
	if ids, ok := m.hostTable[seq.ID]; ok {
		for i := len(ids) - 1; i >= 0; i-- {
			m.host.release(ids[i])
		}
		delete(m.hostTable, seq.ID)
	}
}

// Fork shares parent's device block table with child, copy-on-write: both
// now reference the same blocks until AppendSlot forces a copy.
func (m *ReferenceBlockManager) Fork(parent, child *sched.Sequence) {
	ids, ok := m.deviceTable[parent.ID]
	if !ok {
		return
	}
	shared := append([]int(nil), ids...)
	for _, id := range shared {
		m.device.blocks[id].refCount++
	}
	m.deviceTable[child.ID] = shared
}

// AccessAllBlocksInSeq is a no-op in this reference implementation: blocks
// in use are already excluded from the free list, so there is no separate
// recency index to refresh (the teacher's KVCacheState has the same
// property — see sim/kvcache.go).
func (m *ReferenceBlockManager) AccessAllBlocksInSeq(seq *sched.Sequence, now int64) {}

// GetBlockTable returns the ordered device block IDs backing seq.
func (m *ReferenceBlockManager) GetBlockTable(seq *sched.Sequence) []int {
	return append([]int(nil), m.deviceTable[seq.ID]...)
}

// GetCommonComputedBlockIDs returns the longest shared block-ID prefix
// across r's RUNNING sequences — the blocks forked siblings still share.
func (m *ReferenceBlockManager) GetCommonComputedBlockIDs(r *sched.Request) []int {
	running := r.RunningSeqs()
	if len(running) == 0 {
		return nil
	}
	common := append([]int(nil), m.deviceTable[running[0].ID]...)
	for _, seq := range running[1:] {
		ids := m.deviceTable[seq.ID]
		n := len(common)
		if len(ids) < n {
			n = len(ids)
		}
		i := 0
		for i < n && common[i] == ids[i] {
			i++
		}
		common = common[:i]
	}
	return common
}

// MarkBlocksAsComputed is a no-op here: this reference implementation
// doesn't distinguish "allocated" from "computed" blocks, so every
// allocated block is already eligible for the sharing GetCommonComputedBlockIDs
// reports.
func (m *ReferenceBlockManager) MarkBlocksAsComputed(r *sched.Request) {}
