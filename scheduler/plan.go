// Defines SchedulePlan, the immutable per-iteration record the Iteration
// Orchestrator hands to the model executor, and SequenceMetadata, the
// parallel per-request payload the executor needs to run a forward pass.
// Modeled on the teacher's BatchResult (sim/batch_formation.go) and the
// original SchedulerOutputs (original_source/vllm/core/mlfq_scheduler.py).

package scheduler

import (
	"sort"
	"time"
)

// SchedulePlan is the result of a single Schedule() call.
type SchedulePlan struct {
	Scheduled        []*Request
	IsPromptPhase    bool
	NumBatchedTokens int64
	BlocksToSwapIn   map[int]int   // host block -> device block
	BlocksToSwapOut  map[int]int   // device block -> host block
	BlocksToCopy     map[int][]int // src device block -> dst device blocks
	Ignored          []*Request
}

// newEmptyPlan returns a plan with initialized (non-nil) maps, ready to be
// filled in by the orchestrator.
func newEmptyPlan(isPrompt bool) *SchedulePlan {
	return &SchedulePlan{
		IsPromptPhase:   isPrompt,
		BlocksToSwapIn:  make(map[int]int),
		BlocksToSwapOut: make(map[int]int),
		BlocksToCopy:    make(map[int][]int),
	}
}

// IsEmpty reports whether the plan has no work for the executor: no
// scheduled requests and no block movement. Ignored requests don't count —
// they require no executor action, but the plan itself still carries news
// the caller may want (see original SchedulerOutputs.is_empty()).
func (p *SchedulePlan) IsEmpty() bool {
	return len(p.Scheduled) == 0 && len(p.BlocksToSwapIn) == 0 &&
		len(p.BlocksToSwapOut) == 0 && len(p.BlocksToCopy) == 0
}

// sortByAdapter stably sorts Scheduled by (AdapterID, ID) when at least one
// scheduled request carries an adapter. Mirrors SchedulerOutputs._sort_by_lora_ids.
func (p *SchedulePlan) sortByAdapter() {
	hasAdapter := false
	for _, r := range p.Scheduled {
		if r.AdapterID > 0 {
			hasAdapter = true
			break
		}
	}
	if !hasAdapter {
		return
	}
	sort.SliceStable(p.Scheduled, func(i, j int) bool {
		a, b := p.Scheduled[i], p.Scheduled[j]
		if a.AdapterID != b.AdapterID {
			return a.AdapterID < b.AdapterID
		}
		return a.ID < b.ID
	})
}

// SequenceMetadata is the per-request payload passed to the executor
// alongside a SchedulePlan.
type SequenceMetadata struct {
	RequestID            string
	IsPrompt             bool
	SeqData              map[string]*Sequence // seq ID -> sequence
	SamplingParams       SamplingParams
	BlockTables          map[string][]int // seq ID -> device block IDs, RUNNING seqs only
	AdapterID            int
	CommonComputedBlocks []int
}

// buildSequenceMetadata projects a plan's scheduled requests into the
// parallel executor payload, querying the block manager for block tables
// and prefix-cache hints exactly as the original schedule() does.
func buildSequenceMetadata(plan *SchedulePlan, bm BlockManager, now int64) []SequenceMetadata {
	out := make([]SequenceMetadata, 0, len(plan.Scheduled))
	for _, r := range plan.Scheduled {
		if r.FirstScheduledTime == 0 {
			r.FirstScheduledTime = time.Now().UnixMicro()
		}
		seqData := make(map[string]*Sequence)
		blockTables := make(map[string][]int)
		for _, seq := range r.RunningSeqs() {
			seqData[seq.ID] = seq
			blockTables[seq.ID] = bm.GetBlockTable(seq)
			bm.AccessAllBlocksInSeq(seq, now)
		}
		out = append(out, SequenceMetadata{
			RequestID:            r.ID,
			IsPrompt:             plan.IsPromptPhase,
			SeqData:              seqData,
			SamplingParams:       r.SamplingParams,
			BlockTables:          blockTables,
			AdapterID:            r.AdapterID,
			CommonComputedBlocks: bm.GetCommonComputedBlockIDs(r),
		})
	}
	return out
}
