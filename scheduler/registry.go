// Implements the Request State Registry (component 2, spec §4.1's
// invariant + §4.2's ingestion operations) and the Derived Utilities
// (component 9, spec §4.9). Running is tracked as a plain ordered slice;
// waiting and swapped are PriorityLadders. Grounded on the original
// add_seq_group/abort_seq_group (original_source/vllm/core/mlfq_scheduler.py).

package scheduler

// ProfileTable looks up an offline-profiled prompt latency estimate for a
// request, keyed by (batchSize, beamWidth, inputLen) with pipeline- and
// tensor-parallelism fixed at 1, per spec §4.2. Implementations may return
// ok=false for unknown keys.
type ProfileTable interface {
	Estimate(batchSize int64, beamWidth int, inputLen int) (latencyMicros int64, ok bool)
}

// AddRequest admits a newly arrived request into the waiting ladder. When
// UseSkipJoin is configured and a ProfileTable is wired, the request's
// starting priority is estimated from offline profiling data: the smallest
// priority p such that BaseQuantum * Threshold^p >= estimated prompt
// latency. Otherwise — including when UseSkipJoin is true but no table is
// available — priority starts at 0 (spec §9 open question).
func (s *Scheduler) AddRequest(r *Request) {
	r.Priority = 0
	if s.Config.UseSkipJoin && s.profiles != nil {
		beamWidth := 1
		if r.SamplingParams.UseBeamSearch {
			beamWidth = r.SamplingParams.BestOf
		}
		if latency, ok := s.profiles.Estimate(s.Config.MaxBatchSize, beamWidth, r.InputLen()); ok {
			priority := 0
			for s.Config.QuantumFor(priority) < latency {
				priority++
			}
			r.Priority = priority
		}
	}
	r.Bucket = BucketWaiting
	s.waiting.PushBack(r)
}

// AbortRequest removes each named request from whichever pool holds it,
// marking any unfinished sequences FINISHED_ABORTED. Aborted requests never
// appear in a subsequent SchedulePlan. O(total requests); must complete
// before the next Schedule() call.
func (s *Scheduler) AbortRequest(ids ...string) {
	remaining := make(map[string]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	keep := s.running[:0:0]
	for _, r := range s.running {
		if !remaining[r.ID] {
			keep = append(keep, r)
			continue
		}
		delete(remaining, r.ID)
		s.finishAborted(r)
	}
	s.running = keep

	for id := range remaining {
		if r := s.waiting.RemoveByID(id); r != nil {
			s.finishAborted(r)
			delete(remaining, id)
			continue
		}
		if r := s.swapped.RemoveByID(id); r != nil {
			s.finishAborted(r)
			delete(remaining, id)
		}
	}
}

func (s *Scheduler) finishAborted(r *Request) {
	for _, seq := range r.Sequences {
		if seq.Status.IsFinished() {
			continue
		}
		seq.Status = SeqFinishedAborted
		s.blockManager.Free(seq)
	}
	r.Bucket = BucketFinished
}

// HasUnfinished reports whether any of the three live pools is non-empty.
func (s *Scheduler) HasUnfinished() bool {
	return s.waiting.Len() > 0 || len(s.running) > 0 || s.swapped.Len() > 0
}

// CountUnfinished sums the sizes of the waiting ladder, running deque, and
// swapped ladder.
func (s *Scheduler) CountUnfinished() int {
	return s.waiting.Len() + len(s.running) + s.swapped.Len()
}

// ForkSeq delegates to the block manager: child shares parent's block
// table copy-on-write.
func (s *Scheduler) ForkSeq(parent, child *Sequence) {
	s.blockManager.Fork(parent, child)
}

// FreeSeq delegates to the block manager, releasing seq's blocks.
func (s *Scheduler) FreeSeq(seq *Sequence) {
	s.blockManager.Free(seq)
}

// MarkBlocksAsComputed delegates to the block manager for prefix caching.
func (s *Scheduler) MarkBlocksAsComputed(r *Request) {
	s.blockManager.MarkBlocksAsComputed(r)
}

// Snapshot accessors below expose pool contents read-only, for tests and
// observability; scheduling logic in other files uses the fields directly.

// WaitingLen returns the number of requests currently waiting.
func (s *Scheduler) WaitingLen() int { return s.waiting.Len() }

// RunningLen returns the number of requests currently running.
func (s *Scheduler) RunningLen() int { return len(s.running) }

// SwappedLen returns the number of requests currently swapped out.
func (s *Scheduler) SwappedLen() int { return s.swapped.Len() }

// Running returns the current running order, for inspection only; callers
// must not mutate the returned slice.
func (s *Scheduler) Running() []*Request { return s.running }
