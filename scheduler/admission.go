// Implements the Admission Controller (component 3, spec §4.4): fills a
// single prompt-phase batch from the waiting ladder, enforcing token,
// sequence-count, padding, and adapter-slot budgets. Grounded on the
// original `_schedule()`'s waiting-queue loop
// (original_source/vllm/core/mlfq_scheduler.py) and the teacher's
// FormBatch phase-2 dequeue loop (sim/batch_formation.go).

package scheduler

// runAdmissionPhase attempts to admit waiting requests into a fresh
// prompt-phase batch. Returns a plan with IsPromptPhase=true; callers
// should fall back to the decode phase when the plan carries neither
// scheduled nor ignored requests.
func (s *Scheduler) runAdmissionPhase() *SchedulePlan {
	numCurrSeqs := int64(0)
	for _, r := range s.running {
		numCurrSeqs += int64(r.MaxNumRunningSeqs())
	}

	adapterGating := s.Config.MaxLoRAs > 0
	currLoras := map[int]bool{}
	if adapterGating {
		for _, r := range s.running {
			if r.AdapterID > 0 {
				currLoras[r.AdapterID] = true
			}
		}
	}

	var seqLens []int64
	var scheduled, ignored, leftover []*Request

	promptLimit := s.Config.PromptLimit()

admitLoop:
	for s.waiting.Len() > 0 {
		r := s.waiting.PopFront()

		waitingSeqs := r.WaitingSeqs()
		if len(waitingSeqs) != 1 {
			panic("scheduler: admitted request has more than one WAITING sequence")
		}
		prompt := waitingSeqs[0]
		numPromptTokens := int64(prompt.PromptLen)

		if numPromptTokens > promptLimit {
			s.logf("prompt (%d tokens) exceeds prompt_limit of %d; ignoring", numPromptTokens, promptLimit)
			s.ignoreRequest(r)
			ignored = append(ignored, r)
			continue
		}

		switch s.blockManager.CanAllocate(r) {
		case AllocLater:
			s.waiting.PushFront(r)
			break admitLoop
		case AllocNever:
			s.logf("prompt (%d tokens) exceeds block manager capacity; ignoring", numPromptTokens)
			s.ignoreRequest(r)
			ignored = append(ignored, r)
			continue
		}

		if adapterGating && r.AdapterID > 0 && !currLoras[r.AdapterID] && len(currLoras) == s.Config.MaxLoRAs {
			leftover = append(leftover, r)
			continue
		}

		newSeqLens := append(append([]int64{}, seqLens...), numPromptTokens)
		numBatchedTokens := int64(len(newSeqLens)) * maxInt64(newSeqLens)
		if numBatchedTokens > s.Config.MaxNumBatchedToken {
			s.waiting.PushFront(r)
			break admitLoop
		}

		numNewSeqs := int64(r.MaxNumRunningSeqs())
		if numCurrSeqs+numNewSeqs > s.Config.MaxNumSeqs {
			s.waiting.PushFront(r)
			break admitLoop
		}

		numPaddings := numBatchedTokens - sumInt64(newSeqLens)
		if numPaddings > s.Config.MaxPaddings {
			s.waiting.PushFront(r)
			break admitLoop
		}

		seqLens = newSeqLens
		if adapterGating && r.AdapterID > 0 {
			currLoras[r.AdapterID] = true
		}

		s.blockManager.Allocate(r)
		for _, seq := range waitingSeqs {
			seq.Status = SeqRunning
		}
		r.Bucket = BucketRunning
		s.running = append(s.running, r)
		scheduled = append(scheduled, r)
		numCurrSeqs += numNewSeqs
	}

	s.waiting.ExtendFront(leftover)

	plan := newEmptyPlan(true)
	plan.Scheduled = scheduled
	plan.Ignored = ignored
	if len(seqLens) > 0 {
		plan.NumBatchedTokens = int64(len(seqLens)) * maxInt64(seqLens)
	}
	return plan
}

func (s *Scheduler) ignoreRequest(r *Request) {
	for _, seq := range r.Sequences {
		seq.Status = SeqFinishedIgnored
	}
	r.Bucket = BucketFinished
}

func maxInt64(xs []int64) int64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func sumInt64(xs []int64) int64 {
	var s int64
	for _, x := range xs {
		s += x
	}
	return s
}
