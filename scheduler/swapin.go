// Implements the Swap-In Controller (component 5, spec §4.6): after a
// decode-phase pass that preempted nobody, pulls swapped-out requests back
// onto the device for as long as capacity and the sequence-count budget
// allow. Grounded on the original _schedule()'s swapped-queue loop
// (original_source/vllm/core/mlfq_scheduler.py) and the admission
// controller's leftover/adapter-gating shape (admission.go), which the
// original swap-in loop mirrors nearly verbatim.

package scheduler

// runSwapInPhase is only called by runDecodePhase when no preemption
// happened this iteration (spec §4.6): preempting and then immediately
// swapping back in in the same iteration would be self-defeating thrash.
func (s *Scheduler) runSwapInPhase(plan *SchedulePlan) {
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

	var leftover []*Request

swapLoop:
	for s.swapped.Len() > 0 {
		r := s.swapped.PeekFront()

		if adapterGating && r.AdapterID > 0 && !currLoras[r.AdapterID] && len(currLoras) == s.Config.MaxLoRAs {
			s.swapped.PopFront()
			leftover = append(leftover, r)
			continue
		}

		if !s.blockManager.CanSwapIn(r) {
			break swapLoop
		}

		numNewSeqs := int64(r.MaxNumRunningSeqs())
		if numCurrSeqs+numNewSeqs > s.Config.MaxNumSeqs {
			break swapLoop
		}

		s.swapped.PopFront()
		if adapterGating && r.AdapterID > 0 {
			currLoras[r.AdapterID] = true
		}

		mapping := s.blockManager.SwapIn(r)
		for host, device := range mapping {
			plan.BlocksToSwapIn[host] = device
		}
		for _, seq := range r.SwappedSeqs() {
			seq.Status = SeqRunning
		}
		r.Bucket = BucketRunning
		s.running = append(s.running, r)
		numCurrSeqs += numNewSeqs
	}

	s.swapped.ExtendFront(leftover)
}
