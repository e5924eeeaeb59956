// Implements the Feedback/Demotion Policy (component 6, spec §4.8):
// approximates shortest-remaining-processing-time by relegating
// long-running requests into lower priority tiers. Grounded on the
// original free_finished() (original_source/vllm/core/mlfq_scheduler.py).

package scheduler

// FreeFinished drops finished requests from the running set and demotes
// the rest whose accumulated service this level exceeds the level's
// quantum. It is the driver's responsibility to call this once per
// model-execution step, after updating sequence statuses from the
// executor's token outputs but before the next Schedule() call.
func (s *Scheduler) FreeFinished() {
	now := s.Clock()

	keep := s.running[:0:0]
	for _, r := range s.running {
		if r.IsFinished() {
			continue
		}

		service := now - r.ArrivalTime
		if service > s.Config.QuantumFor(r.Priority) {
			// The original leaves sequence status and block residency
			// untouched here: this is a priority-ladder demotion, not a
			// capacity-driven swap. Blocks stay device-resident; the swap-in
			// controller's CanSwapIn is expected to treat an already-resident
			// request as trivially admissible.
			r.Priority++
			r.ArrivalTime = now
			r.Bucket = BucketSwapped
			s.swapped.PushFront(r)
			continue
		}

		keep = append(keep, r)
	}
	s.running = keep
}
