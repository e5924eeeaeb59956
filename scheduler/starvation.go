// Implements the Starvation Guard (component 7, spec §4.7): periodically
// lifts long-waiting requests back to the top priority so that the
// feedback demotion policy's geometric quanta can never starve a request
// indefinitely. Grounded on the original's starvation-check block inside
// _schedule() (original_source/vllm/core/mlfq_scheduler.py), generalized
// here into a ladder-agnostic helper shared by the waiting and swapped
// pools per spec step 5.

package scheduler

// runStarvationGuard runs the promotion pass against both ladders that can
// hold a long-waiting request. Called by the iteration orchestrator once
// every StarvationPeriod iterations.
func (s *Scheduler) runStarvationGuard(now int64) {
	promoteStarved(s.waiting, now, s.Config.StarvationThreshold)
	promoteStarved(s.swapped, now, s.Config.StarvationThreshold)
}

// promoteStarved drains every level of the ladder, setting aside entries
// that have waited at least threshold microseconds and re-enqueuing the
// rest at the back of their unchanged level. The set-aside entries are then
// reset to priority 0 and pushed to the absolute front of the ladder,
// preserving their drain (pop) order.
func promoteStarved(l *PriorityLadder, now, threshold int64) {
	var promote []*Request
	for level := 0; level < l.Levels(); level++ {
		for _, r := range l.drainLevel(level) {
			if now-r.ArrivalTime >= threshold {
				promote = append(promote, r)
				continue
			}
			l.PushBack(r)
		}
	}

	for _, r := range promote {
		r.Priority = 0
	}
	l.ExtendFront(promote)
}
