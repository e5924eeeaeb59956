// Supplements spec §4.5's fixed running-set ordering with a pluggable
// RunningOrderPolicy, grounded on the teacher's InstanceScheduler/
// PriorityPolicy interface-and-factory idiom (sim/scheduler.go,
// sim/priority.go) and the original's injected
// `self.policy.sort_by_priority(now, self.running)`
// (original_source/vllm/core/mlfq_scheduler.py). The default policy
// reproduces spec §4.5's fixed behavior exactly; this only generalizes how
// a caller may override it, it does not change any invariant.

package scheduler

import "sort"

// RunningOrderPolicy orders the running set before the preemption engine
// scans it front-to-back. Implementations sort in place using a stable
// sort for determinism; the tail after sorting is the preferred preemption
// victim.
type RunningOrderPolicy interface {
	Sort(running []*Request, now int64)
}

// DefaultRunningOrder implements spec §4.5: ascending by priority (smaller
// priority number = higher priority, stays toward the front), ties broken
// by ascending arrival time (earlier arrival wins and stays toward the
// front). The tail is therefore the lowest-priority, most-recently-arrived
// request — the most preemptible.
type DefaultRunningOrder struct{}

func (d *DefaultRunningOrder) Sort(running []*Request, _ int64) {
	sort.SliceStable(running, func(i, j int) bool {
		if running[i].Priority != running[j].Priority {
			return running[i].Priority < running[j].Priority
		}
		return running[i].ArrivalTime < running[j].ArrivalTime
	})
}
