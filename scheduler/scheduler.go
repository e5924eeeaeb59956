// Implements the Iteration Orchestrator (component 8, spec §4.3): the
// single Schedule() entry point that composes admission, preemption,
// swap-in, and the starvation guard into one SchedulePlan per call
// (demotion runs separately, in FreeFinished). Grounded on the original _schedule()/schedule() pair
// (original_source/vllm/core/mlfq_scheduler.py) and the teacher's
// Simulator.Step()/makeRunningBatch() split between "decide" and "emit".

package scheduler

import "github.com/sirupsen/logrus"

// Scheduler is the MLFQ scheduler core. It is single-threaded and
// cooperative: AddRequest, AbortRequest, Schedule, and FreeFinished must be
// called from one driver goroutine between model-execution steps.
type Scheduler struct {
	Config *SchedulerConfig
	Clock  ClockFunc

	waiting *PriorityLadder
	running []*Request
	swapped *PriorityLadder

	blockManager BlockManager
	runningOrder RunningOrderPolicy
	profiles     ProfileTable // optional, only consulted when UseSkipJoin

	iterationNum int64
}

// ClockFunc returns the current monotonic clock reading in microseconds.
// Tests inject a deterministic fake; production wires time.Now().UnixMicro
// (or, in the discrete-event CLI demo, the simulated tick).
type ClockFunc func() int64

// NewScheduler wires a Scheduler around its external collaborator (the
// BlockManager) and configuration. runningOrder may be nil to use
// DefaultRunningOrder; profiles may be nil (skip-join priority assignment
// degrades to always-0 if UseSkipJoin is requested without a table, per the
// spec's open question on absent profile data).
func NewScheduler(cfg *SchedulerConfig, bm BlockManager, clock ClockFunc, runningOrder RunningOrderPolicy, profiles ProfileTable) *Scheduler {
	if runningOrder == nil {
		runningOrder = &DefaultRunningOrder{}
	}
	return &Scheduler{
		Config:       cfg,
		Clock:        clock,
		waiting:      NewPriorityLadder(),
		running:      nil,
		swapped:      NewPriorityLadder(),
		blockManager: bm,
		runningOrder: runningOrder,
		profiles:     profiles,
	}
}

// dominatesSwapped implements the spec's admission-vs-swap dominance test:
// the waiting head is considered at least as urgent as the swapped head
// when its priority number is >= (ties go to waiting) and its arrival is no
// newer. Asymmetric on purpose — see spec §9 "Prompt-vs-swap dominance".
func dominatesSwapped(waitingHead, swappedHead *Request) bool {
	return waitingHead.Priority >= swappedHead.Priority &&
		waitingHead.ArrivalTime <= swappedHead.ArrivalTime
}

// Schedule runs one scheduling iteration and returns the resulting plan
// plus the parallel executor payload. It is the sole entry point the driver
// calls every model-execution step.
func (s *Scheduler) Schedule() (*SchedulePlan, []SequenceMetadata) {
	now := s.Clock()

	runPromptPhase := s.swapped.Len() == 0
	if !runPromptPhase {
		waitingHead := s.waiting.PeekFront()
		swappedHead := s.swapped.PeekFront()
		if waitingHead != nil && swappedHead != nil && dominatesSwapped(waitingHead, swappedHead) {
			runPromptPhase = true
		}
	}

	var plan *SchedulePlan
	if runPromptPhase {
		plan = s.runAdmissionPhase()
	}
	if plan == nil || (len(plan.Scheduled) == 0 && len(plan.Ignored) == 0) {
		plan = s.runDecodePhase(now)
	}

	s.iterationNum++
	if s.iterationNum%s.Config.StarvationPeriod == 0 {
		s.runStarvationGuard(now)
	}

	plan.sortByAdapter()
	return plan, buildSequenceMetadata(plan, s.blockManager, now)
}

func (s *Scheduler) logf(format string, args ...any) {
	logrus.Warnf(format, args...)
}
