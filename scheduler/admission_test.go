package scheduler

import "testing"

func TestAdmission_SequenceCountCutoff_HoldsBackOverflow(t *testing.T) {
	// GIVEN max_num_seqs=1 and two single-request arrivals
	cfg := NewSchedulerConfig(1, 2048, 2048, 2048)
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 0)

	r1 := NewPromptRequest("r1", 0, 10, SamplingParams{BestOf: 1}, 0)
	r2 := NewPromptRequest("r2", 1, 10, SamplingParams{BestOf: 1}, 0)
	s.AddRequest(r1)
	s.AddRequest(r2)

	plan := s.runAdmissionPhase()

	// THEN only r1 is admitted; r2 stays at the head of waiting
	if len(plan.Scheduled) != 1 || plan.Scheduled[0].ID != "r1" {
		t.Fatalf("expected only r1 scheduled, got %v", plan.Scheduled)
	}
	if s.waiting.PeekFront().ID != "r2" {
		t.Errorf("expected r2 at head of waiting, got %v", s.waiting.PeekFront())
	}
}

func TestAdmission_AdapterSlotGating_LeavesOverflowAdapterInWaiting(t *testing.T) {
	// GIVEN max_loras=1 and two requests on distinct adapters
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	cfg.MaxLoRAs = 1
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 0)

	r1 := NewPromptRequest("r1", 0, 10, SamplingParams{BestOf: 1}, 1)
	r2 := NewPromptRequest("r2", 1, 10, SamplingParams{BestOf: 1}, 2)
	s.AddRequest(r1)
	s.AddRequest(r2)

	plan := s.runAdmissionPhase()

	if len(plan.Scheduled) != 1 || plan.Scheduled[0].ID != "r1" {
		t.Fatalf("expected only r1 scheduled (adapter slot exhausted), got %v", plan.Scheduled)
	}
	// r2 was set aside as leftover and restored to the ladder, not dropped.
	if s.waiting.Len() != 1 || s.waiting.PeekFront().ID != "r2" {
		t.Errorf("expected r2 restored to waiting, got len=%d head=%v", s.waiting.Len(), s.waiting.PeekFront())
	}
}

func TestAdmission_AllocLater_BreaksLoopWithoutDroppingRequest(t *testing.T) {
	// GIVEN a block manager that always reports AllocLater
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	bm := newFakeBlockManager()
	bm.allocStatus = AllocLater
	s := newTestScheduler(cfg, bm, 0)

	r1 := NewPromptRequest("r1", 0, 10, SamplingParams{BestOf: 1}, 0)
	s.AddRequest(r1)

	plan := s.runAdmissionPhase()

	if len(plan.Scheduled) != 0 {
		t.Fatalf("expected nothing scheduled under AllocLater, got %v", plan.Scheduled)
	}
	if s.waiting.Len() != 1 {
		t.Errorf("expected r1 retained in waiting, got len=%d", s.waiting.Len())
	}
}

func TestAdmission_AllocNever_IgnoresRequest(t *testing.T) {
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	bm := newFakeBlockManager()
	bm.allocStatus = AllocNever
	s := newTestScheduler(cfg, bm, 0)

	r1 := NewPromptRequest("r1", 0, 10, SamplingParams{BestOf: 1}, 0)
	s.AddRequest(r1)

	plan := s.runAdmissionPhase()

	if len(plan.Ignored) != 1 || plan.Ignored[0].ID != "r1" {
		t.Fatalf("expected r1 ignored, got %v", plan.Ignored)
	}
	if s.waiting.Len() != 0 {
		t.Errorf("expected waiting drained, got len=%d", s.waiting.Len())
	}
	if r1.Sequences[0].Status != SeqFinishedIgnored {
		t.Errorf("expected FINISHED_IGNORED, got %v", r1.Sequences[0].Status)
	}
}

func TestAdmission_MultipleWaitingSequences_IsInvariantViolation(t *testing.T) {
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 0)

	r := &Request{
		ID: "bad",
		Sequences: []*Sequence{
			{ID: "bad-0", Status: SeqWaiting, PromptLen: 10},
			{ID: "bad-1", Status: SeqWaiting, PromptLen: 10},
		},
	}
	s.waiting.PushBack(r)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on multiple WAITING sequences in one request")
		}
	}()
	s.runAdmissionPhase()
}
