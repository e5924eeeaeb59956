package scheduler

import "testing"

func TestFreeFinished_DropsFinishedRequests(t *testing.T) {
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 100)

	done := &Request{ID: "done", ArrivalTime: 0, Sequences: []*Sequence{{ID: "done-0", Status: SeqFinishedStopped}}}
	s.running = []*Request{done}

	s.FreeFinished()

	if len(s.running) != 0 {
		t.Errorf("expected finished request dropped, running has %d", len(s.running))
	}
}

func TestFreeFinished_DemotesRequestOverQuantum(t *testing.T) {
	// GIVEN a request whose service time exceeds its level-0 quantum
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	cfg.BaseQuantumMicros = 100
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 1000)

	r := &Request{ID: "r1", Priority: 0, ArrivalTime: 0, Sequences: []*Sequence{{ID: "r1-0", Status: SeqRunning}}}
	s.running = []*Request{r}

	s.FreeFinished()

	if r.Priority != 1 {
		t.Errorf("expected priority demoted to 1, got %d", r.Priority)
	}
	if r.ArrivalTime != 1000 {
		t.Errorf("expected arrival_time refreshed to now (1000), got %d", r.ArrivalTime)
	}
	if s.SwappedLen() != 1 || s.swapped.PeekFront() != r {
		t.Errorf("expected r pushed to front of swapped, swapped len=%d", s.SwappedLen())
	}
	if len(s.running) != 0 {
		t.Errorf("expected running drained of demoted request, got %d", len(s.running))
	}
}

func TestFreeFinished_RetainsRequestUnderQuantum(t *testing.T) {
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	cfg.BaseQuantumMicros = 100_000
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 10)

	r := &Request{ID: "r1", Priority: 0, ArrivalTime: 0, Sequences: []*Sequence{{ID: "r1-0", Status: SeqRunning}}}
	s.running = []*Request{r}

	s.FreeFinished()

	if r.Priority != 0 {
		t.Errorf("expected priority unchanged, got %d", r.Priority)
	}
	if len(s.running) != 1 {
		t.Errorf("expected r retained in running, got %d", len(s.running))
	}
}
