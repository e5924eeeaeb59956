package scheduler

import "testing"

func TestPromoteStarved_NonStarvedEntriesStayAtTheirLevel(t *testing.T) {
	l := NewPriorityLadder()
	fresh := &Request{ID: "fresh", Priority: 3, ArrivalTime: 900}
	l.PushBack(fresh)

	promoteStarved(l, 1000, 500)

	if fresh.Priority != 3 {
		t.Errorf("expected priority unchanged for non-starved entry, got %d", fresh.Priority)
	}
	if got := l.PeekFront(); got != fresh {
		t.Errorf("expected non-starved entry to remain in the ladder at level 3, front scan found %v", got)
	}
}

func TestPromoteStarved_MultipleEntriesPreserveDrainOrder(t *testing.T) {
	// GIVEN two starved requests at the same level, enqueued X then Y
	l := NewPriorityLadder()
	x := &Request{ID: "X", Priority: 2, ArrivalTime: 0}
	y := &Request{ID: "Y", Priority: 2, ArrivalTime: 0}
	l.PushBack(x)
	l.PushBack(y)

	promoteStarved(l, 1000, 100)

	// THEN both are promoted to priority 0, in their original (pop) order
	if x.Priority != 0 || y.Priority != 0 {
		t.Fatalf("expected both promoted to priority 0, got x=%d y=%d", x.Priority, y.Priority)
	}
	first := l.PopFront()
	second := l.PopFront()
	if first != x || second != y {
		t.Errorf("expected drain order [X, Y], got [%v, %v]", first.ID, second.ID)
	}
}

func TestRunStarvationGuard_AppliesToBothWaitingAndSwapped(t *testing.T) {
	cfg := NewSchedulerConfig(8, 2048, 2048, 2048)
	cfg.StarvationThreshold = 100
	bm := newFakeBlockManager()
	s := newTestScheduler(cfg, bm, 1000)

	w := &Request{ID: "w", Priority: 4, ArrivalTime: 0}
	sw := &Request{ID: "sw", Priority: 4, ArrivalTime: 0}
	s.waiting.PushBack(w)
	s.swapped.PushBack(sw)

	s.runStarvationGuard(1000)

	if w.Priority != 0 || s.waiting.PeekFront() != w {
		t.Errorf("expected waiting request promoted to head of Q[0]")
	}
	if sw.Priority != 0 || s.swapped.PeekFront() != sw {
		t.Errorf("expected swapped request promoted to head of Q[0]")
	}
}
