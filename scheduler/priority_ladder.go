// Implements PriorityLadder, the ordered array of per-priority FIFO queues
// shared by the waiting and swapped pools. Adapted from the teacher's flat
// WaitQueue (sim/queue.go) and the original MLFQScheduler's Priority_Queues
// (original_source/vllm/core/mlfq_scheduler.py), generalized to an explicit
// multi-level ladder.

package scheduler

// PriorityLadder is an ordered list of FIFO queues Q[0..K], indexed by
// integer priority (smaller = higher priority, popped first). New levels
// are appended lazily as requests need them.
//
// Invariant: a Request in Q[i] always has Priority == i. Mutating a
// Request's Priority while it resides in the ladder violates this
// invariant; callers must RemoveByID then PushBack/PushFront to change
// priority.
type PriorityLadder struct {
	queues [][]*Request
}

// NewPriorityLadder returns an empty ladder.
func NewPriorityLadder() *PriorityLadder {
	return &PriorityLadder{}
}

// ensureLevel grows queues so that index priority is addressable.
func (l *PriorityLadder) ensureLevel(priority int) {
	for len(l.queues) <= priority {
		l.queues = append(l.queues, nil)
	}
}

// PushBack appends r to the back of its priority level's queue.
func (l *PriorityLadder) PushBack(r *Request) {
	l.ensureLevel(r.Priority)
	l.queues[r.Priority] = append(l.queues[r.Priority], r)
}

// PushFront prepends r to the front of its priority level's queue.
func (l *PriorityLadder) PushFront(r *Request) {
	l.ensureLevel(r.Priority)
	l.queues[r.Priority] = append([]*Request{r}, l.queues[r.Priority]...)
}

// PopFront scans from the lowest priority index up and returns/removes the
// head of the first non-empty queue. Returns nil if the ladder is empty.
func (l *PriorityLadder) PopFront() *Request {
	for i, q := range l.queues {
		if len(q) > 0 {
			r := q[0]
			l.queues[i] = q[1:]
			return r
		}
	}
	return nil
}

// PeekFront returns (without removing) the head of the first non-empty
// queue, or nil if the ladder is empty.
func (l *PriorityLadder) PeekFront() *Request {
	for _, q := range l.queues {
		if len(q) > 0 {
			return q[0]
		}
	}
	return nil
}

// ExtendFront prepends each element of reqs at the head of its own priority
// queue, iterating in reverse so that reqs[0] ends up at the very head of
// its level once every element has been reinserted. Callers build reqs in
// the chronological order requests were set aside (earliest-skipped first);
// ExtendFront restores that order at the front of the ladder.
func (l *PriorityLadder) ExtendFront(reqs []*Request) {
	for i := len(reqs) - 1; i >= 0; i-- {
		l.PushFront(reqs[i])
	}
}

// RemoveByID linear-scans every queue and removes at most one matching
// Request. Returns the removed Request, or nil if not found.
func (l *PriorityLadder) RemoveByID(id string) *Request {
	for i, q := range l.queues {
		for j, r := range q {
			if r.ID == id {
				l.queues[i] = append(q[:j:j], q[j+1:]...)
				return r
			}
		}
	}
	return nil
}

// Len returns the total number of requests across all priority levels.
func (l *PriorityLadder) Len() int {
	n := 0
	for _, q := range l.queues {
		n += len(q)
	}
	return n
}

// TopWindowCount returns the number of requests at the lowest non-empty
// priority level plus the next w-1 levels, without draining the ladder.
// The admission and swap-in loops in this package do not call it.
func (l *PriorityLadder) TopWindowCount(w int) int {
	for start, q := range l.queues {
		if len(q) == 0 {
			continue
		}
		count := 0
		for i := 0; i < w && start+i < len(l.queues); i++ {
			count += len(l.queues[start+i])
		}
		return count
	}
	return 0
}

// drainLevel removes and returns every request at a given priority level,
// leaving that level empty. Used by the starvation guard, which must
// inspect every entry in every level.
func (l *PriorityLadder) drainLevel(priority int) []*Request {
	if priority >= len(l.queues) {
		return nil
	}
	q := l.queues[priority]
	l.queues[priority] = nil
	return q
}

// Levels returns the number of priority levels currently allocated
// (including empty trailing ones created by ensureLevel).
func (l *PriorityLadder) Levels() int {
	return len(l.queues)
}
