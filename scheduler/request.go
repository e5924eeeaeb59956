// Defines the Request (SequenceGroup) and Sequence types that model an
// individual inference job and its token streams through the scheduler.

package scheduler

import "fmt"

// SequenceStatus is the lifecycle state of a single token stream.
type SequenceStatus string

const (
	SeqWaiting         SequenceStatus = "waiting"
	SeqRunning         SequenceStatus = "running"
	SeqSwapped         SequenceStatus = "swapped"
	SeqFinishedStopped SequenceStatus = "finished_stopped"
	SeqFinishedAborted SequenceStatus = "finished_aborted"
	SeqFinishedIgnored SequenceStatus = "finished_ignored"
)

// IsFinished reports whether status is one of the FINISHED_* terminal states.
func (s SequenceStatus) IsFinished() bool {
	switch s {
	case SeqFinishedStopped, SeqFinishedAborted, SeqFinishedIgnored:
		return true
	default:
		return false
	}
}

// Sequence is a single token stream belonging to a Request. Beam search and
// parallel sampling (best_of > 1) give a Request more than one Sequence once
// it leaves the prompt phase; a freshly admitted Request has exactly one.
type Sequence struct {
	ID        string
	Status    SequenceStatus
	PromptLen int // number of prompt tokens, fixed at creation
	NumOutput int // number of tokens generated so far
}

// Len returns the total number of tokens (prompt + generated) in the sequence.
func (s *Sequence) Len() int {
	return s.PromptLen + s.NumOutput
}

// SamplingParams carries the subset of request-level sampling configuration
// the scheduler itself needs to reason about.
type SamplingParams struct {
	BestOf        int
	UseBeamSearch bool
	MaxTokens     int
}

// Request (vLLM's SequenceGroup) is one logical inference job, owning one or
// more Sequences. Exactly one of {waiting, running, swapped, finished} holds
// a Request at any time; membership is tracked by the registry, not by the
// Request itself, but Bucket mirrors it for observability and invariant
// tests.
type Request struct {
	ID             string
	ArrivalTime    int64 // monotonic clock, microseconds; refreshed by demotion
	Priority       int   // smaller = higher priority; 0 after starvation promotion
	SamplingParams SamplingParams
	AdapterID      int // 0 = no LoRA adapter
	Sequences      []*Sequence

	Bucket             Bucket
	FirstScheduledTime int64 // wall-clock metadata annotation, set once
}

// Bucket names which pool currently owns a Request.
type Bucket int

const (
	BucketWaiting Bucket = iota
	BucketRunning
	BucketSwapped
	BucketFinished
)

func (b Bucket) String() string {
	switch b {
	case BucketWaiting:
		return "waiting"
	case BucketRunning:
		return "running"
	case BucketSwapped:
		return "swapped"
	case BucketFinished:
		return "finished"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// MaxNumRunningSeqs returns how many sequences this request can occupy in
// the RUNNING state concurrently: BestOf under beam search, the live
// sequence count otherwise (at least 1).
func (r *Request) MaxNumRunningSeqs() int {
	if r.SamplingParams.UseBeamSearch {
		if r.SamplingParams.BestOf > 0 {
			return r.SamplingParams.BestOf
		}
		return 1
	}
	n := 0
	for _, s := range r.Sequences {
		if !s.Status.IsFinished() {
			n++
		}
	}
	if n > 0 {
		return n
	}
	return 1
}

// InputLen returns the prompt length of the request's sole prompt-phase
// sequence. Callers must only use this before a request leaves the prompt
// phase (see WaitingSeqs/the admission controller's single-WAITING-seq
// invariant).
func (r *Request) InputLen() int {
	if len(r.Sequences) == 0 {
		return 0
	}
	return r.Sequences[0].PromptLen
}

// seqsWithStatus returns the subset of sequences currently in status.
func (r *Request) seqsWithStatus(status SequenceStatus) []*Sequence {
	var out []*Sequence
	for _, s := range r.Sequences {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// WaitingSeqs returns sequences in the WAITING state.
func (r *Request) WaitingSeqs() []*Sequence { return r.seqsWithStatus(SeqWaiting) }

// RunningSeqs returns sequences in the RUNNING state.
func (r *Request) RunningSeqs() []*Sequence { return r.seqsWithStatus(SeqRunning) }

// SwappedSeqs returns sequences in the SWAPPED state.
func (r *Request) SwappedSeqs() []*Sequence { return r.seqsWithStatus(SeqSwapped) }

// IsFinished reports whether every sequence owned by the request has
// reached a terminal state.
func (r *Request) IsFinished() bool {
	for _, s := range r.Sequences {
		if !s.Status.IsFinished() {
			return false
		}
	}
	return len(r.Sequences) > 0
}

// NewPromptRequest builds a Request in its initial prompt-phase shape: one
// WAITING sequence of promptLen tokens.
func NewPromptRequest(id string, arrivalTime int64, promptLen int, params SamplingParams, adapterID int) *Request {
	return &Request{
		ID:             id,
		ArrivalTime:    arrivalTime,
		Priority:       0,
		SamplingParams: params,
		AdapterID:      adapterID,
		Sequences: []*Sequence{
			{ID: id + "-0", Status: SeqWaiting, PromptLen: promptLen},
		},
		Bucket: BucketWaiting,
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("Request{id=%s priority=%d bucket=%s}", r.ID, r.Priority, r.Bucket)
}
