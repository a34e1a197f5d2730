// Package des implements the simulator's event scheduler: a monotonic
// simulated clock driven by a stable min-heap on (time, seq).
package des

import (
	"container/heap"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aifabric/netsim/internal/simerrors"
)

// Action is the code run when a scheduled event is dequeued. It receives the
// Scheduler so it may enqueue further events, including at the current time.
type Action func(s *Scheduler) error

// event is one entry in the priority queue: a (time, seq, action) triple, per
// spec.md's Data Model. seq is assigned at enqueue time and used only to
// break ties between events scheduled for the same time.
type event struct {
	time   float64
	seq    uint64
	action Action
}

// eventHeap is a min-heap on (time, seq), mirroring the residual-service heap
// in the teacher's scheduler.go (reqSrvHeap): a slice type with the five
// container/heap methods, ordered by the field that must be minimized.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Scheduler is the DES engine: a monotonic clock plus a stable priority
// queue of pending events. It is single-owner and not safe for concurrent
// use — the simulation model is single-threaded by design (spec.md §5).
type Scheduler struct {
	queue       eventHeap
	currentTime float64
	nextSeq     uint64
	started     bool
}

// New constructs an empty Scheduler with its clock at zero.
func New() *Scheduler {
	s := &Scheduler{queue: make(eventHeap, 0)}
	heap.Init(&s.queue)
	return s
}

// CurrentTime returns the last dequeued event's time, or 0 before Run starts.
func (s *Scheduler) CurrentTime() float64 {
	return s.currentTime
}

// Pending reports how many events remain in the queue, for diagnostics
// (e.g. reporting a stalled run per spec.md §7).
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Schedule enqueues action to run at CurrentTime()+delaySeconds. A negative
// delay is a programming error and must fail loudly, per spec.md §4.1.
func (s *Scheduler) Schedule(delaySeconds float64, action Action) error {
	if delaySeconds < 0 {
		return simerrors.NewInvariantError("negative-delay",
			fmt.Sprintf("delay %g scheduled at time %g", delaySeconds, s.currentTime))
	}
	if action == nil {
		return errors.New("des: nil action scheduled")
	}
	s.nextSeq++
	heap.Push(&s.queue, &event{time: s.currentTime + delaySeconds, seq: s.nextSeq, action: action})
	return nil
}

// MustSchedule is Schedule for call sites that have already validated
// delaySeconds and want the invariant enforced with a panic rather than a
// propagated error — used from within event actions where returning the
// error is the idiomatic path but a negative delay there indicates a bug in
// the calling component, not a runtime condition.
func (s *Scheduler) MustSchedule(delaySeconds float64, action Action) {
	if err := s.Schedule(delaySeconds, action); err != nil {
		panic(err)
	}
}

// Run drains the queue in (time, seq) order until it is empty. current_time
// advances to each dequeued event's time before the action executes, so an
// action observing CurrentTime() sees its own scheduled time. If an action
// returns an error the run stops immediately and that error is returned,
// per spec.md §4.1's "the scheduler does not swallow them."
func (s *Scheduler) Run() error {
	s.started = true
	for s.queue.Len() > 0 {
		next := heap.Pop(&s.queue).(*event)
		if next.time < s.currentTime {
			return errors.Errorf("des: invariant violation, event time %g precedes current time %g", next.time, s.currentTime)
		}
		s.currentTime = next.time
		if err := next.action(s); err != nil {
			return fmt.Errorf("des: action at t=%g failed: %w", s.currentTime, err)
		}
	}
	return nil
}
