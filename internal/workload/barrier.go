package workload

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aifabric/netsim/internal/des"
	"github.com/aifabric/netsim/internal/simerrors"
)

// Join is a rendezvous over a set of flow ids: OnDone fires exactly once,
// the instant the last pending flow id is signaled. Grounded on
// original_source's core/schedule.py Join/BarrierBookkeeper, translated
// from Python's mutable-set-plus-dict-of-joins pattern into an explicit
// Go type with a fired guard (spec.md §9 "Barrier storage": pending set
// plus an idempotent-guard boolean). OnDone takes the scheduler handling
// the signal that completed it, since every call site already has one.
type Join struct {
	pending map[int]struct{}
	fired   bool
	OnDone  func(s *des.Scheduler) error
}

// NewJoin builds a Join awaiting every id in flowIDs.
func NewJoin(flowIDs []int, onDone func(s *des.Scheduler) error) *Join {
	pending := make(map[int]struct{}, len(flowIDs))
	for _, id := range flowIDs {
		pending[id] = struct{}{}
	}
	return &Join{pending: pending, OnDone: onDone}
}

// Signal marks flowID complete. If it empties the pending set, OnDone
// fires. Firing twice is an invariant violation (spec.md §7 "barrier fired
// twice") and returns an error rather than silently double-firing.
func (j *Join) Signal(s *des.Scheduler, flowID int) error {
	if _, ok := j.pending[flowID]; !ok {
		return nil
	}
	delete(j.pending, flowID)
	if len(j.pending) > 0 {
		return nil
	}
	if j.fired {
		return simerrors.NewInvariantError("barrier-fired-twice",
			fmt.Sprintf("join fired twice for flow %d", flowID))
	}
	j.fired = true
	return j.OnDone(s)
}

// Pending returns the still-outstanding flow ids, used to report a stalled
// barrier at run end (spec.md §7 "Stalled run").
func (j *Join) Pending() []int {
	ids := make([]int, 0, len(j.pending))
	for id := range j.pending {
		ids = append(ids, id)
	}
	return ids
}

// AtRiskSet records which barriers (by join name) have been flagged
// unreachable by a proactive drop notification (SPEC_FULL.md §14's Open Question
// decision #2), without itself tracking why.
type AtRiskSet struct {
	flagged map[string]bool
}

// NewAtRiskSet constructs an empty set.
func NewAtRiskSet() *AtRiskSet {
	return &AtRiskSet{flagged: make(map[string]bool)}
}

// Flag marks the named barrier at risk; idempotent.
func (r *AtRiskSet) Flag(name string) {
	r.flagged[name] = true
}

// IsAtRisk reports whether name has been flagged.
func (r *AtRiskSet) IsAtRisk(name string) bool {
	return r.flagged[name]
}

// Barrier registry: tracks every live Join by name, and routes
// flow-completion signals to whichever joins are waiting on that flow id.
// Grounded on BarrierBookkeeper in original_source/core/schedule.py.
type Barrier struct {
	joins map[string]*Join
}

// NewBarrier constructs an empty registry.
func NewBarrier() *Barrier {
	return &Barrier{joins: make(map[string]*Join)}
}

// Add registers a Join under name. Reusing a live name is a programming
// error.
func (b *Barrier) Add(name string, j *Join) error {
	if _, exists := b.joins[name]; exists {
		return errors.Errorf("workload: join name already in use: %s", name)
	}
	b.joins[name] = j
	return nil
}

// OnFlowComplete signals flowID to every join currently tracking it, then
// forgets any join that fired as a result.
func (b *Barrier) OnFlowComplete(s *des.Scheduler, flowID int) error {
	for name, j := range b.joins {
		if _, waiting := j.pending[flowID]; !waiting {
			continue
		}
		if err := j.Signal(s, flowID); err != nil {
			return err
		}
		if j.fired {
			delete(b.joins, name)
		}
	}
	return nil
}

// Unfinished lists every join still pending, for stalled-run reporting.
func (b *Barrier) Unfinished() map[string][]int {
	out := make(map[string][]int, len(b.joins))
	for name, j := range b.joins {
		out[name] = j.Pending()
	}
	return out
}
