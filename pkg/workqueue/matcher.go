package workqueue

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// PutOutcome reports how a PUT was handled (spec §4.3 "PUT handling").
type PutOutcome int

const (
	// PutRedirect means a parked rank matched immediately; the task never
	// enters the work queue. Matcher.Put returns the recipient rank(s).
	PutRedirect PutOutcome = iota
	// PutQueued means no match was found and the unit was enqueued.
	PutQueued
)

// Matcher wires a WorkQueue and RequestQueue together to implement PUT,
// GET and IGET (spec §4.3).
type Matcher struct {
	Work     *WorkQueue
	Requests *RequestQueue
}

// NewMatcher creates a Matcher over fresh queues.
func NewMatcher() *Matcher {
	return &Matcher{Work: New(), Requests: NewRequestQueue()}
}

// Put implements spec §4.3 "PUT handling" and "Parallel PUT". On
// PutRedirect, ranks holds the one or more matched worker ranks (more than
// one only for a parallel task); the caller sends the unit to each of them
// as a WORKUNIT message with an ordinary (not synchronous) send, and the
// unit never enters the work queue.
func (m *Matcher) Put(w *types.WorkUnit) (outcome PutOutcome, ranks []int64, err error) {
	if w.WorkType < 0 {
		return PutQueued, nil, xlberr.New("workqueue.Put", xlberr.Error, xlberr.Invalid, "invalid work type")
	}

	if w.Parallel() {
		if got, ok := m.Requests.PopNForParallel(w.WorkType, w.Parallelism); ok {
			return PutRedirect, got, nil
		}
		m.Work.Put(w)
		return PutQueued, nil, nil
	}

	if w.Target != AnyTarget {
		if m.Requests.HasRank(w.Target, w.WorkType) {
			m.Requests.PopRank(w.Target)
			return PutRedirect, []int64{w.Target}, nil
		}
		m.Work.Put(w)
		return PutQueued, nil, nil
	}

	if rank, ok := m.Requests.PopForType(w.WorkType); ok {
		return PutRedirect, []int64{rank}, nil
	}
	m.Work.Put(w)
	return PutQueued, nil, nil
}

// Get implements spec §4.3 "GET handling": pop a matching unit for rank, or
// park rank if there is no match (Get itself does not block; pkg/rpcserver
// acknowledges the park at once with a Nothing-coded response and sends the
// unit as a WORKUNIT message once one matches).
func (m *Matcher) Get(rank int64, workType int32) (*types.WorkUnit, bool) {
	if w, ok := m.Work.PopForRank(workType, rank); ok {
		return w, true
	}
	m.Requests.Park(rank, workType, 1)
	return nil, false
}

// IGet implements spec §4.3's IGET: identical to Get except it never parks
// on a miss, so the caller can reply NOTHING immediately.
func (m *Matcher) IGet(rank int64, workType int32) (*types.WorkUnit, bool) {
	return m.Work.PopForRank(workType, rank)
}

// RetryParallel re-attempts matching a parallel task of workType after new
// ranks have parked (spec §4.3 scenario S4: the task releases once enough
// workers accumulate). Callers invoke this after every Get/IGet park of a
// rank whose type has pending parallel work.
func (m *Matcher) RetryParallel(workType int32) (w *types.WorkUnit, ranks []int64, matched bool) {
	w, ok := m.Work.PeekParallel(workType)
	if !ok {
		return nil, nil, false
	}
	got, ok := m.Requests.PopNForParallel(workType, w.Parallelism)
	if !ok {
		return nil, nil, false
	}
	m.Work.PopParallel(workType)
	return w, got, true
}
