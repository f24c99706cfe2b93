// Package workqueue implements the work queue, request queue and matcher of
// spec §4.3: PUT/GET/IGET handling, parallel task matching, and the
// per-type counts that drive idle detection and work stealing.
//
// The event-loop-per-server assumption of spec §5 means everything here
// runs single-threaded; none of these types use internal locking, matching
// the teacher's scheduler in
// _examples/cuemby-warren/pkg/scheduler/scheduler.go, which likewise drives
// its priority queue from one goroutine's ticker loop.
package workqueue

import "github.com/cuemby/xlb/pkg/types"

// AnyTarget marks an untargeted work unit (spec §4.3 "target == ANY").
const AnyTarget int64 = -1

// typeBucket holds one work type's queued units, split per spec §4.3 into
// targeted-per-rank buckets, an untargeted pool, and a side-table of
// parallel tasks.
type typeBucket struct {
	untargeted []*types.WorkUnit
	targeted   map[int64][]*types.WorkUnit
	parallel   []*types.WorkUnit
}

func newTypeBucket() *typeBucket {
	return &typeBucket{targeted: make(map[int64][]*types.WorkUnit)}
}

func (b *typeBucket) count() int {
	n := len(b.untargeted) + len(b.parallel)
	for _, l := range b.targeted {
		n += len(l)
	}
	return n
}

// WorkQueue is the server's work queue, indexed by type (spec §4.3 "Work
// queue").
type WorkQueue struct {
	types map[int32]*typeBucket
}

// New creates an empty WorkQueue.
func New() *WorkQueue {
	return &WorkQueue{types: make(map[int32]*typeBucket)}
}

func (q *WorkQueue) bucket(typ int32) *typeBucket {
	b, ok := q.types[typ]
	if !ok {
		b = newTypeBucket()
		q.types[typ] = b
	}
	return b
}

// insertOrdered inserts w into list, keeping (priority desc, timestamp asc)
// order (spec §4.3 "Tie-breaks").
func insertOrdered(list []*types.WorkUnit, w *types.WorkUnit) []*types.WorkUnit {
	i := 0
	for ; i < len(list); i++ {
		if less(w, list[i]) {
			break
		}
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = w
	return list
}

// less reports whether a should be dequeued before b: higher priority
// first, then earlier timestamp (spec §4.3 "Tie-breaks").
func less(a, b *types.WorkUnit) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Timestamp < b.Timestamp
}

// Put enqueues w (spec §4.3 PUT step 3, "miss" path: assign a unique work
// id and enqueue" — id assignment is the caller's responsibility, e.g. via
// pkg/datastore.Store.Unique).
func (q *WorkQueue) Put(w *types.WorkUnit) {
	b := q.bucket(w.WorkType)
	switch {
	case w.Parallel():
		b.parallel = append(b.parallel, w)
	case w.Target != AnyTarget:
		b.targeted[w.Target] = insertOrdered(b.targeted[w.Target], w)
	default:
		b.untargeted = insertOrdered(b.untargeted, w)
	}
}

// PopForRank pops the best match for a GET from rank of the given type:
// first a unit targeted to this rank, else the highest-priority untargeted
// unit (spec §4.3 "GET handling" step 1).
func (q *WorkQueue) PopForRank(typ int32, rank int64) (*types.WorkUnit, bool) {
	b, ok := q.types[typ]
	if !ok {
		return nil, false
	}
	if list := b.targeted[rank]; len(list) > 0 {
		w := list[0]
		b.targeted[rank] = list[1:]
		return w, true
	}
	if len(b.untargeted) > 0 {
		w := b.untargeted[0]
		b.untargeted = b.untargeted[1:]
		return w, true
	}
	return nil, false
}

// PeekParallel returns the oldest parallel task of typ without removing it,
// used by the matcher to check whether enough parked ranks have
// accumulated yet.
func (q *WorkQueue) PeekParallel(typ int32) (*types.WorkUnit, bool) {
	b, ok := q.types[typ]
	if !ok || len(b.parallel) == 0 {
		return nil, false
	}
	return b.parallel[0], true
}

// PopParallel removes and returns the oldest parallel task of typ.
func (q *WorkQueue) PopParallel(typ int32) (*types.WorkUnit, bool) {
	b, ok := q.types[typ]
	if !ok || len(b.parallel) == 0 {
		return nil, false
	}
	w := b.parallel[0]
	b.parallel = b.parallel[1:]
	return w, true
}

// CountQueued returns the number of queued units of typ (targeted,
// untargeted and parallel), for idle detection and steal decisions (spec
// §4.3 "Counts").
func (q *WorkQueue) CountQueued(typ int32) int {
	b, ok := q.types[typ]
	if !ok {
		return 0
	}
	return b.count()
}

// StealableUntargeted removes up to n untargeted units of typ for transfer
// to a peer (spec §4.5: "targeted-to-specific-workers tasks are not
// stolen"). Parallel tasks are likewise left in place since they require
// this server's own parked-rank accounting.
func (q *WorkQueue) StealableUntargeted(typ int32, n int) []*types.WorkUnit {
	b, ok := q.types[typ]
	if !ok || n <= 0 {
		return nil
	}
	if n > len(b.untargeted) {
		n = len(b.untargeted)
	}
	taken := b.untargeted[:n]
	b.untargeted = b.untargeted[n:]
	out := make([]*types.WorkUnit, n)
	copy(out, taken)
	return out
}

// Empty reports whether every type bucket is currently empty, used by
// idle-shutdown detection (spec §4.5's idle-detection half mirrored
// server-side).
func (q *WorkQueue) Empty() bool {
	for _, b := range q.types {
		if b.count() > 0 {
			return false
		}
	}
	return true
}

// UntargetedCounts reports, per type, the number of stealable (untargeted)
// units currently queued and their average payload size in bytes. This is
// the "per-type counts" a server reports to a peer's STEAL request (spec
// §4.5).
func (q *WorkQueue) UntargetedCounts() []TypeCount {
	var out []TypeCount
	for typ, b := range q.types {
		if len(b.untargeted) == 0 {
			continue
		}
		var total int64
		for _, w := range b.untargeted {
			total += int64(len(w.Payload))
		}
		out = append(out, TypeCount{
			WorkType: typ,
			Count:    len(b.untargeted),
			AvgBytes: total / int64(len(b.untargeted)),
		})
	}
	return out
}

// TypeCount is one work type's stealable count and average payload size.
type TypeCount struct {
	WorkType int32
	Count    int
	AvgBytes int64
}

// DepthByKind reports, for every work type with queued units, the count in
// each of the three buckets (spec §4.3), for metrics collection (pkg/metrics
// QueueDepth).
func (q *WorkQueue) DepthByKind() map[int32]struct{ Untargeted, Targeted, Parallel int } {
	out := make(map[int32]struct{ Untargeted, Targeted, Parallel int })
	for typ, b := range q.types {
		targeted := 0
		for _, l := range b.targeted {
			targeted += len(l)
		}
		out[typ] = struct{ Untargeted, Targeted, Parallel int }{
			Untargeted: len(b.untargeted),
			Targeted:   targeted,
			Parallel:   len(b.parallel),
		}
	}
	return out
}
