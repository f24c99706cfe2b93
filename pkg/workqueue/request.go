package workqueue

// ParkedInfo is the side-table entry for a parked rank (spec §4.3 "Request
// queue": "a side-table maps rank → (type, parallelism demand)").
type ParkedInfo struct {
	WorkType    int32
	Parallelism int32
}

// RequestQueue is the server's request queue, indexed by (type, rank) (spec
// §4.3 "Request queue"): a per-type FIFO of parked ranks, plus the
// rank→info side-table for O(1) removal and targeted lookup.
type RequestQueue struct {
	byType map[int32][]int64
	byRank map[int64]ParkedInfo
}

// NewRequestQueue creates an empty RequestQueue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{
		byType: make(map[int32][]int64),
		byRank: make(map[int64]ParkedInfo),
	}
}

// Park records rank as waiting for work of the given type (and, for
// parallel requests, parallelism demand).
func (q *RequestQueue) Park(rank int64, workType, parallelism int32) {
	if parallelism < 1 {
		parallelism = 1
	}
	q.byType[workType] = append(q.byType[workType], rank)
	q.byRank[rank] = ParkedInfo{WorkType: workType, Parallelism: parallelism}
}

// Remove un-parks rank, e.g. once it has been matched or shut down.
func (q *RequestQueue) Remove(rank int64) {
	info, ok := q.byRank[rank]
	if !ok {
		return
	}
	delete(q.byRank, rank)
	list := q.byType[info.WorkType]
	for i, r := range list {
		if r == rank {
			q.byType[info.WorkType] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// PopForType removes and returns the oldest rank parked on workType.
func (q *RequestQueue) PopForType(workType int32) (int64, bool) {
	list := q.byType[workType]
	if len(list) == 0 {
		return 0, false
	}
	rank := list[0]
	q.byType[workType] = list[1:]
	delete(q.byRank, rank)
	return rank, true
}

// HasRank reports whether rank is a specific targeted request parked for
// workType, used by the PUT redirect path's matches_target check.
func (q *RequestQueue) HasRank(rank int64, workType int32) bool {
	info, ok := q.byRank[rank]
	return ok && info.WorkType == workType
}

// PopRank removes a specific parked rank (used by the PUT redirect path
// once matches_target finds it).
func (q *RequestQueue) PopRank(rank int64) {
	q.Remove(rank)
}

// CountParked returns the number of ranks parked on workType.
func (q *RequestQueue) CountParked(workType int32) int {
	return len(q.byType[workType])
}

// Empty reports whether no rank is currently parked, used by idle-shutdown
// detection alongside WorkQueue.Empty.
func (q *RequestQueue) Empty() bool {
	return len(q.byRank) == 0
}

// PopNForParallel removes and returns the n oldest parked ranks of
// workType, or ok=false if fewer than n are currently parked (spec §4.3
// "Parallel PUT": "matches only when the request queue contains ≥
// parallelism parked ranks of its type"). The team is formed FIFO; it is
// the matched workers' own responsibility to form an intra-team
// communicator from the rank list the server returns.
func (q *RequestQueue) PopNForParallel(workType int32, n int32) ([]int64, bool) {
	list := q.byType[workType]
	if int32(len(list)) < n {
		return nil, false
	}
	out := append([]int64(nil), list[:n]...)
	for _, r := range out {
		q.Remove(r)
	}
	return out, true
}
