package types

// WorkUnit is a unit of work submitted by Put, waiting in the work queue or
// in flight to a worker (spec §3 "Work unit", §4.3 "Work queue").
type WorkUnit struct {
	ID int64

	// WorkType partitions the work queue and the request queue; a worker
	// only matches work units of types it registered for.
	WorkType int32

	// Putter is the rank that submitted the unit; Answer, if >= 0, is the
	// rank waiting on its completion notification.
	Putter int64
	Answer int64

	// Target is the rank this work is pinned to, or -1 for untargeted
	// work that any idle worker of the right type may take (spec §4.3
	// "Targeting").
	Target int64

	// Priority and Timestamp break ties in matching order: higher
	// priority first, then earlier timestamp (spec §4.3 "Ordering").
	Priority  int32
	Timestamp int64

	// Parallelism is the number of workers that must be parked together
	// before this unit can be handed out (spec §4.3 "Parallel tasks"); 1
	// for an ordinary task.
	Parallelism int32

	Payload []byte
}

// Untargeted reports whether w may be matched to any worker of its type.
func (w *WorkUnit) Untargeted() bool { return w.Target < 0 }

// Parallel reports whether w requires more than one parked worker.
func (w *WorkUnit) Parallel() bool { return w.Parallelism > 1 }

// ParkedRequest is a worker's outstanding Get/Iget, waiting in the request
// queue for a matching work unit (spec §3 "Parked request", §4.3 "Request
// queue").
type ParkedRequest struct {
	Rank     int64
	WorkType int32

	// Parallelism, if > 1, restricts this park slot to parallel tasks of
	// exactly that width; a plain request sets it to 1.
	Parallelism int32
}
