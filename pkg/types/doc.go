// Package types defines the core data model shared by the data store, the
// work/request queues, the checkpoint log and the wire layer: typed values,
// datums, containers, work units and parked requests.
//
// These types carry no behavior of their own beyond small invariant-checking
// helpers; the operations that mutate them live in pkg/datastore and
// pkg/workqueue so that ownership of the single-threaded per-server state
// stays in one place (see spec §5, "Execution model").
package types
