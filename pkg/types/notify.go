package types

// Notification is a side effect produced by a data store mutation that the
// caller must deliver to other ranks: wake a rank parked on Subscribe, fill
// a pending container reference, or cascade-decrement a referand's
// refcount (spec §4.2 "Notifications").
type Notification struct {
	Kind NotificationKind

	// Rank is the destination for KindClose / KindSubscript.
	Rank int64

	// DatumID is the datum the notification concerns.
	DatumID int64

	// Subscript is set for KindSubscript and KindReferenceWrite.
	Subscript []byte

	// ReferenceWrite names the bound ref id/type to store Value into
	// (spec §4.1 "Container reference" resolution, performed via Store).
	ReferenceWrite ContainerReference

	// Value is the resolved value to deliver for KindReferenceWrite.
	Value Value

	// Referand is set for KindReferandDecr: a datum id whose read
	// refcount should be decremented as part of destruction cascade.
	Referand int64
}

// NotificationKind distinguishes the notification variants produced by
// datastore mutations (spec §4.2).
type NotificationKind int

const (
	// KindClose wakes a rank parked on Subscribe(id) because the datum
	// with DatumID was just Set.
	KindClose NotificationKind = iota
	// KindSubscript wakes a rank parked on a container subscript that
	// just received a filled entry.
	KindSubscript
	// KindReferenceWrite delivers a Container_reference promise: store
	// Value into ReferenceWrite.RefID.
	KindReferenceWrite
	// KindReferandDecr cascades a read-refcount decrement onto Referand
	// as part of a destroyed datum's teardown.
	KindReferandDecr
)
