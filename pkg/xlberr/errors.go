// Package xlberr defines the error taxonomy shared by every layer of the
// runtime: the broad outcome kinds a caller can branch on, plus the
// data-store sub-kinds that refine Rejected/Error outcomes.
package xlberr

import (
	"errors"
	"fmt"
)

// Kind is the broad outcome of an operation, mirrored from the core's
// Success/Rejected/Shutdown/Nothing/Retry/Done/Error taxonomy.
type Kind int

const (
	Success Kind = iota
	Rejected
	Shutdown
	Nothing
	Retry
	Done
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case Shutdown:
		return "shutdown"
	case Nothing:
		return "nothing"
	case Retry:
		return "retry"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Sub refines a Rejected or Error outcome with a data-layer specific reason.
type Sub int

const (
	None Sub = iota
	OOM
	DoubleDeclare
	DoubleWrite
	Unset
	NotFound
	SubscriptNotFound
	NumberFormat
	Invalid
	Null
	Type
	RefcountNegative
	Limit
	BufferTooSmall
	SubDone
	Unknown
)

func (s Sub) String() string {
	switch s {
	case None:
		return "none"
	case OOM:
		return "oom"
	case DoubleDeclare:
		return "double-declare"
	case DoubleWrite:
		return "double-write"
	case Unset:
		return "unset"
	case NotFound:
		return "not-found"
	case SubscriptNotFound:
		return "subscript-not-found"
	case NumberFormat:
		return "number-format"
	case Invalid:
		return "invalid"
	case Null:
		return "null"
	case Type:
		return "type"
	case RefcountNegative:
		return "refcount-negative"
	case Limit:
		return "limit"
	case BufferTooSmall:
		return "buffer-too-small"
	case SubDone:
		return "done"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by core operations. Handlers at
// the RPC boundary translate it into a wire status code; internal callers
// use errors.Is / errors.As against the Kind and Sub fields.
type Error struct {
	Kind Kind
	Sub  Sub
	Op   string // operation that failed, e.g. "datastore.Store"
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s (%s/%s)", e.Op, e.Msg, e.Kind, e.Sub)
	}
	return fmt.Sprintf("%s: %s/%s", e.Op, e.Kind, e.Sub)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind and Sub. This
// lets callers write errors.Is(err, xlberr.New("", Rejected, DoubleWrite, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Sub == t.Sub
}

// New constructs an *Error. op names the failing operation for diagnostics.
func New(op string, kind Kind, sub Sub, msg string) *Error {
	return &Error{Op: op, Kind: kind, Sub: sub, Msg: msg}
}

// Wrap constructs an *Error around an underlying cause.
func Wrap(op string, kind Kind, sub Sub, err error) *Error {
	return &Error{Op: op, Kind: kind, Sub: sub, Err: err, Msg: err.Error()}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to Error for anything else so callers can always branch on a Kind.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Error
}
