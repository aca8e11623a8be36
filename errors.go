package kvpool

// StateError reports a lifecycle violation: an operation was issued before a
// pool was configured, or the blocking client was initialized twice. These are
// programming-sequence errors, never transient; retrying without fixing the
// call order will fail again.
//
// Status is a transport-agnostic hint for boundary layers that translate
// lifecycle errors into responses. The core never interprets it.
type StateError struct {
	Reason string
	Status int
}

func (e *StateError) Error() string { return e.Reason }

var (
	// ErrNotInitialized is returned when an operation runs before the pool
	// has been configured (or after it was closed).
	ErrNotInitialized = &StateError{
		Reason: "kvpool: not initialized, configure the pool first",
		Status: 404,
	}

	// ErrAlreadyInitialized is returned by a second Initialize on the
	// blocking client while a live client exists.
	ErrAlreadyInitialized = &StateError{
		Reason: "kvpool: already initialized",
		Status: 404,
	}
)
