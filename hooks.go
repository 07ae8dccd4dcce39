package gridcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Cache handles call them on every operation.
type Hooks interface {
	// The Directory built its own manager from the config resource.
	ManagerCreated(locator string)

	// Stopping an owned manager failed during Destroy (the error is not returned).
	ManagerStopFailed(err error)

	// A cache was resolved by name; created is true when the owned manager
	// did not know the name yet.
	CacheResolved(cache string, created bool)

	// A Get finished; hit is false on miss/expiry. The reads Put and Remove
	// make for the previous value are not reported.
	Lookup(cache string, hit bool)

	// The store returned ok=false on Put (backpressure/admission).
	SetRejected(cache string)

	// An operation failed and was surfaced as *Error.
	OperationFailed(cache, op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ManagerCreated(string)                 {}
func (NopHooks) ManagerStopFailed(error)               {}
func (NopHooks) CacheResolved(string, bool)            {}
func (NopHooks) Lookup(string, bool)                   {}
func (NopHooks) SetRejected(string)                    {}
func (NopHooks) OperationFailed(string, string, error) {}
