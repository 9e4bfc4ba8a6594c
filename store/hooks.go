package store

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the store calls them on
// hot paths. See sloghooks and hooks/async.
type Hooks interface {
	// An entry was deleted on read.
	// reason ∈ {"corrupt", "decode"}
	SelfHeal(storageKey, reason string)

	// A bulk entry was rejected and the read fell back to singles.
	// reason ∈ {"corrupt", "decode", "incomplete"}
	BulkRejected(namespace string, requested int, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string, isBulk bool)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) BulkRejected(string, int, string) {}
func (NopHooks) ProviderSetRejected(string, bool) {}
