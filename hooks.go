package swrcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A cache entry was deleted on read because it could not be trusted.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A page was fetched (not served from cache) during a walk.
	// reason ∈ {"missing", "first_page", "revalidate_all", "force", "changed"}
	PageFetched(namespace string, index int, reason string)

	// The fetch function failed for a page; the walk aborted at this index.
	FetchError(namespace string, index int, err error)

	// A finished walk was superseded by a newer generation and its result
	// was not committed.
	StaleCycleDropped(namespace, sequenceID string)

	// Persisting the page count failed; the in-memory count still changed.
	SizePersistError(namespace string, err error)

	// GenStore errors (snapshot or bump). op ∈ {"snapshot", "bump"}.
	GenError(op string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	// kind ∈ {"page", "list", "size", "res"}
	ProviderSetRejected(storageKey, kind string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)            {}
func (NopHooks) PageFetched(string, int, string)    {}
func (NopHooks) FetchError(string, int, error)      {}
func (NopHooks) StaleCycleDropped(string, string)   {}
func (NopHooks) SizePersistError(string, error)     {}
func (NopHooks) GenError(string, error)             {}
func (NopHooks) ProviderSetRejected(string, string) {}
