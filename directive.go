package swrcache

// cycleMode selects how a fetch cycle decides per-page revalidation. It is
// passed explicitly with each cycle instead of being smuggled through the
// cache, so a directive's lifetime is exactly one walk and a failed walk
// cannot leak it into the next one.
type cycleMode int

const (
	// cycleDefault: refresh page 0, reuse every other cached page.
	cycleDefault cycleMode = iota
	// cycleForceAll: refetch every page unconditionally.
	cycleForceAll
	// cycleDiff: refetch pages whose cached data no longer compares equal to
	// the recorded baseline. The page-0 default rule is suppressed.
	cycleDiff
)

// directive carries the per-cycle revalidation decision inputs.
type directive[V any] struct {
	mode cycleMode
	// original is the pre-mutation result array for cycleDiff. A nil baseline
	// means there is nothing to diff against: only missing pages refetch.
	original []V
}

func defaultDirective[V any]() directive[V] {
	return directive[V]{mode: cycleDefault}
}

func forceAllDirective[V any]() directive[V] {
	return directive[V]{mode: cycleForceAll}
}

func diffDirective[V any](original []V) directive[V] {
	return directive[V]{mode: cycleDiff, original: original}
}
