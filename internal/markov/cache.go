package markov

// CacheStatus tracks a lazily computed result tied to the current rates.
type CacheStatus int

const (
	NotComputed CacheStatus = iota
	Computed
	Stale
)

func (s CacheStatus) String() string {
	switch s {
	case Computed:
		return "computed"
	case Stale:
		return "stale"
	default:
		return "not computed"
	}
}

type cache[T any] struct {
	status CacheStatus
	value  T
}

// get returns the value only while it matches the current rate matrix.
func (c *cache[T]) get() (T, bool) {
	if c.status != Computed {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *cache[T]) set(v T) {
	c.value = v
	c.status = Computed
}

// invalidate marks a computed value stale after the rates change.
func (c *cache[T]) invalidate() {
	if c.status == Computed {
		c.status = Stale
	}
	var zero T
	c.value = zero
}

func (c *cache[T]) reset() {
	var zero T
	c.value = zero
	c.status = NotComputed
}
