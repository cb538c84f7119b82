// Package prewarm implements the idle upstream connection pool that keeps
// a configurable number of pre-warmed connections open per destination so
// transactions can borrow an already-handshaken NetVC instead of paying
// full connect-plus-handshake latency on the client's critical path.
package prewarm

// Algorithm selects how PreWarmPool.Tick decides how many connections to
// add to a destination's open list.
type Algorithm int

const (
	// V1 re-evaluates a fixed target every tick: purely periodical.
	V1 Algorithm = iota + 1
	// V2 additionally reacts to borrow hit/miss counts between ticks,
	// falling back to V1's behavior whenever the pool is below min.
	V2
)

// ParseAlgorithm maps a configured version number to an Algorithm.
func ParseAlgorithm(v int) (Algorithm, bool) {
	switch v {
	case 1:
		return V1, true
	case 2:
		return V2, true
	default:
		return 0, false
	}
}

// sizeV1 computes how many new connections to open this tick under the
// periodical-only algorithm: clamp the requested size to [min, max] (max
// < 0 means unlimited) and return the shortfall against current.
func sizeV1(requestedSize, current, min uint32, max int32) uint32 {
	n := requestedSize
	if n < min {
		n = min
	}
	if max >= 0 && n > uint32(max) {
		n = uint32(max)
	}
	if current >= n {
		return 0
	}
	return n - current
}

// sizeV2 computes how many new connections to open this tick under the
// event-driven algorithm: fall back to sizeV1 to satisfy min when the
// pool is running dry; otherwise do nothing at max, or add miss*rate
// connections clamped to max.
func sizeV2(hit, miss, current, min uint32, max int32, rate float64) uint32 {
	if hit+miss+current < min {
		return sizeV1(hit+miss, current, min, max)
	}
	if max >= 0 && current >= uint32(max) {
		return 0
	}
	n := uint32(float64(miss) * rate)
	if max >= 0 && n+current > uint32(max) {
		n = uint32(max) - current
	}
	return n
}

// Size computes the tick's pool-growth target under the selected
// algorithm. requestedSize is the configured steady-state target V1 uses
// directly; hit and miss are the borrow outcome counts accumulated since
// the previous tick, which only V2 consults.
func (a Algorithm) Size(requestedSize, hit, miss, current, min uint32, max int32, rate float64) uint32 {
	switch a {
	case V2:
		return sizeV2(hit, miss, current, min, max, rate)
	default:
		return sizeV1(requestedSize, current, min, max)
	}
}
