package prewarm

import "time"

// ActivityCop periodically scans a pool's open connections and forces
// reconnects on ones that have sat idle past MaxAge, keeping the pool
// from serving stale upstream connections.
type ActivityCop struct {
	pool   *Pool
	MaxAge time.Duration
}

// NewActivityCop returns a cop bound to pool with the given max idle age.
func NewActivityCop(pool *Pool, maxAge time.Duration) *ActivityCop {
	return &ActivityCop{pool: pool, MaxAge: maxAge}
}

// Sweep closes and reschedules every open connection for dst older than
// MaxAge, returning how many were reconnected.
func (c *ActivityCop) Sweep(dst string) int {
	c.pool.mu.Lock()
	d := c.pool.dst(dst)
	now := Now()
	kept := d.openList[:0]
	var stale []*SM
	for _, sm := range d.openList {
		if now.Sub(sm.Milestones[StateOpen]) > c.MaxAge {
			stale = append(stale, sm)
			continue
		}
		kept = append(kept, sm)
	}
	d.openList = kept
	c.pool.mu.Unlock()

	for _, sm := range stale {
		sm.Stop()
		c.pool.mu.Lock()
		c.pool.startLocked(dst, c.pool.dst(dst))
		c.pool.mu.Unlock()
	}
	return len(stale)
}
