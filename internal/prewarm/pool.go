package prewarm

import "sync"

// Config holds the per-destination pool-sizing knobs.
type Config struct {
	Algorithm     Algorithm
	RequestedSize uint32
	Min           uint32
	Max           int32 // -1 means unlimited
	Rate          float64
	MaxRetries    uint32
}

// dstPool is one destination's init_list/open_list plus the hit/miss
// counters accumulated since the last Tick.
type dstPool struct {
	cfg      Config
	initList []*SM
	openList []*SM
	hits     uint32
	misses   uint32
}

// Pool maintains, per destination, the init_list of SMs still connecting
// and the open_list of idle, fully handshaken connections, and hands them
// out to transactions via Borrow.
type Pool struct {
	mu    sync.Mutex
	dsts  map[string]*dstPool
	newSM func(dst string, maxRetries uint32) *SM
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{dsts: map[string]*dstPool{}, newSM: NewSM}
}

// Configure sets or replaces the sizing config for dst, creating its
// pool state if this is the first time dst is seen.
func (p *Pool) Configure(dst string, cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dst(dst)
	d.cfg = cfg
}

func (p *Pool) dst(dst string) *dstPool {
	d, ok := p.dsts[dst]
	if !ok {
		d = &dstPool{}
		p.dsts[dst] = d
	}
	return d
}

// Borrow removes and returns one idle connection for dst, if any is
// available. A successful borrow is a "hit"; an empty open_list is a
// "miss" that, under V2, immediately starts a replacement SM if room
// remains. No two callers are ever handed the same netvc,
// since the list entry is removed before it is returned.
func (p *Pool) Borrow(dst string) (NetVC, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dst(dst)
	if len(d.openList) == 0 {
		d.misses++
		if d.cfg.Algorithm == V2 {
			p.startLocked(dst, d)
		}
		return nil, false
	}
	sm := d.openList[len(d.openList)-1]
	d.openList = d.openList[:len(d.openList)-1]
	d.hits++
	vc := sm.MoveNetVC()
	return vc, vc != nil
}

// startLocked appends a freshly constructed SM to dst's init_list and
// kicks off DNS resolution. Callers must hold p.mu.
func (p *Pool) startLocked(dst string, d *dstPool) {
	if d.cfg.Max >= 0 && uint32(d.cfg.Max) <= uint32(len(d.initList)+len(d.openList)) {
		return
	}
	sm := p.newSM(dst, d.cfg.MaxRetries)
	sm.Start()
	d.initList = append(d.initList, sm)
}

// Tick advances dst's init_list SMs that have progressed enough to
// become ready, reaps Closed SMs, and starts as many new SMs as the
// configured algorithm calls for given this window's hit/miss counts.
// The hit/miss counters reset after each Tick.
func (p *Pool) Tick(dst string) (started int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dst(dst)

	kept := d.initList[:0]
	for _, sm := range d.initList {
		switch sm.State {
		case StateOpen:
			d.openList = append(d.openList, sm)
		case StateClosed:
			// reaped, not kept.
		default:
			kept = append(kept, sm)
		}
	}
	d.initList = kept

	current := uint32(len(d.initList) + len(d.openList))
	n := d.cfg.Algorithm.Size(d.cfg.RequestedSize, d.hits, d.misses, current, d.cfg.Min, d.cfg.Max, d.cfg.Rate)
	d.hits, d.misses = 0, 0
	for i := uint32(0); i < n; i++ {
		p.startLocked(dst, d)
		started++
	}
	return started
}

// Counts reports the current init_list/open_list sizes for dst, for
// tests and diagnostics.
func (p *Pool) Counts(dst string) (initN, openN int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dst(dst)
	return len(d.initList), len(d.openList)
}

// AdvanceAll drives every SM currently in dst's init_list through a
// DnsLookup->NetOpen->Open happy path using opener to produce the netvc,
// or retries it on opener's failure. This stands in for the real async
// DNS/connect/TLS pipeline the production pool drives off socket events.
func (p *Pool) AdvanceAll(dst string, opener func() (NetVC, error)) {
	p.mu.Lock()
	d := p.dst(dst)
	sms := append([]*SM(nil), d.initList...)
	p.mu.Unlock()

	for _, sm := range sms {
		if sm.State != StateDnsLookup {
			continue
		}
		sm.Resolved()
		vc, err := opener()
		if err != nil {
			sm.Retry()
			continue
		}
		sm.Handshake(vc)
	}
}
