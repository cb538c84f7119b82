package prewarm

import "time"

// State is a PreWarmSM lifecycle stage.
type State int

const (
	StateNew State = iota
	StateInit
	StateDnsLookup
	StateNetOpen
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInit:
		return "init"
	case StateDnsLookup:
		return "dns-lookup"
	case StateNetOpen:
		return "net-open"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NetVC is the minimal capability PreWarm needs from an established
// connection: something it can hand to a transaction and eventually tear
// down.
type NetVC interface {
	Close() error
}

// Now is overridable in tests so milestone assertions don't depend on
// wall-clock timing.
var Now = time.Now

// SM drives one pre-warmed connection attempt through Init -> DnsLookup ->
// NetOpen -> Open, retrying into Init on failure up to MaxRetries times
// before giving up into Closed.
type SM struct {
	Dst        string
	State      State
	RetryCount uint32
	MaxRetries uint32
	Milestones map[State]time.Time
	VC         NetVC
}

// NewSM returns a freshly constructed SM for dst, already in StateInit.
func NewSM(dst string, maxRetries uint32) *SM {
	sm := &SM{
		Dst:        dst,
		MaxRetries: maxRetries,
		Milestones: map[State]time.Time{},
	}
	sm.mark(StateInit)
	return sm
}

func (sm *SM) mark(s State) {
	sm.State = s
	sm.Milestones[s] = Now()
}

// Start begins DNS resolution.
func (sm *SM) Start() {
	if sm.State != StateInit {
		return
	}
	sm.mark(StateDnsLookup)
}

// Resolved advances past a successful DNS resolution.
func (sm *SM) Resolved() {
	if sm.State != StateDnsLookup {
		return
	}
	sm.mark(StateNetOpen)
}

// Handshake completes the TCP/TLS handshake, attaching vc and moving to
// StateOpen.
func (sm *SM) Handshake(vc NetVC) {
	if sm.State != StateNetOpen {
		return
	}
	sm.VC = vc
	sm.mark(StateOpen)
}

// Retry reports a DNS or handshake failure. It increments RetryCount and
// either schedules a re-entry to Init or, once MaxRetries is exceeded,
// moves to Closed so the pool can garbage-collect it without stalling.
func (sm *SM) Retry() {
	if sm.State != StateDnsLookup && sm.State != StateNetOpen {
		return
	}
	sm.RetryCount++
	if sm.RetryCount > sm.MaxRetries {
		sm.closeVC()
		sm.mark(StateClosed)
		return
	}
	sm.mark(StateInit)
}

// MoveNetVC detaches and returns the open connection, transitioning to
// Closed so the SM itself can be dropped while the netvc lives on with
// its new owner.
func (sm *SM) MoveNetVC() NetVC {
	if sm.State != StateOpen {
		return nil
	}
	vc := sm.VC
	sm.VC = nil
	sm.mark(StateClosed)
	return vc
}

// Stop forces an immediate transition to Closed from any state.
func (sm *SM) Stop() {
	sm.closeVC()
	sm.mark(StateClosed)
}

func (sm *SM) closeVC() {
	if sm.VC != nil {
		sm.VC.Close()
		sm.VC = nil
	}
}

// Deletable reports whether the SM has reached Closed and may be
// reclaimed.
func (sm *SM) Deletable() bool {
	return sm.State == StateClosed
}
