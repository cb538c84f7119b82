// Package planner implements ConnectionPlanner: the
// origin-vs-parent selection and retry/failover logic a transaction
// consults every time it needs to pick the next upstream to try.
package planner

import (
	"net"

	"github.com/corehttp/txcore/internal/headers"
)

// Target names which kind of upstream the planner has settled on.
type Target int

const (
	TargetNone Target = iota
	TargetOrigin
	TargetParent
)

// ParentResult mirrors the parent table's lookup outcome for the current
// attempt.
type ParentResult int

const (
	ParentUndefined ParentResult = iota
	ParentSpecified
	ParentFail
	ParentDirect
)

// ServerInfo names one candidate upstream.
type ServerInfo struct {
	Host string
	Port uint16
	// FromAPI marks a parent selection an API hook forced, which bypass
	// logic must not override.
	FromAPI bool
}

// Current is the planner's live selection state for one transaction.
type Current struct {
	Target       Target
	Server       ServerInfo
	Attempts     uint32
	ParentResult ParentResult
}

// Config holds the per-transaction retry and failover knobs.
type Config struct {
	MaxRetriesPerParent       uint32
	MaxRetriesOverall         uint32
	GoDirectIfParentDead      bool
	UncacheableBypassesParent bool
	SSLParentingEnabled       bool
	DNSForwardToParentEnabled bool
	SimpleRetryStatuses       map[int]bool
	UnavailableRetryStatuses  map[int]bool
	SimpleRetryMax            uint32
}

// ParentTable abstracts the parent selection table so the planner stays
// independent of how parents are configured or health-checked.
type ParentTable struct {
	Parents    []ServerInfo
	MarkedDown map[string]bool
}

// NewParentTable returns a table over the given ordered parent list.
func NewParentTable(parents []ServerInfo) *ParentTable {
	return &ParentTable{Parents: parents, MarkedDown: map[string]bool{}}
}

func (t *ParentTable) key(s ServerInfo) string { return s.Host }

// MarkDown flags a parent as unavailable so future selections skip it.
func (t *ParentTable) MarkDown(s ServerInfo) {
	t.MarkedDown[t.key(s)] = true
}

// FindParent returns the first healthy parent, or ok=false if none.
func (t *ParentTable) FindParent() (ServerInfo, bool) {
	for _, p := range t.Parents {
		if !t.MarkedDown[t.key(p)] {
			return p, true
		}
	}
	return ServerInfo{}, false
}

// NextParent returns the next healthy parent after cur, or ok=false if
// the list is exhausted.
func (t *ParentTable) NextParent(cur ServerInfo) (ServerInfo, bool) {
	idx := -1
	for i, p := range t.Parents {
		if t.key(p) == t.key(cur) {
			idx = i
			break
		}
	}
	for i := idx + 1; i < len(t.Parents); i++ {
		if !t.MarkedDown[t.key(t.Parents[i])] {
			return t.Parents[i], true
		}
	}
	return ServerInfo{}, false
}

// AnyAvailable reports whether any parent remains available to consult,
// standing in for consulting the parent table on the CONNECT
// branch.
func (t *ParentTable) AnyAvailable() bool {
	_, ok := t.FindParent()
	return ok
}

// Planner drives FindServerAndUpdateCurrentInfo and the retry/failover
// decisions for one transaction.
type Planner struct {
	cfg    Config
	table  *ParentTable
	origin ServerInfo
}

// New returns a planner for origin with the given parent table and
// config.
func New(origin ServerInfo, table *ParentTable, cfg Config) *Planner {
	return &Planner{cfg: cfg, table: table, origin: origin}
}

// FindServerAndUpdateCurrentInfo is the planner's central decision:
// decide, for the current attempt, whether to go direct to origin or
// through a parent.
func (p *Planner) FindServerAndUpdateCurrentInfo(dstIP net.IP, method headers.Method, cacheable bool, cur *Current) {
	if dstIP != nil && dstIP.IsLoopback() {
		cur.Target = TargetOrigin
		cur.Server = p.origin
		cur.ParentResult = ParentDirect
		return
	}

	if method == headers.MethodConnect && !p.cfg.SSLParentingEnabled && !cacheable && p.cfg.UncacheableBypassesParent {
		parent, ok := p.table.FindParent()
		if !ok {
			cur.Target = TargetOrigin
			cur.Server = p.origin
			cur.ParentResult = ParentDirect
			return
		}
		if parent.FromAPI {
			cur.Target = TargetOrigin
			cur.Server = p.origin
			cur.ParentResult = ParentDirect
			return
		}
		cur.Target = TargetParent
		cur.Server = parent
		cur.ParentResult = ParentSpecified
		return
	}

	switch cur.ParentResult {
	case ParentUndefined:
		if parent, ok := p.table.FindParent(); ok {
			cur.Target = TargetParent
			cur.Server = parent
			cur.ParentResult = ParentSpecified
		} else {
			cur.Target = TargetOrigin
			cur.Server = p.origin
			cur.ParentResult = ParentDirect
		}
	case ParentSpecified:
		next, ok := p.table.NextParent(cur.Server)
		if !ok {
			if !p.cfg.DNSForwardToParentEnabled {
				cur.Target = TargetOrigin
				cur.Server = p.origin
				cur.ParentResult = ParentFail
				return
			}
			cur.Target = TargetOrigin
			cur.Server = p.origin
			cur.ParentResult = ParentDirect
			return
		}
		cur.Target = TargetParent
		cur.Server = next
		cur.ParentResult = ParentSpecified
	case ParentFail:
		if p.cfg.GoDirectIfParentDead && !cur.Server.FromAPI {
			cur.Target = TargetOrigin
			cur.Server = p.origin
			cur.ParentResult = ParentDirect
		}
	case ParentDirect:
		// no change.
	}
}

// Outcome is the result of one attempt against the current target.
type Outcome struct {
	TransportFailed bool
	StatusCode      int
	BytesSent       bool
}

// Decision tells the caller what to do after an attempt failed.
type Decision int

const (
	DecisionGiveUp Decision = iota
	DecisionRetrySameTarget
	DecisionTryNextParent
	DecisionFailoverToOrigin
	DecisionBadGateway
)

// Retryable reports whether the failed method/outcome combination may be
// retried at all: either the method is
// safe, or nothing has been transmitted on this hop yet.
func Retryable(method headers.Method, outcome Outcome) bool {
	return method.IsSafe() || !outcome.BytesSent
}

// NextAction decides what the planner should do given the outcome of the
// current attempt, incrementing cur.Attempts as a side effect.
func (p *Planner) NextAction(method headers.Method, outcome Outcome, cur *Current) Decision {
	cur.Attempts++
	if cur.Attempts > p.cfg.MaxRetriesOverall {
		return p.exhausted(cur)
	}
	if !Retryable(method, outcome) {
		return p.exhausted(cur)
	}

	switch {
	case outcome.TransportFailed, p.cfg.UnavailableRetryStatuses[outcome.StatusCode]:
		if cur.Target == TargetParent {
			p.table.MarkDown(cur.Server)
		}
		if _, ok := p.table.FindParent(); ok {
			return DecisionTryNextParent
		}
		return p.exhausted(cur)
	case p.cfg.SimpleRetryStatuses[outcome.StatusCode]:
		if cur.Attempts > p.cfg.SimpleRetryMax {
			return p.exhausted(cur)
		}
		return DecisionTryNextParent
	default:
		return DecisionGiveUp
	}
}

func (p *Planner) exhausted(cur *Current) Decision {
	if cur.Target == TargetParent && !cur.Server.FromAPI {
		return DecisionFailoverToOrigin
	}
	return DecisionBadGateway
}
