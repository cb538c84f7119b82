package transact

import (
	"time"

	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/planner"
)

// CacheLookupResult is the outcome of a cache lookup,
// HandleCacheOpenReadHitFreshness's output.
type CacheLookupResult int

const (
	CacheMiss CacheLookupResult = iota
	HitFresh
	HitWarning
	HitStale
)

// CacheAction is the cache-side disposition a transaction settles on.
// The Prepare* members mean no response has been committed to storage
// yet; the rest are final.
type CacheAction int

const (
	CacheNoAction CacheAction = iota
	CachePrepareToWrite
	CachePrepareToUpdate
	CachePrepareToDelete
	CacheWrite
	CacheReplace
	CacheDelete
)

// CachedObject is the minimal cached-response record the hit/miss
// handlers need: headers plus the timestamps freshness.Evaluate consults.
type CachedObject struct {
	RespHdr      *headers.HttpHeader
	ReqSent      time.Time
	RespReceived time.Time
	TTLInCache   time.Duration
}

// TransactionState is the per-request state the driving loop threads
// through every handler: the request/response headers, the cache and
// planner state, and the milestone timestamps.
type TransactionState struct {
	NextAction NextAction
	Err        *TransactionError

	ReqHdr  *headers.HttpHeader
	RespHdr *headers.HttpHeader

	Cached            *CachedObject
	CacheLookupResult CacheLookupResult
	CacheAction       CacheAction
	Freshness         freshness.Result

	Planner *planner.Current

	IsWebsocket bool
	StatsBody   []byte

	Milestones map[NextAction]time.Time
}

// NewTransactionState returns a fresh state for a newly accepted request.
func NewTransactionState(reqHdr *headers.HttpHeader) *TransactionState {
	return &TransactionState{
		NextAction: ActionStartRemap,
		ReqHdr:     reqHdr,
		Planner:    &planner.Current{},
		Milestones: make(map[NextAction]time.Time),
	}
}

// Mark records the wall-clock time the transaction entered action, for the
// per-milestone duration stats.
func (ts *TransactionState) Mark(action NextAction, at time.Time) {
	ts.Milestones[action] = at
}
