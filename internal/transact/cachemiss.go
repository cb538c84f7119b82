package transact

import (
	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/planner"
)

// CacheMissConfig holds the knobs HandleCacheOpenReadMiss consults.
type CacheMissConfig struct {
	RangeWriteDisabled  bool
	RangeNotSatisfiable bool
	RangeNotHandled     bool
}

func isCacheWriteableMethod(m headers.Method) bool {
	return m == headers.MethodGet
}

// HandleCacheOpenReadMiss decides CacheAction for a
// miss, honors "only-if-cached", and otherwise hands off to the
// ConnectionPlanner to pick an upstream.
func HandleCacheOpenReadMiss(ts *TransactionState, cfg CacheMissConfig, onlyIfCached bool, pl *planner.Planner) {
	if !isCacheWriteableMethod(ts.ReqHdr.Method) {
		ts.CacheAction = CacheNoAction
	} else if ts.ReqHdr.Presence().Has(headers.PresenceRange) && (cfg.RangeWriteDisabled || cfg.RangeNotSatisfiable || cfg.RangeNotHandled) {
		ts.CacheAction = CacheNoAction
	} else {
		ts.CacheAction = CachePrepareToWrite
	}

	if onlyIfCached {
		ts.Err = NewError(ErrOnlyIfCached, nil)
		ts.NextAction = ActionError
		return
	}

	pl.FindServerAndUpdateCurrentInfo(nil, ts.ReqHdr.Method, ts.CacheAction != CacheNoAction, ts.Planner)
	ts.NextAction = ActionHowToOpenConnection
}
