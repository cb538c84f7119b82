// Package transact implements the master state machine driving one HTTP
// request to completion, built on top of the headers, freshness and
// planner packages.
package transact

// NextAction is the closed set of states the driving loop dispatches on.
// Handlers never invent a NextAction outside this set.
type NextAction int

const (
	ActionStartRemap NextAction = iota
	ActionAPIPreRemap
	ActionRemapRequest
	ActionAPIPostRemap
	ActionHandleRequest
	ActionAPIOSDNS
	ActionDNSLookup
	ActionOSDNSLookup
	ActionCacheLookup
	ActionAPICacheLookupComplete
	ActionHandleHit
	ActionHandleMiss
	ActionHandleStale
	ActionHowToOpenConnection
	ActionCacheIssueWrite
	ActionOriginServerOpen
	ActionOriginServerRawOpen
	ActionAPISendRequestHdr
	ActionServerRead
	ActionAPIReadResponseHdr
	ActionHandleResponse
	ActionCacheOperation
	ActionNoCacheOperation
	ActionInternal100
	ActionError
	ActionAPISendResponseHdr
	ActionServeFromCache
	ActionTransformRead
	ActionInternalCacheNoop
	ActionSendErrorCacheNoop
	ActionTransactionDone
)

var actionNames = map[NextAction]string{
	ActionStartRemap:             "StartRemap",
	ActionAPIPreRemap:            "APIPreRemap",
	ActionRemapRequest:           "RemapRequest",
	ActionAPIPostRemap:           "APIPostRemap",
	ActionHandleRequest:          "HandleRequest",
	ActionAPIOSDNS:               "APIOSDNS",
	ActionDNSLookup:              "DNSLookup",
	ActionOSDNSLookup:            "OSDNSLookup",
	ActionCacheLookup:            "CacheLookup",
	ActionAPICacheLookupComplete: "APICacheLookupComplete",
	ActionHandleHit:              "HandleHit",
	ActionHandleMiss:             "HandleMiss",
	ActionHandleStale:            "HandleStale",
	ActionHowToOpenConnection:    "HowToOpenConnection",
	ActionCacheIssueWrite:        "CacheIssueWrite",
	ActionOriginServerOpen:       "OriginServerOpen",
	ActionOriginServerRawOpen:    "OriginServerRawOpen",
	ActionAPISendRequestHdr:      "APISendRequestHdr",
	ActionServerRead:             "ServerRead",
	ActionAPIReadResponseHdr:     "APIReadResponseHdr",
	ActionHandleResponse:         "HandleResponse",
	ActionCacheOperation:         "CacheOperation",
	ActionNoCacheOperation:       "NoCacheOperation",
	ActionInternal100:            "Internal100",
	ActionError:                  "Error",
	ActionAPISendResponseHdr:     "APISendResponseHdr",
	ActionServeFromCache:         "ServeFromCache",
	ActionTransformRead:          "TransformRead",
	ActionInternalCacheNoop:      "InternalCacheNoop",
	ActionSendErrorCacheNoop:     "SendErrorCacheNoop",
	ActionTransactionDone:        "TransactionDone",
}

func (a NextAction) String() string {
	if s, ok := actionNames[a]; ok && s != "" {
		return s
	}
	return "Unknown"
}

// Done reports whether a is the terminal state.
func (a NextAction) Done() bool { return a == ActionTransactionDone }

// SuspensionPoint reports whether a requires I/O and is therefore a
// yield/resume boundary.
func (a NextAction) SuspensionPoint() bool {
	switch a {
	case ActionDNSLookup, ActionCacheLookup, ActionOriginServerOpen, ActionServerRead,
		ActionCacheIssueWrite, ActionSendErrorCacheNoop, ActionServeFromCache, ActionTransformRead:
		return true
	default:
		return false
	}
}
