package transact

import (
	"strconv"

	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/headers"
)

// NegativeRevalidationConfig holds the knobs the 5xx-as-pseudo-304 branch
// of HandleCacheOperationOnForwardServerResponse consults.
type NegativeRevalidationConfig struct {
	Enabled bool
	TTL     int // seconds; stored on the synthesized pseudo-304 response.
}

// HandleCacheOperationOnForwardServerResponse is the decision tree
// following an origin response to a cache-affecting
// request (PrepareToWrite or PrepareToUpdate).
func HandleCacheOperationOnForwardServerResponse(ts *TransactionState, cfg freshness.CacheabilityConfig, neg NegativeRevalidationConfig, downgradedVersion bool) NextAction {
	status := ts.RespHdr.StatusCode

	if status == 304 && ts.CacheAction == CachePrepareToUpdate {
		cacheable := freshness.IsResponseCacheable(ts.ReqHdr.Method, 200, ts.Cached.RespHdr, cfg)
		if !cacheable {
			ts.CacheAction = CachePrepareToDelete
		}
		merged := mergeRevalidated(ts.Cached.RespHdr, ts.RespHdr)
		if ClientConditionalsSatisfied(ts.ReqHdr, merged) {
			ts.RespHdr = build304(merged)
		} else {
			ts.RespHdr = merged
		}
		ts.CacheAction = finalizeCacheAction(ts.CacheAction, cacheable)
		return ActionAPISendResponseHdr
	}

	if status >= 500 && neg.Enabled && ts.Cached != nil && ts.CacheLookupResult == HitStale {
		ts.RespHdr = build304(ts.Cached.RespHdr)
		ts.RespHdr.Set(headers.NameCacheControl, "max-age="+strconv.Itoa(neg.TTL))
		ts.CacheAction = CacheNoAction
		return ActionAPISendResponseHdr
	}

	if status == 505 && !downgradedVersion {
		ts.RespHdr.VersionMajor, ts.RespHdr.VersionMinor = 1, 0
		return ActionOriginServerOpen
	}

	cacheable := freshness.IsResponseCacheable(ts.ReqHdr.Method, status, ts.RespHdr, cfg)
	ts.CacheAction = finalizeCacheAction(ts.CacheAction, cacheable)
	return ActionAPISendResponseHdr
}

// finalizeCacheAction maps a Prepare* action plus the response's
// cacheability into the final write-side CacheAction:
// PrepareToWrite -> Write|NoAction, PrepareToUpdate -> Replace|Delete,
// PrepareToDelete -> Delete.
func finalizeCacheAction(prepared CacheAction, cacheable bool) CacheAction {
	switch prepared {
	case CachePrepareToWrite:
		if cacheable {
			return CacheWrite
		}
		return CacheNoAction
	case CachePrepareToUpdate:
		if cacheable {
			return CacheReplace
		}
		return CacheDelete
	case CachePrepareToDelete:
		return CacheDelete
	default:
		return CacheNoAction
	}
}

// mergeRevalidated builds the response headers a 304 revalidation yields:
// the cached headers, overwritten by any header the 304 response itself
// carried (freshness-relevant fields in particular), per RFC 7232 §4.1.
func mergeRevalidated(cached, revalidation *headers.HttpHeader) *headers.HttpHeader {
	merged := cached.Clone()
	for _, f := range revalidation.Fields() {
		merged.Set(f.Name, f.Value)
	}
	merged.StatusCode = 200
	merged.Reason = "OK"
	return merged
}

// ServerAddressOrigin classifies where the current upstream address came
// from, for handle_response_from_server's retry branch selection.
type ServerAddressOrigin int

const (
	AddressFromHostDB ServerAddressOrigin = iota
	AddressClientSupplied
	AddressFromSRVOrRoundRobin
)

// ResponseFromServerConfig holds the knobs handle_response_from_server
// consults.
type ResponseFromServerConfig struct {
	MaxRetries         uint32
	AddressOrigin      ServerAddressOrigin
	RoundRobinRetries  uint32
}

// ServerResponseAction tells the caller what handle_response_from_server
// decided to do next.
type ServerResponseAction int

const (
	ServerRetryHostDB ServerResponseAction = iota
	ServerRetryMarkDownAndRedns
	ServerRetryKeepAliveDisabled
	ServerGiveUp
)

// HandleResponseFromServer is the transport-error/
// bad-header retry decision, incrementing attempts as a side effect.
func HandleResponseFromServer(attempts *uint32, cfg ResponseFromServerConfig) ServerResponseAction {
	if *attempts >= cfg.MaxRetries {
		return ServerGiveUp
	}
	*attempts++

	switch {
	case cfg.AddressOrigin == AddressClientSupplied:
		return ServerRetryHostDB
	case cfg.AddressOrigin == AddressFromSRVOrRoundRobin && cfg.RoundRobinRetries > 0 && (*attempts)%cfg.RoundRobinRetries == 0:
		return ServerRetryMarkDownAndRedns
	default:
		return ServerRetryKeepAliveDisabled
	}
}
