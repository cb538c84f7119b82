package transact

import (
	"strings"
	"time"

	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/headers"
)

// HandleCacheOpenReadHitFreshness normalizes
// timestamps to min(now, recorded) so a skewed or rewound clock never
// makes a cached response look younger than it is, computes freshness
// and sets ts.CacheLookupResult.
func HandleCacheOpenReadHitFreshness(ts *TransactionState, now time.Time, lim freshness.Limits) {
	c := ts.Cached
	reqSent := c.ReqSent
	if reqSent.After(now) {
		reqSent = now
	}
	respReceived := c.RespReceived
	if respReceived.After(now) {
		respReceived = now
	}

	ts.Freshness = freshness.Evaluate(ts.ReqHdr, c.RespHdr, reqSent, respReceived, now, c.TTLInCache, lim)
	switch ts.Freshness.Disposition {
	case freshness.Fresh:
		ts.CacheLookupResult = HitFresh
	case freshness.Warning:
		ts.CacheLookupResult = HitWarning
	case freshness.Stale:
		ts.CacheLookupResult = HitStale
	}
}

// RequiresCacheCopyDeletion reports whether method mandates deleting any
// existing cached copy of the resource rather than merely updating it
// (e.g. PUT/DELETE/POST invalidate, per RFC 7234 §4.4).
func RequiresCacheCopyDeletion(method headers.Method) bool {
	switch method {
	case headers.MethodPut, headers.MethodDelete, headers.MethodPost, headers.MethodPatch:
		return true
	default:
		return false
	}
}

// IssueRevalidate conditionalizes reqHdr against the cached response:
// If-Modified-Since from the cached Last-Modified, and/or If-None-Match
// from the cached ETag with any weak "W/" prefix stripped.
func IssueRevalidate(reqHdr, cachedRespHdr *headers.HttpHeader) {
	if lm, ok := cachedRespHdr.Get(headers.NameLastModified); ok {
		reqHdr.Set(headers.NameIfModifiedSince, lm)
	}
	if etag, ok := cachedRespHdr.Get(headers.NameETag); ok {
		reqHdr.Set(headers.NameIfNoneMatch, strongETag(etag))
	}
}

func strongETag(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}

// ClientConditionalsSatisfied reports whether the client's own
// If-None-Match/If-Modified-Since are satisfied against respHdr, meaning
// the client already holds a current copy and may be answered with a bare
// 304 rather than the full cached body.
func ClientConditionalsSatisfied(reqHdr, respHdr *headers.HttpHeader) bool {
	if inm, ok := reqHdr.Get(headers.NameIfNoneMatch); ok {
		etag, hasETag := respHdr.Get(headers.NameETag)
		if !hasETag {
			return false
		}
		if inm == "*" {
			return true
		}
		for _, tok := range strings.Split(inm, ",") {
			if strongETag(strings.TrimSpace(tok)) == strongETag(etag) {
				return true
			}
		}
		return false
	}
	if ims, ok := reqHdr.Get(headers.NameIfModifiedSince); ok {
		lm, hasLM := respHdr.Get(headers.NameLastModified)
		if !hasLM {
			return false
		}
		imsT, err1 := time.Parse(time.RFC1123, ims)
		lmT, err2 := time.Parse(time.RFC1123, lm)
		if err1 == nil && err2 == nil {
			return !lmT.After(imsT)
		}
		return false
	}
	return false
}

// HandleCacheOpenReadHit is the decision tree for a cache
// hit: stale or auth-required triggers revalidation (and moves on to
// HowToOpenConnection), fresh either serves a bare 304 or the cached body.
func HandleCacheOpenReadHit(ts *TransactionState, authRequired bool) {
	if ts.CacheLookupResult == HitStale || authRequired {
		IssueRevalidate(ts.ReqHdr, ts.Cached.RespHdr)
		if RequiresCacheCopyDeletion(ts.ReqHdr.Method) {
			ts.CacheAction = CachePrepareToDelete
		} else {
			ts.CacheAction = CachePrepareToUpdate
		}
		ts.NextAction = ActionHowToOpenConnection
		return
	}

	if ClientConditionalsSatisfied(ts.ReqHdr, ts.Cached.RespHdr) {
		ts.RespHdr = build304(ts.Cached.RespHdr)
		ts.NextAction = ActionServeFromCache
		return
	}

	ts.RespHdr = ts.Cached.RespHdr.Clone()
	ts.NextAction = ActionServeFromCache
}

func build304(cached *headers.HttpHeader) *headers.HttpHeader {
	h := headers.NewResponseHeader()
	h.StatusCode = 304
	h.Reason = "Not Modified"
	h.VersionMajor, h.VersionMinor = cached.VersionMajor, cached.VersionMinor
	for _, name := range []string{headers.NameETag, headers.NameLastModified, headers.NameExpires, headers.NameCacheControl, headers.NameDate, headers.NameVary} {
		if v, ok := cached.Get(name); ok {
			h.Set(name, v)
		}
	}
	return h
}
