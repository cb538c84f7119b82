package transact

import (
	"testing"
	"time"

	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/headers"
)

func fmtDate(t time.Time) string { return t.UTC().Format(time.RFC1123) }

func TestHandleCacheOpenReadHitFreshnessClampsFutureTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	respHdr := headers.NewResponseHeader()
	respHdr.Add(headers.NameDate, fmtDate(now))
	respHdr.Add(headers.NameCacheControl, "max-age=60")

	ts := &TransactionState{
		ReqHdr: headers.NewRequestHeader(),
		Cached: &CachedObject{
			RespHdr:      respHdr,
			ReqSent:      now.Add(time.Hour), // clock skew: recorded in the future
			RespReceived: now.Add(time.Hour),
		},
	}
	HandleCacheOpenReadHitFreshness(ts, now, freshness.DefaultLimits())
	if ts.CacheLookupResult != HitFresh {
		t.Fatalf("lookup result = %v, want HitFresh after clamping future timestamps to now", ts.CacheLookupResult)
	}
}

func TestHandleCacheOpenReadHitStaleTriggersRevalidate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC)
	resp := now.Add(-90 * time.Second)
	respHdr := headers.NewResponseHeader()
	respHdr.Add(headers.NameDate, fmtDate(resp))
	respHdr.Add(headers.NameCacheControl, "max-age=60, must-revalidate")
	respHdr.Add(headers.NameETag, `W/"abc"`)
	respHdr.Add(headers.NameLastModified, fmtDate(resp.Add(-time.Hour)))

	reqHdr := headers.NewRequestHeader()
	ts := &TransactionState{ReqHdr: reqHdr, Cached: &CachedObject{RespHdr: respHdr, ReqSent: resp, RespReceived: resp}}
	HandleCacheOpenReadHitFreshness(ts, now, freshness.DefaultLimits())
	if ts.CacheLookupResult != HitStale {
		t.Fatalf("expected HitStale, got %v", ts.CacheLookupResult)
	}

	HandleCacheOpenReadHit(ts, false)
	if ts.NextAction != ActionHowToOpenConnection {
		t.Fatalf("stale hit should revalidate, got next action %v", ts.NextAction)
	}
	if ts.CacheAction != CachePrepareToUpdate {
		t.Fatalf("expected CachePrepareToUpdate, got %v", ts.CacheAction)
	}
	ims, ok := reqHdr.Get(headers.NameIfModifiedSince)
	if !ok || ims != fmtDate(resp.Add(-time.Hour)) {
		t.Fatalf("If-Modified-Since = %q, ok=%v", ims, ok)
	}
	inm, ok := reqHdr.Get(headers.NameIfNoneMatch)
	if !ok || inm != `"abc"` {
		t.Fatalf("If-None-Match = %q, want stripped-weak ETag, ok=%v", inm, ok)
	}
}

func TestHandleCacheOpenReadHitFreshServesFromCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	resp := now.Add(-10 * time.Second)
	respHdr := headers.NewResponseHeader()
	respHdr.Add(headers.NameDate, fmtDate(resp))
	respHdr.Add(headers.NameCacheControl, "max-age=60")

	reqHdr := headers.NewRequestHeader()
	ts := &TransactionState{ReqHdr: reqHdr, Cached: &CachedObject{RespHdr: respHdr, ReqSent: resp, RespReceived: resp}}
	HandleCacheOpenReadHitFreshness(ts, now, freshness.DefaultLimits())
	if ts.CacheLookupResult != HitFresh {
		t.Fatalf("expected HitFresh, got %v", ts.CacheLookupResult)
	}
	HandleCacheOpenReadHit(ts, false)
	if ts.NextAction != ActionServeFromCache {
		t.Fatalf("fresh hit should serve from cache, got %v", ts.NextAction)
	}
	if ts.RespHdr.StatusCode != 0 && ts.RespHdr.StatusCode != respHdr.StatusCode {
		t.Fatalf("served response should carry the cached status")
	}
}

func TestHandleCacheOpenReadHitFreshWithSatisfiedConditionalsServes304(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	resp := now.Add(-10 * time.Second)
	respHdr := headers.NewResponseHeader()
	respHdr.Add(headers.NameDate, fmtDate(resp))
	respHdr.Add(headers.NameCacheControl, "max-age=60")
	respHdr.Add(headers.NameETag, `"abc"`)

	reqHdr := headers.NewRequestHeader()
	reqHdr.Add(headers.NameIfNoneMatch, `"abc"`)
	ts := &TransactionState{ReqHdr: reqHdr, Cached: &CachedObject{RespHdr: respHdr, ReqSent: resp, RespReceived: resp}}
	HandleCacheOpenReadHitFreshness(ts, now, freshness.DefaultLimits())
	HandleCacheOpenReadHit(ts, false)
	if ts.NextAction != ActionServeFromCache {
		t.Fatalf("expected ActionServeFromCache, got %v", ts.NextAction)
	}
	if ts.RespHdr.StatusCode != 304 {
		t.Fatalf("status = %d, want 304 when client conditionals already satisfied", ts.RespHdr.StatusCode)
	}
}

func TestClientConditionalsSatisfiedWildcard(t *testing.T) {
	reqHdr := headers.NewRequestHeader()
	reqHdr.Add(headers.NameIfNoneMatch, "*")
	respHdr := headers.NewResponseHeader()
	respHdr.Add(headers.NameETag, `"x"`)
	if !ClientConditionalsSatisfied(reqHdr, respHdr) {
		t.Fatal("If-None-Match: * should be satisfied whenever an ETag exists")
	}
}

func TestRequiresCacheCopyDeletion(t *testing.T) {
	if !RequiresCacheCopyDeletion(headers.MethodPut) {
		t.Fatal("PUT should require cache copy deletion")
	}
	if RequiresCacheCopyDeletion(headers.MethodGet) {
		t.Fatal("GET should not require cache copy deletion")
	}
}
