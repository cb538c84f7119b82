package transact

import (
	"time"

	"github.com/corehttp/txcore/internal/headers"
)

// HandleRequestConfig bundles the knobs HandleRequest
// consults: request validation, the websocket/Expect-100/$internal$
// special cases, and the cache-lookup eligibility decision.
type HandleRequestConfig struct {
	Validation     ValidationConfig
	CacheLookup    CacheLookupConfig
	MaxPostSize    int64
	AllowExpect100 bool
	WebsocketLimit WebsocketLimiter
	Stats          StatsSnapshotFunc
	NumericHost    bool
	HasParentIPRules bool
	Now            func() time.Time
}

// WebsocketLimiter reports whether accepting one more concurrent
// websocket upgrade would exceed the configured limit.
type WebsocketLimiter interface {
	TryAcquire() bool
}

// HandleRequest validates
// the request, enforces max_post_size/Expect-100/websocket-concurrency,
// special-cases the "$internal$" stats host, detects a websocket upgrade,
// and otherwise decides between DNSLookup and CacheLookup.
func HandleRequest(ts *TransactionState, cfg HandleRequestConfig) NextAction {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	if IsInternalStatsRequest(ts.ReqHdr) {
		ServeStatsPage(ts, cfg.Stats, now())
		return ts.NextAction
	}

	if err := ValidateRequest(ts.ReqHdr, cfg.Validation); err != nil {
		ts.Err = err
		return ActionError
	}

	if cl, ok := ts.ReqHdr.Get(headers.NameContentLength); ok {
		if n, ok2 := parseContentLength(cl); ok2 && cfg.MaxPostSize > 0 && n > cfg.MaxPostSize {
			ts.Err = NewError(ErrPostTooLarge, nil)
			return ActionError
		}
	}

	if expect, ok := ts.ReqHdr.Get("Expect"); ok && expect == "100-continue" && !cfg.AllowExpect100 {
		ts.Err = NewError(ErrExpectContinueUnsupported, nil)
		return ActionError
	}

	if IsWebsocketUpgrade(ts.ReqHdr) {
		if cfg.WebsocketLimit != nil && !cfg.WebsocketLimit.TryAcquire() {
			ts.Err = NewError(ErrWebsocketConcurrencyLimit, nil)
			return ActionError
		}
		ts.IsWebsocket = true
		ts.ReqHdr.URL.SetScheme(ts.ReqHdr.URL.Scheme().Upgraded())
	}

	if IsDNSForced(ts.ReqHdr, cfg.NumericHost, cfg.HasParentIPRules) {
		return ActionDNSLookup
	}
	if IsRequestCacheLookupable(ts.ReqHdr, cfg.CacheLookup) {
		return ActionCacheLookup
	}
	return ActionDNSLookup
}

func parseContentLength(s string) (int64, bool) {
	var n int64
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

// IsWebsocketUpgrade detects a websocket upgrade request:
// GET at >=1.1 with Connection: Upgrade, Upgrade: websocket,
// Sec-WebSocket-Key present, and Sec-WebSocket-Version: 13.
func IsWebsocketUpgrade(h *headers.HttpHeader) bool {
	if h.Method != headers.MethodGet {
		return false
	}
	if h.VersionMajor < 1 || (h.VersionMajor == 1 && h.VersionMinor < 1) {
		return false
	}
	conn, ok := h.Get(headers.NameConnection)
	if !ok || !headerTokenContains(conn, "upgrade") {
		return false
	}
	upg, ok := h.Get(headers.NameUpgrade)
	if !ok || !headerTokenContains(upg, "websocket") {
		return false
	}
	if !h.Has(headers.NameSecWebSocketKey) {
		return false
	}
	ver, ok := h.Get(headers.NameSecWebSocketVer)
	return ok && ver == "13"
}

func headerTokenContains(value, token string) bool {
	for _, part := range splitTokens(value) {
		if equalFold(part, token) {
			return true
		}
	}
	return false
}

func splitTokens(value string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			out = append(out, trimSpace(value[start:i]))
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
