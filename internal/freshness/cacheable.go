package freshness

import (
	"strings"

	"github.com/corehttp/txcore/internal/headers"
)

// CacheabilityConfig holds the small set of operator knobs
// is_response_cacheable consults.
type CacheabilityConfig struct {
	IgnoreClientNoCache bool
	IgnoreCookies       bool
	IgnoreWWWAuthenticate bool
	CacheablePostWithExplicitLifetime bool
	NegativeCacheStatuses map[int]bool
}

// IsResponseCacheable applies the enumerated cacheability
// rules against a response for a given request method and status.
func IsResponseCacheable(method headers.Method, status int, respHdr *headers.HttpHeader, cfg CacheabilityConfig) bool {
	if status == 206 || status == 416 {
		return false
	}

	cc := parseCacheControl(respHdr)
	hasExplicitLifetime := cc.hasMaxAge || cc.hasSMaxAge || hasHeader(respHdr, headers.NameExpires)

	if !method.CacheLookupable() {
		if method == headers.MethodPost && cfg.CacheablePostWithExplicitLifetime && hasExplicitLifetime {
			// fall through to the shared directive checks below.
		} else {
			return false
		}
	}

	if cc.noStore || cc.private {
		return false
	}

	if cc.public || cc.hasMaxAge || cc.hasSMaxAge || cc.mustRevalidate || cc.proxyRevalidate {
		return cacheableStatus(status, cfg)
	}

	if !cfg.IgnoreCookies && hasHeader(respHdr, headers.NameSetCookie) && isTextLike(respHdr) && !cc.public {
		return false
	}

	if !cfg.IgnoreWWWAuthenticate && hasHeader(respHdr, headers.NameWWWAuthenticate) {
		return false
	}

	return cacheableStatus(status, cfg)
}

func cacheableStatus(status int, cfg CacheabilityConfig) bool {
	switch {
	case status >= 200 && status < 300:
		return true
	case status >= 300 && status < 400:
		return true
	case status >= 500:
		return cfg.NegativeCacheStatuses[status]
	default:
		return cfg.NegativeCacheStatuses[status]
	}
}

func hasHeader(h *headers.HttpHeader, name string) bool {
	return h.Has(name)
}

func isTextLike(h *headers.HttpHeader) bool {
	v, ok := h.Get(headers.NameContentType)
	return ok && strings.HasPrefix(strings.ToLower(v), "text/")
}
