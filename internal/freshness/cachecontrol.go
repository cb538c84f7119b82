package freshness

import (
	"strconv"
	"strings"
	"time"

	"github.com/corehttp/txcore/internal/headers"
)

// cacheControl is the subset of Cache-Control directives freshness
// evaluation consults, parsed via the header package's quoted-CSV
// iterator since directives are a comma-separated list that
// may carry a quoted argument.
type cacheControl struct {
	noStore         bool
	noCache         bool
	private         bool
	public          bool
	mustRevalidate  bool
	proxyRevalidate bool

	hasMaxAge  bool
	maxAge     time.Duration
	hasSMaxAge bool
	sMaxAge    time.Duration

	hasMinFresh bool
	minFresh    time.Duration
	hasMaxStale bool
	maxStale    time.Duration
}

func parseCacheControl(h *headers.HttpHeader) cacheControl {
	var cc cacheControl
	for _, v := range headers.Values(h, headers.NameCacheControl, ',', true) {
		name, arg := splitDirective(v)
		switch strings.ToLower(name) {
		case "no-store":
			cc.noStore = true
		case "no-cache":
			cc.noCache = true
		case "private":
			cc.private = true
		case "public":
			cc.public = true
		case "must-revalidate":
			cc.mustRevalidate = true
		case "proxy-revalidate":
			cc.proxyRevalidate = true
		case "max-age":
			if d, ok := parseSeconds(arg); ok {
				cc.hasMaxAge, cc.maxAge = true, d
			}
		case "s-maxage":
			if d, ok := parseSeconds(arg); ok {
				cc.hasSMaxAge, cc.sMaxAge = true, d
			}
		case "min-fresh":
			if d, ok := parseSeconds(arg); ok {
				cc.hasMinFresh, cc.minFresh = true, d
			}
		case "max-stale":
			if arg == "" {
				cc.hasMaxStale, cc.maxStale = true, time.Duration(1<<62)
				continue
			}
			if d, ok := parseSeconds(arg); ok {
				cc.hasMaxStale, cc.maxStale = true, d
			}
		}
	}
	return cc
}

func splitDirective(v string) (name, arg string) {
	if i := strings.IndexByte(v, '='); i >= 0 {
		return strings.TrimSpace(v[:i]), strings.Trim(strings.TrimSpace(v[i+1:]), `"`)
	}
	return strings.TrimSpace(v), ""
}

func parseSeconds(s string) (time.Duration, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
