// Package freshness implements the cache freshness/staleness decision,
// modeled closely on RFC 7234's age and freshness-lifetime calculations.
package freshness

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/corehttp/txcore/internal/headers"
)

// unboundedAgeLimit stands in for "no client-imposed ceiling": large
// enough that current_age will never exceed it on its own.
const unboundedAgeLimit = time.Duration(1<<62 - 1)

// Disposition is the freshness verdict for a cached response.
type Disposition int

const (
	Fresh Disposition = iota
	Warning
	Stale
)

func (d Disposition) String() string {
	switch d {
	case Fresh:
		return "fresh"
	case Warning:
		return "warning"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Limits are the operator-configured clamps and heuristic factors the
// freshness-lifetime computation consults.
type Limits struct {
	GuaranteedMaxLifetime time.Duration
	HeuristicMinLifetime  time.Duration
	HeuristicMaxLifetime  time.Duration
	HeuristicLMFactor     float64
}

// DefaultLimits mirrors common HTTP cache defaults: no guaranteed
// lifetime above a year, a conservative heuristic window, and the
// textbook 10% last-modified heuristic factor.
func DefaultLimits() Limits {
	return Limits{
		GuaranteedMaxLifetime: 365 * 24 * time.Hour,
		HeuristicMinLifetime:  0,
		HeuristicMaxLifetime:  24 * time.Hour,
		HeuristicLMFactor:     0.1,
	}
}

// Result carries the disposition plus the observability detail the
// transaction attaches to the Via header.
type Result struct {
	Disposition Disposition
	Heuristic   bool
	CurrentAge  time.Duration
	FreshLimit  time.Duration
	AgeLimit    time.Duration
}

// Evaluate decides whether a cached response, fetched at reqSent and
// answered at respReceived, remains usable as of now. ttlInCache, when
// positive, bypasses all HTTP freshness rules entirely; it
// models an explicit operator-configured pin on this object's residency.
func Evaluate(reqHdr, respHdr *headers.HttpHeader, reqSent, respReceived, now time.Time, ttlInCache time.Duration, lim Limits) Result {
	if ttlInCache > 0 {
		resident := now.Sub(respReceived)
		if resident > ttlInCache {
			return Result{Disposition: Stale}
		}
		return Result{Disposition: Fresh}
	}

	currentAge := computeCurrentAge(respHdr, reqSent, respReceived, now)
	freshLimit, heuristic := computeFreshLimit(respHdr, lim)
	// age_limit is unbounded until a client directive tightens or loosens
	// it; unlike fresh_limit it is not, by default, the origin's limit.
	ageLimit := unboundedAgeLimit

	// Adjust by client Cache-Control: max-age lowers
	// the age limit, min-fresh lowers it further against the fresh
	// limit, and max-stale raises it unless the origin mandates
	// revalidation (step 5).
	cc := parseCacheControl(reqHdr)
	if cc.hasMaxAge && cc.maxAge < ageLimit {
		ageLimit = cc.maxAge
	}
	if cc.hasMinFresh {
		if v := freshLimit - cc.minFresh; v < ageLimit {
			ageLimit = v
		}
	}
	if cc.hasMaxStale && !mandatesRevalidation(respHdr) {
		if v := freshLimit + cc.maxStale; v > ageLimit {
			ageLimit = v
		}
	}

	res := Result{Heuristic: heuristic, CurrentAge: currentAge, FreshLimit: freshLimit, AgeLimit: ageLimit}
	switch {
	case currentAge > ageLimit:
		res.Disposition = Stale
	case currentAge > freshLimit && mandatesRevalidation(respHdr):
		res.Disposition = Stale
	case currentAge > freshLimit:
		res.Disposition = Warning
	default:
		res.Disposition = Fresh
	}
	return res
}

// computeCurrentAge follows RFC 7234 §4.2.3: age_value from the response
// Age header (if present), corrected for clock skew against the
// apparent age measured from Date, plus the time resident in cache since
// the response arrived.
func computeCurrentAge(respHdr *headers.HttpHeader, reqSent, respReceived, now time.Time) time.Duration {
	var ageValue time.Duration
	if v, ok := respHdr.Get(headers.NameAge); ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
			ageValue = time.Duration(secs) * time.Second
		}
	}
	dateValue := respReceived
	if v, ok := respHdr.Get("Date"); ok {
		if t, err := parseHTTPDate(v); err == nil {
			dateValue = t
		}
	}

	apparentAge := respReceived.Sub(dateValue)
	if apparentAge < 0 {
		apparentAge = 0
	}
	responseDelay := respReceived.Sub(reqSent)
	if responseDelay < 0 {
		responseDelay = 0
	}
	correctedAgeValue := ageValue + responseDelay

	correctedInitialAge := apparentAge
	if correctedAgeValue > correctedInitialAge {
		correctedInitialAge = correctedAgeValue
	}
	residentTime := now.Sub(respReceived)
	if residentTime < 0 {
		residentTime = 0
	}
	return correctedInitialAge + residentTime
}

// computeFreshLimit tries its three sources of a freshness lifetime in
// priority order.
func computeFreshLimit(respHdr *headers.HttpHeader, lim Limits) (time.Duration, bool) {
	cc := parseCacheControl(respHdr)
	if cc.hasSMaxAge {
		return clamp(cc.sMaxAge, 0, lim.GuaranteedMaxLifetime), false
	}
	if cc.hasMaxAge {
		return clamp(cc.maxAge, 0, lim.GuaranteedMaxLifetime), false
	}

	dateStr, hasDate := respHdr.Get("Date")
	if v, ok := respHdr.Get("Expires"); ok && hasDate {
		if expires, err := parseHTTPDate(v); err == nil {
			if dateT, err2 := parseHTTPDate(dateStr); err2 == nil && expires.After(dateT) {
				return clamp(expires.Sub(dateT), 0, lim.GuaranteedMaxLifetime), false
			}
		}
	}

	if lm, ok := respHdr.Get(headers.NameLastModified); ok && hasDate {
		if lmT, err := parseHTTPDate(lm); err == nil {
			if dateT, err2 := parseHTTPDate(dateStr); err2 == nil && dateT.After(lmT) {
				fl := time.Duration(float64(dateT.Sub(lmT)) * lim.HeuristicLMFactor)
				return clamp(fl, lim.HeuristicMinLifetime, lim.HeuristicMaxLifetime), true
			}
		}
	}
	return clamp(0, lim.HeuristicMinLifetime, lim.HeuristicMaxLifetime), true
}

// parseHTTPDate tries the three date formats RFC 7231 §7.1.1.1 permits.
func parseHTTPDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.ANSIC} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("freshness: bad HTTP date %q", v)
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mandatesRevalidation(respHdr *headers.HttpHeader) bool {
	cc := parseCacheControl(respHdr)
	return cc.mustRevalidate || cc.proxyRevalidate
}
