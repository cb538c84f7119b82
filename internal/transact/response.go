package transact

import (
	"strconv"
	"time"

	"github.com/corehttp/txcore/internal/headers"
)

// BuildResponseOptions carries the knobs build_response consults beyond the base header itself.
type BuildResponseOptions struct {
	Now              time.Time
	Age              time.Duration
	HasAge           bool
	ViaString        string // non-empty to prepend a Via field.
	InjectHSTS       bool
	HSTSValue        string
	VersionMajor     int
	VersionMinor     int
}

// BuildResponse copies/normalizes base into a fresh response header at the
// given status/reason, inserting Date/Age, optionally prepending Via and
// injecting HSTS.
func BuildResponse(base *headers.HttpHeader, status int, reason string, opts BuildResponseOptions) *headers.HttpHeader {
	out := base.Clone()
	out.StatusCode = status
	out.Reason = reason
	if opts.VersionMajor != 0 || opts.VersionMinor != 0 {
		out.VersionMajor, out.VersionMinor = opts.VersionMajor, opts.VersionMinor
	}

	out.Set(headers.NameDate, opts.Now.UTC().Format(time.RFC1123))
	if opts.HasAge {
		out.Set(headers.NameAge, strconv.FormatInt(int64(opts.Age/time.Second), 10))
	}

	if opts.ViaString != "" {
		existing, _ := out.Get(headers.NameVia)
		if existing != "" {
			out.Set(headers.NameVia, opts.ViaString+", "+existing)
		} else {
			out.Set(headers.NameVia, opts.ViaString)
		}
	}

	if opts.InjectHSTS && opts.HSTSValue != "" {
		out.Set("Strict-Transport-Security", opts.HSTSValue)
	}

	return out
}

// BuildErrorResponse turns a non-nil TransactionError into a synthesized
// response, the single place the driving loop funnels error-path
// transactions through.
func BuildErrorResponse(reqHdr *headers.HttpHeader, te *TransactionError, now time.Time) *headers.HttpHeader {
	h := headers.NewResponseHeader()
	h.VersionMajor, h.VersionMinor = 1, 1
	if reqHdr != nil {
		h.VersionMajor, h.VersionMinor = reqHdr.VersionMajor, reqHdr.VersionMinor
	}
	h.StatusCode = te.StatusCode
	h.Reason = statusReason(te.StatusCode)
	h.Set(headers.NameDate, now.UTC().Format(time.RFC1123))
	h.Set(headers.NameCacheControl, "no-store")
	h.Delete(headers.NameExpires)
	h.Delete(headers.NameLastModified)
	h.Set(headers.NameConnection, "close")
	h.Set("X-Body-Tag", te.BodyTag)
	return h
}

var statusReasons = map[int]string{
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	405: "Method Not Allowed",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	413: "Payload Too Large",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

func statusReason(status int) string {
	if r, ok := statusReasons[status]; ok {
		return r
	}
	return "Error"
}
