// Package headers implements the well-known HTTP header and URL model
// that the rest of the module
// builds on: an ordered multimap of header fields with a presence mask
// for the handful of fields the transaction state machine inspects on
// nearly every request, plus the quoted-CSV sub-value iterator used for
// fields like Cache-Control and Vary.
package headers

// Method is a well-known-string index for an HTTP request method, mirroring
// a small enum so method checks are integer comparisons rather
// than string compares on the hot path.
type Method int

// Well-known method indices. MethodUnknown covers any verb outside this set;
// callers needing the literal text for those should keep the original string.
const (
	MethodUnknown Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodOptions
	MethodConnect
	MethodTrace
	MethodPatch
	MethodPush
)

var methodNames = map[string]Method{
	"GET":     MethodGet,
	"HEAD":    MethodHead,
	"POST":    MethodPost,
	"PUT":     MethodPut,
	"DELETE":  MethodDelete,
	"OPTIONS": MethodOptions,
	"CONNECT": MethodConnect,
	"TRACE":   MethodTrace,
	"PATCH":   MethodPatch,
	"PUSH":    MethodPush,
}

var methodStrings = map[Method]string{
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
	MethodConnect: "CONNECT",
	MethodTrace:   "TRACE",
	MethodPatch:   "PATCH",
	MethodPush:    "PUSH",
}

// ParseMethod maps an HTTP request-line method token to its well-known index.
func ParseMethod(s string) Method {
	if m, ok := methodNames[s]; ok {
		return m
	}
	return MethodUnknown
}

// String returns the canonical wire text for m, or "" for MethodUnknown.
func (m Method) String() string {
	return methodStrings[m]
}

// IsSafe reports whether m is a "safe" method per RFC 7231 §4.2.1 — used by
// the ConnectionPlanner to decide whether a failed attempt may be retried.
func (m Method) IsSafe() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodTrace:
		return true
	default:
		return false
	}
}

// CacheLookupable reports whether requests using m may ever be served from
// or written to cache, independent of any other cacheability rule.
func (m Method) CacheLookupable() bool {
	switch m {
	case MethodGet, MethodHead:
		return true
	default:
		return false
	}
}

// RequiresBody reports whether m conventionally carries a request body that
// must be framed by either Content-Length or chunked Transfer-Encoding.
func (m Method) RequiresBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPush, MethodPatch:
		return true
	default:
		return false
	}
}
