package transact

import (
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/corehttp/txcore/internal/headers"
)

// ValidationConfig holds the knobs ValidateRequest consults.
type ValidationConfig struct {
	AllowedConnectPorts   map[uint16]bool
	TreatMissingCLAsChunked bool
	TransportIsChunked    bool
}

// ValidateRequest classifies an incoming request, returning
// nil when the request is well-formed enough to proceed.
func ValidateRequest(h *headers.HttpHeader, cfg ValidationConfig) *TransactionError {
	isHTTP09 := h.VersionMajor == 0 && h.VersionMinor == 9

	if !isHTTP09 && !h.Presence().Has(headers.PresenceHost) && h.URL.HostString() == "" {
		return NewError(ErrMissingHost, nil)
	}

	for _, f := range h.Fields() {
		if !httpguts.ValidHeaderFieldName(f.Name) || !httpguts.ValidHeaderFieldValue(f.Value) {
			return NewError(ErrBadSyntax, nil)
		}
	}
	if host, ok := h.Get(headers.NameHost); ok && !httpguts.ValidHostHeader(host) {
		return NewError(ErrBadSyntax, nil)
	}

	if h.Method == headers.MethodConnect {
		port := h.URL.Port()
		if !cfg.AllowedConnectPorts[port] {
			return NewError(ErrBadConnectPort, nil)
		}
	} else {
		sc := h.URL.Scheme()
		switch sc {
		case headers.SchemeHTTP, headers.SchemeHTTPS, headers.SchemeWS, headers.SchemeWSS:
		case headers.SchemeNone:
			return NewError(ErrNoScheme, nil)
		default:
			return NewError(ErrSchemeNotSupported, nil)
		}
	}

	if h.Method.RequiresBody() {
		cl, hasCL := h.Get(headers.NameContentLength)
		isChunked := transferEncodingIsChunked(h)
		if !hasCL && !isChunked {
			if !(cfg.TreatMissingCLAsChunked && cfg.TransportIsChunked) {
				return NewError(ErrNoPostContentLength, nil)
			}
		} else if hasCL && !isChunked {
			if _, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err != nil {
				return NewError(ErrInvalidPostContentLength, nil)
			}
		}
	}

	if te, ok := h.Get(headers.NameTE); ok {
		for _, tok := range strings.Split(te, ",") {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "identity;q=0" || tok == "identity;q=0.0" {
				return NewError(ErrUnacceptableTE, nil)
			}
		}
	}

	return nil
}

func transferEncodingIsChunked(h *headers.HttpHeader) bool {
	v, ok := h.Get(headers.NameTransferEncoding)
	if !ok {
		return false
	}
	for _, tok := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
			return true
		}
	}
	return false
}

// CacheLookupConfig holds the knobs IsRequestCacheLookupable consults.
type CacheLookupConfig struct {
	CacheHTTPEnabled  bool
	DynamicURLPatterns func(u *headers.Url) bool
	HasTTLOverride    bool
	RangeLookupPermitted bool
}

// IsRequestCacheLookupable decides whether this request is eligible for
// a cache lookup at all.
func IsRequestCacheLookupable(h *headers.HttpHeader, cfg CacheLookupConfig) bool {
	if !h.Method.CacheLookupable() {
		return false
	}
	if !cfg.CacheHTTPEnabled {
		return false
	}
	if cfg.DynamicURLPatterns != nil && cfg.DynamicURLPatterns(h.URL) && !cfg.HasTTLOverride {
		return false
	}
	if h.Presence().Has(headers.PresenceRange) && !cfg.RangeLookupPermitted {
		return false
	}
	return true
}

// IsDNSForced reports whether HandleRequest should skip straight to
// DNSLookup instead of a cache lookup.
func IsDNSForced(h *headers.HttpHeader, numericHost bool, hasParentIPRules bool) bool {
	return numericHost && !hasParentIPRules
}
