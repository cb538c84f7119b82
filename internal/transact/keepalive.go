package transact

import (
	"github.com/corehttp/txcore/internal/headers"
)

// KeepAlive is the three-way keep-alive disposition.
type KeepAlive int

const (
	KeepAliveConnection KeepAlive = iota
	KeepAliveClose
	KeepAliveDisabled
)

// StripHopByHop removes the hop-by-hop Connection and Proxy-Connection
// fields from h. It does not
// touch any other hop-by-hop field (TE, Upgrade, etc.) — those are
// handled by their own call sites.
func StripHopByHop(h *headers.HttpHeader) {
	h.Delete(headers.NameConnection)
	h.Delete(headers.NameProxyConnection)
}

// RequestKeepAliveConfig holds the knobs the request-side keep-alive
// decision consults.
type RequestKeepAliveConfig struct {
	UpstreamKeepAlive bool
}

// DecideRequestKeepAlive settles the request side:
// Close if upstream isn't keep-alive, the request is HTTP/0.9, or the
// method requires a body and the request has neither a Content-Length
// nor a chunked Transfer-Encoding.
func DecideRequestKeepAlive(h *headers.HttpHeader, cfg RequestKeepAliveConfig) KeepAlive {
	if !cfg.UpstreamKeepAlive {
		return KeepAliveClose
	}
	if h.VersionMajor == 0 && h.VersionMinor == 9 {
		return KeepAliveClose
	}
	if h.Method.RequiresBody() && !h.Presence().Has(headers.PresenceContentLength) && !transferEncodingIsChunked(h) {
		return KeepAliveClose
	}
	return KeepAliveConnection
}

// ResponseKeepAliveConfig holds the knobs the response-side keep-alive
// decision consults.
type ResponseKeepAliveConfig struct {
	ContentLengthTrusted bool
	ChunkingEnabled      bool
	ClientIsHTTP11       bool
	OriginIsClosing      bool
	CanDechunkRechunk    bool
}

// bodyPrecludedByStatusOrMethod reports the small set of responses that
// never carry a body regardless of headers (RFC 7230 §3.3.3).
func bodyPrecludedByStatusOrMethod(method headers.Method, status int) bool {
	if method == headers.MethodHead {
		return true
	}
	if status == 204 || status == 304 {
		return true
	}
	if status >= 100 && status < 200 {
		return true
	}
	return false
}

// DecideResponseKeepAlive settles the response side.
func DecideResponseKeepAlive(method headers.Method, status int, cfg ResponseKeepAliveConfig) KeepAlive {
	if bodyPrecludedByStatusOrMethod(method, status) {
		return KeepAliveConnection
	}
	if !cfg.ChunkingEnabled && !cfg.ContentLengthTrusted && method != headers.MethodPush {
		return KeepAliveClose
	}
	if cfg.OriginIsClosing && !cfg.CanDechunkRechunk {
		return KeepAliveClose
	}
	return KeepAliveConnection
}

// UseChunkedResponse reports whether the response to the client should be
// rechunked: client is 1.1, chunking is enabled in config,
// and the upstream Content-Length can't be trusted.
func UseChunkedResponse(cfg ResponseKeepAliveConfig) bool {
	return cfg.ClientIsHTTP11 && cfg.ChunkingEnabled && !cfg.ContentLengthTrusted
}

// ApplyKeepAlive strips hop-by-hop Connection/Proxy-Connection from h and
// re-emits the correct field: "Proxy-Connection" if the client originally
// sent one (to preserve semantics toward legacy clients that only
// understand that spelling), otherwise "Connection".
func ApplyKeepAlive(h *headers.HttpHeader, clientSentProxyConnection bool, disposition KeepAlive) {
	StripHopByHop(h)
	if disposition == KeepAliveDisabled {
		return
	}
	name := headers.NameConnection
	if clientSentProxyConnection {
		name = headers.NameProxyConnection
	}
	switch disposition {
	case KeepAliveClose:
		h.Set(name, "close")
	case KeepAliveConnection:
		h.Set(name, "keep-alive")
	}
}
