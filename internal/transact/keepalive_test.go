package transact

import (
	"testing"

	"github.com/corehttp/txcore/internal/headers"
)

func TestDecideRequestKeepAliveUpstreamNotKeepAlive(t *testing.T) {
	h := headers.NewRequestHeader()
	h.Method = headers.MethodGet
	h.VersionMajor, h.VersionMinor = 1, 1
	if got := DecideRequestKeepAlive(h, RequestKeepAliveConfig{UpstreamKeepAlive: false}); got != KeepAliveClose {
		t.Fatalf("got %v, want KeepAliveClose", got)
	}
}

func TestDecideRequestKeepAliveHTTP09(t *testing.T) {
	h := headers.NewRequestHeader()
	h.Method = headers.MethodGet
	h.VersionMajor, h.VersionMinor = 0, 9
	if got := DecideRequestKeepAlive(h, RequestKeepAliveConfig{UpstreamKeepAlive: true}); got != KeepAliveClose {
		t.Fatalf("got %v, want KeepAliveClose for HTTP/0.9", got)
	}
}

func TestDecideRequestKeepAlivePostNoContentLength(t *testing.T) {
	h := headers.NewRequestHeader()
	h.Method = headers.MethodPost
	h.VersionMajor, h.VersionMinor = 1, 1
	if got := DecideRequestKeepAlive(h, RequestKeepAliveConfig{UpstreamKeepAlive: true}); got != KeepAliveClose {
		t.Fatalf("got %v, want KeepAliveClose for bodyless POST framing", got)
	}
}

func TestDecideRequestKeepAliveHappy(t *testing.T) {
	h := headers.NewRequestHeader()
	h.Method = headers.MethodGet
	h.VersionMajor, h.VersionMinor = 1, 1
	if got := DecideRequestKeepAlive(h, RequestKeepAliveConfig{UpstreamKeepAlive: true}); got != KeepAliveConnection {
		t.Fatalf("got %v, want KeepAliveConnection", got)
	}
}

func TestDecideResponseKeepAliveHeadAlwaysConnection(t *testing.T) {
	got := DecideResponseKeepAlive(headers.MethodHead, 200, ResponseKeepAliveConfig{})
	if got != KeepAliveConnection {
		t.Fatalf("got %v, want KeepAliveConnection (HEAD has no body to frame)", got)
	}
}

func TestDecideResponseKeepAliveUntrustedCLForcesClose(t *testing.T) {
	cfg := ResponseKeepAliveConfig{ContentLengthTrusted: false, ChunkingEnabled: false}
	got := DecideResponseKeepAlive(headers.MethodGet, 200, cfg)
	if got != KeepAliveClose {
		t.Fatalf("got %v, want KeepAliveClose", got)
	}
}

func TestDecideResponseKeepAlivePushBypassesUntrustedCLRule(t *testing.T) {
	cfg := ResponseKeepAliveConfig{ContentLengthTrusted: false, ChunkingEnabled: false}
	got := DecideResponseKeepAlive(headers.MethodPush, 200, cfg)
	if got != KeepAliveConnection {
		t.Fatalf("got %v, want KeepAliveConnection for PUSH", got)
	}
}

func TestUseChunkedResponse(t *testing.T) {
	cfg := ResponseKeepAliveConfig{ClientIsHTTP11: true, ChunkingEnabled: true, ContentLengthTrusted: false}
	if !UseChunkedResponse(cfg) {
		t.Fatal("expected chunked response to be used")
	}
	cfg.ContentLengthTrusted = true
	if UseChunkedResponse(cfg) {
		t.Fatal("trusted Content-Length should not need chunking")
	}
}

func TestApplyKeepAlivePreservesProxyConnectionSpelling(t *testing.T) {
	h := headers.NewResponseHeader()
	h.Add(headers.NameConnection, "upgrade")
	ApplyKeepAlive(h, true, KeepAliveClose)
	if h.Has(headers.NameConnection) {
		t.Fatal("Connection must be stripped when client used Proxy-Connection")
	}
	v, ok := h.Get(headers.NameProxyConnection)
	if !ok || v != "close" {
		t.Fatalf("Proxy-Connection = %q, ok=%v, want close", v, ok)
	}
}

func TestApplyKeepAliveDisabledOmitsField(t *testing.T) {
	h := headers.NewResponseHeader()
	h.Add(headers.NameConnection, "keep-alive")
	ApplyKeepAlive(h, false, KeepAliveDisabled)
	if h.Has(headers.NameConnection) || h.Has(headers.NameProxyConnection) {
		t.Fatal("Disabled disposition must emit neither field")
	}
}
