package cache

import (
	"testing"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/transact"
)

func TestDocumentMarshalRoundTrip(t *testing.T) {
	d := &Document{
		StatusCode:   200,
		Reason:       "OK",
		VersionMajor: 1,
		VersionMinor: 1,
		HeaderNames:  []string{"Content-Type", "Set-Cookie", "Set-Cookie"},
		HeaderValues: []string{"text/plain", "a=1", "b=2"},
		Body:         []byte("hello world"),
		ReqSentUnix:  1000,
		RespRecvUnix: 2000,
		TTLInCache:   5 * time.Second,
	}

	b, err := d.MarshalMsg(nil)
	if err != nil {
		t.Fatalf("MarshalMsg: %v", err)
	}

	var out Document
	left, err := out.UnmarshalMsg(b)
	if err != nil {
		t.Fatalf("UnmarshalMsg: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected no leftover bytes, got %d", len(left))
	}

	if out.StatusCode != d.StatusCode || out.Reason != d.Reason {
		t.Fatalf("status/reason mismatch: %+v", out)
	}
	if out.VersionMajor != d.VersionMajor || out.VersionMinor != d.VersionMinor {
		t.Fatalf("version mismatch: %+v", out)
	}
	if string(out.Body) != string(d.Body) {
		t.Fatalf("body mismatch: %q", out.Body)
	}
	if out.ReqSentUnix != d.ReqSentUnix || out.RespRecvUnix != d.RespRecvUnix {
		t.Fatalf("timestamps mismatch: %+v", out)
	}
	if len(out.HeaderNames) != len(d.HeaderNames) {
		t.Fatalf("header name count mismatch: %v", out.HeaderNames)
	}
	for i := range d.HeaderNames {
		if out.HeaderNames[i] != d.HeaderNames[i] || out.HeaderValues[i] != d.HeaderValues[i] {
			t.Fatalf("header %d mismatch: got (%s,%s) want (%s,%s)", i,
				out.HeaderNames[i], out.HeaderValues[i], d.HeaderNames[i], d.HeaderValues[i])
		}
	}
}

func TestDocumentUnmarshalSkipsUnknownKeys(t *testing.T) {
	d := &Document{StatusCode: 404, Reason: "Not Found"}
	b, err := d.MarshalMsg(nil)
	if err != nil {
		t.Fatalf("MarshalMsg: %v", err)
	}
	// Re-frame the encoding with one extra, unrecognised key in front.
	n, rest, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		t.Fatalf("ReadMapHeaderBytes: %v", err)
	}
	b = msgp.AppendMapHeader(nil, n+1)
	b = msgp.AppendString(b, "x-unknown")
	b = msgp.AppendString(b, "ignored")
	b = append(b, rest...)

	var out Document
	if _, err := out.UnmarshalMsg(b); err != nil {
		t.Fatalf("UnmarshalMsg: %v", err)
	}
	if out.StatusCode != 404 || out.Reason != "Not Found" {
		t.Fatalf("got %+v", out)
	}
}

func TestFromCachedObjectAndBack(t *testing.T) {
	h := headers.NewResponseHeader()
	h.StatusCode = 200
	h.Reason = "OK"
	h.VersionMajor = 1
	h.VersionMinor = 1
	h.Add("X-Custom", "value")

	obj := &transact.CachedObject{
		RespHdr:      h,
		ReqSent:      time.Unix(0, 5000),
		RespReceived: time.Unix(0, 6000),
		TTLInCache:   10 * time.Second,
	}

	d := FromCachedObject(obj, []byte("body-bytes"))
	if d.StatusCode != 200 || d.Reason != "OK" {
		t.Fatalf("unexpected document: %+v", d)
	}

	gotObj, gotBody := d.ToCachedObject()
	if string(gotBody) != "body-bytes" {
		t.Fatalf("body mismatch: %q", gotBody)
	}
	if gotObj.RespHdr.StatusCode != 200 {
		t.Fatalf("status mismatch: %d", gotObj.RespHdr.StatusCode)
	}
	if v := gotObj.RespHdr.FieldsNamed("X-Custom"); len(v) != 1 || v[0].Value != "value" {
		t.Fatalf("custom header not preserved: %+v", v)
	}
	if gotObj.TTLInCache != 10*time.Second {
		t.Fatalf("ttl mismatch: %v", gotObj.TTLInCache)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")
	compressed := Compress(data)
	if len(compressed) == 0 {
		t.Fatal("expected non-empty compressed output")
	}
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(data) {
		t.Fatalf("round trip mismatch: got %q", out)
	}
}
