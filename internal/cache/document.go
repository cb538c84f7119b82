package cache

import (
	"time"

	"github.com/golang/snappy"
	"github.com/philhofer/fwd"
	"github.com/tinylib/msgp/msgp"

	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/transact"
)

// Document is the wire shape a transact.CachedObject is flattened to
// before storage. Header fields are kept as an ordered (name, value)
// list rather than a map so repeated headers (e.g. Set-Cookie, Via)
// round-trip without collapsing.
type Document struct {
	StatusCode   int
	Reason       string
	VersionMajor int
	VersionMinor int
	HeaderNames  []string
	HeaderValues []string
	Body         []byte
	ReqSentUnix  int64
	RespRecvUnix int64
	TTLInCache   time.Duration
}

// FromCachedObject flattens a transact.CachedObject plus its response
// body into a Document ready for MarshalMsg.
func FromCachedObject(obj *transact.CachedObject, body []byte) *Document {
	d := &Document{
		Body:         body,
		ReqSentUnix:  obj.ReqSent.UnixNano(),
		RespRecvUnix: obj.RespReceived.UnixNano(),
		TTLInCache:   obj.TTLInCache,
	}
	if obj.RespHdr != nil {
		d.StatusCode = obj.RespHdr.StatusCode
		d.Reason = obj.RespHdr.Reason
		d.VersionMajor = obj.RespHdr.VersionMajor
		d.VersionMinor = obj.RespHdr.VersionMinor
		for _, f := range obj.RespHdr.Fields() {
			d.HeaderNames = append(d.HeaderNames, f.Name)
			d.HeaderValues = append(d.HeaderValues, f.Value)
		}
	}
	return d
}

// ToCachedObject rebuilds a transact.CachedObject (and the cached body)
// from a decoded Document.
func (d *Document) ToCachedObject() (*transact.CachedObject, []byte) {
	h := headers.NewResponseHeader()
	h.StatusCode = d.StatusCode
	h.Reason = d.Reason
	h.VersionMajor = d.VersionMajor
	h.VersionMinor = d.VersionMinor
	for i := range d.HeaderNames {
		h.Add(d.HeaderNames[i], d.HeaderValues[i])
	}
	return &transact.CachedObject{
		RespHdr:      h,
		ReqSent:      time.Unix(0, d.ReqSentUnix),
		RespReceived: time.Unix(0, d.RespRecvUnix),
		TTLInCache:   d.TTLInCache,
	}, d.Body
}

// MarshalMsg hand-encodes Document in MessagePack, following the shape
// msgp-generated code produces for a flat struct: a fixed-size map
// header followed by each field's key and MessagePack-typed value.
func (d *Document) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 9)
	b = msgp.AppendString(b, "status")
	b = msgp.AppendInt(b, d.StatusCode)
	b = msgp.AppendString(b, "reason")
	b = msgp.AppendString(b, d.Reason)
	b = msgp.AppendString(b, "vmajor")
	b = msgp.AppendInt(b, d.VersionMajor)
	b = msgp.AppendString(b, "vminor")
	b = msgp.AppendInt(b, d.VersionMinor)
	b = msgp.AppendString(b, "hnames")
	b = appendStringArray(b, d.HeaderNames)
	b = msgp.AppendString(b, "hvalues")
	b = appendStringArray(b, d.HeaderValues)
	b = msgp.AppendString(b, "body")
	b = msgp.AppendBytes(b, d.Body)
	b = msgp.AppendString(b, "reqsent")
	b = msgp.AppendInt64(b, d.ReqSentUnix)
	b = msgp.AppendString(b, "respr")
	b = msgp.AppendInt64(b, d.RespRecvUnix)
	return b, nil
}

// UnmarshalMsg decodes a Document previously produced by MarshalMsg.
func (d *Document) UnmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		key, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return b, err
		}
		switch key {
		case "status":
			d.StatusCode, b, err = msgp.ReadIntBytes(b)
		case "reason":
			d.Reason, b, err = msgp.ReadStringBytes(b)
		case "vmajor":
			d.VersionMajor, b, err = msgp.ReadIntBytes(b)
		case "vminor":
			d.VersionMinor, b, err = msgp.ReadIntBytes(b)
		case "hnames":
			d.HeaderNames, b, err = readStringArray(b)
		case "hvalues":
			d.HeaderValues, b, err = readStringArray(b)
		case "body":
			d.Body, b, err = msgp.ReadBytesBytes(b, nil)
		case "reqsent":
			d.ReqSentUnix, b, err = msgp.ReadInt64Bytes(b)
		case "respr":
			d.RespRecvUnix, b, err = msgp.ReadInt64Bytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return b, err
		}
	}
	return b, nil
}

func appendStringArray(b []byte, ss []string) []byte {
	b = msgp.AppendArrayHeader(b, uint32(len(ss)))
	for _, s := range ss {
		b = msgp.AppendString(b, s)
	}
	return b
}

func readStringArray(b []byte) ([]string, []byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var s string
		s, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return out, b, err
		}
		out = append(out, s)
	}
	return out, b, nil
}

// EncodeMsg streams the MarshalMsg encoding to w, the msgp.Writer-based
// path generated code uses for large documents instead of buffering.
func (d *Document) EncodeMsg(w *msgp.Writer) error {
	b, err := d.MarshalMsg(nil)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// DecodeMsg is the fwd.Reader-based counterpart to EncodeMsg.
func (d *Document) DecodeMsg(r *msgp.Reader) error {
	raw, err := ioReadAll(r.R)
	if err != nil {
		return err
	}
	_, err = d.UnmarshalMsg(raw)
	return err
}

func ioReadAll(r *fwd.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if err.Error() == "EOF" {
				return out, nil
			}
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

// Compress snappy-encodes data; WriteCache's compression step.
func Compress(data []byte) []byte { return snappy.Encode(nil, data) }

// Decompress snappy-decodes data; QueryCache's decompression step.
func Decompress(data []byte) ([]byte, error) { return snappy.Decode(nil, data) }
