package transform

import (
	"fmt"

	"github.com/corehttp/txcore/internal/headers"
)

// RangeSeparator is the multipart/byteranges boundary token used whenever
// more than one range is active.
const RangeSeparator = "RANGE_SEPARATOR"

// Range is one inclusive byte range, 0-indexed against the full entity.
type Range struct {
	Start, End int64
}

func (r Range) length() int64 { return r.End - r.Start + 1 }

type rangeMode int

const (
	modeSkip rangeMode = iota
	modeEmit
	modeDone
)

// RangeStage turns the full origin body into a 206 Partial Content body
// (single range) or a multipart/byteranges stream (multiple ranges),
// skipping and emitting bytes against a single running cursor over the
// underlying entity.
type RangeStage struct {
	baseStage

	ranges        []Range
	contentLength int64
	contentType   string
	multipart     bool

	posIn          int64
	idx            int
	mode           rangeMode
	remaining      int64
	emitted        int64
	needPartHeader bool
}

// NewRangeStage returns a stage that serves ranges out of an entity of
// contentLength bytes with the given original Content-Type (used in each
// multipart part's own Content-Type header).
func NewRangeStage(ranges []Range, contentLength int64, contentType string) *RangeStage {
	r := &RangeStage{
		ranges:        ranges,
		contentLength: contentLength,
		contentType:   contentType,
		multipart:     len(ranges) > 1,
	}
	r.enterRange(0)
	return r
}

func (r *RangeStage) enterRange(idx int) {
	r.idx = idx
	if idx >= len(r.ranges) {
		r.mode = modeDone
		return
	}
	skip := r.ranges[idx].Start - r.posIn
	if skip > 0 {
		r.mode = modeSkip
		r.remaining = skip
	} else {
		r.mode = modeEmit
		r.remaining = r.ranges[idx].length()
		r.needPartHeader = true
	}
}

// RewriteResponseHeader applies the status/Content-Type/Content-Range
// rewrite that must land before any body bytes are emitted.
func (r *RangeStage) RewriteResponseHeader(h *headers.HttpHeader) {
	h.StatusCode = 206
	h.Reason = "Partial Content"
	if r.multipart {
		h.Set(headers.NameContentType, fmt.Sprintf("multipart/byteranges; boundary=%s", RangeSeparator))
		h.Delete(headers.NameContentRange)
	} else if len(r.ranges) == 1 {
		rg := r.ranges[0]
		h.Set(headers.NameContentRange, fmt.Sprintf("bytes %d-%d/%d", rg.Start, rg.End, r.contentLength))
	}
}

// partHeader frames one part. Every boundary after the first part is
// preceded by the CRLF that terminates the previous part's body.
func (r *RangeStage) partHeader(idx int, rg Range) []byte {
	lead := ""
	if idx > 0 {
		lead = "\r\n"
	}
	return []byte(fmt.Sprintf("%s--%s\r\nContent-type: %s\r\nContent-range: bytes %d-%d/%d\r\n\r\n",
		lead, RangeSeparator, r.contentType, rg.Start, rg.End, r.contentLength))
}

func (r *RangeStage) closingBoundary() []byte {
	return []byte(fmt.Sprintf("\r\n--%s--\r\n", RangeSeparator))
}

// DoIOWrite consumes the next chunk of the underlying full entity body,
// discarding bytes outside every active range and forwarding bytes
// inside one, emitting multipart part headers and the closing boundary
// at the appropriate transitions.
func (r *RangeStage) DoIOWrite(p []byte) (int, error) {
	if r.closed {
		return 0, errClosed
	}
	consumed := 0
	for consumed < len(p) {
		switch r.mode {
		case modeDone:
			return consumed, nil
		case modeSkip:
			n := int64(len(p) - consumed)
			if n > r.remaining {
				n = r.remaining
			}
			consumed += int(n)
			r.posIn += n
			r.remaining -= n
			if r.remaining == 0 {
				r.remaining = r.ranges[r.idx].length()
				r.mode = modeEmit
				r.needPartHeader = true
			}
		case modeEmit:
			if r.needPartHeader && r.multipart && r.out != nil {
				r.scheduleEvent()
				r.out.DoIOWrite(r.partHeader(r.idx, r.ranges[r.idx]))
				r.deliverEvent()
			}
			r.needPartHeader = false
			n := int64(len(p) - consumed)
			if n > r.remaining {
				n = r.remaining
			}
			chunk := p[consumed : consumed+int(n)]
			if r.out != nil {
				r.scheduleEvent()
				r.out.DoIOWrite(chunk)
				r.deliverEvent()
			}
			r.emitted += n
			consumed += int(n)
			r.posIn += n
			r.remaining -= n
			if r.remaining == 0 {
				r.enterRange(r.idx + 1)
				if r.mode == modeDone && r.multipart && r.out != nil {
					r.scheduleEvent()
					r.out.DoIOWrite(r.closingBoundary())
					r.deliverEvent()
				}
			}
		}
	}
	return consumed, nil
}

// Emitted returns the number of body bytes emitted to output so far,
// excluding multipart framing — used to check the invariant
// that the sum of emitted bytes equals the declared output length.
func (r *RangeStage) Emitted() int64 {
	return r.emitted
}

func (r *RangeStage) Reenable() {
	if r.out != nil {
		r.out.Reenable()
	}
}

func (r *RangeStage) Backlog(limit int) int {
	return 0
}
