package transform

import (
	"io"
	"sync"
)

// Terminus is the final stage of a chain: the transaction reads its
// response body from here via Read. It buffers whatever the upstream
// side writes and hands out exactly as much as the reader currently
// wants.
type Terminus struct {
	baseStage
	mu        sync.Mutex
	buf       []byte
	closed2   bool
	firstLoad bool
	onEvent   EventFunc
}

// NewTerminus returns an empty terminus that reports events through
// onEvent.
func NewTerminus(onEvent EventFunc) *Terminus {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Terminus{onEvent: onEvent}
}

// DoIOWrite appends upstream bytes to the buffer available for Read. The
// very first write of the terminus's lifetime raises
// EventTransformReadReady before anything else, the transaction's last
// chance to amend the outgoing response header.
func (t *Terminus) DoIOWrite(p []byte) (int, error) {
	t.mu.Lock()
	first := !t.firstLoad
	t.firstLoad = true
	t.buf = append(t.buf, p...)
	t.mu.Unlock()

	if first {
		t.onEvent(EventTransformReadReady)
	}
	t.onEvent(EventWriteReady)
	return len(p), nil
}

// Read drains up to len(p) buffered bytes, implementing the
// transfer = min(bytes_upstream_has, bytes_client_wants_to_consume) rule.
// It raises ReadReady (or ReadComplete once closed and drained) after the
// transfer, then WriteReady again if backlog remains.
func (t *Terminus) Read(p []byte) (int, error) {
	t.mu.Lock()
	n := len(p)
	if n > len(t.buf) {
		n = len(t.buf)
	}
	copy(p, t.buf[:n])
	t.buf = t.buf[n:]
	remaining := len(t.buf)
	closed := t.closed2
	t.mu.Unlock()

	if n > 0 {
		if closed && remaining == 0 {
			t.onEvent(EventReadComplete)
		} else {
			t.onEvent(EventReadReady)
		}
		if remaining > 0 {
			t.onEvent(EventWriteReady)
		}
	}
	if n == 0 && closed {
		return 0, io.EOF
	}
	return n, nil
}

// DoIOClose marks the terminus closed; any buffered bytes remain
// readable until drained, after which Deletable becomes true.
func (t *Terminus) DoIOClose(err error) {
	t.baseStage.DoIOClose(err)
	t.mu.Lock()
	t.closed2 = true
	t.mu.Unlock()
}

// Deletable additionally requires the read buffer to have been fully
// drained by the client side.
func (t *Terminus) Deletable() bool {
	t.mu.Lock()
	drained := len(t.buf) == 0
	t.mu.Unlock()
	return t.baseStage.Deletable() && drained
}

func (t *Terminus) Reenable() {}

// Backlog reports the number of buffered, unread bytes.
func (t *Terminus) Backlog(limit int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.buf)
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

