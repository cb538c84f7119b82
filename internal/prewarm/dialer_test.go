package prewarm

import (
	"net"
	"testing"
	"time"
)

func TestDialOpensAndCloses(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	vc, err := Dial(l.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := vc.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestDialFailureIsRetryable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	if _, err := Dial(addr, 500*time.Millisecond); err == nil {
		t.Fatal("expected a connect error against a closed listener")
	}
}

func TestOpenerDrivesAdvanceAll(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()
	dst := l.Addr().String()

	p := New()
	p.Configure(dst, Config{Algorithm: V1, RequestedSize: 1, Min: 1, Max: 2, MaxRetries: 1})
	p.Tick(dst)
	p.AdvanceAll(dst, Opener(dst, 2*time.Second))
	p.Tick(dst)

	vc, ok := p.Borrow(dst)
	if !ok {
		t.Fatal("expected a pooled connection after AdvanceAll")
	}
	vc.Close()
}
