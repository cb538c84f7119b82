package prewarm

import "testing"

func openUpstream() (NetVC, error) { return &fakeVC{}, nil }

func TestPoolTickV1FillsToMin(t *testing.T) {
	p := New()
	p.Configure("origin:443", Config{Algorithm: V1, RequestedSize: 0, Min: 3, Max: -1, MaxRetries: 2})
	started := p.Tick("origin:443")
	if started != 3 {
		t.Fatalf("started = %d, want 3", started)
	}
	initN, openN := p.Counts("origin:443")
	if initN != 3 || openN != 0 {
		t.Fatalf("counts = (%d,%d), want (3,0)", initN, openN)
	}

	p.AdvanceAll("origin:443", openUpstream)
	p.Tick("origin:443") // reap init_list -> open_list
	initN, openN = p.Counts("origin:443")
	if initN != 0 || openN != 3 {
		t.Fatalf("after advance, counts = (%d,%d), want (0,3)", initN, openN)
	}
}

func TestPoolBorrowRemovesFromOpenList(t *testing.T) {
	p := New()
	p.Configure("origin:443", Config{Algorithm: V1, Min: 1, Max: -1, MaxRetries: 1})
	p.Tick("origin:443")
	p.AdvanceAll("origin:443", openUpstream)
	p.Tick("origin:443")

	vc, ok := p.Borrow("origin:443")
	if !ok || vc == nil {
		t.Fatal("expected a successful borrow")
	}
	_, openN := p.Counts("origin:443")
	if openN != 0 {
		t.Fatalf("open list should be empty after borrow, got %d", openN)
	}

	_, ok = p.Borrow("origin:443")
	if ok {
		t.Fatal("second borrow on an empty open_list should miss")
	}
}

func TestPoolBorrowMissStartsReplacementUnderV2(t *testing.T) {
	p := New()
	p.Configure("origin:443", Config{Algorithm: V2, Min: 0, Max: 5, MaxRetries: 1, Rate: 1.0})
	_, ok := p.Borrow("origin:443")
	if ok {
		t.Fatal("expected a miss on an empty pool")
	}
	initN, _ := p.Counts("origin:443")
	if initN != 1 {
		t.Fatalf("V2 should start a replacement SM on miss, init count = %d", initN)
	}
}

func TestActivityCopReconnectsStale(t *testing.T) {
	p := New()
	p.Configure("origin:443", Config{Algorithm: V1, Min: 1, Max: -1, MaxRetries: 1})
	p.Tick("origin:443")
	p.AdvanceAll("origin:443", openUpstream)
	p.Tick("origin:443")

	cop := NewActivityCop(p, -1) // negative MaxAge: everything is stale
	n := cop.Sweep("origin:443")
	if n != 1 {
		t.Fatalf("expected 1 reconnect, got %d", n)
	}
	initN, _ := p.Counts("origin:443")
	if initN != 1 {
		t.Fatalf("expected a replacement SM started, init count = %d", initN)
	}
}
