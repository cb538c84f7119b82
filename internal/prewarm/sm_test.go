package prewarm

import "testing"

type fakeVC struct{ closed bool }

func (f *fakeVC) Close() error { f.closed = true; return nil }

func TestSMHappyPath(t *testing.T) {
	sm := NewSM("origin:443", 3)
	if sm.State != StateInit {
		t.Fatalf("new SM state = %v, want Init", sm.State)
	}
	sm.Start()
	if sm.State != StateDnsLookup {
		t.Fatalf("after Start, state = %v, want DnsLookup", sm.State)
	}
	sm.Resolved()
	if sm.State != StateNetOpen {
		t.Fatalf("after Resolved, state = %v, want NetOpen", sm.State)
	}
	vc := &fakeVC{}
	sm.Handshake(vc)
	if sm.State != StateOpen {
		t.Fatalf("after Handshake, state = %v, want Open", sm.State)
	}
	for _, s := range []State{StateInit, StateDnsLookup, StateNetOpen, StateOpen} {
		if _, ok := sm.Milestones[s]; !ok {
			t.Fatalf("missing milestone for %v", s)
		}
	}
}

func TestSMRetryThenCloses(t *testing.T) {
	sm := NewSM("origin:443", 2)
	sm.Start()
	sm.Retry() // 1/2, back to Init
	if sm.State != StateInit || sm.RetryCount != 1 {
		t.Fatalf("after first retry: state=%v count=%d", sm.State, sm.RetryCount)
	}
	sm.Start()
	sm.Retry() // 2/2, back to Init
	if sm.State != StateInit || sm.RetryCount != 2 {
		t.Fatalf("after second retry: state=%v count=%d", sm.State, sm.RetryCount)
	}
	sm.Start()
	sm.Retry() // 3rd failure exceeds ceiling of 2
	if sm.State != StateClosed {
		t.Fatalf("after ceiling exceeded, state = %v, want Closed", sm.State)
	}
	if !sm.Deletable() {
		t.Fatal("closed SM should be deletable")
	}
}

func TestSMMoveNetVCDetaches(t *testing.T) {
	sm := NewSM("origin:443", 1)
	sm.Start()
	sm.Resolved()
	vc := &fakeVC{}
	sm.Handshake(vc)

	got := sm.MoveNetVC()
	if got != vc {
		t.Fatal("MoveNetVC should return the attached vc")
	}
	if sm.State != StateClosed {
		t.Fatalf("after MoveNetVC, state = %v, want Closed", sm.State)
	}
	if vc.closed {
		t.Fatal("MoveNetVC hands off ownership, it must not close the vc itself")
	}
}

func TestSMStopClosesVC(t *testing.T) {
	sm := NewSM("origin:443", 1)
	sm.Start()
	sm.Resolved()
	vc := &fakeVC{}
	sm.Handshake(vc)
	sm.Stop()
	if !vc.closed {
		t.Fatal("Stop should close an attached vc")
	}
	if sm.State != StateClosed {
		t.Fatalf("state = %v, want Closed", sm.State)
	}
}
