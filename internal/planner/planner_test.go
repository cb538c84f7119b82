package planner

import (
	"net"
	"testing"

	"github.com/corehttp/txcore/internal/headers"
)

func newPlanner(parents []ServerInfo, cfg Config) (*Planner, *ParentTable) {
	origin := ServerInfo{Host: "origin.example", Port: 80}
	table := NewParentTable(parents)
	return New(origin, table, cfg), table
}

func TestFindServerLoopbackForcesOrigin(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{})
	cur := &Current{}
	p.FindServerAndUpdateCurrentInfo(net.ParseIP("127.0.0.1"), headers.MethodGet, true, cur)
	if cur.Target != TargetOrigin || cur.ParentResult != ParentDirect {
		t.Fatalf("loopback should force direct origin, got target=%v result=%v", cur.Target, cur.ParentResult)
	}
}

func TestFindServerUndefinedPicksFirstParent(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}, {Host: "p2"}}, Config{})
	cur := &Current{}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.Target != TargetParent || cur.Server.Host != "p1" {
		t.Fatalf("expected first parent p1, got target=%v server=%v", cur.Target, cur.Server)
	}
	if cur.ParentResult != ParentSpecified {
		t.Fatalf("expected ParentSpecified, got %v", cur.ParentResult)
	}
}

func TestFindServerSpecifiedAdvancesToNextParent(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}, {Host: "p2"}}, Config{})
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.Server.Host != "p2" {
		t.Fatalf("expected advance to p2, got %v", cur.Server.Host)
	}
}

func TestFindServerSpecifiedExhaustedWithoutDNSForwardMarksFail(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{DNSForwardToParentEnabled: false})
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.ParentResult != ParentFail {
		t.Fatalf("expected ParentFail, got %v", cur.ParentResult)
	}
	if cur.Target != TargetOrigin {
		t.Fatalf("expected target Origin as the fallback marker, got %v", cur.Target)
	}
}

func TestFindServerSpecifiedExhaustedWithDNSForwardGoesDirect(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{DNSForwardToParentEnabled: true})
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.ParentResult != ParentDirect || cur.Target != TargetOrigin {
		t.Fatalf("expected direct origin, got target=%v result=%v", cur.Target, cur.ParentResult)
	}
}

func TestFindServerFailBypassesWhenAllowedAndNotFromAPI(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{GoDirectIfParentDead: true})
	cur := &Current{Target: TargetOrigin, Server: ServerInfo{Host: "p1"}, ParentResult: ParentFail}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.ParentResult != ParentDirect {
		t.Fatalf("expected bypass to Direct, got %v", cur.ParentResult)
	}
}

func TestFindServerFailStaysWhenFromAPI(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{GoDirectIfParentDead: true})
	cur := &Current{Target: TargetOrigin, Server: ServerInfo{Host: "p1", FromAPI: true}, ParentResult: ParentFail}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodGet, true, cur)
	if cur.ParentResult != ParentFail {
		t.Fatalf("API-forced parent failure must not be bypassed, got %v", cur.ParentResult)
	}
}

func TestFindServerConnectUncacheableTriesParent(t *testing.T) {
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, Config{UncacheableBypassesParent: true})
	cur := &Current{}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodConnect, false, cur)
	if cur.Target != TargetParent || cur.Server.Host != "p1" {
		t.Fatalf("expected first parent tried for uncacheable CONNECT, got target=%v server=%v", cur.Target, cur.Server)
	}
}

func TestFindServerConnectUncacheableNoParentForcesOrigin(t *testing.T) {
	p, _ := newPlanner(nil, Config{UncacheableBypassesParent: true})
	cur := &Current{}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodConnect, false, cur)
	if cur.Target != TargetOrigin || cur.ParentResult != ParentDirect {
		t.Fatalf("expected forced origin when no parent candidate, got target=%v result=%v", cur.Target, cur.ParentResult)
	}
}

func TestFindServerConnectUncacheableAPIParentForcesOrigin(t *testing.T) {
	p, table := newPlanner([]ServerInfo{{Host: "p1", FromAPI: true}}, Config{UncacheableBypassesParent: true})
	_ = table
	cur := &Current{}
	p.FindServerAndUpdateCurrentInfo(nil, headers.MethodConnect, false, cur)
	if cur.Target != TargetOrigin || cur.ParentResult != ParentDirect {
		t.Fatalf("API-result parent on CONNECT must force origin, got target=%v result=%v", cur.Target, cur.ParentResult)
	}
}

func TestRetryableSafeMethodAlwaysRetryable(t *testing.T) {
	if !Retryable(headers.MethodGet, Outcome{BytesSent: true}) {
		t.Fatal("GET with bytes sent should still be retryable because it's safe")
	}
}

func TestRetryableUnsafeMethodOnlyBeforeBytesSent(t *testing.T) {
	if Retryable(headers.MethodPost, Outcome{BytesSent: true}) {
		t.Fatal("POST with bytes already sent must not be retryable")
	}
	if !Retryable(headers.MethodPost, Outcome{BytesSent: false}) {
		t.Fatal("POST with nothing transmitted yet should be retryable")
	}
}

func TestNextActionUnavailableMarksParentDownAndTriesNext(t *testing.T) {
	cfg := Config{
		MaxRetriesOverall:       5,
		UnavailableRetryStatuses: map[int]bool{503: true},
	}
	p, table := newPlanner([]ServerInfo{{Host: "p1"}, {Host: "p2"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 503}, cur)
	if d != DecisionTryNextParent {
		t.Fatalf("decision = %v, want DecisionTryNextParent", d)
	}
	if !table.MarkedDown["p1"] {
		t.Fatal("p1 should have been marked down")
	}
	if cur.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", cur.Attempts)
	}
}

func TestNextActionUnavailableAllExhaustedFailsOverToOrigin(t *testing.T) {
	cfg := Config{
		MaxRetriesOverall:       5,
		UnavailableRetryStatuses: map[int]bool{503: true},
	}
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 503}, cur)
	if d != DecisionFailoverToOrigin {
		t.Fatalf("decision = %v, want DecisionFailoverToOrigin", d)
	}
}

func TestNextActionUnavailableExhaustedFromAPIReturnsBadGateway(t *testing.T) {
	cfg := Config{
		MaxRetriesOverall:       5,
		UnavailableRetryStatuses: map[int]bool{503: true},
	}
	p, _ := newPlanner([]ServerInfo{{Host: "p1", FromAPI: true}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1", FromAPI: true}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 503}, cur)
	if d != DecisionBadGateway {
		t.Fatalf("decision = %v, want DecisionBadGateway", d)
	}
}

func TestNextActionSimpleRetryUpToMax(t *testing.T) {
	cfg := Config{
		MaxRetriesOverall:   5,
		SimpleRetryStatuses: map[int]bool{404: true},
		SimpleRetryMax:      2,
	}
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}, {Host: "p2"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionTryNextParent {
		t.Fatalf("attempt 1 decision = %v, want DecisionTryNextParent", d)
	}
	d = p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionTryNextParent {
		t.Fatalf("attempt 2 decision = %v, want DecisionTryNextParent", d)
	}
	d = p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionFailoverToOrigin {
		t.Fatalf("attempt 3 decision = %v, want DecisionFailoverToOrigin (simple retry max exceeded)", d)
	}
}

func TestNextActionUnretryableUnsafeMethodMidBodyFailsOverToOrigin(t *testing.T) {
	cfg := Config{MaxRetriesOverall: 5}
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodPost, Outcome{StatusCode: 500, BytesSent: true}, cur)
	if d != DecisionFailoverToOrigin {
		t.Fatalf("decision = %v, want DecisionFailoverToOrigin (not retryable but target was a non-API parent)", d)
	}
}

func TestNextActionUnretryableFromAPIParentReturnsBadGateway(t *testing.T) {
	cfg := Config{MaxRetriesOverall: 5}
	p, _ := newPlanner([]ServerInfo{{Host: "p1", FromAPI: true}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1", FromAPI: true}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodPost, Outcome{StatusCode: 500, BytesSent: true}, cur)
	if d != DecisionBadGateway {
		t.Fatalf("decision = %v, want DecisionBadGateway (not retryable, API-forced parent must not fail over)", d)
	}
}

func TestNextActionOverallRetryCeiling(t *testing.T) {
	cfg := Config{
		MaxRetriesOverall:   1,
		SimpleRetryStatuses: map[int]bool{404: true},
		SimpleRetryMax:      10,
	}
	p, _ := newPlanner([]ServerInfo{{Host: "p1"}, {Host: "p2"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionTryNextParent {
		t.Fatalf("attempt 1 decision = %v, want DecisionTryNextParent", d)
	}
	d = p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionFailoverToOrigin {
		t.Fatalf("attempt 2 decision = %v, want DecisionFailoverToOrigin (overall ceiling exceeded)", d)
	}
}

func TestNextActionNonRetryableStatusGivesUpWithoutMarkingDown(t *testing.T) {
	cfg := Config{MaxRetriesOverall: 5}
	p, table := newPlanner([]ServerInfo{{Host: "p1"}}, cfg)
	cur := &Current{Target: TargetParent, Server: ServerInfo{Host: "p1"}, ParentResult: ParentSpecified}

	d := p.NextAction(headers.MethodGet, Outcome{StatusCode: 404}, cur)
	if d != DecisionGiveUp {
		t.Fatalf("decision = %v, want DecisionGiveUp (404 not configured as any retry kind)", d)
	}
	if table.MarkedDown["p1"] {
		t.Fatal("p1 must not be marked down for a non-retry status")
	}
}

func TestParentTableNextParentSkipsMarkedDown(t *testing.T) {
	table := NewParentTable([]ServerInfo{{Host: "p1"}, {Host: "p2"}, {Host: "p3"}})
	table.MarkDown(ServerInfo{Host: "p2"})
	next, ok := table.NextParent(ServerInfo{Host: "p1"})
	if !ok || next.Host != "p3" {
		t.Fatalf("expected p3 after skipping marked-down p2, got %v ok=%v", next, ok)
	}
}
