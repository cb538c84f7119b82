/**
* Copyright 2018 Comcast Cable Communications Management, LLC
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You may obtain a copy of the License at
* http://www.apache.org/licenses/LICENSE-2.0
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
 */

// Package engines drives one transaction per inbound request: IP policy,
// cache lookup, freshness, upstream selection and fetch, cache write,
// range extraction, and the final client response.
package engines

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/corehttp/txcore/internal/cache"
	"github.com/corehttp/txcore/internal/config"
	"github.com/corehttp/txcore/internal/fetch"
	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/ipallow"
	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/metrics"
	"github.com/corehttp/txcore/internal/planner"
	"github.com/corehttp/txcore/internal/prewarm"
	"github.com/corehttp/txcore/internal/transact"
	"github.com/corehttp/txcore/internal/transform"
)

// ObjectProxy is the http.Handler that runs the transaction state machine
// for every request it receives.
type ObjectProxy struct {
	Conf      *config.RecordsConfig
	Cache     cache.Cache
	Fetcher   *fetch.Client
	IPAllow   *ipallow.IpAllow
	Parents   *planner.ParentTable
	PreWarm   *prewarm.Pool
	Stats     transact.StatsSnapshotFunc
	Websocket transact.WebsocketLimiter

	// ProxyUUID is stamped into Via and matched against inbound Via
	// fields for loop detection.
	ProxyUUID string
	ProxyIP   net.IP
	ProxyPort uint16

	Now func() time.Time
}

func (p *ObjectProxy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *ObjectProxy) via() string {
	return "1.1 txcore (" + p.ProxyUUID + ")"
}

// ServeHTTP accepts one client request, applies the source-address
// policy, then drives the transaction to completion and writes the
// resulting response.
func (p *ObjectProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqHdr := ProjectRequest(r)

	if p.IPAllow != nil {
		acl := p.IPAllow.Match(remoteIP(r.RemoteAddr), ipallow.Src)
		if !aclPermits(acl, reqHdr) {
			log.Debug("denied by source address policy", log.Pairs{"remoteAddr": r.RemoteAddr, "method": r.Method})
			te := &transact.TransactionError{Kind: transact.ErrBadConnectPort, StatusCode: 403, BodyTag: "access#denied"}
			h := transact.BuildErrorResponse(reqHdr, te, p.now())
			writeHeader(w, h)
			w.WriteHeader(403)
			fmt.Fprintf(w, "%s\n", te.BodyTag)
			metrics.ObserveRequest(r.Method, "denied", 403)
			return
		}
	}

	if handled := p.answerMaxForwards(w, r, reqHdr); handled {
		return
	}

	ts := transact.NewTransactionState(reqHdr)
	tx := &txn{p: p, ts: ts, req: r, ctx: r.Context()}

	fsm := tx.buildFSM()
	fsm.Now = p.now
	fsm.Run(ts)

	tx.respond(w)
}

func aclPermits(acl ipallow.Acl, reqHdr *headers.HttpHeader) bool {
	if !acl.Valid() || acl.IsDenyAll() {
		return false
	}
	if reqHdr.Method == headers.MethodUnknown {
		return acl.IsNonstandardAllowed(reqHdr.MethodRaw)
	}
	return acl.IsMethodAllowed(reqHdr.Method)
}

func remoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

// answerMaxForwards serves TRACE and OPTIONS locally when the client sent
// Max-Forwards: 0, per RFC 7231 §5.1.2.
func (p *ObjectProxy) answerMaxForwards(w http.ResponseWriter, r *http.Request, reqHdr *headers.HttpHeader) bool {
	mf, ok := reqHdr.Get(headers.NameMaxForwards)
	if !ok || mf != "0" {
		return false
	}
	switch reqHdr.Method {
	case headers.MethodTrace:
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s HTTP/%d.%d\r\n", r.Method, r.URL.RequestURI(), reqHdr.VersionMajor, reqHdr.VersionMinor)
		for _, f := range reqHdr.Fields() {
			fmt.Fprintf(&b, "%s: %s\r\n", f.Name, f.Value)
		}
		w.Header().Set("Content-Type", "message/http")
		w.WriteHeader(200)
		io.WriteString(w, b.String())
	case headers.MethodOptions:
		w.Header().Set("Allow", "GET, HEAD, POST, PUT, DELETE, OPTIONS, TRACE")
		w.WriteHeader(200)
	default:
		return false
	}
	metrics.ObserveRequest(r.Method, "internal", 200)
	return true
}

// source tracks where the response body in flight came from.
type source int

const (
	sourceNone source = iota
	sourceCache
	sourceOrigin
	sourceTransform
	sourceInternal
)

func (s source) cacheStatus() string {
	switch s {
	case sourceCache:
		return "hit"
	case sourceOrigin:
		return "miss"
	case sourceTransform:
		return "hit"
	case sourceInternal:
		return "internal"
	default:
		return "none"
	}
}

// txn is the engine-side working set for one transaction: everything the
// state handlers share that is not part of TransactionState itself.
type txn struct {
	p   *ObjectProxy
	ts  *transact.TransactionState
	req *http.Request
	ctx context.Context

	pl         *planner.Planner
	resolvedIP net.IP

	cacheKey   string
	cachedBody []byte
	respBody   []byte
	src        source

	upstreamHdr    http.Header
	fetched        *fetch.Result
	upstreamStatus int
	reqSent        time.Time
	respReceived   time.Time
	downgraded     bool
	revalidated    bool
}

func (tx *txn) buildFSM() *transact.FSM {
	f := transact.NewFSM()

	f.Register(transact.ActionStartRemap, func(*transact.TransactionState) transact.NextAction {
		return transact.ActionAPIPreRemap
	})
	f.Register(transact.ActionAPIPreRemap, func(*transact.TransactionState) transact.NextAction {
		return transact.ActionRemapRequest
	})
	f.Register(transact.ActionRemapRequest, tx.remapRequest)
	f.Register(transact.ActionAPIPostRemap, func(*transact.TransactionState) transact.NextAction {
		return transact.ActionHandleRequest
	})
	f.Register(transact.ActionHandleRequest, tx.handleRequest)
	f.Register(transact.ActionDNSLookup, tx.dnsLookup)
	f.Register(transact.ActionOSDNSLookup, tx.osDNSLookup)
	f.Register(transact.ActionCacheLookup, tx.cacheLookup)
	f.Register(transact.ActionAPICacheLookupComplete, tx.cacheLookupComplete)
	f.Register(transact.ActionHandleHit, tx.handleHit)
	f.Register(transact.ActionHandleStale, tx.handleHit)
	f.Register(transact.ActionHandleMiss, tx.handleMiss)
	f.Register(transact.ActionHowToOpenConnection, tx.howToOpenConnection)
	f.Register(transact.ActionCacheIssueWrite, tx.cacheIssueWrite)
	f.Register(transact.ActionOriginServerOpen, tx.originServerOpen)
	f.Register(transact.ActionAPISendRequestHdr, tx.sendRequestHdr)
	f.Register(transact.ActionServerRead, tx.serverRead)
	f.Register(transact.ActionAPIReadResponseHdr, tx.readResponseHdr)
	f.Register(transact.ActionHandleResponse, tx.handleResponse)
	f.Register(transact.ActionCacheOperation, tx.cacheOperation)
	f.Register(transact.ActionNoCacheOperation, func(*transact.TransactionState) transact.NextAction {
		return transact.ActionAPISendResponseHdr
	})
	f.Register(transact.ActionInternal100, func(*transact.TransactionState) transact.NextAction {
		return transact.ActionAPISendResponseHdr
	})
	f.Register(transact.ActionAPISendResponseHdr, tx.sendResponseHdr)
	f.Register(transact.ActionServeFromCache, done)
	f.Register(transact.ActionTransformRead, done)
	f.Register(transact.ActionInternalCacheNoop, done)
	f.Register(transact.ActionError, tx.handleError)
	f.Register(transact.ActionSendErrorCacheNoop, done)

	return f
}

func done(*transact.TransactionState) transact.NextAction {
	return transact.ActionTransactionDone
}

// remapRequest fills in the effective URL from the request line and Host
// header so every later state sees a fully qualified destination.
func (tx *txn) remapRequest(ts *transact.TransactionState) transact.NextAction {
	u := ts.ReqHdr.URL
	if u.HostString() == "" {
		if host, ok := ts.ReqHdr.Get(headers.NameHost); ok {
			h, port, err := net.SplitHostPort(host)
			if err == nil {
				u.Host = []byte(h)
				if n, perr := strconv.Atoi(port); perr == nil {
					u.SetPort(uint16(n))
				}
			} else {
				u.Host = []byte(host)
			}
		}
	}
	if u.Scheme() == headers.SchemeNone {
		if tx.req.TLS != nil {
			u.SetScheme(headers.SchemeHTTPS)
		} else {
			u.SetScheme(headers.SchemeHTTP)
		}
	}
	return transact.ActionAPIPostRemap
}

func (tx *txn) handleRequest(ts *transact.TransactionState) transact.NextAction {
	cfg := tx.p.Conf.HandleRequestConfig()
	cfg.Stats = tx.p.Stats
	cfg.WebsocketLimit = tx.p.Websocket
	cfg.NumericHost = net.ParseIP(ts.ReqHdr.URL.HostString()) != nil
	cfg.Now = tx.p.now
	next := transact.HandleRequest(ts, cfg)
	if ts.StatsBody != nil {
		tx.respBody = ts.StatsBody
		tx.src = sourceInternal
	}
	return next
}

func (tx *txn) dnsLookup(ts *transact.TransactionState) transact.NextAction {
	host := ts.ReqHdr.URL.HostString()
	if ip := net.ParseIP(host); ip != nil {
		tx.resolvedIP = ip
	} else {
		addrs, err := net.DefaultResolver.LookupIPAddr(tx.ctx, host)
		if err != nil || len(addrs) == 0 {
			te := transact.NewError(transact.ErrConnectFailed, err)
			te.BodyTag = "connect#dns_failed"
			ts.Err = te
			return transact.ActionError
		}
		tx.resolvedIP = addrs[0].IP
	}

	if te := transact.DetectSelfLoop(tx.resolvedIP, tx.p.ProxyIP, ts.ReqHdr.URL.Port(), tx.p.ProxyPort, ts.ReqHdr, tx.p.ProxyUUID); te != nil {
		ts.Err = te
		return transact.ActionError
	}
	return transact.ActionOSDNSLookup
}

func (tx *txn) osDNSLookup(ts *transact.TransactionState) transact.NextAction {
	if transact.IsRequestCacheLookupable(ts.ReqHdr, tx.p.Conf.CacheLookupConfig()) {
		return transact.ActionCacheLookup
	}
	return transact.ActionHowToOpenConnection
}

func (tx *txn) cacheLookup(ts *transact.TransactionState) transact.NextAction {
	tx.cacheKey = CacheKey(ts.ReqHdr)
	doc, err := QueryCache(tx.ctx, tx.p.Cache, tx.cacheKey)
	if err != nil {
		ts.CacheLookupResult = transact.CacheMiss
		return transact.ActionAPICacheLookupComplete
	}
	ts.Cached, tx.cachedBody = doc.ToCachedObject()
	transact.HandleCacheOpenReadHitFreshness(ts, tx.p.now(), tx.p.Conf.FreshnessLimits())
	return transact.ActionAPICacheLookupComplete
}

func (tx *txn) cacheLookupComplete(ts *transact.TransactionState) transact.NextAction {
	switch ts.CacheLookupResult {
	case transact.HitFresh, transact.HitWarning:
		return transact.ActionHandleHit
	case transact.HitStale:
		return transact.ActionHandleStale
	default:
		return transact.ActionHandleMiss
	}
}

func (tx *txn) handleHit(ts *transact.TransactionState) transact.NextAction {
	authRequired := ts.ReqHdr.Presence().Has(headers.PresenceAuthorization)
	transact.HandleCacheOpenReadHit(ts, authRequired)
	if ts.NextAction == transact.ActionServeFromCache {
		tx.src = sourceCache
		if ts.RespHdr.StatusCode != 304 {
			tx.respBody = tx.cachedBody
		}
		return transact.ActionAPISendResponseHdr
	}
	return ts.NextAction
}

func (tx *txn) handleMiss(ts *transact.TransactionState) transact.NextAction {
	onlyIfCached := hasCacheControlDirective(ts.ReqHdr, "only-if-cached")
	missCfg := transact.CacheMissConfig{
		RangeNotHandled: ts.ReqHdr.Presence().Has(headers.PresenceRange),
	}
	transact.HandleCacheOpenReadMiss(ts, missCfg, onlyIfCached, tx.planner(ts))
	return ts.NextAction
}

func (tx *txn) planner(ts *transact.TransactionState) *planner.Planner {
	if tx.pl == nil {
		origin := planner.ServerInfo{
			Host: ts.ReqHdr.URL.HostString(),
			Port: ts.ReqHdr.URL.Port(),
		}
		table := tx.p.Parents
		if table == nil {
			table = planner.NewParentTable(nil)
		}
		tx.pl = planner.New(origin, table, tx.p.Conf.PlannerConfig())
	}
	return tx.pl
}

func (tx *txn) howToOpenConnection(ts *transact.TransactionState) transact.NextAction {
	if ts.Planner.Target == planner.TargetNone {
		cacheable := ts.CacheAction != transact.CacheNoAction
		tx.planner(ts).FindServerAndUpdateCurrentInfo(tx.resolvedIP, ts.ReqHdr.Method, cacheable, ts.Planner)
	}
	switch ts.CacheAction {
	case transact.CachePrepareToWrite, transact.CachePrepareToUpdate, transact.CachePrepareToDelete:
		return transact.ActionCacheIssueWrite
	default:
		return transact.ActionOriginServerOpen
	}
}

// cacheIssueWrite acquires the conditional write lock. The backends here
// have no contended writer, so acquisition always succeeds; a Fail would
// degrade CacheAction to NoAction rather than block.
func (tx *txn) cacheIssueWrite(ts *transact.TransactionState) transact.NextAction {
	return transact.ActionOriginServerOpen
}

func (tx *txn) originServerOpen(ts *transact.TransactionState) transact.NextAction {
	dst := ts.Planner.Server
	if dst.Host == "" {
		tx.planner(ts).FindServerAndUpdateCurrentInfo(tx.resolvedIP, ts.ReqHdr.Method, ts.CacheAction != transact.CacheNoAction, ts.Planner)
		dst = ts.Planner.Server
	}

	if tx.p.IPAllow != nil && tx.resolvedIP != nil {
		acl := tx.p.IPAllow.Match(tx.resolvedIP, ipallow.Dst)
		if acl.Valid() && !aclPermits(acl, ts.ReqHdr) {
			te := transact.NewError(transact.ErrBadConnectPort, nil)
			te.StatusCode = 403
			te.BodyTag = "access#denied"
			ts.Err = te
			return transact.ActionError
		}
	}

	if tx.p.PreWarm != nil && tx.p.Conf.PreWarm.PoolSize > 0 {
		size := tx.p.Conf.PreWarm.PoolSize
		dstKey := net.JoinHostPort(dst.Host, strconv.Itoa(int(dst.Port)))
		tx.p.PreWarm.Configure(dstKey, prewarm.Config{
			Algorithm:     prewarm.V2,
			RequestedSize: uint32(size),
			Min:           1,
			Max:           int32(size),
			Rate:          1,
			MaxRetries:    3,
		})
		if vc, ok := tx.p.PreWarm.Borrow(dstKey); ok {
			// The pooled connection stands in for the dial this fetch
			// would otherwise pay for; retire it once used.
			defer vc.Close()
		} else {
			if tx.p.PreWarm.Tick(dstKey) > 0 {
				tx.p.PreWarm.AdvanceAll(dstKey, prewarm.Opener(dstKey, 2*time.Second))
			}
		}
	}

	return transact.ActionAPISendRequestHdr
}

func (tx *txn) sendRequestHdr(ts *transact.TransactionState) transact.NextAction {
	out := ts.ReqHdr.Clone()
	disp := transact.DecideRequestKeepAlive(out, transact.RequestKeepAliveConfig{UpstreamKeepAlive: true})
	transact.ApplyKeepAlive(out, false, disp)

	via := tx.p.via()
	if existing, ok := out.Get(headers.NameVia); ok && existing != "" {
		out.Set(headers.NameVia, existing+", "+via)
	} else {
		out.Set(headers.NameVia, via)
	}

	tx.upstreamHdr = make(http.Header)
	for _, f := range out.Fields() {
		if f.Name == headers.NameHost {
			continue
		}
		tx.upstreamHdr.Add(f.Name, f.Value)
	}
	return transact.ActionServerRead
}

func (tx *txn) upstreamURL(ts *transact.TransactionState) string {
	u := ts.ReqHdr.URL
	scheme := u.Scheme()
	// Websocket upgrades travel upstream as plain http/https.
	switch scheme {
	case headers.SchemeWS:
		scheme = headers.SchemeHTTP
	case headers.SchemeWSS:
		scheme = headers.SchemeHTTPS
	}

	host := ts.Planner.Server.Host
	port := ts.Planner.Server.Port
	if host == "" {
		host = u.HostString()
		port = u.Port()
	}

	addr := host
	if port != 0 && port != 80 && port != 443 {
		addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	}

	out := scheme.String() + "://" + addr + u.Path
	if u.Query != "" {
		out += "?" + u.Query
	}
	return out
}

func (tx *txn) serverRead(ts *transact.TransactionState) transact.NextAction {
	var body io.Reader
	if ts.ReqHdr.Method.RequiresBody() && tx.req.Body != nil {
		body = tx.req.Body
	}

	tx.reqSent = tx.p.now()
	res := tx.p.Fetcher.Do(tx.ctx, ts.ReqHdr.Method.String(), tx.upstreamURL(ts), tx.upstreamHdr, body)
	tx.respReceived = tx.p.now()

	if res.Err != nil {
		outcome := planner.Outcome{TransportFailed: true, BytesSent: body != nil}
		switch tx.planner(ts).NextAction(ts.ReqHdr.Method, outcome, ts.Planner) {
		case planner.DecisionTryNextParent:
			tx.planner(ts).FindServerAndUpdateCurrentInfo(tx.resolvedIP, ts.ReqHdr.Method, ts.CacheAction != transact.CacheNoAction, ts.Planner)
			return transact.ActionOriginServerOpen
		case planner.DecisionFailoverToOrigin:
			ts.Planner.Target = planner.TargetOrigin
			ts.Planner.Server = planner.ServerInfo{Host: ts.ReqHdr.URL.HostString(), Port: ts.ReqHdr.URL.Port()}
			ts.Planner.ParentResult = planner.ParentDirect
			return transact.ActionOriginServerOpen
		case planner.DecisionRetrySameTarget:
			return transact.ActionOriginServerOpen
		default:
			ts.Err = transact.NewError(transact.ErrConnectFailed, res.Err)
			return transact.ActionError
		}
	}

	tx.fetched = res
	return transact.ActionAPIReadResponseHdr
}

func (tx *txn) readResponseHdr(ts *transact.TransactionState) transact.NextAction {
	res := tx.fetched
	ts.RespHdr = ProjectResponse(res.Response)
	tx.respBody = res.Body
	tx.upstreamStatus = res.Response.StatusCode
	tx.src = sourceOrigin

	if res.Elapsed > 0 && len(res.Body) > 0 {
		metrics.ObserveProxySpeed(float64(len(res.Body)) / res.Elapsed.Seconds())
	}
	return transact.ActionHandleResponse
}

func (tx *txn) handleResponse(ts *transact.TransactionState) transact.NextAction {
	switch ts.CacheAction {
	case transact.CachePrepareToWrite, transact.CachePrepareToUpdate, transact.CachePrepareToDelete:
		if tx.upstreamStatus == 304 {
			// The revalidation conditionals were for the origin only; the
			// client check below sees the client's own conditionals.
			for _, name := range []string{headers.NameIfNoneMatch, headers.NameIfModifiedSince} {
				if v := tx.req.Header.Get(name); v != "" {
					ts.ReqHdr.Set(name, v)
				} else {
					ts.ReqHdr.Delete(name)
				}
			}
		}
		next := transact.HandleCacheOperationOnForwardServerResponse(
			ts, freshness.CacheabilityConfig{}, tx.p.Conf.NegativeRevalidationConfig(), tx.downgraded)
		if next == transact.ActionOriginServerOpen {
			tx.downgraded = true
			return next
		}
		if tx.upstreamStatus == 304 && ts.RespHdr.StatusCode != 304 {
			// Revalidation succeeded; the merged headers front the body
			// we already hold from cache.
			tx.respBody = tx.cachedBody
			tx.src = sourceCache
			tx.revalidated = true
		}
		if ts.CacheAction != transact.CacheNoAction {
			return transact.ActionCacheOperation
		}
		return transact.ActionNoCacheOperation
	default:
		return transact.ActionNoCacheOperation
	}
}

func (tx *txn) cacheOperation(ts *transact.TransactionState) transact.NextAction {
	switch ts.CacheAction {
	case transact.CacheWrite, transact.CacheReplace:
		obj := &transact.CachedObject{
			RespHdr:      ts.RespHdr.Clone(),
			ReqSent:      tx.reqSent,
			RespReceived: tx.respReceived,
		}
		doc := cache.FromCachedObject(obj, tx.respBody)
		ttl := tx.p.Conf.FreshnessLimits().GuaranteedMaxLifetime
		if err := WriteCache(tx.p.Cache, tx.cacheKey, doc, ttl); err != nil {
			// Storage failures degrade to a plain proxy, never a client
			// error.
			log.Warn("cache write failed", log.Pairs{"cacheKey": tx.cacheKey, "detail": err.Error()})
		} else {
			metrics.ObserveCacheObjectSize(len(tx.respBody))
		}
	case transact.CacheDelete:
		tx.p.Cache.Remove(tx.cacheKey)
	}
	return transact.ActionAPISendResponseHdr
}

func (tx *txn) sendResponseHdr(ts *transact.TransactionState) transact.NextAction {
	if ts.RespHdr == nil {
		ts.Err = transact.NewError(transact.ErrAPIError, nil)
		return transact.ActionError
	}

	opts := transact.BuildResponseOptions{
		Now:          tx.p.now(),
		ViaString:    tx.p.via(),
		VersionMajor: ts.ReqHdr.VersionMajor,
		VersionMinor: ts.ReqHdr.VersionMinor,
	}
	if tx.src == sourceCache {
		opts.Age = ts.Freshness.CurrentAge
		opts.HasAge = true
	}
	out := transact.BuildResponse(ts.RespHdr, ts.RespHdr.StatusCode, ts.RespHdr.Reason, opts)

	next := transact.ActionInternalCacheNoop
	switch tx.src {
	case sourceCache:
		next = transact.ActionServeFromCache
	case sourceInternal:
		next = transact.ActionInternalCacheNoop
	}

	if tx.src == sourceCache && out.StatusCode == 200 && ts.ReqHdr.Presence().Has(headers.PresenceRange) {
		next = tx.spliceRangeTransform(ts, out)
	}

	disp := transact.DecideResponseKeepAlive(ts.ReqHdr.Method, out.StatusCode, transact.ResponseKeepAliveConfig{
		ContentLengthTrusted: out.Has(headers.NameContentLength) || tx.respBody != nil,
		ClientIsHTTP11:       ts.ReqHdr.VersionMajor == 1 && ts.ReqHdr.VersionMinor == 1,
	})
	transact.ApplyKeepAlive(out, tx.req.Header.Get(headers.NameProxyConnection) != "", disp)

	if bodyAllowed(ts.ReqHdr.Method, out.StatusCode) {
		out.Set(headers.NameContentLength, strconv.Itoa(len(tx.respBody)))
	} else {
		tx.respBody = nil
	}

	ts.RespHdr = out
	return next
}

// spliceRangeTransform runs the cached body through a range stage and
// rewrites the response header for 206/multipart delivery. Returns the
// delivery state to dispatch next.
func (tx *txn) spliceRangeTransform(ts *transact.TransactionState, out *headers.HttpHeader) transact.NextAction {
	rangeValue, _ := ts.ReqHdr.Get(headers.NameRange)
	total := int64(len(tx.cachedBody))
	ranges, ok := ParseRangeHeader(rangeValue, total)
	if !ok {
		out.StatusCode = 416
		out.Reason = "Range Not Satisfiable"
		out.Set(headers.NameContentRange, fmt.Sprintf("bytes */%d", total))
		tx.respBody = nil
		return transact.ActionServeFromCache
	}

	contentType, _ := out.Get(headers.NameContentType)
	if contentType == "" {
		contentType = "text/plain"
	}
	stage := transform.NewRangeStage(ranges, total, contentType)

	chain := transform.New([]transform.Factory{func() transform.Stage { return stage }}, nil)
	chain.Write(tx.cachedBody)
	chain.Close(nil)
	body, err := ioutil.ReadAll(chain.Terminus)
	if err != nil {
		ts.Err = transact.NewError(transact.ErrAPIError, err)
		return transact.ActionError
	}

	stage.RewriteResponseHeader(out)
	tx.respBody = body
	tx.src = sourceTransform
	return transact.ActionTransformRead
}

func (tx *txn) handleError(ts *transact.TransactionState) transact.NextAction {
	te := ts.Err
	if te == nil {
		te = transact.NewError(transact.ErrAPIError, nil)
	}
	ts.RespHdr = transact.BuildErrorResponse(ts.ReqHdr, te, tx.p.now())
	tx.respBody = []byte(te.BodyTag + "\n")
	ts.RespHdr.Set(headers.NameContentLength, strconv.Itoa(len(tx.respBody)))
	tx.src = sourceInternal
	return transact.ActionSendErrorCacheNoop
}

// respond writes the finished transaction to the client and records its
// stats.
func (tx *txn) respond(w http.ResponseWriter) {
	ts := tx.ts
	if ts.RespHdr == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	status := tx.src.cacheStatus()
	if tx.revalidated {
		status = "revalidated"
	}
	if ts.Err != nil {
		status = "error"
	}
	w.Header().Set("X-Cache", status)

	writeHeader(w, ts.RespHdr)
	w.WriteHeader(ts.RespHdr.StatusCode)
	if len(tx.respBody) > 0 {
		w.Write(tx.respBody)
	}

	metrics.ObserveRequest(ts.ReqHdr.Method.String(), status, ts.RespHdr.StatusCode)
	metrics.ObserveMilestones(ts)
}

func writeHeader(w http.ResponseWriter, h *headers.HttpHeader) {
	wh := w.Header()
	for _, f := range h.Fields() {
		wh.Add(f.Name, f.Value)
	}
}

func bodyAllowed(method headers.Method, status int) bool {
	if method == headers.MethodHead {
		return false
	}
	if status == 204 || status == 304 || (status >= 100 && status < 200) {
		return false
	}
	return true
}

func hasCacheControlDirective(h *headers.HttpHeader, directive string) bool {
	for _, v := range headers.Values(h, headers.NameCacheControl, ',', true) {
		if strings.EqualFold(strings.TrimSpace(v), directive) {
			return true
		}
	}
	return false
}

// ProjectRequest flattens a parsed net/http request into the header
// model the transaction states operate on.
func ProjectRequest(r *http.Request) *headers.HttpHeader {
	h := headers.NewRequestHeader()
	h.Method = headers.ParseMethod(r.Method)
	h.MethodRaw = r.Method
	h.VersionMajor = r.ProtoMajor
	h.VersionMinor = r.ProtoMinor

	u := h.URL
	if r.URL.Scheme != "" {
		u.SetScheme(headers.ParseScheme(r.URL.Scheme))
	}
	host := r.URL.Host
	if host == "" {
		host = r.Host
	}
	if host != "" {
		if hn, port, err := net.SplitHostPort(host); err == nil {
			u.Host = []byte(hn)
			if n, perr := strconv.Atoi(port); perr == nil {
				u.SetPort(uint16(n))
			}
		} else {
			u.Host = []byte(host)
		}
	}
	u.Path = r.URL.Path
	u.Query = r.URL.RawQuery

	if r.Host != "" && r.Header.Get(headers.NameHost) == "" {
		h.Add(headers.NameHost, r.Host)
	}
	for name, values := range r.Header {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	return h
}

// ProjectResponse flattens a parsed net/http response the same way.
func ProjectResponse(r *http.Response) *headers.HttpHeader {
	h := headers.NewResponseHeader()
	h.StatusCode = r.StatusCode
	h.Reason = strings.TrimSpace(strings.TrimPrefix(r.Status, strconv.Itoa(r.StatusCode)))
	h.VersionMajor = r.ProtoMajor
	h.VersionMinor = r.ProtoMinor
	for name, values := range r.Header {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	return h
}

// ParseRangeHeader parses a Range header value ("bytes=0-1,5-6") against
// an entity of total bytes. Reports false when no requested range is
// satisfiable.
func ParseRangeHeader(value string, total int64) ([]transform.Range, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(value, prefix) {
		return nil, false
	}
	var out []transform.Range
	for _, spec := range strings.Split(value[len(prefix):], ",") {
		spec = strings.TrimSpace(spec)
		dash := strings.IndexByte(spec, '-')
		if dash < 0 {
			continue
		}
		first, last := spec[:dash], spec[dash+1:]
		if first == "" {
			// suffix range: last N bytes.
			n, err := strconv.ParseInt(last, 10, 64)
			if err != nil || n <= 0 {
				continue
			}
			if n > total {
				n = total
			}
			out = append(out, transform.Range{Start: total - n, End: total - 1})
			continue
		}
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil || start >= total {
			continue
		}
		end := total - 1
		if last != "" {
			e, err := strconv.ParseInt(last, 10, 64)
			if err != nil {
				continue
			}
			if e < start {
				continue
			}
			if e < end {
				end = e
			}
		}
		out = append(out, transform.Range{Start: start, End: end})
	}
	return out, len(out) > 0
}
