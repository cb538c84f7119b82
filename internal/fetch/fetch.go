// Package fetch issues one-shot, cancelable upstream HTTP requests for
// the proxy engine, the stats page self-check and health checks.
package fetch

import (
	"context"
	"io"
	"io/ioutil"
	"math"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/api/core"
	"go.opentelemetry.io/otel/api/key"

	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/tracing"
)

// Client wraps the shared http.Client upstream fetches go through.
type Client struct {
	HTTPClient *http.Client
}

// New returns a Client whose requests time out after timeout. A zero
// timeout means no limit beyond the caller's context.
func New(timeout time.Duration) *Client {
	return &Client{HTTPClient: &http.Client{Timeout: timeout}}
}

// Result is everything a completed fetch yields. Response is never nil:
// when the upstream could not be reached at all, a synthesized 502 with
// an empty body is returned instead, and Err carries the transport error.
type Result struct {
	Body     []byte
	Response *http.Response
	Elapsed  time.Duration
	Err      error
}

var (
	dnsHostKey = key.New("proxy.dns.host")
	dnsErrKey  = key.New("proxy.dns.err")
)

// Do performs one upstream request and drains the full response body.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body io.Reader) *Result {
	start := time.Now()

	ctx, span := tracing.NewChildSpan(ctx, "fetch.Do")
	defer span.End()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return &Result{
			Response: synthesize502(),
			Err:      err,
		}
	}
	if header != nil {
		req.Header = header
	}

	hTrace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			span.AddEventWithTimestamp(ctx, time.Now(), "DNS start for upstream request",
				dnsHostKey.String(info.Host))
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			attrs := []core.KeyValue{}
			if info.Err != nil {
				attrs = append(attrs, dnsErrKey.String(info.Err.Error()))
			}
			span.AddEventWithTimestamp(ctx, time.Now(), "DNS complete for upstream request", attrs...)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(ctx, hTrace))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.AddEvent(ctx, err.Error())
		log.Error("error fetching upstream url", log.Pairs{"url": url, "detail": err.Error()})
		if resp == nil {
			resp = synthesize502()
		}
		return &Result{Response: resp, Err: err, Elapsed: time.Since(start)}
	}

	warnOnClockOffset(url, resp)

	b, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		log.Error("error reading body from upstream response", log.Pairs{"url": url, "detail": err.Error()})
		return &Result{Body: nil, Response: resp, Err: err, Elapsed: time.Since(start)}
	}

	return &Result{Body: b, Response: resp, Elapsed: time.Since(start)}
}

func synthesize502() *http.Response {
	return &http.Response{
		StatusCode: http.StatusBadGateway,
		Status:     "502 Bad Gateway",
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
	}
}

// warnOnClockOffset logs once per URL when the upstream's Date header is
// more than a minute off our clock, which skews age math on anything we
// cache from it.
func warnOnClockOffset(url string, resp *http.Response) {
	date := resp.Header.Get("Date")
	if date == "" {
		return
	}
	d, err := http.ParseTime(date)
	if err != nil {
		return
	}
	if offset := time.Since(d); time.Duration(math.Abs(float64(offset))) > time.Minute {
		log.WarnOnce("clockoffset."+url,
			"clock offset between proxy host and upstream is high and may cause freshness anomalies",
			log.Pairs{
				"url":          url,
				"proxyTime":    strconv.FormatInt(d.Add(offset).Unix(), 10),
				"upstreamTime": strconv.FormatInt(d.Unix(), 10),
				"offset":       strconv.FormatInt(int64(offset.Seconds()), 10) + "s",
			})
	}
}
