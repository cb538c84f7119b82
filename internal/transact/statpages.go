package transact

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/corehttp/txcore/internal/headers"
)

// InternalHostSentinel is the reserved Host value HandleRequest checks for
// to route a request to the stats page instead of remap/cache/origin.
const InternalHostSentinel = "$internal$"

// StatsSnapshot is the small counter/histogram surface the stat page
// renders, fed by internal/metrics at call time.
type StatsSnapshot map[string]interface{}

// StatsSnapshotFunc is called fresh on every request to the stats page so
// the response always reflects live counters.
type StatsSnapshotFunc func() StatsSnapshot

// IsInternalStatsRequest reports whether reqHdr targets the sentinel host.
func IsInternalStatsRequest(reqHdr *headers.HttpHeader) bool {
	host, _ := reqHdr.Get(headers.NameHost)
	return host == InternalHostSentinel || reqHdr.URL.HostString() == InternalHostSentinel
}

// ServeStatsPage renders a JSON snapshot of the stats counters as the
// transaction's response, short-circuiting remap/cache/origin entirely.
func ServeStatsPage(ts *TransactionState, snapshot StatsSnapshotFunc, now time.Time) {
	body, err := json.Marshal(snapshot())
	if err != nil {
		ts.Err = NewError(ErrAPIError, err)
		ts.NextAction = ActionError
		return
	}
	h := headers.NewResponseHeader()
	h.VersionMajor, h.VersionMinor = ts.ReqHdr.VersionMajor, ts.ReqHdr.VersionMinor
	h.StatusCode = 200
	h.Reason = "OK"
	h.Set(headers.NameContentType, "application/json")
	h.Set(headers.NameDate, now.UTC().Format(time.RFC1123))
	h.Set(headers.NameContentLength, strconv.Itoa(len(body)))
	ts.RespHdr = h
	ts.StatsBody = body
	ts.NextAction = ActionAPISendResponseHdr
}
