package transact

import (
	"net"
	"strings"

	"github.com/corehttp/txcore/internal/headers"
)

// DetectSelfLoop refuses a
// request that would route back into this same proxy instance.
func DetectSelfLoop(resolvedIP, proxyIP net.IP, hostPort, proxyPort uint16, reqHdr *headers.HttpHeader, proxyUUID string) *TransactionError {
	if resolvedIP != nil && proxyIP != nil && resolvedIP.Equal(proxyIP) && hostPort == proxyPort {
		return NewError(ErrCycleDetected, nil)
	}
	if proxyUUID != "" {
		for _, f := range reqHdr.FieldsNamed(headers.NameVia) {
			if strings.Contains(f.Value, proxyUUID) {
				return NewError(ErrCycleDetected, nil)
			}
		}
	}
	return nil
}
