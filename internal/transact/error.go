package transact

import "fmt"

// ErrorKind classifies why a transaction entered the error path, mirroring
// the request-validation classes plus the runtime failure
// kinds the driving loop and collaborators can raise.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrMissingHost
	ErrBadSyntax
	ErrNoScheme
	ErrSchemeNotSupported
	ErrMethodNotSupported
	ErrBadConnectPort
	ErrNoPostContentLength
	ErrInvalidPostContentLength
	ErrUnacceptableTE
	ErrFailedProxyAuth
	ErrPostTooLarge
	ErrExpectContinueUnsupported
	ErrWebsocketConcurrencyLimit
	ErrCycleDetected
	ErrOnlyIfCached
	ErrConnectFailed
	ErrAPIError
	ErrActiveTimeout
	ErrInactiveTimeout
)

var errorStatus = map[ErrorKind]int{
	ErrMissingHost:               400,
	ErrBadSyntax:                 400,
	ErrNoScheme:                  400,
	ErrSchemeNotSupported:        400,
	ErrMethodNotSupported:        405,
	ErrBadConnectPort:            403,
	ErrNoPostContentLength:       400,
	ErrInvalidPostContentLength:  400,
	ErrUnacceptableTE:            400,
	ErrFailedProxyAuth:           407,
	ErrPostTooLarge:              413,
	ErrExpectContinueUnsupported: 405,
	ErrWebsocketConcurrencyLimit: 503,
	ErrCycleDetected:             400,
	ErrOnlyIfCached:              504,
	ErrConnectFailed:             502,
	ErrAPIError:                  500,
	ErrActiveTimeout:             504,
	ErrInactiveTimeout:           408,
}

var errorBodyTag = map[ErrorKind]string{
	ErrMissingHost:               "request#no_host",
	ErrBadSyntax:                 "request#syntax_error",
	ErrNoScheme:                  "request#no_scheme",
	ErrSchemeNotSupported:        "request#scheme_not_supported",
	ErrMethodNotSupported:        "request#method_not_supported",
	ErrBadConnectPort:            "access#connect_forbidden",
	ErrNoPostContentLength:       "request#no_content_length",
	ErrInvalidPostContentLength:  "request#invalid_content_length",
	ErrUnacceptableTE:            "request#unacceptable_te",
	ErrFailedProxyAuth:           "request#proxy_auth_failed",
	ErrPostTooLarge:              "request#post_too_large",
	ErrExpectContinueUnsupported: "request#expect_continue_unsupported",
	ErrWebsocketConcurrencyLimit: "access#websocket_limit",
	ErrCycleDetected:             "request#cycle_detected",
	ErrOnlyIfCached:              "cache#only_if_cached",
	ErrConnectFailed:             "connect#failed_connect",
	ErrAPIError:                  "plugin#error",
	ErrActiveTimeout:             "timeout#active",
	ErrInactiveTimeout:           "timeout#inactive",
}

// TransactionError is the typed error every state handler returns instead
// of a bare error, carrying everything build_error_response needs to synthesize a reply.
type TransactionError struct {
	Kind       ErrorKind
	StatusCode int
	BodyTag    string
	Cause      error
}

// NewError builds a TransactionError for kind, looking up its conventional
// status code and body tag, optionally wrapping cause.
func NewError(kind ErrorKind, cause error) *TransactionError {
	return &TransactionError{
		Kind:       kind,
		StatusCode: errorStatus[kind],
		BodyTag:    errorBodyTag[kind],
		Cause:      cause,
	}
}

func (e *TransactionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transact: %s (%d %s): %v", e.BodyTag, e.StatusCode, errorKindNames[e.Kind], e.Cause)
	}
	return fmt.Sprintf("transact: %s (%d %s)", e.BodyTag, e.StatusCode, errorKindNames[e.Kind])
}

func (e *TransactionError) Unwrap() error { return e.Cause }

var errorKindNames = map[ErrorKind]string{
	ErrMissingHost:               "MissingHost",
	ErrBadSyntax:                 "BadSyntax",
	ErrNoScheme:                  "NoScheme",
	ErrSchemeNotSupported:        "SchemeNotSupported",
	ErrMethodNotSupported:        "MethodNotSupported",
	ErrBadConnectPort:            "BadConnectPort",
	ErrNoPostContentLength:       "NoPostContentLength",
	ErrInvalidPostContentLength:  "InvalidPostContentLength",
	ErrUnacceptableTE:            "UnacceptableTE",
	ErrFailedProxyAuth:           "FailedProxyAuth",
	ErrPostTooLarge:              "PostTooLarge",
	ErrExpectContinueUnsupported: "ExpectContinueUnsupported",
	ErrWebsocketConcurrencyLimit: "WebsocketConcurrencyLimit",
	ErrCycleDetected:             "CycleDetected",
	ErrOnlyIfCached:              "OnlyIfCached",
	ErrConnectFailed:             "ConnectFailed",
	ErrAPIError:                  "APIError",
	ErrActiveTimeout:             "ActiveTimeout",
	ErrInactiveTimeout:           "InactiveTimeout",
}
