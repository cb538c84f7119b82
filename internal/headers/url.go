package headers

import "strconv"

// Scheme is a well-known-string index for a URL scheme.
type Scheme int

// Well-known scheme indices.
const (
	SchemeNone Scheme = iota
	SchemeHTTP
	SchemeHTTPS
	SchemeWS
	SchemeWSS
)

var schemeNames = map[string]Scheme{
	"http":  SchemeHTTP,
	"https": SchemeHTTPS,
	"ws":    SchemeWS,
	"wss":   SchemeWSS,
}

var schemeStrings = map[Scheme]string{
	SchemeHTTP:  "http",
	SchemeHTTPS: "https",
	SchemeWS:    "ws",
	SchemeWSS:   "wss",
}

// defaultPorts maps a scheme to the port used when a URL omits one
// explicitly. This is the "once a scheme is set it determines the default
// port" invariant from the data model.
var defaultPorts = map[Scheme]uint16{
	SchemeHTTP:  80,
	SchemeHTTPS: 443,
	SchemeWS:    80,
	SchemeWSS:   443,
}

// ParseScheme maps a URL scheme token to its well-known index.
func ParseScheme(s string) Scheme {
	if sc, ok := schemeNames[s]; ok {
		return sc
	}
	return SchemeNone
}

// String returns the canonical wire text for sc, or "" for SchemeNone.
func (sc Scheme) String() string {
	return schemeStrings[sc]
}

// Secure reports whether sc implies a TLS-wrapped transport (https, wss).
func (sc Scheme) Secure() bool {
	return sc == SchemeHTTPS || sc == SchemeWSS
}

// Upgraded returns the ws/wss counterpart of http/https, used when the
// transaction FSM rewrites the request URL for a websocket upgrade
// and its inverse when building the upstream
// URL back from ws/wss to http/https.
func (sc Scheme) Upgraded() Scheme {
	switch sc {
	case SchemeHTTP:
		return SchemeWS
	case SchemeHTTPS:
		return SchemeWSS
	case SchemeWS:
		return SchemeHTTP
	case SchemeWSS:
		return SchemeHTTPS
	default:
		return sc
	}
}

// Url is the component-decomposed URL model from the data model.
// Host is kept as opaque bytes (not reparsed) to mirror the source's
// avoidance of allocation on the hot path; Go callers normally want
// HostString.
type Url struct {
	scheme       Scheme
	Host         []byte
	port         uint16
	explicitPort bool
	Path         string
	Params       string
	Query        string
	Fragment     string
}

// NewURL returns an empty Url with no scheme set.
func NewURL() *Url {
	return &Url{}
}

// Scheme returns the URL's scheme.
func (u *Url) Scheme() Scheme {
	return u.scheme
}

// SetScheme sets the scheme. This does not
// retroactively change a previously explicit port, but it does change the
// value Port() returns when no explicit port was ever set.
func (u *Url) SetScheme(sc Scheme) {
	u.scheme = sc
}

// Port returns the explicit port if one was set, otherwise the default port
// for the current scheme (0 if the scheme is SchemeNone and no port was set).
func (u *Url) Port() uint16 {
	if u.explicitPort {
		return u.port
	}
	return defaultPorts[u.scheme]
}

// SetPort records an explicit port, overriding the scheme's default.
func (u *Url) SetPort(p uint16) {
	u.port = p
	u.explicitPort = true
}

// HostString returns Host as a string.
func (u *Url) HostString() string {
	return string(u.Host)
}

// String renders the URL back to wire form.
func (u *Url) String() string {
	s := u.scheme.String()
	out := ""
	if s != "" {
		out = s + "://"
	}
	out += u.HostString()
	if u.explicitPort && u.port != defaultPorts[u.scheme] {
		out += ":" + strconv.Itoa(int(u.port))
	}
	out += u.Path
	if u.Params != "" {
		out += ";" + u.Params
	}
	if u.Query != "" {
		out += "?" + u.Query
	}
	if u.Fragment != "" {
		out += "#" + u.Fragment
	}
	return out
}

// Copy returns a deep copy of u, safe to mutate independently.
func (u *Url) Copy() *Url {
	n := &Url{
		scheme:       u.scheme,
		port:         u.port,
		explicitPort: u.explicitPort,
		Path:         u.Path,
		Params:       u.Params,
		Query:        u.Query,
		Fragment:     u.Fragment,
	}
	if u.Host != nil {
		n.Host = append([]byte(nil), u.Host...)
	}
	return n
}
