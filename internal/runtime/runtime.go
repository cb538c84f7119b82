// Package runtime carries the build identity cmd/txcore assigns at
// startup, consumed by the tracer service name and the ping/config
// handlers.
package runtime

// ApplicationName is the binary's name, used as the tracer service name
// and in the config/ping handler responses.
var ApplicationName = "txcore"

// ApplicationVersion is assigned by cmd/txcore's main() at startup; a
// build can also stamp it with -ldflags
// "-X github.com/corehttp/txcore/internal/runtime.ApplicationVersion=...".
// "dev" is the value until either happens.
var ApplicationVersion = "dev"
