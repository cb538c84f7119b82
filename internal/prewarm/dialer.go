package prewarm

import (
	"net"
	"time"
)

// Dial opens one TCP connection to dst ("host:port") for the pool,
// enabling keep-alive probing so ActivityCop rarely finds a silently
// dead connection in the open list.
func Dial(dst string, timeout time.Duration) (NetVC, error) {
	c, err := net.DialTimeout("tcp", dst, timeout)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tuneKeepAlive(tc)
	}
	return c, nil
}

// Opener adapts Dial to the signature Pool.AdvanceAll drives pending
// state machines with.
func Opener(dst string, timeout time.Duration) func() (NetVC, error) {
	return func() (NetVC, error) {
		return Dial(dst, timeout)
	}
}
