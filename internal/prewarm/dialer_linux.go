//go:build linux
// +build linux

package prewarm

import (
	"net"

	"golang.org/x/sys/unix"
)

// keepAliveIdleSecs is how long a pooled connection may sit idle before
// the kernel starts probing it.
const keepAliveIdleSecs = 30

func tuneKeepAlive(c *net.TCPConn) {
	raw, err := c.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepAliveIdleSecs)
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveIdleSecs)
	})
}
