//go:build !linux
// +build !linux

package prewarm

import "net"

func tuneKeepAlive(*net.TCPConn) {}
