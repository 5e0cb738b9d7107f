// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package transport

import (
	"log/slog"
	"net"
)

// Pair returns two connected in-memory Conns, one per side of a
// synchronous duplex pipe. Used by the host simulator in tests; both ends
// must be connected before either sends.
func Pair(logger *slog.Logger) (*Conn, *Conn) {
	a, b := net.Pipe()
	return NewConn(a, logger), NewConn(b, logger)
}
