// Copyright 2026 The Dronefly Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// droppedConnection lists the errors a request sees when it reuses a
// keep-alive connection the other side has already closed.
var droppedConnection = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
	syscall.EPIPE,
	syscall.ECONNRESET,
}

// IsConnectionReset reports whether err means the pooled connection
// was dead. A /sync long poll hits this after a homeserver restart or
// a proxy idle timeout; the caller should close idle connections so
// the retry dials fresh.
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range droppedConnection {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
