// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package netio owns the raw socket plumbing the event loop rides on:
// a non-blocking TCP listener and an epoll-based readiness poller. It
// translates the original's WinSock bind/listen/accept and select()
// loop into the Linux equivalents via golang.org/x/sys/unix, since the
// rest of the store is platform-agnostic but the event loop is not.
package netio

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking TCP listening socket bound to addr:port
// with SO_REUSEADDR set, mirroring ConnectionManager::initialize.
func Listen(addr string, port int) (fd int, err error) {
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("netio: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netio: setsockopt(SO_REUSEADDR): %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	if addr != "" {
		ip := net.ParseIP(addr).To4()
		if ip == nil {
			unix.Close(fd)
			return -1, fmt.Errorf("netio: invalid bind address %q", addr)
		}
		copy(sa.Addr[:], ip)
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netio: bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netio: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netio: set listener non-blocking: %w", err)
	}
	return fd, nil
}

// Accept accepts and returns one pending connection in non-blocking
// mode, or ok=false if none is currently pending (EAGAIN).
func Accept(listenFD int) (fd int, ok bool, err error) {
	connFD, _, err := unix.Accept(listenFD)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return -1, false, nil
		}
		return -1, false, fmt.Errorf("netio: accept: %w", err)
	}
	if err := unix.SetNonblock(connFD, true); err != nil {
		unix.Close(connFD)
		return -1, false, fmt.Errorf("netio: set connection non-blocking: %w", err)
	}
	return connFD, true, nil
}
