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

package netio

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Socket.Read/Write when a non-blocking
// operation has no data or buffer space ready. The caller should wait
// for the next readiness notification from the poller and retry.
var ErrWouldBlock = errors.New("netio: operation would block")

// Socket is the capability surface connection.Conn depends on: reading,
// writing, and closing an accepted, already non-blocking connection,
// plus the raw descriptor the poller multiplexes readiness on.
// connection has no knowledge of epoll; only the Loop that owns a
// Socket's Fd registers it with a Poller.
type Socket interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Fd() int
}

// fdSocket is a Socket backed directly by a raw, non-blocking file
// descriptor.
type fdSocket int

// NewSocket wraps an already accepted, non-blocking connection fd.
func NewSocket(fd int) Socket { return fdSocket(fd) }

// Fd returns the underlying file descriptor.
func (s fdSocket) Fd() int { return int(s) }

// Read performs one non-blocking read, retrying transparently on
// EINTR and translating EAGAIN/EWOULDBLOCK to ErrWouldBlock.
func (s fdSocket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(int(s), p)
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN, unix.EWOULDBLOCK:
			return n, ErrWouldBlock
		default:
			return n, err
		}
	}
}

// Write performs one non-blocking write, retrying transparently on
// EINTR and translating EAGAIN/EWOULDBLOCK to ErrWouldBlock.
func (s fdSocket) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(int(s), p)
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN, unix.EWOULDBLOCK:
			return n, ErrWouldBlock
		default:
			return n, err
		}
	}
}

// Close releases the underlying descriptor.
func (s fdSocket) Close() error {
	return unix.Close(int(s))
}
