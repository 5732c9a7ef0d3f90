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
	"fmt"

	"golang.org/x/sys/unix"
)

// Readiness reports which direction(s) a fd became ready for.
type Readiness struct {
	FD       int
	Readable bool
	Writable bool
	Error    bool
}

// Poller is a thin, level-triggered wrapper over epoll. The event loop
// re-registers a connection's interest set every time its state
// changes, matching the way the original loop rebuilds its fd_set on
// every pass of select().
type Poller struct {
	epfd int
}

// NewPoller creates an epoll instance.
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("netio: epoll_create1: %w", err)
	}
	return &Poller{epfd: epfd}, nil
}

// Close releases the epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

func eventMask(readable, writable bool) uint32 {
	var mask uint32 = unix.EPOLLERR | unix.EPOLLHUP
	if readable {
		mask |= unix.EPOLLIN
	}
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// Add registers fd for the given interest set.
func (p *Poller) Add(fd int, readable, writable bool) error {
	ev := &unix.EpollEvent{Events: eventMask(readable, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("netio: epoll_ctl(ADD, %d): %w", fd, err)
	}
	return nil
}

// Modify updates fd's interest set, used whenever a connection flips
// between StateRead and StateWrite.
func (p *Poller) Modify(fd int, readable, writable bool) error {
	ev := &unix.EpollEvent{Events: eventMask(readable, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return fmt.Errorf("netio: epoll_ctl(MOD, %d): %w", fd, err)
	}
	return nil
}

// Remove deregisters fd, used before the connection's socket is
// closed during cleanup.
func (p *Poller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("netio: epoll_ctl(DEL, %d): %w", fd, err)
	}
	return nil
}

// Wait blocks (up to timeoutMS, or indefinitely for -1) until at least
// one registered fd is ready, and reports readiness for each.
func (p *Poller) Wait(timeoutMS int, buf []unix.EpollEvent) ([]Readiness, error) {
	n, err := unix.EpollWait(p.epfd, buf, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("netio: epoll_wait: %w", err)
	}

	out := make([]Readiness, n)
	for i := 0; i < n; i++ {
		ev := buf[i]
		out[i] = Readiness{
			FD:       int(ev.Fd),
			Readable: ev.Events&unix.EPOLLIN != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Error:    ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return out, nil
}
