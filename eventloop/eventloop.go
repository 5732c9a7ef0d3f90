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

// Package eventloop is the single-threaded, cooperative, readiness-
// multiplexed core of the server: it owns the listening socket and
// every accepted connection, and drives each one's state machine off
// epoll readiness notifications. There are no locks and no goroutines
// on this path — it is the direct Linux/epoll translation of
// ConnectionManager::run's accept/select loop.
package eventloop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tilinna/clock"
	"golang.org/x/sys/unix"

	"github.com/holisticode/kvd/connection"
	"github.com/holisticode/kvd/netio"
)

const maxEventsPerWait = 256

// pollTimeoutMS bounds how long Wait blocks so the loop can notice
// context cancellation promptly even with no socket activity.
const pollTimeoutMS = 1000

// recentDisconnectsSize bounds the recently-closed-connection cache
// exposed to admin/introspection; older entries are evicted first.
const recentDisconnectsSize = 256

// Loop owns the listening socket, the poller, and every live
// connection, keyed by file descriptor. conns is touched only by the
// loop goroutine; live/accepted/closed are also read from the admin
// HTTP goroutine, so they are plain int64s updated with sync/atomic
// rather than guarded by a mutex that would reach into the data plane.
// They are kept as the first fields so atomic.AddInt64/LoadInt64 see
// 8-byte alignment on 32-bit platforms too.
type Loop struct {
	live     int64
	accepted int64
	closed   int64

	poller   *netio.Poller
	listenFD int
	dispatch connection.Dispatcher
	conns    map[int]*connection.Conn
	clock    clock.Clock
	started  time.Time

	recentDisconnects *lru.Cache
}

// New registers listenFD with a fresh poller and returns a Loop ready
// to Run. dispatch executes every parsed request.
func New(listenFD int, dispatch connection.Dispatcher) (*Loop, error) {
	poller, err := netio.NewPoller()
	if err != nil {
		return nil, err
	}
	if err := poller.Add(listenFD, true, false); err != nil {
		poller.Close()
		return nil, err
	}
	disconnects, err := lru.New(recentDisconnectsSize)
	if err != nil {
		poller.Close()
		return nil, err
	}
	c := clock.Realtime()
	return &Loop{
		poller:            poller,
		listenFD:          listenFD,
		dispatch:          dispatch,
		conns:             make(map[int]*connection.Conn),
		clock:             c,
		started:           c.Now(),
		recentDisconnects: disconnects,
	}, nil
}

// Len reports the number of live connections, for admin/introspection.
func (l *Loop) Len() int { return int(atomic.LoadInt64(&l.live)) }

// Accepted reports the total number of connections accepted over the
// loop's lifetime, for admin/introspection.
func (l *Loop) Accepted() int { return int(atomic.LoadInt64(&l.accepted)) }

// Closed reports the total number of connections closed over the
// loop's lifetime, for admin/introspection.
func (l *Loop) Closed() int { return int(atomic.LoadInt64(&l.closed)) }

// Uptime reports how long the loop has been running.
func (l *Loop) Uptime() time.Duration { return l.clock.Now().Sub(l.started) }

// RecentDisconnects returns the connection IDs most recently closed,
// newest first, for admin/introspection.
func (l *Loop) RecentDisconnects() []string {
	keys := l.recentDisconnects.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k.(string)
	}
	return out
}

// Close tears down every connection and the poller itself.
func (l *Loop) Close() error {
	for _, c := range l.conns {
		l.forget(c)
	}
	return l.poller.Close()
}

// Run blocks, servicing readiness events until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, maxEventsPerWait)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, err := l.poller.Wait(pollTimeoutMS, events)
		if err != nil {
			return err
		}

		for _, r := range ready {
			if r.FD == l.listenFD {
				l.acceptAll()
				continue
			}
			l.service(r)
		}
	}
}

func (l *Loop) service(r netio.Readiness) {
	conn, ok := l.conns[r.FD]
	if !ok {
		return
	}

	switch {
	case r.Error:
		conn.State = connection.StateClose
	case r.Readable && conn.WantRead():
		conn.HandleReadable(l.dispatch)
	case r.Writable && conn.WantWrite():
		conn.HandleWritable(l.dispatch)
	}

	if conn.Closed() {
		l.forget(conn)
		return
	}

	if err := l.poller.Modify(conn.FD, conn.WantRead(), conn.WantWrite()); err != nil {
		log.Error("failed to update poller interest, closing connection", "conn", conn.ID, "err", err)
		l.forget(conn)
	}
}

func (l *Loop) acceptAll() {
	for {
		fd, ok, err := netio.Accept(l.listenFD)
		if err != nil {
			log.Error("accept failed", "err", err)
			return
		}
		if !ok {
			return
		}

		conn := connection.New(fd)
		if err := l.poller.Add(fd, conn.WantRead(), conn.WantWrite()); err != nil {
			log.Error("failed to register new connection", "conn", conn.ID, "err", err)
			conn.Close()
			continue
		}
		l.conns[fd] = conn
		atomic.AddInt64(&l.accepted, 1)
		atomic.AddInt64(&l.live, 1)
		log.Debug("accepted connection", "conn", conn.ID, "fd", fd)
	}
}

func (l *Loop) forget(conn *connection.Conn) {
	l.poller.Remove(conn.FD)
	conn.Close()
	atomic.AddInt64(&l.closed, 1)
	atomic.AddInt64(&l.live, -1)
	delete(l.conns, conn.FD)
	l.recentDisconnects.Add(conn.ID, l.clock.Now())
	log.Debug("closed connection", "conn", conn.ID)
}
