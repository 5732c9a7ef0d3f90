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

// Package connection implements the per-socket cooperative state
// machine that the event loop drives: filling a fixed read buffer,
// parsing as many pipelined requests out of it as are fully buffered,
// dispatching each to produce a reply, and draining a fixed write
// buffer back to the client.
package connection

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pborman/uuid"

	"github.com/holisticode/kvd/netio"
	"github.com/holisticode/kvd/protocol"
)

// State is a connection's position in the read/write/close cycle.
type State int

const (
	// StateRead means the connection is waiting for request bytes.
	StateRead State = iota
	// StateWrite means a reply is buffered and waiting to be sent.
	StateWrite
	// StateClose means the connection is to be torn down; the event
	// loop removes it from the poller and closes its socket.
	StateClose
)

func (s State) String() string {
	switch s {
	case StateRead:
		return "read"
	case StateWrite:
		return "write"
	case StateClose:
		return "close"
	default:
		return "unknown"
	}
}

// Dispatcher executes one parsed request and returns its unframed
// reply payload (tag byte plus encoded value). The command package
// implements this.
type Dispatcher interface {
	Dispatch(argv []string) []byte
}

// Conn is one client connection's buffered state machine. Buffers are
// fixed capacity; a request that does not fit is a connection-fatal
// protocol error rather than a dynamic reallocation, and a reply that
// would not fit is replaced by a TooBig error reply (protocol.FrameReply).
// Conn has no knowledge of epoll: it drives Socket, and the event loop
// is the only thing that registers Socket.Fd() with a poller.
type Conn struct {
	Socket netio.Socket
	FD     int
	ID     string
	State  State

	rbuf    [4 + protocol.MaxMessage]byte
	rbufLen int

	wbuf     [4 + protocol.MaxMessage]byte
	wbufLen  int
	wbufSent int
}

// New wraps a freshly accepted, already-nonblocking socket fd.
func New(fd int) *Conn {
	sock := netio.NewSocket(fd)
	return &Conn{Socket: sock, FD: sock.Fd(), ID: uuid.New().String(), State: StateRead}
}

// WantRead reports whether the poller should watch fd for readability.
func (c *Conn) WantRead() bool { return c.State == StateRead }

// WantWrite reports whether the poller should watch fd for writability.
func (c *Conn) WantWrite() bool { return c.State == StateWrite }

// Closed reports whether the connection is ready for teardown.
func (c *Conn) Closed() bool { return c.State == StateClose }

// Close releases the underlying socket. It is idempotent enough for a
// single call from the event loop's cleanup path.
func (c *Conn) Close() error {
	return c.Socket.Close()
}

// HandleReadable is called once per readability notification. It
// performs a single non-blocking read, then drains every pipelined
// request that is now fully buffered.
func (c *Conn) HandleReadable(d Dispatcher) {
	capacity := len(c.rbuf) - c.rbufLen
	if capacity == 0 {
		log.Warn("connection read buffer full with no complete request", "conn", c.ID)
		c.State = StateClose
		return
	}

	n, err := c.Socket.Read(c.rbuf[c.rbufLen : c.rbufLen+capacity])
	switch {
	case err == netio.ErrWouldBlock:
		return
	case err != nil:
		log.Debug("connection read error", "conn", c.ID, "err", err)
		c.State = StateClose
		return
	case n == 0:
		if c.rbufLen > 0 {
			log.Debug("connection closed with a partial request buffered", "conn", c.ID)
		}
		c.State = StateClose
		return
	}

	c.rbufLen += n
	c.drain(d)
}

// HandleWritable is called once per writability notification. It
// drains the write buffer and, once fully flushed, resumes parsing any
// pipelined requests already sitting in the read buffer.
func (c *Conn) HandleWritable(d Dispatcher) {
	c.flush()
	if c.State == StateRead {
		c.drain(d)
	}
}

// drain keeps dispatching requests out of the read buffer as long as
// each reply is fully flushed before the next one is parsed, mirroring
// try_fill_buffer's inner loop over try_one_request.
func (c *Conn) drain(d Dispatcher) {
	for c.tryOneRequest(d) {
	}
}

func (c *Conn) tryOneRequest(d Dispatcher) bool {
	if c.rbufLen < 4 {
		return false
	}
	total := binary.LittleEndian.Uint32(c.rbuf[:4])
	if total > protocol.MaxMessage {
		log.Warn("request exceeds the maximum message size", "conn", c.ID, "len", total)
		c.State = StateClose
		return false
	}
	if int(total)+4 > c.rbufLen {
		return false
	}

	argv, err := protocol.ParseRequest(c.rbuf[4 : 4+total])
	if err != nil {
		log.Warn("malformed request frame", "conn", c.ID, "err", err)
		c.State = StateClose
		return false
	}

	payload := d.Dispatch(argv)
	framed := protocol.FrameReply(payload)
	copy(c.wbuf[:], framed)
	c.wbufLen = len(framed)
	c.wbufSent = 0

	remain := c.rbufLen - 4 - int(total)
	if remain > 0 {
		copy(c.rbuf[:remain], c.rbuf[4+int(total):c.rbufLen])
	}
	c.rbufLen = remain

	c.State = StateWrite
	c.flush()
	return c.State == StateRead
}

// flush attempts to send the remainder of wbuf without blocking,
// returning the connection to StateRead once it is fully sent.
func (c *Conn) flush() {
	for c.wbufSent < c.wbufLen {
		n, err := c.Socket.Write(c.wbuf[c.wbufSent:c.wbufLen])
		switch {
		case err == netio.ErrWouldBlock:
			return
		case err != nil:
			log.Debug("connection write error", "conn", c.ID, "err", err)
			c.State = StateClose
			return
		}
		c.wbufSent += n
	}
	c.wbufLen = 0
	c.wbufSent = 0
	c.State = StateRead
}
