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

package connection

import (
	"encoding/binary"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/holisticode/kvd/protocol"
)

// echoDispatcher replies with the first argument as a STR value, or
// NIL for an empty request, standing in for the real command
// dispatcher in these state-machine tests.
type echoDispatcher struct{ calls int }

func (d *echoDispatcher) Dispatch(argv []string) []byte {
	d.calls++
	if len(argv) == 0 {
		return protocol.Nil(nil)
	}
	return protocol.Str(nil, argv[0])
}

func socketPair(t *testing.T) (serverFD, clientFD int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("SetNonblock: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func mustWrite(t *testing.T, fd int, b []byte) {
	t.Helper()
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		b = b[n:]
	}
}

func readReplyFrame(t *testing.T, fd int) []byte {
	t.Helper()
	var lenBuf [4]byte
	readFull(t, fd, lenBuf[:])
	total := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, total)
	readFull(t, fd, payload)
	return payload
}

func readFull(t *testing.T, fd int, buf []byte) {
	t.Helper()
	got := 0
	for got < len(buf) {
		n, err := unix.Read(fd, buf[got:])
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			t.Fatal("unexpected EOF")
		}
		got += n
	}
}

func TestHandleReadableSingleRequest(t *testing.T) {
	serverFD, clientFD := socketPair(t)
	conn := New(serverFD)
	d := &echoDispatcher{}

	mustWrite(t, clientFD, protocol.EncodeRequest([]string{"PING"}))
	conn.HandleReadable(d)

	if conn.State != StateRead {
		t.Fatalf("State after a fully-flushed reply = %v, want StateRead", conn.State)
	}
	if d.calls != 1 {
		t.Fatalf("Dispatch called %d times, want 1", d.calls)
	}

	payload := readReplyFrame(t, clientFD)
	if protocol.Tag(payload[0]) != protocol.TagStr {
		t.Fatalf("reply tag = %v, want TagStr", protocol.Tag(payload[0]))
	}
}

func TestHandleReadableDrainsPipelinedRequests(t *testing.T) {
	serverFD, clientFD := socketPair(t)
	conn := New(serverFD)
	d := &echoDispatcher{}

	var batch []byte
	batch = append(batch, protocol.EncodeRequest([]string{"A"})...)
	batch = append(batch, protocol.EncodeRequest([]string{"B"})...)
	batch = append(batch, protocol.EncodeRequest([]string{"C"})...)
	mustWrite(t, clientFD, batch)

	conn.HandleReadable(d)

	if d.calls != 3 {
		t.Fatalf("Dispatch called %d times, want 3", d.calls)
	}
	for _, want := range []string{"A", "B", "C"} {
		payload := readReplyFrame(t, clientFD)
		n := binary.LittleEndian.Uint32(payload[1:5])
		got := string(payload[5 : 5+n])
		if got != want {
			t.Fatalf("reply = %q, want %q", got, want)
		}
	}
}

func TestHandleReadableClosesOnOversizedFrame(t *testing.T) {
	serverFD, clientFD := socketPair(t)
	conn := New(serverFD)
	d := &echoDispatcher{}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], protocol.MaxMessage+1)
	mustWrite(t, clientFD, lenBuf[:])

	conn.HandleReadable(d)

	if conn.State != StateClose {
		t.Fatalf("State = %v, want StateClose", conn.State)
	}
}

func TestHandleReadableClosesOnEOF(t *testing.T) {
	serverFD, clientFD := socketPair(t)
	conn := New(serverFD)
	unix.Close(clientFD)

	conn.HandleReadable(&echoDispatcher{})

	if conn.State != StateClose {
		t.Fatalf("State = %v, want StateClose", conn.State)
	}
}

func TestHandleReadableWaitsOnPartialFrame(t *testing.T) {
	serverFD, clientFD := socketPair(t)
	conn := New(serverFD)
	d := &echoDispatcher{}

	full := protocol.EncodeRequest([]string{"PING"})
	mustWrite(t, clientFD, full[:len(full)-1])

	conn.HandleReadable(d)

	if conn.State != StateRead {
		t.Fatalf("State on partial frame = %v, want StateRead", conn.State)
	}
	if d.calls != 0 {
		t.Fatalf("Dispatch called %d times on a partial frame, want 0", d.calls)
	}
}
