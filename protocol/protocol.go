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

// Package protocol implements the length-prefixed binary wire format
// shared by every client connection: request framing, argument
// parsing, and reply serialization. Everything is little-endian.
package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// MaxMessage bounds the total size of a request or reply payload,
	// excluding the outer 4-byte length prefix.
	MaxMessage = 4096
	// MaxArgs bounds the number of arguments a single request may
	// carry.
	MaxArgs = 1024
)

// ErrParse is returned by ParseRequest for any malformed frame: a
// short length prefix, an argc over MaxArgs, an argument whose length
// would run past the frame, or trailing bytes after the last
// argument. Per the wire contract this is always connection-fatal.
var ErrParse = errors.New("protocol: malformed request frame")

// ParseRequest decodes the argv of a single request frame whose outer
// 4-byte total length has already been stripped by the caller (the
// connection state machine owns framing off the socket buffer; this
// function only owns the argv encoding within one frame).
func ParseRequest(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, ErrParse
	}
	argc := binary.LittleEndian.Uint32(data[:4])
	if argc > MaxArgs {
		return nil, ErrParse
	}

	pos := 4
	argv := make([]string, 0, argc)
	for i := uint32(0); i < argc; i++ {
		if pos+4 > len(data) {
			return nil, ErrParse
		}
		argLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+argLen > len(data) {
			return nil, ErrParse
		}
		argv = append(argv, string(data[pos:pos+argLen]))
		pos += argLen
	}
	if pos != len(data) {
		return nil, ErrParse
	}
	return argv, nil
}

// EncodeRequest frames argv for sending, for use by test harnesses and
// any in-process client. It does not bound-check against MaxMessage;
// callers that need that guarantee should check len(result)-4 first.
func EncodeRequest(argv []string) []byte {
	size := 4
	for _, a := range argv {
		size += 4 + len(a)
	}
	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(argv)))
	pos := 8
	for _, a := range argv {
		binary.LittleEndian.PutUint32(buf[pos:pos+4], uint32(len(a)))
		pos += 4
		copy(buf[pos:], a)
		pos += len(a)
	}
	return buf
}

// Tag identifies the kind of value carried by a Reply.
type Tag byte

const (
	TagNil Tag = 0
	TagErr Tag = 1
	TagStr Tag = 2
	TagInt Tag = 3
	TagDbl Tag = 4
	TagArr Tag = 5
)

// Code enumerates the error codes a reply can carry in an ERR payload.
type Code int32

const (
	CodeUnknown Code = 1
	Code2Big    Code = 2
	CodeType    Code = 3
	CodeArg     Code = 4
)

// Nil appends a NIL value to buf.
func Nil(buf []byte) []byte {
	return append(buf, byte(TagNil))
}

// Str appends a STR value to buf.
func Str(buf []byte, s string) []byte {
	buf = append(buf, byte(TagStr))
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Int appends an INT value to buf.
func Int(buf []byte, v int64) []byte {
	buf = append(buf, byte(TagInt))
	return appendUint64(buf, uint64(v))
}

// Dbl appends a DBL value to buf.
func Dbl(buf []byte, v float64) []byte {
	buf = append(buf, byte(TagDbl))
	return appendUint64(buf, math.Float64bits(v))
}

// Err appends an ERR value to buf.
func Err(buf []byte, code Code, msg string) []byte {
	buf = append(buf, byte(TagErr))
	buf = appendUint32(buf, uint32(code))
	buf = appendUint32(buf, uint32(len(msg)))
	return append(buf, msg...)
}

// ArrHeader reserves space for an ARR value's element count and
// returns the buffer plus the offset to patch once the count is known.
func ArrHeader(buf []byte) (out []byte, countOffset int) {
	buf = append(buf, byte(TagArr))
	countOffset = len(buf)
	buf = appendUint32(buf, 0)
	return buf, countOffset
}

// PatchArrCount writes n into the placeholder reserved by ArrHeader.
func PatchArrCount(buf []byte, countOffset int, n uint32) {
	binary.LittleEndian.PutUint32(buf[countOffset:countOffset+4], n)
}

// Arr appends a complete ARR value of n elements; the elements
// themselves must already have been appended by the caller via Str,
// Int, Dbl, and so on.
func Arr(buf []byte, n uint32) []byte {
	buf = append(buf, byte(TagArr))
	return appendUint32(buf, n)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// FrameReply prefixes payload with its 4-byte little-endian length,
// replacing it with a Code2Big error reply if it would exceed
// MaxMessage, matching the original's "oversized reply becomes an
// error" rule rather than truncating or closing the connection.
func FrameReply(payload []byte) []byte {
	if len(payload) > MaxMessage {
		payload = Err(nil, Code2Big, "response is too big")
	}
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}
