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

package protocol

import (
	"encoding/binary"
	"testing"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	argv := []string{"SET", "key", "value"}
	frame := EncodeRequest(argv)

	total := binary.LittleEndian.Uint32(frame[:4])
	if int(total) != len(frame)-4 {
		t.Fatalf("total_len = %d, want %d", total, len(frame)-4)
	}

	got, err := ParseRequest(frame[4:])
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(got) != len(argv) {
		t.Fatalf("ParseRequest returned %d args, want %d", len(got), len(argv))
	}
	for i := range argv {
		if got[i] != argv[i] {
			t.Fatalf("arg %d = %q, want %q", i, got[i], argv[i])
		}
	}
}

func TestParseRequestRejectsArgcOverLimit(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, MaxArgs+1)
	if _, err := ParseRequest(buf); err != ErrParse {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseRequestRejectsShortPrefix(t *testing.T) {
	if _, err := ParseRequest([]byte{1, 2, 3}); err != ErrParse {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseRequestRejectsTruncatedArg(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 1)
	buf = append(buf, 0, 0, 0, 0) // argLen = 0... now truncate it
	binary.LittleEndian.PutUint32(buf[4:8], 10)
	if _, err := ParseRequest(buf); err != ErrParse {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseRequestRejectsTrailingBytes(t *testing.T) {
	frame := EncodeRequest([]string{"GET", "k"})
	body := append(frame[4:], 0xff)
	if _, err := ParseRequest(body); err != ErrParse {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestFrameReplyReplacesOversizedPayload(t *testing.T) {
	big := make([]byte, MaxMessage+1)
	framed := FrameReply(big)

	payloadLen := binary.LittleEndian.Uint32(framed[:4])
	payload := framed[4 : 4+payloadLen]
	if Tag(payload[0]) != TagErr {
		t.Fatalf("tag = %v, want TagErr", Tag(payload[0]))
	}
	code := Code(binary.LittleEndian.Uint32(payload[1:5]))
	if code != Code2Big {
		t.Fatalf("code = %v, want Code2Big", code)
	}
}

func TestReplyEncodersProduceExpectedTags(t *testing.T) {
	var buf []byte
	buf = Nil(buf)
	if Tag(buf[0]) != TagNil {
		t.Fatalf("Nil tag = %v", Tag(buf[0]))
	}

	buf = nil
	buf = Str(buf, "hi")
	if Tag(buf[0]) != TagStr {
		t.Fatalf("Str tag = %v", Tag(buf[0]))
	}
	n := binary.LittleEndian.Uint32(buf[1:5])
	if string(buf[5:5+n]) != "hi" {
		t.Fatalf("Str payload = %q, want hi", buf[5:5+n])
	}

	buf = nil
	buf = Int(buf, -7)
	if Tag(buf[0]) != TagInt {
		t.Fatalf("Int tag = %v", Tag(buf[0]))
	}
	v := int64(binary.LittleEndian.Uint64(buf[1:9]))
	if v != -7 {
		t.Fatalf("Int value = %d, want -7", v)
	}
}
